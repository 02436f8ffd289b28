package mykrobe2csv

import "errors"

// Failure classes. Every error that aborts a batch wraps exactly one of these,
// so callers can tell them apart with errors.Is.
var (
	ErrInputUnreadable  = errors.New("input unreadable")
	ErrMalformedJSON    = errors.New("malformed JSON")
	ErrMissingKey       = errors.New("missing required key")
	ErrOutputUnwritable = errors.New("output unwritable")
)
