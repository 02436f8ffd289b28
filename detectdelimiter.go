package mykrobe2csv

import (
	"bytes"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// sheetDelimiters are the delimiters a sample sheet may use. The detector also
// proposes any punctuation that repeats on every line, such as the '/' of
// paths, so its guesses are filtered against this set.
const sheetDelimiters = ",\t;|"

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in b, assuming a CSV-like file. Comma is the fallback.
func DetermineDelimiter(b []byte) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(b), '"')

	for _, delim := range delimiters {
		if len(delim) == 1 && strings.Contains(sheetDelimiters, delim) {
			return rune(delim[0])
		}
	}

	return ','
}
