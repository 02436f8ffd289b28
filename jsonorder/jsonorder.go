// Package jsonorder decodes JSON objects into a tree that remembers the order
// in which keys appeared in the document. Mykrobe reports rely on that order
// for tie-breaking and for the order of supporting variants.
package jsonorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/mykrobe2csv"
)

// Object is a JSON object whose keys keep document order. Values are one of
// *Object, []interface{}, string, json.Number, bool or nil.
type Object struct {
	path   []string
	keys   []string
	values map[string]interface{}
}

func newObject(path []string) *Object {
	return &Object{
		path:   path,
		keys:   make([]string, 0),
		values: make(map[string]interface{}),
	}
}

// set follows the usual decoder semantics for duplicate keys: the last value
// wins, but the key stays where it first appeared.
func (o *Object) set(key string, value interface{}) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	return o.keys
}

func (o *Object) Len() int {
	return len(o.keys)
}

// Path is the dotted location of this object within the document.
func (o *Object) Path() string {
	return strings.Join(o.path, ".")
}

// Get returns the raw value stored under key.
func (o *Object) Get(key string) (interface{}, bool) {
	v, exists := o.values[key]
	return v, exists
}

// Object walks keys through nested objects and returns the object found at the
// end. A missing key or a non-object along the way yields a *KeyError.
func (o *Object) Object(keys ...string) (*Object, error) {
	current := o
	for _, key := range keys {
		v, exists := current.values[key]
		if !exists || v == nil {
			return nil, current.missing(key)
		}
		next, ok := v.(*Object)
		if !ok {
			return nil, current.wrongShape(key, "an object")
		}
		current = next
	}

	return current, nil
}

// Scalar walks keys and renders the value found at the end as text. Numbers
// keep their original JSON spelling. Null counts as missing.
func (o *Object) Scalar(keys ...string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("jsonorder: Scalar needs at least one key")
	}

	parent, err := o.Object(keys[:len(keys)-1]...)
	if err != nil {
		return "", err
	}

	key := keys[len(keys)-1]
	v, exists := parent.values[key]
	if !exists || v == nil {
		return "", parent.missing(key)
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	}

	return "", parent.wrongShape(key, "a scalar")
}

// Float walks keys and parses the value found at the end as a number. It
// returns the parsed value together with its original spelling.
func (o *Object) Float(keys ...string) (float64, string, error) {
	text, err := o.Scalar(keys...)
	if err != nil {
		return 0, "", err
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, "", &KeyError{Path: o.childPath(keys...), Problem: "is not a number"}
	}

	return f, text, nil
}

func (o *Object) childPath(keys ...string) []string {
	out := make([]string, 0, len(o.path)+len(keys))
	out = append(out, o.path...)
	return append(out, keys...)
}

func (o *Object) missing(key string) error {
	return &KeyError{Path: o.childPath(key), Problem: "is missing"}
}

func (o *Object) wrongShape(key, want string) error {
	return &KeyError{Path: o.childPath(key), Problem: "is not " + want}
}

// KeyError reports a required key that is absent or has the wrong shape. It
// matches mykrobe2csv.ErrMissingKey under errors.Is.
type KeyError struct {
	Path    []string
	Problem string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %s", strings.Join(e.Path, "."), e.Problem)
}

func (e *KeyError) Unwrap() error {
	return mykrobe2csv.ErrMissingKey
}

// Unmarshal decodes a document whose top level must be an object. Syntax
// errors, trailing data and non-object documents wrap
// mykrobe2csv.ErrMalformedJSON.
func Unmarshal(data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top level is not an object", mykrobe2csv.ErrMalformedJSON)
	}

	obj, err := decodeObject(dec, nil)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("%w: trailing data after top-level object", mykrobe2csv.ErrMalformedJSON)
		}
		return nil, malformed(err)
	}

	return obj, nil
}

func malformed(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %v", mykrobe2csv.ErrMalformedJSON, err)
}

// decodeObject consumes the members of an object whose opening brace has
// already been read, along with its closing brace.
func decodeObject(dec *json.Decoder, path []string) (*Object, error) {
	obj := newObject(path)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object key, got %v", mykrobe2csv.ErrMalformedJSON, tok)
		}

		v, err := decodeValue(dec, obj.childPath(key))
		if err != nil {
			return nil, err
		}
		obj.set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed(err)
	}

	return obj, nil
}

func decodeValue(dec *json.Decoder, path []string) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, malformed(err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		return decodeObject(dec, path)
	case '[':
		arr := make([]interface{}, 0)
		for i := 0; dec.More(); i++ {
			v, err := decodeValue(dec, append(append([]string{}, path...), strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, malformed(err)
		}
		return arr, nil
	}

	return nil, fmt.Errorf("%w: unexpected %v", mykrobe2csv.ErrMalformedJSON, delim)
}
