// Package manifest reads sample sheets that list report files, one per row,
// optionally with the sequencing run each belongs to. The delimiter is
// detected, so both CSV and TSV sheets work.
package manifest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"

	"cloud.google.com/go/storage"
	"github.com/carbocation/mykrobe2csv"
	"github.com/gocarina/gocsv"
)

type Entry struct {
	JSONPath string `csv:"json_path"`
	Run      string `csv:"run"`
}

// Read loads the sample sheet at path (local or gs://).
func Read(ctx context.Context, path string, client *storage.Client) ([]Entry, error) {
	log.Printf("Importing sample sheet from %s\n", path)

	fileBytes, err := mykrobe2csv.ReadAll(ctx, path, client)
	if err != nil {
		return nil, err
	}

	entries, err := Parse(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return entries, nil
}

// Parse decodes a sample sheet. json_path must be filled in on every row; run
// is optional.
func Parse(fileBytes []byte) ([]Entry, error) {
	delim := mykrobe2csv.DetermineDelimiter(fileBytes)

	// Tell gocsv to use the detected delimiter
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = delim
		return r
	})

	records := []*Entry{}
	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(records))
	for i, record := range records {
		if record.JSONPath == "" {
			// +2: 1-based, and the header is line 1
			return nil, fmt.Errorf("line %d: json_path is empty", i+2)
		}
		out = append(out, *record)
	}

	return out, nil
}
