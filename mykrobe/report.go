// Package mykrobe turns mykrobe genotyping reports into flat table rows.
package mykrobe

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/carbocation/mykrobe2csv"
	"github.com/carbocation/mykrobe2csv/jsonorder"
	"github.com/carbocation/mykrobe2csv/sampleid"
	"gopkg.in/guregu/null.v3"
)

// Sample is one record of a report together with what is known about where it
// came from.
type Sample struct {
	// DatasetID is parsed for accession, episode and repeat: the file name in
	// single-record mode, the record name in multi-record mode.
	DatasetID string

	// JSONFile is the base name of the report file.
	JSONFile string

	Run     null.String
	Payload *jsonorder.Object
}

// ReportReader turns one report file into samples. The two report layouts in
// circulation differ only in how many records a file holds and how the run id
// is found.
type ReportReader interface {
	Read(ctx context.Context, reportPath string, runID string) ([]Sample, error)
}

// LoadReport reads and decodes the report at reportPath. A report with no
// records is malformed.
func LoadReport(ctx context.Context, reportPath string, client *storage.Client) (*jsonorder.Object, error) {
	b, err := mykrobe2csv.ReadAll(ctx, reportPath, client)
	if err != nil {
		return nil, err
	}

	report, err := jsonorder.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", reportPath, err)
	}

	if report.Len() == 0 {
		return nil, fmt.Errorf("%s: %w: report contains no records", reportPath, mykrobe2csv.ErrMalformedJSON)
	}

	return report, nil
}

// reportFileName is the base name of reportPath with any compression
// extension removed.
func reportFileName(reportPath string) string {
	return mykrobe2csv.TrimCompressionSuffix(path.Base(filepath.ToSlash(reportPath)))
}

// SingleRecordReader handles one sample per file, named after the file. If no
// run id is given, it is inferred from the directories of the path.
type SingleRecordReader struct {
	Client *storage.Client
}

func (r SingleRecordReader) Read(ctx context.Context, reportPath string, runID string) ([]Sample, error) {
	report, err := LoadReport(ctx, reportPath, r.Client)
	if err != nil {
		return nil, err
	}

	// Only one record is expected. If there are more, the last one in the
	// document is the one that gets used.
	keys := report.Keys()
	recordName := keys[len(keys)-1]
	if len(keys) > 1 {
		log.Printf("Warning: %s holds %d records; only the last (%s) is used. Use -multi to keep all of them.\n", reportPath, len(keys), recordName)
	}

	payload, err := report.Object(recordName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", reportPath, err)
	}

	run := null.NewString(runID, runID != "")
	if !run.Valid {
		run = sampleid.RunFromPath(reportPath)
	}

	fileName := reportFileName(reportPath)

	return []Sample{{
		DatasetID: fileName,
		JSONFile:  fileName,
		Run:       run,
		Payload:   payload,
	}}, nil
}

// MultiRecordReader handles files holding many samples, each named by its
// record key. The run id must be supplied.
type MultiRecordReader struct {
	Client *storage.Client
}

func (r MultiRecordReader) Read(ctx context.Context, reportPath string, runID string) ([]Sample, error) {
	if runID == "" {
		return nil, fmt.Errorf("%s: a run id is required for multi-record reports", reportPath)
	}

	report, err := LoadReport(ctx, reportPath, r.Client)
	if err != nil {
		return nil, err
	}

	fileName := reportFileName(reportPath)

	samples := make([]Sample, 0, report.Len())
	for _, recordName := range report.Keys() {
		payload, err := report.Object(recordName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", reportPath, err)
		}

		samples = append(samples, Sample{
			DatasetID: recordName,
			JSONFile:  fileName,
			Run:       null.StringFrom(runID),
			Payload:   payload,
		})
	}

	return samples, nil
}
