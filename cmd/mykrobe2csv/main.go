// mykrobe2csv flattens mykrobe genotyping reports (JSON) into one CSV with a
// row per sample: sample metadata parsed from the file or record name, ranked
// phylogenetics calls, and per-drug susceptibility with the variants behind
// every resistant call.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/mykrobe2csv"
	"github.com/carbocation/mykrobe2csv/compileinfo"
	"github.com/carbocation/mykrobe2csv/manifest"
	"github.com/carbocation/mykrobe2csv/mykrobe"
	"github.com/carbocation/mykrobe2csv/sampleid"
	"github.com/carbocation/mykrobe2csv/table"
	"github.com/carbocation/pfx"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Println(err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	if cfg.version {
		if err := compileinfo.Fprint(os.Stdout); err != nil {
			log.Fatalln(err)
		}
		return
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalln(pfx.Err(err))
	}
}

type input struct {
	path string
	run  string
}

func run(ctx context.Context, cfg config) error {
	output, err := mykrobe2csv.ExpandHome(cfg.output)
	if err != nil {
		return err
	}

	var client *storage.Client
	defer func() {
		if client != nil {
			client.Close()
		}
	}()

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths.
	ensureClient := func(paths ...string) error {
		if client != nil {
			return nil
		}
		for _, p := range paths {
			if mykrobe2csv.IsGoogleStoragePath(p) {
				var err error
				client, err = storage.NewClient(ctx)
				return err
			}
		}
		return nil
	}

	if err := ensureClient(append([]string{output, cfg.manifest}, cfg.jsonPaths...)...); err != nil {
		return err
	}

	inputs, err := collectInputs(ctx, cfg, client)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no reports to convert")
	}
	paths := make([]string, 0, len(inputs))
	for _, in := range inputs {
		paths = append(paths, in.path)
	}
	if err := ensureClient(paths...); err != nil {
		return err
	}

	// Open the destination before any work, so an unwritable path fails fast.
	// Nothing becomes visible there unless every report converts.
	out, err := table.Create(ctx, output, client)
	if err != nil {
		return err
	}
	defer out.Abort()

	var reader mykrobe.ReportReader = mykrobe.SingleRecordReader{Client: client}
	if cfg.multi {
		reader = mykrobe.MultiRecordReader{Client: client}
	}
	parser := sampleid.Parser{StrictEpisode: cfg.strictEpisode}

	tbl := table.New()
	for _, in := range inputs {
		log.Printf("Processing %s\n", in.path)

		samples, err := reader.Read(ctx, in.path, in.run)
		if err != nil {
			return err
		}

		for _, sample := range samples {
			row, err := sample.Flatten(parser)
			if err != nil {
				return fmt.Errorf("%s: %w", in.path, err)
			}
			tbl.Add(row)
		}
	}

	if err := tbl.Write(out); err != nil {
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}

	log.Printf("Wrote %d rows with %d columns to %s\n", tbl.Len(), len(tbl.Header()), output)

	return nil
}

// collectInputs lists the reports from -j followed by those of the sample
// sheet, in order. A run in the sample sheet overrides -r for that report.
func collectInputs(ctx context.Context, cfg config, client *storage.Client) ([]input, error) {
	inputs := make([]input, 0, len(cfg.jsonPaths))
	for _, p := range cfg.jsonPaths {
		expanded, err := mykrobe2csv.ExpandHome(p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input{path: expanded, run: cfg.runID})
	}

	if cfg.manifest == "" {
		return inputs, nil
	}

	manifestPath, err := mykrobe2csv.ExpandHome(cfg.manifest)
	if err != nil {
		return nil, err
	}

	entries, err := manifest.Read(ctx, manifestPath, client)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		expanded, err := mykrobe2csv.ExpandHome(entry.JSONPath)
		if err != nil {
			return nil, err
		}

		run := cfg.runID
		if entry.Run != "" {
			run = entry.Run
		}
		inputs = append(inputs, input{path: expanded, run: run})
	}

	return inputs, nil
}
