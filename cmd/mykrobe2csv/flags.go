package main

import (
	"flag"
	"fmt"
	"strings"
)

// flagSlice collects every value given for a repeatable flag.
type flagSlice []string

func (i *flagSlice) String() string {
	return strings.Join(*i, ",")
}

func (i *flagSlice) Set(value string) error {
	*i = append(*i, value)
	return nil
}

type config struct {
	output        string
	jsonPaths     flagSlice
	runID         string
	multi         bool
	manifest      string
	strictEpisode bool
	version       bool
}

func parseFlags(fs *flag.FlagSet, args []string) (config, error) {
	var cfg config

	fs.StringVar(&cfg.output, "o", "", "Path to output CSV file (local or gs://).")
	fs.Var(&cfg.jsonPaths, "j", "Path to mykrobe JSON report(s). Repeatable; paths listed right after -j are also taken (e.g., -j a.json b.json).")
	fs.StringVar(&cfg.runID, "r", "", "Sequencing run ID. Optional for single-record reports, where it is otherwise inferred from an M0* directory in the path. Required with -multi.")
	fs.BoolVar(&cfg.multi, "multi", false, "Each report holds several named records; emit one row per record.")
	fs.StringVar(&cfg.manifest, "manifest", "", "Optional CSV/TSV sample sheet with a json_path column and an optional run column.")
	fs.BoolVar(&cfg.strictEpisode, "strict-episode", false, "Only treat dataset-id tokens that start with a digit as episode/repeat.")
	fs.BoolVar(&cfg.version, "version", false, "Print build information and exit.")

	if err := parseArgs(fs, args, &cfg.jsonPaths); err != nil {
		return cfg, err
	}

	if cfg.version {
		return cfg, nil
	}

	if cfg.output == "" {
		return cfg, fmt.Errorf("-o is required")
	}

	if len(cfg.jsonPaths) == 0 && cfg.manifest == "" {
		return cfg, fmt.Errorf("at least one report must be given with -j or -manifest")
	}

	if cfg.multi && cfg.runID == "" && cfg.manifest == "" {
		return cfg, fmt.Errorf("-r is required with -multi")
	}

	return cfg, nil
}

// parseArgs lets the standard flag package accept several values after -j
// (-j a.json b.json -o out.csv). The flag package stops at the first non-flag
// argument. Those arguments are report paths only when they directly follow a
// -j value; anything else is rejected. Parsing then resumes at the next flag.
func parseArgs(fs *flag.FlagSet, args []string, paths *flagSlice) error {
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}

		rest := fs.Args()
		if len(rest) == 0 {
			return nil
		}

		consumed := args[:len(args)-len(rest)]
		if !endsWithReportFlag(consumed) {
			return fmt.Errorf("unexpected argument %q", rest[0])
		}

		i := 0
		for i < len(rest) && !strings.HasPrefix(rest[i], "-") {
			paths.Set(rest[i])
			i++
		}
		if i == 0 {
			return fmt.Errorf("unexpected argument %q", rest[0])
		}
		args = rest[i:]
	}
}

// endsWithReportFlag reports whether the last parsed flag was -j with its
// value, in either the "-j a.json" or the "-j=a.json" form.
func endsWithReportFlag(consumed []string) bool {
	n := len(consumed)
	if n >= 1 && (strings.HasPrefix(consumed[n-1], "-j=") || strings.HasPrefix(consumed[n-1], "--j=")) {
		return true
	}

	return n >= 2 && (consumed[n-2] == "-j" || consumed[n-2] == "--j")
}
