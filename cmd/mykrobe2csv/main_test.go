package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/mykrobe2csv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const determinantsColumn = "3res.Isoniazid_determinants(variant:ref_depth:alt_depth:alt_cov_pct)"

const susceptibleReport = `{
	"WCMID-A11111-10R1_S1_L001": {
		"phylogenetics": {
			"species": {
				"Mycobacterium_tuberculosis": {"percent_coverage": 99.5, "median_depth": 70}
			}
		},
		"susceptibility": {"Isoniazid": {"predict": "S", "called_by": {}}}
	}
}`

const resistantReport = `{
	"WCMID-A22222-20R2_S2_L001": {
		"phylogenetics": {
			"species": {
				"Mycobacterium_bovis": {"percent_coverage": 10, "median_depth": 2},
				"Mycobacterium_tuberculosis": {"percent_coverage": 98.2, "median_depth": 65}
			}
		},
		"susceptibility": {
			"Isoniazid": {
				"predict": "R",
				"called_by": {
					"katG_S315T": {"info": {"filter": "PASS", "coverage": {
						"reference": {"median_depth": 0},
						"alternate": {"median_depth": 61, "percent_coverage": 100.0}
					}}},
					"inhA_I21T": {"info": {"filter": "PASS", "coverage": {
						"reference": {"median_depth": 3},
						"alternate": {"median_depth": 40, "percent_coverage": 95.1}
					}}}
				}
			}
		}
	}
}`

func writeFile(t *testing.T, p, contents string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(contents), 0644))

	return p
}

func readCSV(t *testing.T, p string) []map[string]string {
	t.Helper()

	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	header := records[0]
	out := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		require.Len(t, rec, len(header))
		row := make(map[string]string)
		for i, col := range header {
			row[col] = rec[i]
		}
		out = append(out, row)
	}

	return out
}

func testFlags(t *testing.T, args ...string) config {
	t.Helper()

	fs := flag.NewFlagSet("mykrobe2csv", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg, err := parseFlags(fs, args)
	require.NoError(t, err)

	return cfg
}

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "M01234_20220601_000000000-KX7P2")
	a := writeFile(t, filepath.Join(runDir, "WCMID-A11111-10R1_S1_L001.json"), susceptibleReport)
	b := writeFile(t, filepath.Join(runDir, "WCMID-A22222-20R2_S2_L001.json"), resistantReport)
	out := filepath.Join(dir, "out.csv")

	cfg := testFlags(t, "-o", out, "-j", a, b)
	require.NoError(t, run(context.Background(), cfg))

	b2, err := os.ReadFile(out)
	require.NoError(t, err)
	header := strings.SplitN(string(b2), "\r\n", 2)[0]
	assert.Equal(t, strings.Join([]string{
		"1sample.accession",
		"1sample.episode",
		"1sample.json_file",
		"1sample.lib_repeat",
		"1sample.run",
		"2phylo.species1",
		"2phylo.species1_median",
		"2phylo.species1_pct",
		"2phylo.species2",
		"2phylo.species2_median",
		"2phylo.species2_pct",
		"3res.Isoniazid",
		determinantsColumn,
	}, ","), header)

	rows := readCSV(t, out)
	require.Len(t, rows, 2)

	assert.Equal(t, "A11111", rows[0]["1sample.accession"])
	assert.Equal(t, "10", rows[0]["1sample.episode"])
	assert.Equal(t, "1", rows[0]["1sample.lib_repeat"])
	assert.Equal(t, "M01234_20220601", rows[0]["1sample.run"])
	assert.Equal(t, "S", rows[0]["3res.Isoniazid"])
	assert.Equal(t, "", rows[0][determinantsColumn])
	assert.Equal(t, "", rows[0]["2phylo.species2"])

	assert.Equal(t, "A22222", rows[1]["1sample.accession"])
	assert.Equal(t, "R", rows[1]["3res.Isoniazid"])
	assert.Equal(t, "katG_S315T:0:61:100.0|inhA_I21T:3:40:95.1", rows[1][determinantsColumn])
	assert.Equal(t, "Mycobacterium_tuberculosis", rows[1]["2phylo.species1"])
	assert.Equal(t, "Mycobacterium_bovis", rows[1]["2phylo.species2"])
	assert.Equal(t, "10", rows[1]["2phylo.species2_pct"])
}

func TestMultiRecordWithManifest(t *testing.T) {
	dir := t.TempDir()
	batch := writeFile(t, filepath.Join(dir, "batch.json"), `{
		"WCMID-A1-1R1": {"phylogenetics": {}, "susceptibility": {"Rifampicin": {"predict": "S"}}},
		"NCTC13144-2": {"phylogenetics": {}, "susceptibility": {"Rifampicin": {"predict": "S"}}}
	}`)
	sheet := writeFile(t, filepath.Join(dir, "samples.tsv"), "json_path\trun\n"+batch+"\tM05555\n")
	out := filepath.Join(dir, "out.csv")

	cfg := testFlags(t, "-o", out, "-manifest", sheet, "-multi")
	require.NoError(t, run(context.Background(), cfg))

	rows := readCSV(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0]["1sample.accession"])
	assert.Equal(t, "POSCONTROL", rows[1]["1sample.accession"])
	for _, row := range rows {
		assert.Equal(t, "M05555", row["1sample.run"])
		assert.Equal(t, "batch.json", row["1sample.json_file"])
	}
}

func TestFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "A1-1.json"), susceptibleReport)
	bad := writeFile(t, filepath.Join(dir, "A2-2.json"), `{"s": {"phylogenetics": {}}}`)
	out := filepath.Join(dir, "out.csv")

	err := run(context.Background(), testFlags(t, "-o", out, "-j", good, bad))
	assert.True(t, errors.Is(err, mykrobe2csv.ErrMissingKey), "got %v", err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))

	err = run(context.Background(), testFlags(t, "-o", out, "-j", filepath.Join(dir, "absent.json")))
	assert.True(t, errors.Is(err, mykrobe2csv.ErrInputUnreadable), "got %v", err)

	err = run(context.Background(), testFlags(t, "-o", filepath.Join(dir, "nope", "out.csv"), "-j", good))
	assert.True(t, errors.Is(err, mykrobe2csv.ErrOutputUnwritable), "got %v", err)
}

func TestParseFlags(t *testing.T) {
	cfg := testFlags(t, "-o", "out.csv", "-j", "a.json", "b.json", "-r", "RUN1", "-j", "c.json", "d.json")
	assert.Equal(t, flagSlice{"a.json", "b.json", "c.json", "d.json"}, cfg.jsonPaths)
	assert.Equal(t, "RUN1", cfg.runID)
	assert.Equal(t, "out.csv", cfg.output)

	cfg = testFlags(t, "-o", "out.csv", "-j=a.json", "b.json", "-multi", "-r", "RUN1")
	assert.Equal(t, flagSlice{"a.json", "b.json"}, cfg.jsonPaths)
	assert.True(t, cfg.multi)

	cfg = testFlags(t, "-version")
	assert.True(t, cfg.version)

	bad := [][]string{
		{"-j", "a.json"},
		{"-o", "out.csv"},
		{"-o", "out.csv", "-j", "a.json", "-multi"},
		{"-o", "out.csv", "-nope"},
		{"-o", "out.csv", "a.json"},
		{"-o", "out.csv", "-multi", "-r", "RUN1", "a.json"},
		{"-o", "out.csv", "-j", "a.json", "--", "b.json"},
		{"-o", "out.csv", "-j", "a.json", "-", "b.json"},
	}
	for _, args := range bad {
		fs := flag.NewFlagSet("mykrobe2csv", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		_, err := parseFlags(fs, args)
		assert.Error(t, err, "%v", args)
	}
}
