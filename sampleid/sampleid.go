// Package sampleid derives sample metadata (run, accession, episode and library
// repeat) from the dataset ids that the sequencing pipeline bakes into file and
// record names, e.g. WCMID-A12345-67R2_S1_L001.json.
package sampleid

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/guregu/null.v3"
)

const (
	// PositiveControl replaces the accession of control samples.
	PositiveControl = "POSCONTROL"

	datasetPrefix = "WCMID-"
)

// Sequencer sample/lane suffix, optionally followed by the report extension.
var laneSuffix = regexp.MustCompile(`_S\d*_L\d*(\.json)?$`)

// Field names, in the order the reference tool declared them.
const (
	FieldJSONFile  = "json_file"
	FieldEpisode   = "episode"
	FieldAccession = "accession"
	FieldRun       = "run"
	FieldLibRepeat = "lib_repeat"
)

type Identifier struct {
	JSONFile  null.String
	Episode   null.String
	Accession null.String
	Run       null.String
	LibRepeat null.String
}

// Fields renders the identifier as a flat mapping. Every key is always
// present; unset values are blank.
func (id Identifier) Fields() map[string]string {
	return map[string]string{
		FieldJSONFile:  NullStringFormatter(id.JSONFile),
		FieldEpisode:   NullStringFormatter(id.Episode),
		FieldAccession: NullStringFormatter(id.Accession),
		FieldRun:       NullStringFormatter(id.Run),
		FieldLibRepeat: NullStringFormatter(id.LibRepeat),
	}
}

func NullStringFormatter(n null.String) string {
	if !n.Valid {
		return ""
	}

	return n.String
}

// Parser classifies dataset-id tokens.
//
// The reference implementation meant to only treat tokens starting with a digit
// as episode/repeat candidates, but its check was always true, so every token
// that is neither an accession nor a control became an episode. That remains
// the default so that existing tables reproduce exactly. StrictEpisode enables
// the intended digit check; other tokens are then ignored.
type Parser struct {
	StrictEpisode bool
}

// Parse builds an Identifier from a dataset id (a file name or a record name),
// the name of the JSON file it came from, and the run id.
func (p Parser) Parse(datasetID, jsonFile string, run null.String) Identifier {
	id := Identifier{
		JSONFile: null.NewString(jsonFile, jsonFile != ""),
		Run:      run,
	}

	for _, token := range Tokens(datasetID) {
		p.classify(token, &id)
	}

	return id
}

// Tokens strips the sequencer suffix, the report extension and the WCMID-
// prefix from datasetID, then splits the remainder on hyphens.
func Tokens(datasetID string) []string {
	trimmed := laneSuffix.ReplaceAllString(datasetID, "")
	trimmed = strings.TrimSuffix(trimmed, ".json")
	trimmed = strings.TrimPrefix(trimmed, datasetPrefix)

	return strings.Split(trimmed, "-")
}

func (p Parser) classify(token string, id *Identifier) {
	switch {
	case token == "":
		// Produced by doubled or trailing hyphens; carries nothing.
	case strings.HasPrefix(token, "A"):
		id.Accession = null.StringFrom(token)
	case strings.HasPrefix(token, "C") || strings.Contains(token, "P") || strings.Contains(token, "NCTC"):
		id.Accession = null.StringFrom(PositiveControl)
	case !p.StrictEpisode || startsWithDigit(token):
		epiRepeat := strings.Split(token, "R")
		id.Episode = null.StringFrom(epiRepeat[0])
		if len(epiRepeat) > 1 {
			id.LibRepeat = null.StringFrom(epiRepeat[1])
		}
	}
}

func startsWithDigit(token string) bool {
	for _, r := range token {
		return unicode.IsDigit(r)
	}

	return false
}

// RunFromPath infers the sequencing run from a report path: the last directory
// whose name starts with M0 (MiSeq run folders), cut down to its first two
// underscore-separated segments. Works for local and gs:// paths alike.
func RunFromPath(reportPath string) null.String {
	dir, _ := path.Split(filepath.ToSlash(reportPath))

	var run null.String
	for _, directory := range strings.Split(dir, "/") {
		if strings.HasPrefix(directory, "M0") {
			shortRun := strings.Split(directory, "_")
			if len(shortRun) > 2 {
				shortRun = shortRun[:2]
			}
			run = null.StringFrom(strings.Join(shortRun, "_"))
		}
	}

	return run
}
