package mykrobe

import (
	"strings"

	"github.com/carbocation/mykrobe2csv/jsonorder"
)

const (
	// Resistant is written for every drug whose call is not susceptible.
	Resistant = "R"

	// DeterminantsSuffix is appended to the drug name to form the column that
	// lists the variants supporting a resistant call.
	DeterminantsSuffix = "_determinants(variant:ref_depth:alt_depth:alt_cov_pct)"

	variantSeparator = "|"
	fieldSeparator   = ":"
)

// FlattenSusceptibility emits one column per drug. Calls containing an S are
// copied verbatim. Any other call is reported as R, plus a determinants column
// joining variant:ref_depth:alt_depth:alt_cov_pct for each variant in
// called_by, separated by |.
//
// "Contains an S" is deliberately loose: it is the test existing tables were
// produced with.
func FlattenSusceptibility(payload *jsonorder.Object) (map[string]string, error) {
	susceptibility, err := payload.Object("susceptibility")
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, drug := range susceptibility.Keys() {
		call, err := susceptibility.Object(drug)
		if err != nil {
			return nil, err
		}

		predict, err := call.Scalar("predict")
		if err != nil {
			return nil, err
		}

		if strings.Contains(predict, "S") {
			out[drug] = predict
			continue
		}

		determinants, err := Determinants(call)
		if err != nil {
			return nil, err
		}

		out[drug] = Resistant
		out[drug+DeterminantsSuffix] = determinants
	}

	return out, nil
}

// Determinants renders the called_by variants of one drug call.
func Determinants(call *jsonorder.Object) (string, error) {
	calledBy, err := call.Object("called_by")
	if err != nil {
		return "", err
	}

	variants := make([]string, 0, calledBy.Len())
	for _, variant := range calledBy.Keys() {
		coverage, err := calledBy.Object(variant, "info", "coverage")
		if err != nil {
			return "", err
		}

		refDepth, err := coverage.Scalar("reference", "median_depth")
		if err != nil {
			return "", err
		}
		altDepth, err := coverage.Scalar("alternate", "median_depth")
		if err != nil {
			return "", err
		}
		altCoverage, err := coverage.Scalar("alternate", "percent_coverage")
		if err != nil {
			return "", err
		}

		variants = append(variants, strings.Join([]string{variant, refDepth, altDepth, altCoverage}, fieldSeparator))
	}

	return strings.Join(variants, variantSeparator), nil
}
