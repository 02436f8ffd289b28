package mykrobe

import (
	"sort"
	"strconv"

	"github.com/carbocation/mykrobe2csv/jsonorder"
)

type taxonCall struct {
	Name            string
	Coverage        float64
	PercentCoverage string
	MedianDepth     string
}

// FlattenPhylogenetics ranks the taxa of every phylogenetics category (e.g.
// phylo_group, species) by descending percent_coverage and emits, for rank n:
//
//	{category}{n}         taxon name
//	{category}{n}_pct     percent_coverage
//	{category}{n}_median  median_depth
//
// Ties keep document order.
func FlattenPhylogenetics(payload *jsonorder.Object) (map[string]string, error) {
	phylo, err := payload.Object("phylogenetics")
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, category := range phylo.Keys() {
		taxa, err := phylo.Object(category)
		if err != nil {
			return nil, err
		}

		calls, err := rankTaxa(taxa)
		if err != nil {
			return nil, err
		}

		for i, call := range calls {
			prefix := category + strconv.Itoa(i+1)
			out[prefix] = call.Name
			out[prefix+"_pct"] = call.PercentCoverage
			out[prefix+"_median"] = call.MedianDepth
		}
	}

	return out, nil
}

func rankTaxa(taxa *jsonorder.Object) ([]taxonCall, error) {
	calls := make([]taxonCall, 0, taxa.Len())
	for _, name := range taxa.Keys() {
		coverage, pct, err := taxa.Float(name, "percent_coverage")
		if err != nil {
			return nil, err
		}

		// median_depth was never required; a missing one leaves the cell blank.
		median, _ := taxa.Scalar(name, "median_depth")

		calls = append(calls, taxonCall{
			Name:            name,
			Coverage:        coverage,
			PercentCoverage: pct,
			MedianDepth:     median,
		})
	}

	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].Coverage > calls[j].Coverage
	})

	return calls, nil
}
