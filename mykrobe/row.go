package mykrobe

import (
	"github.com/carbocation/mykrobe2csv/sampleid"
	"github.com/carbocation/mykrobe2csv/table"
)

// Column namespaces. The numeric prefixes keep the groups in this order once
// the header is sorted, and make collisions between groups impossible.
const (
	SampleNamespace         = "1sample."
	PhylogeneticsNamespace  = "2phylo."
	SusceptibilityNamespace = "3res."
)

// Assemble merges the three field groups of one sample into a single row.
func Assemble(sample, phylogenetics, susceptibility map[string]string) table.Row {
	row := make(table.Row, len(sample)+len(phylogenetics)+len(susceptibility))
	for k, v := range sample {
		row[SampleNamespace+k] = v
	}
	for k, v := range phylogenetics {
		row[PhylogeneticsNamespace+k] = v
	}
	for k, v := range susceptibility {
		row[SusceptibilityNamespace+k] = v
	}

	return row
}

// Flatten produces the table row for s.
func (s Sample) Flatten(parser sampleid.Parser) (table.Row, error) {
	id := parser.Parse(s.DatasetID, s.JSONFile, s.Run)

	phylo, err := FlattenPhylogenetics(s.Payload)
	if err != nil {
		return nil, err
	}

	res, err := FlattenSusceptibility(s.Payload)
	if err != nil {
		return nil, err
	}

	return Assemble(id.Fields(), phylo, res), nil
}
