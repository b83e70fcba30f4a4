// Package census defines the table types flowing through population
// synthesis: marginal control totals, joint category distributions,
// PUMS sample records, fitted constraints, and the synthesized
// household and person tables.
package census

import "fmt"

// GeographyID identifies one synthesis unit down to the block group.
type GeographyID struct {
	State      string `json:"state"`
	County     string `json:"county"`
	Tract      string `json:"tract"`
	BlockGroup string `json:"block_group"`
}

func (g GeographyID) String() string {
	return fmt.Sprintf("%s-%s-%s-%s", g.State, g.County, g.Tract, g.BlockGroup)
}

// FitQuality describes how well a drawn person population matches its
// target distribution.
type FitQuality struct {
	Chisq float64 `json:"chisq"`
	P     float64 `json:"p"`
}
