package synth

import (
	"fmt"

	"github.com/sells-group/synthpop/internal/census"
)

// Result is the aggregated output of a synthesis run: all surviving
// geographies' household and person tables concatenated, fit quality
// per geography, and the failures of geographies that contributed no
// rows. Callers detect omissions by comparing FitQuality keys (or
// Failures) against the requested geography set.
type Result struct {
	Households census.HouseholdTable
	Persons    census.PersonTable
	FitQuality map[census.GeographyID]census.FitQuality
	Failures   []GeographyError
}

// GeographyError records a per-geography failure without aborting the
// batch.
type GeographyError struct {
	Geog census.GeographyID
	Err  error
}

func (e GeographyError) Error() string {
	return fmt.Sprintf("geography %s: %v", e.Geog, e.Err)
}

func (e GeographyError) Unwrap() error { return e.Err }

func newResult() *Result {
	return &Result{FitQuality: make(map[census.GeographyID]census.FitQuality)}
}

// add stitches one geography's output into the result: shifts
// household ids and person foreign keys by shift, stamps the geography
// key columns, appends the rows, and records fit quality. It returns
// the geography's last household id after shifting, or ok=false when
// the geography produced no households.
func (r *Result) add(g census.GeographyID, hh census.HouseholdTable, pp census.PersonTable,
	fq census.FitQuality, shift int64) (int64, bool) {

	if shift != 0 {
		hh.ShiftIDs(shift)
		pp.ShiftHHIDs(shift)
	}
	hh.SetGeography(g)

	last, ok := hh.LastID()

	r.Households.Append(hh)
	r.Persons.Append(pp)
	r.FitQuality[g] = fq
	return last, ok
}
