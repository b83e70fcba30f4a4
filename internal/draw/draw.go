// Package draw materializes synthetic households and persons by
// weighted sampling with replacement from PUMS records, and scores the
// drawn person population against its target distribution.
package draw

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sells-group/synthpop/internal/census"
)

// Drawer draws synthetic records from weighted samples.
type Drawer struct{}

// DrawHouseholds draws numHouseholds household records with
// replacement, with selection probability proportional to the fitted
// weights, assigning ids hhIndexStart, hhIndexStart+1, ... in draw
// order. Each drawn household brings along its person sample records
// (joined on SerialNo) with hh_id already set. The returned FitQuality
// is the chi-square statistic and p-value of drawn person category
// counts against the person constraint.
func (Drawer) DrawHouseholds(numHouseholds int, hPums, pPums census.Sample,
	hFreq, pFreq census.FrequencyTable, hCon, pCon census.Constraint,
	weights []float64, hhIndexStart int64, seed int64) (
	census.HouseholdTable, census.PersonTable, census.FitQuality, error) {

	var none census.FitQuality

	if len(weights) != len(hPums.Records) {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.Errorf("draw: %d weights for %d household samples", len(weights), len(hPums.Records))
	}
	if len(hFreq.Cells) != len(hPums.Records) {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.Errorf("draw: frequency table has %d rows for %d household samples",
				len(hFreq.Cells), len(hPums.Records))
	}

	total := floats.Sum(weights)
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.New("draw: degenerate weights")
	}

	if numHouseholds <= 0 {
		return census.HouseholdTable{}, census.PersonTable{}, census.FitQuality{P: 1}, nil
	}

	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)

	members := make(map[int64][]census.SampleRecord)
	for _, p := range pPums.Records {
		members[p.SerialNo] = append(members[p.SerialNo], p)
	}

	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))

	households := census.HouseholdTable{Rows: make([]census.Household, 0, numHouseholds)}
	var persons census.PersonTable
	for k := 0; k < numHouseholds; k++ {
		u := rng.Float64() * total
		idx := sort.SearchFloat64s(cum, u)
		if idx == len(cum) {
			idx--
		}
		rec := hPums.Records[idx]
		id := hhIndexStart + int64(k)
		households.Rows = append(households.Rows, census.Household{
			ID:    id,
			CatID: rec.CatID,
			Attrs: rec.Attrs,
		})
		for _, m := range members[rec.SerialNo] {
			persons.Rows = append(persons.Rows, census.Person{
				HHID:  id,
				CatID: m.CatID,
				Attrs: m.Attrs,
			})
		}
	}

	fq := personFit(persons, pCon)
	zap.L().Debug("drew households",
		zap.Int("households", len(households.Rows)),
		zap.Int("persons", len(persons.Rows)),
		zap.Float64("chisq", fq.Chisq),
		zap.Float64("p", fq.P),
	)

	return households, persons, fq, nil
}

// personFit computes the chi-square goodness of fit of drawn person
// category counts against the person constraint, scaled to the drawn
// population size.
func personFit(persons census.PersonTable, pCon census.Constraint) census.FitQuality {
	if len(persons.Rows) == 0 || len(pCon.CatIDs) == 0 || pCon.Total() <= 0 {
		return census.FitQuality{P: 1}
	}

	observed := make(map[int]float64, len(pCon.CatIDs))
	for _, p := range persons.Rows {
		observed[p.CatID]++
	}

	n := float64(len(persons.Rows))
	conTotal := pCon.Total()

	var chisq float64
	for j, id := range pCon.CatIDs {
		expected := pCon.Values[j] / conTotal * n
		if expected == 0 {
			continue
		}
		d := observed[id] - expected
		chisq += d * d / expected
	}

	df := len(pCon.CatIDs) - 1
	if df < 1 {
		return census.FitQuality{Chisq: chisq, P: 1}
	}
	p := distuv.ChiSquared{K: float64(df)}.Survival(chisq)
	return census.FitQuality{Chisq: chisq, P: p}
}
