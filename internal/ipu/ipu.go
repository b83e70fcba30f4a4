// Package ipu implements iterative proportional updating: fitting one
// weight per household sample record so that weighted category counts
// simultaneously match household-level and person-level constraints.
package ipu

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/synthpop/internal/census"
)

// Solver fits household weights by iterative proportional updating.
type Solver struct {
	// Convergence stops iterating once the fit quality improves by
	// less than this between successive passes.
	Convergence float64
}

// New returns a Solver with the conventional convergence threshold.
func New() Solver {
	return Solver{Convergence: 1e-4}
}

// HouseholdWeights fits a non-negative weight per household sample row
// so weighted aggregates match both constraint vectors. It returns the
// best weights seen, the fit quality they achieve (mean absolute
// relative deviation across categories, lower is better), and the
// iterations consumed. Exhausting maxIterations is not an error: the
// best weights found so far are returned with iterations equal to the
// budget, and the caller decides how loudly to complain.
func (s Solver) HouseholdWeights(hFreq, pFreq census.FrequencyTable, hCon, pCon census.Constraint,
	maxIterations int) ([]float64, float64, int, error) {

	if len(hFreq.Cells) == 0 {
		return nil, 0, 0, eris.New("ipu: no household sample rows")
	}
	if len(hFreq.Cells) != len(pFreq.Cells) {
		return nil, 0, 0, eris.Errorf("ipu: household and person frequency tables disagree on rows: %d vs %d",
			len(hFreq.Cells), len(pFreq.Cells))
	}
	if len(hFreq.CatIDs) != len(hCon.CatIDs) || len(pFreq.CatIDs) != len(pCon.CatIDs) {
		return nil, 0, 0, eris.New("ipu: frequency tables and constraints disagree on categories")
	}

	n := len(hFreq.Cells)

	// Column-major incidence over the combined household+person
	// categories, paired with the combined constraint targets.
	var cols [][]float64
	var targets []float64
	appendCols := func(ft census.FrequencyTable, con census.Constraint) {
		for j := range ft.CatIDs {
			col := make([]float64, n)
			for i := range ft.Cells {
				col[i] = ft.Cells[i][j]
			}
			cols = append(cols, col)
			targets = append(targets, con.Values[j])
		}
	}
	appendCols(hFreq, hCon)
	appendCols(pFreq, pCon)

	for j, col := range cols {
		if floats.Sum(col) == 0 {
			return nil, 0, 0, eris.Errorf("ipu: category column %d has no sample support", j)
		}
	}

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}

	fit := s.fitQuality(weights, cols, targets)
	best := append([]float64(nil), weights...)
	bestFit := fit

	iterations := 0
	for ; iterations < maxIterations; iterations++ {
		for j, col := range cols {
			cur := floats.Dot(weights, col)
			if cur == 0 {
				continue
			}
			ratio := targets[j] / cur
			for i, f := range col {
				if f != 0 {
					weights[i] *= ratio
				}
			}
		}

		prev := fit
		fit = s.fitQuality(weights, cols, targets)
		if fit < bestFit {
			bestFit = fit
			copy(best, weights)
		}
		if math.Abs(prev-fit) < s.Convergence {
			iterations++
			break
		}
	}

	zap.L().Debug("ipu finished",
		zap.Int("iterations", iterations),
		zap.Float64("fit_quality", bestFit),
	)

	return best, bestFit, iterations, nil
}

// fitQuality is the mean absolute relative deviation of weighted
// category sums from their targets.
func (s Solver) fitQuality(weights []float64, cols [][]float64, targets []float64) float64 {
	var total float64
	for j, col := range cols {
		got := floats.Dot(weights, col)
		total += math.Abs(got-targets[j]) / targets[j]
	}
	return total / float64(len(cols))
}
