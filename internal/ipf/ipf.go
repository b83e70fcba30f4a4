// Package ipf implements iterative proportional fitting: it scales a
// joint category distribution until, for every marginal control
// category, the summed frequency of matching joint cells equals the
// marginal target.
package ipf

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/synthpop/internal/census"
)

// Solver fits constraint vectors by iterative proportional fitting.
type Solver struct {
	MaxIterations int
	Tolerance     float64
}

// New returns a Solver with the conventional defaults.
func New() Solver {
	return Solver{MaxIterations: 50, Tolerance: 1e-3}
}

// FitConstraints scales jd's frequencies so every control category's
// cell sum matches its marginal target, returning the fitted values
// indexed by jd's cat ids. It errors if a marginal category has no
// supporting joint cells or the fit does not converge within
// MaxIterations.
func (s Solver) FitConstraints(m census.Marginal, jd census.JointDist) (census.Constraint, error) {
	if len(jd.Rows) == 0 {
		return census.Constraint{}, eris.New("ipf: empty joint distribution")
	}

	freq := make([]float64, len(jd.Rows))
	for i, r := range jd.Rows {
		freq[i] = r.Frequency
	}

	// Precompute, per control category, the joint cells it constrains.
	type target struct {
		control  string
		category string
		count    float64
		cells    []int
	}
	var targets []target
	for _, c := range m.Controls {
		for _, cc := range c.Categories {
			t := target{control: c.Name, category: cc.Category, count: cc.Count}
			for i, r := range jd.Rows {
				if r.Levels[c.Name] == cc.Category {
					t.cells = append(t.cells, i)
				}
			}
			if len(t.cells) == 0 {
				return census.Constraint{}, eris.Errorf(
					"ipf: no joint cells for control %q category %q", c.Name, cc.Category)
			}
			targets = append(targets, t)
		}
	}

	iterations := 0
	for ; iterations < s.MaxIterations; iterations++ {
		maxDelta := 0.0
		for _, t := range targets {
			var cur float64
			for _, i := range t.cells {
				cur += freq[i]
			}
			ratio := t.count / cur
			for _, i := range t.cells {
				freq[i] *= ratio
			}
			if d := math.Abs(ratio - 1); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < s.Tolerance {
			break
		}
	}
	if iterations == s.MaxIterations {
		return census.Constraint{}, eris.Errorf(
			"ipf: no convergence after %d iterations", s.MaxIterations)
	}

	zap.L().Debug("ipf converged", zap.Int("iterations", iterations+1))

	return census.Constraint{CatIDs: jd.CatIDs(), Values: freq}, nil
}
