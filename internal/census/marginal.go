package census

import "math"

// Marginal holds target counts per category of each control variable
// for one geography. Control and category order is preserved from the
// source so downstream iteration is deterministic.
type Marginal struct {
	Controls []Control
}

// Control is one marginal control variable with its per-category
// target counts.
type Control struct {
	Name       string
	Categories []CategoryCount
}

// CategoryCount is a single (category, target count) cell.
type CategoryCount struct {
	Category string
	Count    float64
}

// ReplaceZeros returns a copy with every exact-zero cell replaced by
// sub. Nonzero cells are unchanged. The fitting solvers use ratio
// updates that are undefined at zero, so callers guard marginals with
// a small positive substitute before fitting.
func (m Marginal) ReplaceZeros(sub float64) Marginal {
	out := Marginal{Controls: make([]Control, len(m.Controls))}
	for i, c := range m.Controls {
		cats := make([]CategoryCount, len(c.Categories))
		for j, cc := range c.Categories {
			if cc.Count == 0 {
				cc.Count = sub
			}
			cats[j] = cc
		}
		out.Controls[i] = Control{Name: c.Name, Categories: cats}
	}
	return out
}

// NumHouseholds returns the rounded mean, across controls, of each
// control's category total. Every control should agree on the total
// household count; the mean absorbs residual disagreement introduced
// by zero substitution.
func (m Marginal) NumHouseholds() int {
	if len(m.Controls) == 0 {
		return 0
	}
	var total float64
	for _, c := range m.Controls {
		for _, cc := range c.Categories {
			total += cc.Count
		}
	}
	return int(math.Round(total / float64(len(m.Controls))))
}
