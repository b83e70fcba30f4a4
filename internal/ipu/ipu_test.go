package ipu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/synthpop/internal/census"
)

// Three sample households: two of type 0, one of type 1, with 2, 1 and
// 3 members of the single person category respectively.
func toyTables() (census.FrequencyTable, census.FrequencyTable) {
	hFreq := census.FrequencyTable{
		CatIDs: []int{0, 1},
		Cells:  [][]float64{{1, 0}, {1, 0}, {0, 1}},
	}
	pFreq := census.FrequencyTable{
		CatIDs: []int{2},
		Cells:  [][]float64{{2}, {1}, {3}},
	}
	return hFreq, pFreq
}

func TestHouseholdWeightsConverges(t *testing.T) {
	t.Parallel()

	hFreq, pFreq := toyTables()
	hCon := census.Constraint{CatIDs: []int{0, 1}, Values: []float64{35, 65}}
	// Person target consistent with the household targets, so a near
	// perfect fit exists.
	pCon := census.Constraint{CatIDs: []int{2}, Values: []float64{2*17.5 + 17.5 + 3*65}}

	weights, fit, iterations, err := New().HouseholdWeights(hFreq, pFreq, hCon, pCon, 20000)
	require.NoError(t, err)
	require.Len(t, weights, 3)
	assert.Less(t, iterations, 20000)
	assert.Less(t, fit, 0.05)

	// Weighted household sums hit the constraints.
	assert.InDelta(t, 35, weights[0]+weights[1], 1)
	assert.InDelta(t, 65, weights[2], 1)
	for _, w := range weights {
		assert.Greater(t, w, 0.0)
	}
}

func TestHouseholdWeightsIterationCap(t *testing.T) {
	t.Parallel()

	hFreq, pFreq := toyTables()
	// Person target inconsistent with the household targets: no exact
	// fit exists, so with a zero convergence threshold the solver runs
	// the full budget and must still return usable weights.
	hCon := census.Constraint{CatIDs: []int{0, 1}, Values: []float64{35, 65}}
	pCon := census.Constraint{CatIDs: []int{2}, Values: []float64{1000}}

	s := Solver{Convergence: 0}
	weights, _, iterations, err := s.HouseholdWeights(hFreq, pFreq, hCon, pCon, 20000)
	require.NoError(t, err)
	assert.Equal(t, 20000, iterations)
	require.Len(t, weights, 3)
	for _, w := range weights {
		assert.Greater(t, w, 0.0)
	}
}

func TestHouseholdWeightsValidation(t *testing.T) {
	t.Parallel()

	hFreq, pFreq := toyTables()

	tests := []struct {
		name  string
		hFreq census.FrequencyTable
		pFreq census.FrequencyTable
		hCon  census.Constraint
		pCon  census.Constraint
	}{
		{
			name:  "no sample rows",
			hFreq: census.FrequencyTable{CatIDs: []int{0}},
			pFreq: census.FrequencyTable{CatIDs: []int{1}},
			hCon:  census.Constraint{CatIDs: []int{0}, Values: []float64{1}},
			pCon:  census.Constraint{CatIDs: []int{1}, Values: []float64{1}},
		},
		{
			name:  "row count mismatch",
			hFreq: hFreq,
			pFreq: census.FrequencyTable{CatIDs: []int{2}, Cells: [][]float64{{1}}},
			hCon:  census.Constraint{CatIDs: []int{0, 1}, Values: []float64{1, 1}},
			pCon:  census.Constraint{CatIDs: []int{2}, Values: []float64{1}},
		},
		{
			name:  "constraint category mismatch",
			hFreq: hFreq,
			pFreq: pFreq,
			hCon:  census.Constraint{CatIDs: []int{0}, Values: []float64{1}},
			pCon:  census.Constraint{CatIDs: []int{2}, Values: []float64{1}},
		},
		{
			name:  "unsupported category column",
			hFreq: census.FrequencyTable{CatIDs: []int{0, 1}, Cells: [][]float64{{1, 0}, {1, 0}}},
			pFreq: census.FrequencyTable{CatIDs: []int{2}, Cells: [][]float64{{1}, {2}}},
			hCon:  census.Constraint{CatIDs: []int{0, 1}, Values: []float64{5, 5}},
			pCon:  census.Constraint{CatIDs: []int{2}, Values: []float64{10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, _, err := New().HouseholdWeights(tt.hFreq, tt.pFreq, tt.hCon, tt.pCon, 100)
			assert.Error(t, err)
		})
	}
}
