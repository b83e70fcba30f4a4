package ipf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/synthpop/internal/census"
)

func twoWayJD() census.JointDist {
	return census.JointDist{Rows: []census.JointCell{
		{CatID: 0, Levels: map[string]string{"size": "small", "tenure": "own"}, Frequency: 8},
		{CatID: 1, Levels: map[string]string{"size": "small", "tenure": "rent"}, Frequency: 4},
		{CatID: 2, Levels: map[string]string{"size": "large", "tenure": "own"}, Frequency: 6},
		{CatID: 3, Levels: map[string]string{"size": "large", "tenure": "rent"}, Frequency: 2},
	}}
}

func TestFitConstraintsMatchesMarginals(t *testing.T) {
	t.Parallel()

	m := census.Marginal{Controls: []census.Control{
		{Name: "size", Categories: []census.CategoryCount{
			{Category: "small", Count: 60},
			{Category: "large", Count: 40},
		}},
		{Name: "tenure", Categories: []census.CategoryCount{
			{Category: "own", Count: 70},
			{Category: "rent", Count: 30},
		}},
	}}

	con, err := New().FitConstraints(m, twoWayJD())
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, con.CatIDs)

	// Fitted cells must reproduce both marginals.
	assert.InDelta(t, 60, con.Values[0]+con.Values[1], 0.1)
	assert.InDelta(t, 40, con.Values[2]+con.Values[3], 0.1)
	assert.InDelta(t, 70, con.Values[0]+con.Values[2], 0.1)
	assert.InDelta(t, 30, con.Values[1]+con.Values[3], 0.1)
	assert.InDelta(t, 100, con.Total(), 0.2)
}

func TestFitConstraintsErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty joint distribution", func(t *testing.T) {
		t.Parallel()
		_, err := New().FitConstraints(census.Marginal{}, census.JointDist{})
		assert.Error(t, err)
	})

	t.Run("marginal category without joint support", func(t *testing.T) {
		t.Parallel()
		m := census.Marginal{Controls: []census.Control{
			{Name: "size", Categories: []census.CategoryCount{{Category: "huge", Count: 5}}},
		}}
		_, err := New().FitConstraints(m, twoWayJD())
		assert.ErrorContains(t, err, "no joint cells")
	})
}
