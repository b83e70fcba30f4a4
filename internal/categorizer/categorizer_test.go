package categorizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/synthpop/internal/census"
)

func TestFrequencyTables(t *testing.T) {
	t.Parallel()

	hPums := census.Sample{Records: []census.SampleRecord{
		{SerialNo: 100, CatID: 0},
		{SerialNo: 200, CatID: 1},
		{SerialNo: 300, CatID: 0},
	}}
	pPums := census.Sample{Records: []census.SampleRecord{
		{SerialNo: 100, CatID: 5},
		{SerialNo: 100, CatID: 6},
		{SerialNo: 200, CatID: 5},
		{SerialNo: 200, CatID: 5},
		// Serial 300 has no members on record.
	}}

	hFreq, pFreq, err := Tabulator{}.FrequencyTables(pPums, hPums, []int{5, 6}, []int{0, 1})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, hFreq.CatIDs)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}, {1, 0}}, hFreq.Cells)

	assert.Equal(t, []int{5, 6}, pFreq.CatIDs)
	assert.Equal(t, [][]float64{{1, 1}, {2, 0}, {0, 0}}, pFreq.Cells)
}

func TestFrequencyTablesUnknownCatID(t *testing.T) {
	t.Parallel()

	hPums := census.Sample{Records: []census.SampleRecord{{SerialNo: 1, CatID: 9}}}
	_, _, err := Tabulator{}.FrequencyTables(census.Sample{}, hPums, []int{5}, []int{0})
	assert.ErrorContains(t, err, "household sample cat_id 9")

	pPums := census.Sample{Records: []census.SampleRecord{{SerialNo: 1, CatID: 7}}}
	hPums = census.Sample{Records: []census.SampleRecord{{SerialNo: 1, CatID: 0}}}
	_, _, err = Tabulator{}.FrequencyTables(pPums, hPums, []int{5}, []int{0})
	assert.ErrorContains(t, err, "person sample cat_id 7")
}
