// Package categorizer cross-tabulates sample records by category,
// producing the per-household frequency tables the weight-fitting
// solver consumes.
package categorizer

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/synthpop/internal/census"
)

// Tabulator builds frequency tables from categorized samples.
type Tabulator struct{}

// FrequencyTables cross-tabulates the household and person samples.
// The household table has a 0/1 incidence cell per (household row,
// household category); the person table counts each household's
// members per person category, joined on SerialNo. Column order
// follows the supplied cat id slices.
func (Tabulator) FrequencyTables(pPums, hPums census.Sample, pCatIDs, hCatIDs []int) (
	census.FrequencyTable, census.FrequencyTable, error) {

	hCol := make(map[int]int, len(hCatIDs))
	for j, id := range hCatIDs {
		hCol[id] = j
	}
	pCol := make(map[int]int, len(pCatIDs))
	for j, id := range pCatIDs {
		pCol[id] = j
	}

	// Person category counts per household serial number.
	memberCounts := make(map[int64]map[int]int)
	for _, p := range pPums.Records {
		j, ok := pCol[p.CatID]
		if !ok {
			return census.FrequencyTable{}, census.FrequencyTable{},
				eris.Errorf("categorizer: person sample cat_id %d not in joint distribution", p.CatID)
		}
		m := memberCounts[p.SerialNo]
		if m == nil {
			m = make(map[int]int)
			memberCounts[p.SerialNo] = m
		}
		m[j]++
	}

	hFreq := census.FrequencyTable{
		CatIDs: append([]int(nil), hCatIDs...),
		Cells:  make([][]float64, len(hPums.Records)),
	}
	pFreq := census.FrequencyTable{
		CatIDs: append([]int(nil), pCatIDs...),
		Cells:  make([][]float64, len(hPums.Records)),
	}

	for i, h := range hPums.Records {
		j, ok := hCol[h.CatID]
		if !ok {
			return census.FrequencyTable{}, census.FrequencyTable{},
				eris.Errorf("categorizer: household sample cat_id %d not in joint distribution", h.CatID)
		}
		hRow := make([]float64, len(hCatIDs))
		hRow[j] = 1
		hFreq.Cells[i] = hRow

		pRow := make([]float64, len(pCatIDs))
		for col, n := range memberCounts[h.SerialNo] {
			pRow[col] = float64(n)
		}
		pFreq.Cells[i] = pRow
	}

	return hFreq, pFreq, nil
}
