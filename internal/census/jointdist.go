package census

// JointDist is a reference table of category-combination frequencies
// derived from sample data, one row per combined category. CatID
// values are unique within a table.
type JointDist struct {
	Rows []JointCell
}

// JointCell is one joint-distribution row: a combined category id, the
// level each control variable takes in that combination, and the
// observed frequency.
type JointCell struct {
	CatID     int
	Levels    map[string]string
	Frequency float64
}

// ReplaceZeroFrequencies returns a copy with zero frequencies replaced
// by sub. Level maps are shared with the receiver; only frequencies
// differ.
func (jd JointDist) ReplaceZeroFrequencies(sub float64) JointDist {
	out := JointDist{Rows: make([]JointCell, len(jd.Rows))}
	for i, r := range jd.Rows {
		if r.Frequency == 0 {
			r.Frequency = sub
		}
		out.Rows[i] = r
	}
	return out
}

// ShiftCatIDs returns a copy with every cat id increased by offset.
func (jd JointDist) ShiftCatIDs(offset int) JointDist {
	out := JointDist{Rows: make([]JointCell, len(jd.Rows))}
	for i, r := range jd.Rows {
		r.CatID += offset
		out.Rows[i] = r
	}
	return out
}

// CatIDs returns the table's cat ids in row order.
func (jd JointDist) CatIDs() []int {
	ids := make([]int, len(jd.Rows))
	for i, r := range jd.Rows {
		ids[i] = r.CatID
	}
	return ids
}

// MaxCatID returns the largest cat id in the table, or -1 when empty.
func (jd JointDist) MaxCatID() int {
	max := -1
	for _, r := range jd.Rows {
		if r.CatID > max {
			max = r.CatID
		}
	}
	return max
}
