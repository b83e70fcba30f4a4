package census

// Sample is a PUMS reference table of individual survey records. Each
// record carries the cat_id of the joint-distribution row it falls in.
type Sample struct {
	Records []SampleRecord
}

// SampleRecord is one survey record. SerialNo links person records to
// their household record across the two sample tables; Attrs carries
// the survey attributes copied onto drawn output rows.
type SampleRecord struct {
	SerialNo int64
	CatID    int
	Attrs    map[string]string
}

// ShiftCatIDs returns a copy with every record's cat id increased by
// offset. Attr maps are shared with the receiver.
func (s Sample) ShiftCatIDs(offset int) Sample {
	out := Sample{Records: make([]SampleRecord, len(s.Records))}
	for i, r := range s.Records {
		r.CatID += offset
		out.Records[i] = r
	}
	return out
}

// Constraint is a fitted target value per cat id, in a fixed order.
// CatIDs and Values are parallel slices.
type Constraint struct {
	CatIDs []int
	Values []float64
}

// ShiftCatIDs returns a copy of the constraint re-indexed by offset.
func (c Constraint) ShiftCatIDs(offset int) Constraint {
	ids := make([]int, len(c.CatIDs))
	for i, id := range c.CatIDs {
		ids[i] = id + offset
	}
	return Constraint{CatIDs: ids, Values: c.Values}
}

// Total returns the sum of all constraint values.
func (c Constraint) Total() float64 {
	var t float64
	for _, v := range c.Values {
		t += v
	}
	return t
}

// FrequencyTable cross-tabulates household sample records against
// categories: one row per household sample record, one column per cat
// id. For household categories a cell is 0/1 incidence; for person
// categories it counts household members in that category.
type FrequencyTable struct {
	CatIDs []int
	Cells  [][]float64
}
