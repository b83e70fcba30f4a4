package census

// Household is one synthesized household row. ID is globally unique
// and monotonically increasing across geographies within a run.
type Household struct {
	ID    int64             `json:"id"`
	CatID int               `json:"cat_id"`
	Attrs map[string]string `json:"attrs,omitempty"`
	Geog  GeographyID       `json:"geog"`
}

// Person is one synthesized person row. HHID references the parent
// household's ID.
type Person struct {
	HHID  int64             `json:"hh_id"`
	CatID int               `json:"cat_id"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// HouseholdTable holds synthesized household rows in id order.
type HouseholdTable struct {
	Rows []Household
}

// PersonTable holds synthesized person rows with a flat 0-based index.
type PersonTable struct {
	Rows []Person
}

// ShiftIDs adds offset to every household id in place.
func (t *HouseholdTable) ShiftIDs(offset int64) {
	for i := range t.Rows {
		t.Rows[i].ID += offset
	}
}

// SetGeography stamps the geography key columns onto every row.
func (t *HouseholdTable) SetGeography(g GeographyID) {
	for i := range t.Rows {
		t.Rows[i].Geog = g
	}
}

// LastID returns the largest household id, or (0, false) when empty.
func (t *HouseholdTable) LastID() (int64, bool) {
	if len(t.Rows) == 0 {
		return 0, false
	}
	return t.Rows[len(t.Rows)-1].ID, true
}

// Append concatenates other's rows onto t.
func (t *HouseholdTable) Append(other HouseholdTable) {
	t.Rows = append(t.Rows, other.Rows...)
}

// ShiftHHIDs adds offset to every person's household foreign key in
// place.
func (t *PersonTable) ShiftHHIDs(offset int64) {
	for i := range t.Rows {
		t.Rows[i].HHID += offset
	}
}

// Append concatenates other's rows onto t.
func (t *PersonTable) Append(other PersonTable) {
	t.Rows = append(t.Rows, other.Rows...)
}
