// Package roster defines the normalized person record extracted from a save
// document and the fixed column schema every presentation layer iterates.
package roster

import "strconv"

// Record is one living person from a save document.
// Optional fields are nil when the source element is absent.
type Record struct {
	ID            int     `json:"ID"`
	FirstName     *string `json:"FirstName"`
	FamilyName    *string `json:"FamilyName"`
	Gender        *string `json:"Gender"`
	BirthYear     *int    `json:"BirthYear,omitempty"`
	BirthSeason   *int    `json:"BirthSeason"`
	BirthDay      *int    `json:"BirthDay"`
	Age           *int    `json:"Age"`
	DeathAge      *int    `json:"DeathAge"`
	LikedItems    string  `json:"LikedItems"`
	DislikedItems string  `json:"DislikedItems"`
	DeathYear     *int    `json:"DeathYear"`
	DeathSeason   *int    `json:"DeathSeason"`
	DeathDay      *int    `json:"DeathDay"`
}

// Value returns the raw field value for a column.
// Numeric columns yield *int, text columns yield *string (LikedItems and
// DislikedItems are always non-nil). Unknown columns yield nil, false.
func (r Record) Value(col Column) (any, bool) {
	switch col {
	case ColID:
		id := r.ID
		return &id, true
	case ColFirstName:
		return r.FirstName, true
	case ColFamilyName:
		return r.FamilyName, true
	case ColGender:
		return r.Gender, true
	case ColBirthSeason:
		return r.BirthSeason, true
	case ColBirthDay:
		return r.BirthDay, true
	case ColAge:
		return r.Age, true
	case ColDeathAge:
		return r.DeathAge, true
	case ColLikedItems:
		s := r.LikedItems
		return &s, true
	case ColDislikedItems:
		s := r.DislikedItems
		return &s, true
	case ColDeathYear:
		return r.DeathYear, true
	case ColDeathSeason:
		return r.DeathSeason, true
	case ColDeathDay:
		return r.DeathDay, true
	default:
		return nil, false
	}
}

// Int returns the value of a numeric column. nil means unknown.
func (r Record) Int(col Column) *int {
	v, ok := r.Value(col)
	if !ok {
		return nil
	}
	if p, ok := v.(*int); ok {
		return p
	}
	return nil
}

// String returns the value of a text column. nil means unknown.
func (r Record) String(col Column) *string {
	v, ok := r.Value(col)
	if !ok {
		return nil
	}
	if p, ok := v.(*string); ok {
		return p
	}
	return nil
}

// Text returns the display text for a column; unknown values render as "".
func (r Record) Text(col Column) string {
	v, ok := r.Value(col)
	if !ok {
		return ""
	}
	switch p := v.(type) {
	case *int:
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	case *string:
		if p == nil {
			return ""
		}
		return *p
	}
	return ""
}

// Row returns the display text of every column in schema order.
func (r Record) Row() []string {
	cols := Columns()
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = r.Text(c.Name)
	}
	return row
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }
