package roster

import "strings"

// Column names a display column of the roster table.
type Column string

const (
	ColID            Column = "ID"
	ColFirstName     Column = "FirstName"
	ColFamilyName    Column = "FamilyName"
	ColGender        Column = "Gender"
	ColBirthSeason   Column = "BirthSeason"
	ColBirthDay      Column = "BirthDay"
	ColAge           Column = "Age"
	ColDeathAge      Column = "DeathAge"
	ColLikedItems    Column = "LikedItems"
	ColDislikedItems Column = "DislikedItems"
	ColDeathYear     Column = "DeathYear"
	ColDeathSeason   Column = "DeathSeason"
	ColDeathDay      Column = "DeathDay"
)

// FieldType is the value type of a column, which decides how it sorts.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
)

func (t FieldType) String() string {
	if t == FieldNumeric {
		return "numeric"
	}
	return "text"
}

// ColumnSpec describes one display column.
type ColumnSpec struct {
	Name  Column    `json:"name"`
	Type  FieldType `json:"type"`
	Label string    `json:"label"`
}

var columns = []ColumnSpec{
	{Name: ColID, Type: FieldNumeric, Label: "ID"},
	{Name: ColFirstName, Type: FieldText, Label: "First Name"},
	{Name: ColFamilyName, Type: FieldText, Label: "Family Name"},
	{Name: ColGender, Type: FieldText, Label: "Gender"},
	{Name: ColBirthSeason, Type: FieldNumeric, Label: "Birth Season"},
	{Name: ColBirthDay, Type: FieldNumeric, Label: "Birth Day"},
	{Name: ColAge, Type: FieldNumeric, Label: "Age"},
	{Name: ColDeathAge, Type: FieldNumeric, Label: "Death Age"},
	{Name: ColLikedItems, Type: FieldText, Label: "Liked Items"},
	{Name: ColDislikedItems, Type: FieldText, Label: "Disliked Items"},
	{Name: ColDeathYear, Type: FieldNumeric, Label: "Death Year"},
	{Name: ColDeathSeason, Type: FieldNumeric, Label: "Death Season"},
	{Name: ColDeathDay, Type: FieldNumeric, Label: "Death Day"},
}

// Columns returns the display schema in presentation order.
// The returned slice is a copy.
func Columns() []ColumnSpec {
	out := make([]ColumnSpec, len(columns))
	copy(out, columns)
	return out
}

// ColumnNames returns the column names in presentation order.
func ColumnNames() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = string(c.Name)
	}
	return names
}

// Lookup finds a column by name, case-insensitively.
func Lookup(name string) (ColumnSpec, bool) {
	for _, c := range columns {
		if strings.EqualFold(string(c.Name), name) {
			return c, true
		}
	}
	return ColumnSpec{}, false
}
