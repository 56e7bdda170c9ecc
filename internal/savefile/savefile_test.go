package savefile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/simroster/internal/catalog"
	"github.com/JonMunkholm/simroster/internal/roster"
)

var testCatalog = catalog.ParseString("12|Chess\n7|Guitar\nX|Bad\n")

func saveDoc(year string, persons ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString("<SaveGame>")
	if year != "" {
		fmt.Fprintf(&b, "<CurrentYear>%s</CurrentYear>", year)
	}
	b.WriteString("<Sims>")
	for _, p := range persons {
		b.WriteString(p)
	}
	b.WriteString("</Sims></SaveGame>")
	return b.String()
}

func person(body string) string {
	return "<GenerationsSimData>" + body + "</GenerationsSimData>"
}

func mustRead(t *testing.T, doc string) *Document {
	t.Helper()
	d, err := Read(context.Background(), strings.NewReader(doc), testCatalog)
	require.NoError(t, err)
	return d
}

func TestRead_AliveWithoutDeathDate(t *testing.T) {
	doc := saveDoc("2020", person(`
		<IsDead>false</IsDead>
		<ID>1</ID>
		<FirstName>Ada</FirstName>
		<FamilyName>Lovelace</FamilyName>
		<Gender>Female</Gender>
		<Birthdate><year>1990</year><season>2</season><day>14</day></Birthdate>
		<Likes><int>12</int><int>99</int></Likes>
		<Hates><int>7</int></Hates>`))

	d := mustRead(t, doc)
	require.Len(t, d.Records, 1)
	rec := d.Records[0]

	assert.Equal(t, 2020, d.CurrentYear)
	assert.Equal(t, 1, rec.ID)
	assert.Equal(t, "Ada", *rec.FirstName)
	assert.Equal(t, "Lovelace", *rec.FamilyName)
	assert.Equal(t, "Female", *rec.Gender)
	assert.Equal(t, 2, *rec.BirthSeason)
	assert.Equal(t, 14, *rec.BirthDay)
	assert.Equal(t, 30, *rec.Age)
	assert.Nil(t, rec.DeathAge)
	assert.Nil(t, rec.DeathYear)
	assert.Nil(t, rec.DeathSeason)
	assert.Nil(t, rec.DeathDay)
	assert.Equal(t, "Chess, 99", rec.LikedItems)
	assert.Equal(t, "Guitar", rec.DislikedItems)
	assert.Empty(t, d.Issues)
}

func TestRead_DeceasedExcluded(t *testing.T) {
	doc := saveDoc("10",
		person("<IsDead>true</IsDead><ID>1</ID>"),
		person("<IsDead> true </IsDead><ID>2</ID>"),
		person("<IsDead>TRUE</IsDead><ID>3</ID>"),
		person("<IsDead>false</IsDead><ID>4</ID>"),
		person("<ID>5</ID>"),
	)

	d := mustRead(t, doc)
	var ids []int
	for _, r := range d.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{2, 3, 4, 5}, ids, "match is exact: no trimming, case-sensitive")
	assert.Equal(t, 5, d.Persons)
	assert.Equal(t, 1, d.Deceased)
}

func TestRead_DeathAgeUsesBirthYear(t *testing.T) {
	doc := saveDoc("100", person(`
		<ID>1</ID>
		<Birthdate><year>20</year><season>1</season><day>1</day></Birthdate>
		<DeathDate><year>90</year><season>3</season><day>28</day>
			<Birthdate><year>50</year></Birthdate></DeathDate>`))

	rec := mustRead(t, doc).Records[0]
	assert.Equal(t, 80, *rec.Age)
	assert.Equal(t, 70, *rec.DeathAge)
	assert.Equal(t, 90, *rec.DeathYear)
	assert.Equal(t, 3, *rec.DeathSeason)
	assert.Equal(t, 28, *rec.DeathDay)
}

func TestRead_DeathAgeNullity(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  *int
		death *int
	}{
		{
			name: "no birth year",
			body: "<ID>1</ID><DeathDate><year>40</year></DeathDate>",
			want: nil, death: roster.IntPtr(40),
		},
		{
			name: "no death year",
			body: "<ID>1</ID><Birthdate><year>5</year></Birthdate><DeathDate><season>1</season></DeathDate>",
			want: nil, death: nil,
		},
		{
			name: "both known",
			body: "<ID>1</ID><Birthdate><year>5</year></Birthdate><DeathDate><year>45</year></DeathDate>",
			want: roster.IntPtr(40), death: roster.IntPtr(45),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustRead(t, saveDoc("50", person(tt.body))).Records[0]
			assert.Equal(t, tt.want, rec.DeathAge)
			assert.Equal(t, tt.death, rec.DeathYear)
		})
	}
}

func TestRead_MissingLeavesAreNil(t *testing.T) {
	rec := mustRead(t, saveDoc("1", person("<ID>9</ID><FirstName>  </FirstName>"))).Records[0]

	assert.Equal(t, roster.Record{ID: 9}, rec)
}

func TestRead_BirthDatePairing(t *testing.T) {
	doc := saveDoc("30", person(`<ID>1</ID>
		<Birthdate><year>10</year><season>2</season><day>x</day></Birthdate>`))

	d := mustRead(t, doc)
	rec := d.Records[0]
	assert.Nil(t, rec.BirthSeason)
	assert.Nil(t, rec.BirthDay)
	assert.Equal(t, 20, *rec.Age, "year still usable")

	require.Len(t, d.Issues, 1)
	assert.Equal(t, IssuePartialBirthDate, d.Issues[0].Code)
	assert.Equal(t, 0, d.Issues[0].Index)
}

func TestRead_NonNumericLeaves(t *testing.T) {
	doc := saveDoc("30", person(`<ID>1</ID>
		<Birthdate><year>ten</year></Birthdate>
		<Likes><int>abc</int><int> 12 </int></Likes>`))

	rec := mustRead(t, doc).Records[0]
	assert.Nil(t, rec.Age)
	assert.Equal(t, "abc, Chess", rec.LikedItems)
}

func TestRead_MissingIDSkipsOnlyThatPerson(t *testing.T) {
	doc := saveDoc("5",
		person("<ID>1</ID>"),
		person("<FirstName>Ghost</FirstName>"),
		person("<ID>two</ID>"),
		person("<ID>3</ID>"),
	)

	d := mustRead(t, doc)
	require.Len(t, d.Records, 2)
	assert.Equal(t, 1, d.Records[0].ID)
	assert.Equal(t, 3, d.Records[1].ID)

	require.Len(t, d.Issues, 2)
	assert.Equal(t, Issue{Index: 1, Code: IssueMissingID, Message: "person skipped: no numeric ID"}, d.Issues[0])
	assert.Equal(t, 2, d.Issues[1].Index)
	assert.Equal(t, "two", d.Issues[1].Raw)
}

func TestRead_ZeroPersonsIsValid(t *testing.T) {
	d := mustRead(t, saveDoc("12"))
	assert.Empty(t, d.Records)
	assert.Equal(t, 0, d.Persons)
}

func TestRead_StructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		target error
	}{
		{name: "empty", doc: "", target: ErrNoRootElement},
		{name: "plain text", doc: "not a save file", target: ErrNoRootElement},
		{name: "no current year", doc: saveDoc("", person("<ID>1</ID>")), target: ErrMissingCurrentYear},
		{name: "non-numeric current year", doc: saveDoc("soon"), target: ErrMissingCurrentYear},
		{name: "current year only inside person", doc: saveDoc("", person("<ID>1</ID><CurrentYear>3</CurrentYear>")), target: ErrMissingCurrentYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Read(context.Background(), strings.NewReader(tt.doc), testCatalog)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, IsStructural(err))
		})
	}
}

func TestRead_Malformed(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader("<SaveGame><CurrentYear>1</CurrentYear><Sims>"), testCatalog)

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Line)
	assert.True(t, IsStructural(err))
}

func TestRead_CurrentYearAfterPersons(t *testing.T) {
	doc := "<SaveGame><Sims>" + person("<ID>1</ID><Birthdate><year>4</year></Birthdate>") +
		"</Sims><CurrentYear>10</CurrentYear><CurrentYear>99</CurrentYear></SaveGame>"

	d := mustRead(t, doc)
	assert.Equal(t, 10, d.CurrentYear, "first occurrence wins")
	assert.Equal(t, 6, *d.Records[0].Age)
}

func TestRead_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Read(ctx, strings.NewReader(saveDoc("1", person("<ID>1</ID>"))), testCatalog)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsStructural(err))
}

func TestRead_DeclaredCharset(t *testing.T) {
	// "Zoë" in ISO-8859-1.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><S><CurrentYear>1</CurrentYear>" +
		person("<ID>1</ID><FirstName>Zo\xeb</FirstName>") + "</S>"

	rec := mustRead(t, doc).Records[0]
	assert.Equal(t, "Zoë", *rec.FirstName)
}

func TestExtract_Direct(t *testing.T) {
	node := NewElement(personTag, "",
		NewElement(tagID, "4"),
		NewElement(tagLikes, "", NewElement(tagItem, "7"), NewElement(tagItem, "12")),
	)

	rec, err := Extract(node, 2000, testCatalog)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.ID)
	assert.Equal(t, "Guitar, Chess", rec.LikedItems)
	assert.Equal(t, "", rec.DislikedItems)

	_, err = Extract(NewElement(personTag, ""), 2000, testCatalog)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestElement_FindIsDocumentOrder(t *testing.T) {
	root := NewElement("root", "",
		NewElement("a", "", NewElement("x", "deep")),
		NewElement("x", "shallow"),
	)

	assert.Equal(t, "deep", root.Find("x").Text())
	assert.Len(t, root.FindAll("x"), 2)
	assert.Nil(t, root.Find("missing"))
	assert.Equal(t, "", root.Find("missing").Text())
	assert.Equal(t, "deepshallow", root.Text())
}

func TestDeclaredEncoding(t *testing.T) {
	tests := []struct {
		name   string
		prolog string
		want   string
	}{
		{"double quotes", `<?xml version="1.0" encoding="ISO-8859-1"?><S/>`, "ISO-8859-1"},
		{"single quotes and spaces", "  <?xml version='1.0' encoding = 'windows-1252' ?>", "windows-1252"},
		{"no encoding attribute", `<?xml version="1.0"?><S/>`, ""},
		{"no declaration", `<S encoding="latin1"/>`, ""},
		{"unterminated declaration", `<?xml version="1.0" encoding="ISO-8859-1"`, ""},
		{"unterminated value", `<?xml encoding="ISO?>`, ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeclaredEncoding([]byte(tt.prolog)))
		})
	}
}

func TestRead_UTF8WithoutHyphen(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf8"?><S><CurrentYear>1</CurrentYear>` +
		`<GenerationsSimData><ID>1</ID><FirstName>Zoë</FirstName></GenerationsSimData></S>`
	d := mustRead(t, doc)
	require.Len(t, d.Records, 1)
	assert.Equal(t, "Zoë", *d.Records[0].FirstName)
	assert.True(t, IsUTF8("UTF8"))
	assert.False(t, IsUTF8("latin1"))
}
