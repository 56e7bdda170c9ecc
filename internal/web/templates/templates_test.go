package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/view"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestTable_EscapesSaveText(t *testing.T) {
	name := `<script>alert(1)</script>`
	state := core.ViewState{
		Rows:        []roster.Record{{ID: 7, FirstName: &name}},
		Columns:     []roster.ColumnSpec{{Name: roster.ColID, Label: "ID"}, {Name: roster.ColFirstName, Label: "First Name"}},
		Config:      view.Config{SortKey: roster.ColFirstName, Direction: view.Descending},
		MasterTotal: 1,
		Load:        &core.LoadSummary{FileName: `a"b.xml`, CurrentYear: 12},
	}

	out := render(t, Table(state))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, out, "a&#34;b.xml: year 12, 1 of 1 records shown, 0 deceased skipped")
	assert.Contains(t, out, `<th class="active"><a href="#" hx-post="/api/sort/FirstName"`)
	assert.Contains(t, out, "First Name ▼")
	assert.Contains(t, out, `<th><a href="#" hx-post="/api/sort/ID"`)
}

func TestTable_States(t *testing.T) {
	assert.Contains(t, render(t, Table(core.ViewState{})), "No save loaded.")

	state := core.ViewState{
		Columns: []roster.ColumnSpec{{Name: roster.ColID, Label: "ID"}, {Name: roster.ColAge, Label: "Age"}},
		Load:    &core.LoadSummary{FileName: "s.xml"},
	}
	assert.Contains(t, render(t, Table(state)), `<td colspan="2">No records match.</td>`)
}

func TestFilterForm_KeepsValues(t *testing.T) {
	minAge := 18
	out := render(t, FilterForm(view.Filters{FreeText: `"quoted"`, MinAge: &minAge}))
	assert.Contains(t, out, `name="freeText" value="&#34;quoted&#34;"`)
	assert.Contains(t, out, `name="minAge" value="18"`)
	assert.Contains(t, out, `name="maxAge" value=""`)
}

func TestErrorAlert(t *testing.T) {
	out := render(t, ErrorAlert("Bad <file>", "", "LOAD001"))
	assert.Contains(t, out, "<strong>Bad &lt;file&gt;</strong>")
	assert.Contains(t, out, "<small>(LOAD001)</small>")
}
