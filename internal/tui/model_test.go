package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/simroster/internal/catalog"
	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
)

type fixedCatalog struct{ cat catalog.Catalog }

func (f fixedCatalog) Fetch(ctx context.Context) (catalog.Catalog, error) {
	return f.cat, nil
}

const testSave = `<?xml version="1.0"?>
<SaveGame>
  <CurrentYear>40</CurrentYear>
  <Sims>
    <GenerationsSimData>
      <ID>1</ID><FirstName>Bella</FirstName><FamilyName>Goth</FamilyName><Gender>Female</Gender>
      <Birthdate><year>10</year><season>1</season><day>3</day></Birthdate>
      <Likes><int>12</int></Likes>
    </GenerationsSimData>
    <GenerationsSimData>
      <ID>2</ID><FirstName>Mortimer</FirstName><FamilyName>Goth</FamilyName><Gender>Male</Gender>
      <Birthdate><year>5</year><season>2</season><day>1</day></Birthdate>
    </GenerationsSimData>
    <GenerationsSimData>
      <ID>3</ID><FirstName>Cassandra</FirstName><Gender>Female</Gender>
    </GenerationsSimData>
  </Sims>
</SaveGame>`

func newService(t *testing.T) *core.Service {
	t.Helper()
	svc, err := core.NewService(core.Options{
		Catalog: fixedCatalog{cat: catalog.ParseString("12|Chess\n")},
	})
	require.NoError(t, err)
	return svc
}

func loadedModel(t *testing.T) Model {
	t.Helper()
	svc := newService(t)
	path := filepath.Join(t.TempDir(), "slot1.xml")
	require.NoError(t, os.WriteFile(path, []byte(testSave), 0o600))

	m := New(svc, path)
	cmd := m.Init()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, LoadedMsg{}, msg)

	return update(t, m, msg)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m = update(t, m, msg)
	}
	return m
}

func rowIDs(m Model) []int {
	ids := make([]int, len(m.state.Rows))
	for i, r := range m.state.Rows {
		ids[i] = r.ID
	}
	return ids
}

func TestModel_LoadOnInit(t *testing.T) {
	m := loadedModel(t)

	assert.True(t, m.state.Loaded())
	assert.Equal(t, []int{1, 2, 3}, rowIDs(m))
	assert.Equal(t, "Loaded 3 records from slot1.xml", m.status)
}

func TestModel_NoSavePath(t *testing.T) {
	m := New(newService(t), "")
	assert.Nil(t, m.Init())
	assert.Contains(t, m.View(), "No save loaded.")
}

func TestModel_LoadMissingFile(t *testing.T) {
	m := New(newService(t), filepath.Join(t.TempDir(), "missing.xml"))
	msg := m.Init()()
	require.IsType(t, ErrMsg{}, msg)

	m = update(t, m, msg)
	assert.NotEmpty(t, m.err)
	assert.False(t, m.state.Loaded())
}

func TestModel_SortBeforeLoad(t *testing.T) {
	m := press(t, New(newService(t), ""), "s")
	assert.Contains(t, m.err, "VIEW002")
}

func TestModel_CursorAndSortToggle(t *testing.T) {
	m := loadedModel(t)

	// ID, FirstName, FamilyName, Gender, BirthSeason, BirthDay, Age
	m = press(t, m, "right", "right", "right", "right", "right", "right")
	require.Equal(t, roster.ColAge, m.columns[m.cursor].Name)

	m = press(t, m, "enter")
	assert.Equal(t, roster.ColAge, m.state.Config.SortKey)
	assert.Equal(t, []int{3, 1, 2}, rowIDs(m))

	m = press(t, m, "s")
	assert.Equal(t, []int{2, 1, 3}, rowIDs(m))
	assert.Contains(t, m.View(), "Age ▼")
}

func TestModel_CursorStaysInBounds(t *testing.T) {
	m := loadedModel(t)
	m = press(t, m, "left")
	assert.Equal(t, 0, m.cursor)

	for range m.columns {
		m = press(t, m, "right")
	}
	assert.Equal(t, len(m.columns)-1, m.cursor)
}

func TestModel_SearchMode(t *testing.T) {
	m := loadedModel(t)

	m = press(t, m, "/", "c", "h", "x", "backspace", "e")
	assert.Equal(t, modeSearch, m.mode)
	assert.Equal(t, "che", m.search)
	assert.Equal(t, []int{1, 2, 3}, rowIDs(m), "typing does not filter until enter")

	m = press(t, m, "enter")
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "che", m.state.Config.Filters.FreeText)
	assert.Equal(t, []int{1}, rowIDs(m))
}

func TestModel_SearchEscapeKeepsFilters(t *testing.T) {
	m := loadedModel(t)
	m = press(t, m, "/", "z", "esc")
	assert.Equal(t, modeBrowse, m.mode)
	assert.Empty(t, m.state.Config.Filters.FreeText)
	assert.Len(t, m.state.Rows, 3)
}

func TestModel_GenderCycle(t *testing.T) {
	m := loadedModel(t)

	m = press(t, m, "g")
	assert.Equal(t, "Male", m.state.Config.Filters.Gender)
	assert.Equal(t, []int{2}, rowIDs(m))

	m = press(t, m, "g")
	assert.Equal(t, []int{1, 3}, rowIDs(m))

	m = press(t, m, "g")
	assert.Empty(t, m.state.Config.Filters.Gender)
	assert.Len(t, m.state.Rows, 3)
}

func TestModel_MinAgeAndClear(t *testing.T) {
	m := loadedModel(t)

	// 5 steps of 5: minimum age 25 keeps Bella (30) and Mortimer (35);
	// Cassandra has no age and is excluded.
	m = press(t, m, "]", "]", "]", "]", "]")
	require.NotNil(t, m.state.Config.Filters.MinAge)
	assert.Equal(t, 25, *m.state.Config.Filters.MinAge)
	assert.Equal(t, []int{1, 2}, rowIDs(m))
	assert.Contains(t, m.View(), "age ≥ 25")

	m = press(t, m, "c")
	assert.False(t, m.state.Config.Filters.Active())
	assert.Len(t, m.state.Rows, 3)
}

func TestModel_Quit(t *testing.T) {
	m := loadedModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestShiftAge(t *testing.T) {
	assert.Equal(t, 5, *shiftAge(nil, 5))
	assert.Nil(t, shiftAge(nil, -5))
	assert.Nil(t, shiftAge(roster.IntPtr(5), -5))
	assert.Equal(t, 15, *shiftAge(roster.IntPtr(10), 5))
}

func TestNextGender(t *testing.T) {
	assert.Equal(t, "Male", nextGender(""))
	assert.Equal(t, "Female", nextGender("male"))
	assert.Equal(t, "", nextGender("Female"))
	assert.Equal(t, "", nextGender("Other"))
}

func TestTable_RendersGlyphAndRows(t *testing.T) {
	svc := newService(t)
	_, err := svc.Load(context.Background(), "slot1.xml", strings.NewReader(testSave), 0)
	require.NoError(t, err)
	state, err := svc.SortBy("firstname")
	require.NoError(t, err)

	out := Table(state)
	assert.Contains(t, out, "First Name ▲")
	assert.Contains(t, out, "Cassandra")
	assert.Contains(t, out, "Chess")
	assert.Less(t, strings.Index(out, "Bella"), strings.Index(out, "Mortimer"))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "0 records", Summary(core.ViewState{}))
}
