// Package tui is a terminal presentation of the roster session.
//
// It owns no data: every key press that changes the view goes through the
// Session, and the model repaints from the state it returns.
package tui

import (
	"context"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/view"
)

// Session is the part of core.Service the terminal view drives.
type Session interface {
	Load(ctx context.Context, fileName string, r io.Reader, size int64) (*core.LoadSummary, error)
	View() core.ViewState
	SortBy(column string) (core.ViewState, error)
	SetFilters(f view.Filters) (core.ViewState, error)
	ClearFilters() (core.ViewState, error)
}

// ageStep is how far [ and ] move the minimum age.
const ageStep = 5

// defaultPageSize is the visible row count before the first resize.
const defaultPageSize = 20

// genders is the cycle order of the g key; empty means any.
var genders = []string{"", "Male", "Female"}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
)

// Model is the bubbletea model of the roster table.
type Model struct {
	session  Session
	savePath string

	state   core.ViewState
	columns []roster.ColumnSpec
	cursor  int
	offset  int

	mode   mode
	search string

	width, height int
	status        string
	err           string
}

// New creates a model over s. A non-empty savePath is loaded on start.
func New(s Session, savePath string) Model {
	return Model{
		session:  s,
		savePath: savePath,
		state:    s.View(),
		columns:  roster.Columns(),
	}
}

// Run starts the full-screen program and blocks until it quits.
func Run(s Session, savePath string) error {
	p := tea.NewProgram(New(s, savePath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	if m.savePath == "" {
		return nil
	}
	return LoadFile(m.session, m.savePath)
}

/* ----------------------------------------
	UPDATE
---------------------------------------- */

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampOffset()
		return m, nil

	case LoadedMsg:
		m.state = m.session.View()
		m.offset = 0
		m.err = ""
		m.status = loadStatus(msg.Summary)
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case ErrMsg:
		m.err = core.FormatUserError(msg.Err)
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeSearch {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < len(m.columns)-1 {
			m.cursor++
		}
	case "up", "k":
		if m.offset > 0 {
			m.offset--
		}
	case "down", "j":
		m.offset++
		m.clampOffset()
	case "pgdown":
		m.offset += m.pageSize()
		m.clampOffset()
	case "pgup":
		m.offset -= m.pageSize()
		m.clampOffset()

	case "enter", "s":
		return m.apply(m.session.SortBy(string(m.columns[m.cursor].Name)))

	case "/":
		m.mode = modeSearch
		m.search = m.state.Config.Filters.FreeText

	case "g":
		f := m.state.Config.Filters
		f.Gender = nextGender(f.Gender)
		return m.apply(m.session.SetFilters(f))

	case "]":
		f := m.state.Config.Filters
		f.MinAge = shiftAge(f.MinAge, ageStep)
		return m.apply(m.session.SetFilters(f))
	case "[":
		f := m.state.Config.Filters
		f.MinAge = shiftAge(f.MinAge, -ageStep)
		return m.apply(m.session.SetFilters(f))

	case "c":
		return m.apply(m.session.ClearFilters())
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.mode = modeBrowse
		return m, nil
	case tea.KeyEnter:
		m.mode = modeBrowse
		f := m.state.Config.Filters
		f.FreeText = strings.TrimSpace(m.search)
		return m.apply(m.session.SetFilters(f))
	case tea.KeyBackspace:
		if r := []rune(m.search); len(r) > 0 {
			m.search = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.search += " "
	case tea.KeyRunes:
		m.search += string(msg.Runes)
	}
	return m, nil
}

// apply adopts a state returned by the session, or shows its error.
func (m Model) apply(state core.ViewState, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.err = core.FormatUserError(err)
		return m, nil
	}
	m.state = state
	m.err = ""
	m.clampOffset()
	return m, nil
}

func (m *Model) clampOffset() {
	last := len(m.state.Rows) - m.pageSize()
	if m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// pageSize is the number of table rows that fit the window.
func (m Model) pageSize() int {
	if m.height == 0 {
		return defaultPageSize
	}
	// title, summary, filters, status, help and the table frame
	n := m.height - 10
	if n < 1 {
		n = 1
	}
	return n
}

func nextGender(current string) string {
	for i, g := range genders {
		if strings.EqualFold(g, current) {
			return genders[(i+1)%len(genders)]
		}
	}
	return genders[0]
}

// shiftAge moves an age bound by delta. Bounds at or below zero clear.
func shiftAge(age *int, delta int) *int {
	v := delta
	if age != nil {
		v = *age + delta
	}
	if v <= 0 {
		return nil
	}
	return roster.IntPtr(v)
}
