package view

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/JonMunkholm/simroster/internal/roster"
)

// ErrUnknownColumn is returned when a sort key names no display column.
var ErrUnknownColumn = errors.New("unknown column")

// ResolveColumn maps a user-supplied column name (any case) to its column.
func ResolveColumn(name string) (roster.Column, error) {
	spec, ok := roster.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return spec.Name, nil
}

// Derive computes the view of master under cfg. master is not modified and
// the result never aliases it.
func Derive(master []roster.Record, cfg Config) ([]roster.Record, error) {
	if cfg.Sorted() {
		if _, ok := lookupExact(cfg.SortKey); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, cfg.SortKey)
		}
	}

	out := filter(master, cfg.Filters)

	if cfg.Sorted() {
		col, desc := cfg.SortKey, cfg.Direction == Descending
		sort.SliceStable(out, func(i, j int) bool {
			c := Compare(out[i], out[j], col)
			if desc {
				c = -c
			}
			return c < 0
		})
	}
	return out, nil
}

func filter(master []roster.Record, f Filters) []roster.Record {
	out := make([]roster.Record, 0, len(master))
	if !f.Active() {
		return append(out, master...)
	}

	// A Caser holds state, so each derivation gets its own.
	fold := cases.Fold()
	query := fold.String(f.FreeText)
	liked := fold.String(f.LikedSubstring)

	for _, r := range master {
		if f.FreeText != "" && !matchesAnyColumn(r, query, fold) {
			continue
		}
		if f.Gender != "" && (r.Gender == nil || *r.Gender != f.Gender) {
			continue
		}
		if f.MinAge != nil && (r.Age == nil || *r.Age < *f.MinAge) {
			continue
		}
		if f.MaxAge != nil && (r.Age == nil || *r.Age > *f.MaxAge) {
			continue
		}
		if f.LikedSubstring != "" && !strings.Contains(fold.String(r.LikedItems), liked) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// matchesAnyColumn reports whether any display column's text contains the
// folded query.
func matchesAnyColumn(r roster.Record, query string, fold cases.Caser) bool {
	for _, c := range roster.Columns() {
		if strings.Contains(fold.String(r.Text(c.Name)), query) {
			return true
		}
	}
	return false
}

// Engine owns a master collection and its current view configuration.
// An Engine is not safe for concurrent use.
type Engine struct {
	master []roster.Record
	cfg    Config
	view   []roster.Record
}

// NewEngine returns an engine over records with no sort and no filters.
func NewEngine(records []roster.Record) *Engine {
	e := &Engine{}
	e.Load(records)
	return e
}

// Load replaces the master collection and resets the configuration.
func (e *Engine) Load(records []roster.Record) {
	e.master = clone(records)
	e.cfg = Config{}
	e.view = clone(records)
}

// SortBy toggles the sort on col and returns the recomputed view.
func (e *Engine) SortBy(col roster.Column) ([]roster.Record, error) {
	return e.Apply(e.cfg.Toggle(col))
}

// SetFilters replaces the filter controls, keeping the sort.
func (e *Engine) SetFilters(f Filters) []roster.Record {
	cfg := e.cfg
	cfg.Filters = f
	// The current sort key was already validated.
	view, _ := e.Apply(cfg)
	return view
}

// ClearFilters removes every filter, keeping the sort.
func (e *Engine) ClearFilters() []roster.Record {
	return e.SetFilters(Filters{})
}

// Apply installs cfg and returns the recomputed view. On error the engine is
// unchanged.
func (e *Engine) Apply(cfg Config) ([]roster.Record, error) {
	cfg = cfg.clone()
	view, err := Derive(e.master, cfg)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	e.view = view
	return e.View(), nil
}

// View returns a copy of the current view.
func (e *Engine) View() []roster.Record {
	return clone(e.view)
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	return e.cfg.clone()
}

// MasterLen returns the size of the master collection.
func (e *Engine) MasterLen() int {
	return len(e.master)
}

func clone(records []roster.Record) []roster.Record {
	out := make([]roster.Record, len(records))
	copy(out, records)
	return out
}
