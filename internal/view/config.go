// Package view derives the ordered, filtered view of a roster.
//
// The master collection is never modified. Every configuration change
// produces a fresh view: filter first, then a stable sort of the survivors.
package view

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/simroster/internal/roster"
)

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Glyph is the header marker for the direction.
func (d Direction) Glyph() string {
	if d == Descending {
		return "▼"
	}
	return "▲"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	dir, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

// ParseDirection accepts "asc", "ascending", "desc" and "descending".
// Empty text means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("unknown sort direction %q", s)
}

// Filters are the filter controls. Zero values are inert.
type Filters struct {
	FreeText       string `json:"freeText"`
	Gender         string `json:"gender"`
	MinAge         *int   `json:"minAge"`
	MaxAge         *int   `json:"maxAge"`
	LikedSubstring string `json:"likedSubstring"`
}

// Active reports whether any filter control is set.
func (f Filters) Active() bool {
	return f.FreeText != "" || f.Gender != "" || f.MinAge != nil || f.MaxAge != nil || f.LikedSubstring != ""
}

func (f Filters) clone() Filters {
	if f.MinAge != nil {
		f.MinAge = roster.IntPtr(*f.MinAge)
	}
	if f.MaxAge != nil {
		f.MaxAge = roster.IntPtr(*f.MaxAge)
	}
	return f
}

// Config is the complete view configuration. The zero value means no sort
// and no filters.
type Config struct {
	// SortKey is the active sort column; empty means unsorted.
	SortKey   roster.Column `json:"sortKey"`
	Direction Direction     `json:"direction"`
	Filters   Filters       `json:"filters"`
}

// Sorted reports whether a sort column is active.
func (c Config) Sorted() bool {
	return c.SortKey != ""
}

func (c Config) clone() Config {
	c.Filters = c.Filters.clone()
	return c
}

// Toggle returns the configuration after a sort selection on col: the active
// column flips direction, any other column becomes active ascending.
func (c Config) Toggle(col roster.Column) Config {
	if c.SortKey == col {
		c.Direction = c.Direction.Flip()
		return c
	}
	c.SortKey = col
	c.Direction = Ascending
	return c
}
