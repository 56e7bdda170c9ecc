package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/savefile"
	"github.com/JonMunkholm/simroster/internal/view"
)

// LoadSummary describes one committed load.
type LoadSummary struct {
	LoadID     uuid.UUID `json:"load_id"`
	Generation uint64    `json:"generation"`
	FileName   string    `json:"file_name"`

	CurrentYear int `json:"current_year"`
	// Persons counts person nodes seen, including deceased and skipped ones.
	Persons  int `json:"persons"`
	Deceased int `json:"deceased"`
	Records  int `json:"records"`

	Issues         []savefile.Issue `json:"issues"`
	CatalogEntries int              `json:"catalog_entries"`
	Bytes          int64            `json:"bytes"`

	LoadedAt time.Time     `json:"loaded_at"`
	Duration time.Duration `json:"duration_ns"`
}

// ViewState is everything a presentation layer needs to paint the table.
type ViewState struct {
	Rows    []roster.Record     `json:"rows"`
	Config  view.Config         `json:"config"`
	Columns []roster.ColumnSpec `json:"columns"`
	// MasterTotal is the record count before filtering.
	MasterTotal int `json:"master_total"`
	// Load is nil until a save has been loaded.
	Load *LoadSummary `json:"load"`
}

// Loaded reports whether the state comes from a loaded save.
func (v ViewState) Loaded() bool {
	return v.Load != nil
}

// HistoryEntry is one row of the load history.
type HistoryEntry struct {
	LoadID         uuid.UUID `json:"load_id"`
	Generation     uint64    `json:"generation"`
	FileName       string    `json:"file_name"`
	CurrentYear    int       `json:"current_year"`
	Persons        int       `json:"persons"`
	Deceased       int       `json:"deceased"`
	Records        int       `json:"records"`
	Issues         int       `json:"issues"`
	CatalogEntries int       `json:"catalog_entries"`
	ClientIP       string    `json:"client_ip,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
	DurationMs     int64     `json:"duration_ms"`
}

// historyEntryFor builds the history row for a committed load.
func historyEntryFor(s *LoadSummary, c Client) HistoryEntry {
	return HistoryEntry{
		LoadID:         s.LoadID,
		Generation:     s.Generation,
		FileName:       s.FileName,
		CurrentYear:    s.CurrentYear,
		Persons:        s.Persons,
		Deceased:       s.Deceased,
		Records:        s.Records,
		Issues:         len(s.Issues),
		CatalogEntries: s.CatalogEntries,
		ClientIP:       c.IP,
		UserAgent:      c.UserAgent,
		LoadedAt:       s.LoadedAt,
		DurationMs:     s.Duration.Milliseconds(),
	}
}
