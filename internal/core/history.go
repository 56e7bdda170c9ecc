package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/simroster/internal/logging"
	"github.com/JonMunkholm/simroster/internal/roster"
)

// ErrHistoryDisabled is returned by history operations when no store is
// configured.
var ErrHistoryDisabled = errors.New("load history disabled")

// DefaultHistoryLimit is the page size used when a caller asks for none.
const DefaultHistoryLimit = 50

// MaxHistoryLimit caps one history page.
const MaxHistoryLimit = 500

// HistoryStore persists committed loads.
type HistoryStore interface {
	// RecordLoad stores a load and its records atomically.
	RecordLoad(ctx context.Context, entry HistoryEntry, records []roster.Record) error

	// ListLoads returns the newest loads first.
	ListLoads(ctx context.Context, limit int) ([]HistoryEntry, error)

	// LoadRecords returns the records of one load in view order.
	LoadRecords(ctx context.Context, loadID uuid.UUID) ([]roster.Record, error)

	// PruneBefore deletes loads older than cutoff and returns how many went.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// HistoryEnabled reports whether a history store is configured.
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// History returns up to limit recent loads, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return s.history.ListLoads(ctx, limit)
}

// HistoryRecords returns the records stored for a past load.
func (s *Service) HistoryRecords(ctx context.Context, loadID uuid.UUID) ([]roster.Record, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.LoadRecords(ctx, loadID)
}

// recordHistory writes a committed load to the store. A failed write is
// logged and never fails the load.
func (s *Service) recordHistory(ctx context.Context, summary *LoadSummary, records []roster.Record) {
	if s.history == nil {
		return
	}

	// The load already succeeded; a client hanging up now must not lose the
	// history row.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.historyTimeout)
	defer cancel()

	entry := historyEntryFor(summary, ClientFromContext(ctx))
	if err := s.history.RecordLoad(ctx, entry, records); err != nil {
		logging.WithFields(ctx, "load_id", summary.LoadID).Error("record load history failed", "error", err)
	}
}
