package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/simroster/internal/catalog"
	"github.com/JonMunkholm/simroster/internal/logging"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/savefile"
	"github.com/JonMunkholm/simroster/internal/view"
)

// DefaultLoadTimeout bounds one load, catalog fetch included.
const DefaultLoadTimeout = 2 * time.Minute

// DefaultHistoryTimeout bounds writing one load to the history store.
const DefaultHistoryTimeout = 15 * time.Second

var (
	// ErrLoadSuperseded is returned by a load that finished after a newer one
	// started. Its result is discarded.
	ErrLoadSuperseded = errors.New("load superseded by a newer load")

	// ErrNoSaveLoaded is returned by view operations before the first load.
	ErrNoSaveLoaded = errors.New("no save loaded")

	// ErrNoFile is returned when a load is given no document.
	ErrNoFile = errors.New("no file provided")
)

// CatalogSource supplies the item catalog. It is consulted on every load.
type CatalogSource interface {
	Fetch(ctx context.Context) (catalog.Catalog, error)
}

// Options configures a Service.
type Options struct {
	// Catalog is required.
	Catalog CatalogSource

	// History is optional; nil disables the load history.
	History HistoryStore

	// Limiter bounds concurrent loads (default: NewLoadLimiter(0, 0)).
	Limiter *LoadLimiter

	// MaxFileSize caps a save document in bytes; 0 disables the cap.
	MaxFileSize int64

	// LoadTimeout bounds one load (default: 2m).
	LoadTimeout time.Duration

	// HistoryTimeout bounds one history write (default: 15s).
	HistoryTimeout time.Duration
}

// Service owns the roster session: the master collection loaded from the
// most recent save and the view configuration over it.
//
// Loads may run concurrently; the newest one to start wins. View operations
// are serialized against each other and against commits.
type Service struct {
	catalogs       CatalogSource
	history        HistoryStore
	limiter        *LoadLimiter
	maxFileSize    int64
	loadTimeout    time.Duration
	historyTimeout time.Duration

	generation atomic.Uint64

	mu      sync.RWMutex
	engine  *view.Engine
	current *LoadSummary
}

// NewService creates a Service with an empty roster.
func NewService(opts Options) (*Service, error) {
	if opts.Catalog == nil {
		return nil, errors.New("catalog source is required")
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLoadLimiter(0, 0)
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = DefaultHistoryTimeout
	}

	return &Service{
		catalogs:       opts.Catalog,
		history:        opts.History,
		limiter:        opts.Limiter,
		maxFileSize:    opts.MaxFileSize,
		loadTimeout:    opts.LoadTimeout,
		historyTimeout: opts.HistoryTimeout,
		engine:         view.NewEngine(nil),
	}, nil
}

// Load reads a save document and, if no newer load has started in the
// meantime, makes its living persons the new master collection with the view
// configuration reset.
//
// The catalog is fetched first and must be complete before extraction
// begins. size is the document size if known, 0 otherwise.
//
// A structural failure leaves the current roster untouched. A load that
// loses the race to a newer admitted load returns ErrLoadSuperseded; a load
// the limiter turns away returns ErrTooManyLoads and supersedes nothing.
func (s *Service) Load(ctx context.Context, fileName string, r io.Reader, size int64) (*LoadSummary, error) {
	if r == nil {
		return nil, ErrNoFile
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, s.maxFileSize)
	}

	loadID := uuid.New()

	// Only admitted loads take a generation, so a rejected load never
	// supersedes one that is running.
	if err := s.limiter.Acquire(ctx); err != nil {
		logging.WithFields(ctx, "load_id", loadID, "file", fileName).Warn("load rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	gen := s.generation.Add(1)
	log := logging.WithFields(ctx, "load_id", loadID, "generation", gen, "file", fileName)

	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	start := time.Now()
	log.Info("load started", "size", size)

	cat, err := s.catalogs.Fetch(ctx)
	if err != nil {
		log.Error("catalog fetch failed", "error", err)
		return nil, fmt.Errorf("load %s: %w", fileName, err)
	}
	if s.stale(gen) {
		log.Info("load superseded before parsing")
		return nil, ErrLoadSuperseded
	}

	body := WrapForStreaming(r, s.maxFileSize)
	doc, err := savefile.Read(ctx, body, cat)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			err = fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, s.maxFileSize)
		}
		log.Warn("save read failed", "error", err, "structural", savefile.IsStructural(err))
		return nil, fmt.Errorf("load %s: %w", fileName, err)
	}

	summary := &LoadSummary{
		LoadID:         loadID,
		Generation:     gen,
		FileName:       fileName,
		CurrentYear:    doc.CurrentYear,
		Persons:        doc.Persons,
		Deceased:       doc.Deceased,
		Records:        len(doc.Records),
		Issues:         doc.Issues,
		CatalogEntries: cat.Len(),
		Bytes:          body.BytesRead(),
		LoadedAt:       start,
		Duration:       time.Since(start),
	}

	s.mu.Lock()
	if s.stale(gen) {
		s.mu.Unlock()
		log.Info("load superseded before commit")
		return nil, ErrLoadSuperseded
	}
	s.engine.Load(doc.Records)
	s.current = summary
	s.mu.Unlock()

	for _, is := range doc.Issues {
		log.Debug("record issue", "index", is.Index, "code", is.Code, "raw", is.Raw)
	}
	log.Info("load committed",
		"records", summary.Records,
		"deceased", summary.Deceased,
		"issues", len(summary.Issues),
		"current_year", summary.CurrentYear,
		"duration_ms", summary.Duration.Milliseconds(),
	)

	s.recordHistory(ctx, summary, doc.Records)
	return summary, nil
}

// stale reports whether a newer load has started since gen.
func (s *Service) stale(gen uint64) bool {
	return s.generation.Load() != gen
}

// View returns the current view state.
func (s *Service) View() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked(s.engine.View())
}

// SortBy toggles the sort on the named column (matched case-insensitively)
// and returns the new view state.
func (s *Service) SortBy(column string) (ViewState, error) {
	col, err := view.ResolveColumn(column)
	if err != nil {
		return ViewState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ViewState{}, ErrNoSaveLoaded
	}
	rows, err := s.engine.SortBy(col)
	if err != nil {
		return ViewState{}, err
	}
	return s.stateLocked(rows), nil
}

// SetFilters replaces the filter controls and returns the new view state.
func (s *Service) SetFilters(f view.Filters) (ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ViewState{}, ErrNoSaveLoaded
	}
	return s.stateLocked(s.engine.SetFilters(f)), nil
}

// ClearFilters removes every filter and returns the new view state.
func (s *Service) ClearFilters() (ViewState, error) {
	return s.SetFilters(view.Filters{})
}

// Columns returns the display schema.
func (s *Service) Columns() []roster.ColumnSpec {
	return roster.Columns()
}

// Current returns the summary of the committed load, or nil.
func (s *Service) Current() *LoadSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LimiterStatus reports load slot usage.
func (s *Service) LimiterStatus() LoadLimiterStatus {
	return s.limiter.Status()
}

// Shutdown waits for in-flight loads to finish or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) stateLocked(rows []roster.Record) ViewState {
	return ViewState{
		Rows:        rows,
		Config:      s.engine.Config(),
		Columns:     roster.Columns(),
		MasterTotal: s.engine.MasterLen(),
		Load:        s.current,
	}
}
