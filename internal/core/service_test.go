package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/simroster/internal/catalog"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/savefile"
	"github.com/JonMunkholm/simroster/internal/view"
)

// staticCatalog serves a fixed catalog, optionally blocking until released.
type staticCatalog struct {
	cat     catalog.Catalog
	err     error
	gate    chan struct{}
	mu      sync.Mutex
	fetches int
}

func (c *staticCatalog) Fetch(ctx context.Context) (catalog.Catalog, error) {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return catalog.Catalog{}, ctx.Err()
		}
	}
	return c.cat, c.err
}

// waitForFetches blocks until n loads are parked on Fetch.
func (c *staticCatalog) waitForFetches(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		c.mu.Lock()
		got := c.fetches
		c.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("fetches = %d, want %d", got, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
	records map[uuid.UUID][]roster.Record
	pruned  []time.Time
	err     error
}

func (h *memoryHistory) RecordLoad(ctx context.Context, e HistoryEntry, records []roster.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	if h.records == nil {
		h.records = make(map[uuid.UUID][]roster.Record)
	}
	h.entries = append([]HistoryEntry{e}, h.entries...)
	h.records[e.LoadID] = append([]roster.Record(nil), records...)
	return nil
}

func (h *memoryHistory) LoadRecords(ctx context.Context, loadID uuid.UUID) ([]roster.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	records, ok := h.records[loadID]
	if !ok {
		return nil, errors.New("load not found in history")
	}
	return records, nil
}

func (h *memoryHistory) ListLoads(ctx context.Context, limit int) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit < len(h.entries) {
		return h.entries[:limit], nil
	}
	return h.entries, nil
}

func (h *memoryHistory) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruned = append(h.pruned, cutoff)
	return 0, nil
}

func testSave(year int, persons ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<SaveGame><CurrentYear>%d</CurrentYear><Sims>", year)
	for _, p := range persons {
		b.WriteString("<GenerationsSimData>" + p + "</GenerationsSimData>")
	}
	b.WriteString("</Sims></SaveGame>")
	return b.String()
}

func newTestService(t *testing.T, src CatalogSource, opts ...func(*Options)) *Service {
	t.Helper()
	o := Options{Catalog: src}
	for _, fn := range opts {
		fn(&o)
	}
	svc, err := NewService(o)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService_RequiresCatalog(t *testing.T) {
	if _, err := NewService(Options{}); err == nil {
		t.Error("expected error without a catalog source")
	}
}

func TestService_LoadCommits(t *testing.T) {
	src := &staticCatalog{cat: catalog.ParseString("12|Chess\n")}
	svc := newTestService(t, src)

	doc := testSave(2020,
		"<ID>1</ID><Gender>Female</Gender><Birthdate><year>1990</year></Birthdate><Likes><int>12</int><int>99</int></Likes>",
		"<IsDead>true</IsDead><ID>2</ID>",
		"<FirstName>NoID</FirstName>",
	)

	summary, err := svc.Load(context.Background(), "save.xml", strings.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if summary.Records != 1 || summary.Deceased != 1 || summary.Persons != 3 {
		t.Errorf("summary counts = %d/%d/%d, want 1/1/3", summary.Records, summary.Deceased, summary.Persons)
	}
	if len(summary.Issues) != 1 || summary.Issues[0].Code != savefile.IssueMissingID {
		t.Errorf("issues = %+v, want one missing_id", summary.Issues)
	}
	if summary.Generation != 1 || summary.CatalogEntries != 1 || summary.CurrentYear != 2020 {
		t.Errorf("unexpected summary %+v", summary)
	}

	state := svc.View()
	if !state.Loaded() || state.MasterTotal != 1 || len(state.Rows) != 1 {
		t.Fatalf("unexpected state %+v", state)
	}
	row := state.Rows[0]
	if row.LikedItems != "Chess, 99" {
		t.Errorf("LikedItems = %q", row.LikedItems)
	}
	if row.Age == nil || *row.Age != 30 {
		t.Errorf("Age = %v, want 30", row.Age)
	}
}

func TestService_ViewBeforeLoad(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})

	state := svc.View()
	if state.Loaded() || len(state.Rows) != 0 {
		t.Errorf("expected empty unloaded state, got %+v", state)
	}
	if len(state.Columns) != len(roster.Columns()) {
		t.Errorf("columns missing from empty state")
	}

	if _, err := svc.SortBy("Age"); !errors.Is(err, ErrNoSaveLoaded) {
		t.Errorf("SortBy err = %v, want ErrNoSaveLoaded", err)
	}
	if _, err := svc.SetFilters(view.Filters{Gender: "Male"}); !errors.Is(err, ErrNoSaveLoaded) {
		t.Errorf("SetFilters err = %v, want ErrNoSaveLoaded", err)
	}
}

func TestService_StructuralFailureKeepsRoster(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})
	ctx := context.Background()

	good := testSave(10, "<ID>1</ID>")
	if _, err := svc.Load(ctx, "good.xml", strings.NewReader(good), 0); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := svc.SortBy("ID"); err != nil {
		t.Fatalf("SortBy: %v", err)
	}

	tests := []struct {
		name   string
		doc    string
		target error
	}{
		{name: "no current year", doc: "<SaveGame><Sims/></SaveGame>", target: savefile.ErrMissingCurrentYear},
		{name: "not xml", doc: "hello", target: savefile.ErrNoRootElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Load(ctx, "bad.xml", strings.NewReader(tt.doc), 0)
			if !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}

			state := svc.View()
			if state.Load == nil || state.Load.FileName != "good.xml" {
				t.Errorf("previous load replaced: %+v", state.Load)
			}
			if state.Config.SortKey != roster.ColID {
				t.Errorf("config reset by failed load: %+v", state.Config)
			}
		})
	}
}

func TestService_LoadResetsConfig(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})
	ctx := context.Background()
	doc := testSave(10, "<ID>2</ID><Gender>Male</Gender>", "<ID>1</ID><Gender>Female</Gender>")

	if _, err := svc.Load(ctx, "a.xml", strings.NewReader(doc), 0); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := svc.SortBy("id"); err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	if _, err := svc.SetFilters(view.Filters{Gender: "Male"}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}

	if _, err := svc.Load(ctx, "b.xml", strings.NewReader(doc), 0); err != nil {
		t.Fatalf("Load: %v", err)
	}
	state := svc.View()
	if state.Config.Sorted() || state.Config.Filters.Active() {
		t.Errorf("config not reset: %+v", state.Config)
	}
	if len(state.Rows) != 2 || state.Rows[0].ID != 2 {
		t.Errorf("rows not in document order: %+v", state.Rows)
	}
}

func TestService_SortToggle(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})
	doc := testSave(10, "<ID>2</ID>", "<ID>3</ID>", "<ID>1</ID>")
	if _, err := svc.Load(context.Background(), "a.xml", strings.NewReader(doc), 0); err != nil {
		t.Fatalf("Load: %v", err)
	}

	state, err := svc.SortBy("ID")
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	if got := rowIDs(state.Rows); got != "1,2,3" {
		t.Errorf("ascending = %s", got)
	}

	state, err = svc.SortBy("ID")
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	if got := rowIDs(state.Rows); got != "3,2,1" {
		t.Errorf("descending = %s", got)
	}
	if state.Config.Direction != view.Descending {
		t.Errorf("direction = %v", state.Config.Direction)
	}

	if _, err := svc.SortBy("Shoe"); !errors.Is(err, view.ErrUnknownColumn) {
		t.Errorf("err = %v, want ErrUnknownColumn", err)
	}
}

func TestService_StaleLoadDiscarded(t *testing.T) {
	slow := &staticCatalog{gate: make(chan struct{})}
	svc := newTestService(t, slow)
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Load(ctx, "old.xml", strings.NewReader(testSave(1, "<ID>1</ID>")), 0)
		firstErr <- err
	}()

	slow.waitForFetches(t, 1)

	secondErr := make(chan error, 1)
	go func() {
		_, err := svc.Load(ctx, "new.xml", strings.NewReader(testSave(1, "<ID>2</ID>")), 0)
		secondErr <- err
	}()

	slow.waitForFetches(t, 2)
	close(slow.gate)

	if err := <-secondErr; err != nil {
		t.Fatalf("newer load failed: %v", err)
	}
	if err := <-firstErr; !errors.Is(err, ErrLoadSuperseded) {
		t.Fatalf("older load err = %v, want ErrLoadSuperseded", err)
	}

	state := svc.View()
	if state.Load.FileName != "new.xml" || rowIDs(state.Rows) != "2" {
		t.Errorf("stale load won: %+v", state.Load)
	}
}

func TestService_RejectedLoadDoesNotSupersede(t *testing.T) {
	slow := &staticCatalog{gate: make(chan struct{})}
	svc := newTestService(t, slow, func(o *Options) {
		o.Limiter = NewLoadLimiter(1, 20*time.Millisecond)
	})
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Load(ctx, "running.xml", strings.NewReader(testSave(1, "<ID>1</ID>")), 0)
		firstErr <- err
	}()
	slow.waitForFetches(t, 1)

	_, err := svc.Load(ctx, "rejected.xml", strings.NewReader(testSave(1, "<ID>2</ID>")), 0)
	if !errors.Is(err, ErrTooManyLoads) {
		t.Fatalf("second load err = %v, want ErrTooManyLoads", err)
	}

	close(slow.gate)
	if err := <-firstErr; err != nil {
		t.Fatalf("running load failed: %v", err)
	}

	state := svc.View()
	if !state.Loaded() || state.Load.FileName != "running.xml" || rowIDs(state.Rows) != "1" {
		t.Fatalf("running load not committed: %+v", state.Load)
	}
	if state.Load.Generation != 1 {
		t.Errorf("generation = %d, want 1", state.Load.Generation)
	}
}

func TestService_QueuedLoadWinsAfterWaiting(t *testing.T) {
	slow := &staticCatalog{gate: make(chan struct{})}
	svc := newTestService(t, slow, func(o *Options) {
		o.Limiter = NewLoadLimiter(1, 5*time.Second)
	})
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Load(ctx, "first.xml", strings.NewReader(testSave(1, "<ID>1</ID>")), 0)
		firstErr <- err
	}()
	slow.waitForFetches(t, 1)

	if st := svc.LimiterStatus(); st.Active != 1 || st.Available != 0 {
		t.Errorf("status while running = %+v, want 1 active, 0 available", st)
	}

	secondErr := make(chan error, 1)
	go func() {
		_, err := svc.Load(ctx, "second.xml", strings.NewReader(testSave(1, "<ID>2</ID>")), 0)
		secondErr <- err
	}()

	// The queued load holds no slot, so it has not reached the catalog.
	time.Sleep(30 * time.Millisecond)
	slow.mu.Lock()
	fetches := slow.fetches
	slow.mu.Unlock()
	if fetches != 1 {
		t.Fatalf("fetches = %d while queued, want 1", fetches)
	}

	close(slow.gate)
	if err := <-firstErr; err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if err := <-secondErr; err != nil {
		t.Fatalf("queued load failed: %v", err)
	}

	state := svc.View()
	if state.Load.FileName != "second.xml" || state.Load.Generation != 2 {
		t.Errorf("committed load = %s gen %d, want second.xml gen 2", state.Load.FileName, state.Load.Generation)
	}
	if st := svc.LimiterStatus(); st.Active != 0 {
		t.Errorf("active after loads = %d, want 0", st.Active)
	}
}

func TestService_ShutdownWaitsForLoads(t *testing.T) {
	slow := &staticCatalog{gate: make(chan struct{})}
	svc := newTestService(t, slow)

	loadErr := make(chan error, 1)
	go func() {
		_, err := svc.Load(context.Background(), "a.xml", strings.NewReader(testSave(1, "<ID>1</ID>")), 0)
		loadErr <- err
	}()
	slow.waitForFetches(t, 1)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.Shutdown(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown with a load running: err = %v, want DeadlineExceeded", err)
	}

	drained := make(chan error, 1)
	go func() { drained <- svc.Shutdown(context.Background()) }()
	close(slow.gate)

	if err := <-loadErr; err != nil {
		t.Fatalf("Load: %v", err)
	}
	select {
	case err := <-drained:
		if err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return after the load finished")
	}
}

func TestService_LoadDeclaredEncoding(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})

	tests := []struct {
		name string
		decl string
		want string
	}{
		{name: "latin-1 converted", decl: `<?xml version="1.0" encoding="ISO-8859-1"?>`, want: "Zoë"},
		{name: "undeclared repaired", decl: "", want: "Zo?"},
		{name: "utf-8 declared repaired", decl: `<?xml version="1.0" encoding="UTF-8"?>`, want: "Zo?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.decl + testSave(1, "<ID>1</ID><FirstName>Zo\xeb</FirstName>")
			if _, err := svc.Load(context.Background(), "a.xml", strings.NewReader(doc), int64(len(doc))); err != nil {
				t.Fatalf("Load: %v", err)
			}
			rows := svc.View().Rows
			if len(rows) != 1 || rows[0].FirstName == nil {
				t.Fatalf("rows = %+v", rows)
			}
			if got := *rows[0].FirstName; got != tt.want {
				t.Errorf("FirstName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestService_CatalogFailure(t *testing.T) {
	svc := newTestService(t, &staticCatalog{err: fmt.Errorf("%w: boom", catalog.ErrUnavailable)})

	_, err := svc.Load(context.Background(), "a.xml", strings.NewReader(testSave(1)), 0)
	if !errors.Is(err, catalog.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if svc.View().Loaded() {
		t.Error("failed load committed")
	}
	if MapError(err).Code != "CAT001" {
		t.Errorf("code = %s, want CAT001", MapError(err).Code)
	}
}

func TestService_FileTooLarge(t *testing.T) {
	svc := newTestService(t, &staticCatalog{}, func(o *Options) { o.MaxFileSize = 32 })
	doc := testSave(1, "<ID>1</ID>", "<ID>2</ID>")

	if _, err := svc.Load(context.Background(), "a.xml", strings.NewReader(doc), int64(len(doc))); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("declared size: err = %v, want ErrFileTooLarge", err)
	}
	if _, err := svc.Load(context.Background(), "a.xml", strings.NewReader(doc), 0); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("streamed size: err = %v, want ErrFileTooLarge", err)
	}
}

func TestService_NoFile(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})
	if _, err := svc.Load(context.Background(), "", nil, 0); !errors.Is(err, ErrNoFile) {
		t.Errorf("err = %v, want ErrNoFile", err)
	}
}

func TestService_History(t *testing.T) {
	hist := &memoryHistory{}
	svc := newTestService(t, &staticCatalog{}, func(o *Options) { o.History = hist })

	ctx := WithClient(context.Background(), Client{IP: "10.0.0.7", UserAgent: "test"})
	summary, err := svc.Load(ctx, "a.xml", strings.NewReader(testSave(5, "<ID>1</ID>", "<ID>2</ID>")), 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	entries, err := svc.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.LoadID != summary.LoadID || e.ClientIP != "10.0.0.7" || e.Records != 2 {
		t.Errorf("unexpected entry %+v", e)
	}

	records, err := svc.HistoryRecords(context.Background(), summary.LoadID)
	if err != nil {
		t.Fatalf("HistoryRecords: %v", err)
	}
	if len(records) != 2 || records[0].ID != 1 || records[1].ID != 2 {
		t.Errorf("stored records = %v", rowIDs(records))
	}
}

func TestService_HistoryFailureDoesNotFailLoad(t *testing.T) {
	hist := &memoryHistory{err: errors.New("connection refused")}
	svc := newTestService(t, &staticCatalog{}, func(o *Options) { o.History = hist })

	if _, err := svc.Load(context.Background(), "a.xml", strings.NewReader(testSave(5)), 0); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !svc.View().Loaded() {
		t.Error("load not committed")
	}
}

func TestService_HistoryDisabled(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})
	if _, err := svc.History(context.Background(), 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("err = %v, want ErrHistoryDisabled", err)
	}
	if svc.HistoryEnabled() {
		t.Error("HistoryEnabled should be false")
	}
}

func TestService_HistoryPruner(t *testing.T) {
	hist := &memoryHistory{}
	svc := newTestService(t, &staticCatalog{}, func(o *Options) { o.History = hist })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartHistoryPruner(ctx, PruneConfig{Retention: time.Hour, CheckInterval: 10 * time.Millisecond})
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	<-done

	hist.mu.Lock()
	defer hist.mu.Unlock()
	if len(hist.pruned) < 2 {
		t.Fatalf("prune passes = %d, want at least 2", len(hist.pruned))
	}
	if age := time.Since(hist.pruned[0]); age < time.Hour || age > time.Hour+time.Second {
		t.Errorf("cutoff age = %v, want about 1h", age)
	}
}

func TestService_ConcurrentViewsAndLoads(t *testing.T) {
	svc := newTestService(t, &staticCatalog{})
	doc := testSave(30, "<ID>1</ID>", "<ID>2</ID>", "<ID>3</ID>")
	if _, err := svc.Load(context.Background(), "a.xml", strings.NewReader(doc), 0); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			svc.SortBy("ID")
		}()
		go func() {
			defer wg.Done()
			svc.View()
		}()
		go func() {
			defer wg.Done()
			svc.Load(context.Background(), "b.xml", strings.NewReader(doc), 0)
		}()
	}
	wg.Wait()

	if got := svc.View().MasterTotal; got != 3 {
		t.Errorf("MasterTotal = %d, want 3", got)
	}
}

func rowIDs(rows []roster.Record) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprint(r.ID)
	}
	return strings.Join(parts, ",")
}
