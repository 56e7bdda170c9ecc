package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is returned when the catalog resource cannot be retrieved.
var ErrUnavailable = errors.New("catalog unavailable")

// DefaultFetchTimeout bounds a single catalog retrieval.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxSize caps the catalog resource size (8MB).
const DefaultMaxSize = 8 << 20

// FetcherConfig configures where and how the catalog resource is retrieved.
type FetcherConfig struct {
	// Source is a filesystem path or an http(s) URL.
	Source string

	// Timeout bounds one retrieval (default: 10s).
	Timeout time.Duration

	// MaxSize is the largest accepted resource in bytes (default: 8MB).
	MaxSize int64

	// Client overrides the HTTP client used for URL sources.
	Client *http.Client
}

// Fetcher retrieves and parses the catalog resource.
// Concurrent fetches share one retrieval.
type Fetcher struct {
	source  string
	timeout time.Duration
	maxSize int64
	client  *http.Client

	group singleflight.Group
}

// NewFetcher creates a Fetcher from cfg, applying defaults for zero values.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		source:  cfg.Source,
		timeout: cfg.Timeout,
		maxSize: cfg.MaxSize,
		client:  client,
	}
}

// Source returns the configured resource location.
func (f *Fetcher) Source() string {
	return f.source
}

// Fetch retrieves and parses the catalog. The returned catalog is complete;
// there is no partial result.
func (f *Fetcher) Fetch(ctx context.Context) (Catalog, error) {
	ch := f.group.DoChan(f.source, func() (any, error) {
		// The shared retrieval must not die with whichever caller started it.
		fetchCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		return f.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return Catalog{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Catalog{}, res.Err
		}
		return res.Val.(Catalog), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context) (Catalog, error) {
	if f.source == "" {
		return Catalog{}, fmt.Errorf("%w: no source configured", ErrUnavailable)
	}

	rc, err := f.open(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, f.source, err)
	}
	defer rc.Close()

	limited := &io.LimitedReader{R: rc, N: f.maxSize + 1}
	cat, err := Parse(limited)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, f.source, err)
	}
	if limited.N <= 0 {
		return Catalog{}, fmt.Errorf("%w: %s: exceeds %d bytes", ErrUnavailable, f.source, f.maxSize)
	}
	return cat, nil
}

func (f *Fetcher) open(ctx context.Context) (io.ReadCloser, error) {
	if !isURL(f.source) {
		return os.Open(f.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
