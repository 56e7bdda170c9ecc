package core

// load_limiter.go bounds how many save documents are parsed at once.
//
// Service.Load takes a slot before it is given a generation, so a load that
// is turned away never counts as newer than the loads already running. The
// slot is held through the catalog fetch and XML scan and released once the
// result is committed or discarded.
//
// Shutdown waits on the idle channel, which is closed whenever the last slot
// is handed back.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyLoads is returned when no load slot frees up within the wait
// timeout. Clients should retry after a short delay.
var ErrTooManyLoads = errors.New("too many loads in progress, please try again later")

const (
	defaultLoadSlots = 4
	defaultSlotWait  = 30 * time.Second
)

// LoadLimiter hands out a fixed number of load slots.
type LoadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active == 0
}

// NewLoadLimiter creates a limiter with maxConcurrent slots (default 4).
// A load that waits longer than maxWait (default 30s) for a slot gets
// ErrTooManyLoads.
func NewLoadLimiter(maxConcurrent int, maxWait time.Duration) *LoadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultLoadSlots
	}
	if maxWait <= 0 {
		maxWait = defaultSlotWait
	}

	idle := make(chan struct{})
	close(idle)
	return &LoadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire waits for a slot. It returns ctx.Err() if the caller gives up
// first and ErrTooManyLoads if maxWait passes. Every nil return must be
// paired with a Release.
func (l *LoadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyLoads
	}

	l.mu.Lock()
	if l.active == 0 {
		l.idle = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()
	return nil
}

// Release hands a slot back.
func (l *LoadLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()

	<-l.slots
}

// WaitForDrain blocks until no load holds a slot or ctx is done.
func (l *LoadLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadLimiterStatus is a snapshot of slot usage for the health endpoint.
type LoadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current slot usage.
func (l *LoadLimiter) Status() LoadLimiterStatus {
	l.mu.Lock()
	active := l.active
	l.mu.Unlock()

	return LoadLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}
