// Package scheduler wraps robfig/cron to run periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron specs (with seconds field).
const (
	EvictSpec = "0 * * * * *" // every minute
	PurgeSpec = "0 0 3 * * *" // daily at 03:00
)

// SessionStore is the context-window store swept for idle sessions.
type SessionStore interface {
	Evict(idle time.Duration) int
	Len() int
}

// Purger deletes operational rows older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Gauge receives the live session count after each sweep.
type Gauge interface {
	SetSessions(n int)
}

// Config controls the maintenance horizons.
type Config struct {
	SessionIdle time.Duration
	Retention   time.Duration
}

// Engine manages the cron scheduler.
type Engine struct {
	cron     *cron.Cron
	cfg      Config
	sessions SessionStore
	purger   Purger
	gauge    Gauge
	now      func() time.Time
}

// New creates a new cron-based Engine. gauge may be nil.
func New(cfg Config, sessions SessionStore, purger Purger, gauge Gauge) *Engine {
	return &Engine{
		cron:     cron.New(cron.WithSeconds()),
		cfg:      cfg,
		sessions: sessions,
		purger:   purger,
		gauge:    gauge,
		now:      time.Now,
	}
}

// Start registers the maintenance jobs and begins the cron engine.
// The engine stops when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	if _, err := e.cron.AddFunc(EvictSpec, e.EvictSessions); err != nil {
		return fmt.Errorf("scheduler.Start: evict job: %w", err)
	}
	if _, err := e.cron.AddFunc(PurgeSpec, func() { e.Purge(ctx) }); err != nil {
		return fmt.Errorf("scheduler.Start: purge job: %w", err)
	}
	e.cron.Start()
	go func() {
		<-ctx.Done()
		<-e.cron.Stop().Done()
	}()
	return nil
}

// Entries returns the next run time of each job, in registration order.
func (e *Engine) Entries() []time.Time {
	entries := e.cron.Entries()
	out := make([]time.Time, len(entries))
	for i, en := range entries {
		out[i] = en.Next
	}
	return out
}

// EvictSessions drops idle context-window sessions.
func (e *Engine) EvictSessions() {
	if e.sessions == nil {
		return
	}
	if n := e.sessions.Evict(e.cfg.SessionIdle); n > 0 {
		log.Printf("scheduler: evicted %d idle context sessions", n)
	}
	if e.gauge != nil {
		e.gauge.SetSessions(e.sessions.Len())
	}
}

// Purge deletes usage rows and log lines older than the retention horizon.
func (e *Engine) Purge(ctx context.Context) {
	if e.purger == nil || e.cfg.Retention <= 0 {
		return
	}
	cutoff := e.now().Add(-e.cfg.Retention)
	n, err := e.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		log.Printf("scheduler.Purge: %v", err)
		return
	}
	log.Printf("scheduler: purged %d rows older than %s", n, cutoff.Format("2006-01-02"))
}
