// Package sweeper enforces the trash retention window with a periodic
// background sweep. It reuses the user-facing purge operations, which are
// idempotent, so racing a manual "delete forever" is harmless.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/memora/service/internal/trash"
)

// Purger performs one expiry pass; satisfied by *trash.Service.
type Purger interface {
	SweepExpired(ctx context.Context, cutoff time.Time) (*trash.SweepSummary, error)
}

// SessionPruner drops expired renewal credentials; satisfied by *auth.Repository.
type SessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper runs retention sweeps at a fixed interval.
type Sweeper struct {
	purger    Purger
	sessions  SessionPruner
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// New creates a Sweeper purging items trashed longer than retention,
// checking every interval.
func New(purger Purger, sessions SessionPruner, interval, retention time.Duration) *Sweeper {
	return &Sweeper{purger: purger, sessions: sessions, interval: interval, retention: retention, now: time.Now}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Intended to run in its own goroutine for the life of the process.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("[sweeper] started: interval=%s retention=%s", s.interval, s.retention)
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[sweeper] stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	summary, err := s.purger.SweepExpired(ctx, cutoff)
	if err != nil {
		log.Printf("[sweeper] sweep failed: %v", err)
		return
	}
	if summary.MediaPurged > 0 || summary.CollectionsPurged > 0 {
		log.Printf("[sweeper] purged %d media and %d collections past retention",
			summary.MediaPurged, summary.CollectionsPurged)
	}

	pruned, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		log.Printf("[sweeper] session prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("[sweeper] pruned %d expired sessions", pruned)
	}
}
