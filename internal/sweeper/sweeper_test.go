package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora/service/internal/trash"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (f *fakePurger) SweepExpired(_ context.Context, cutoff time.Time) (*trash.SweepSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return &trash.SweepSummary{}, nil
}

func (f *fakePurger) calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.cutoffs...)
}

type fakePruner struct {
	mu    sync.Mutex
	count int
}

func (f *fakePruner) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return 0, nil
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func TestRunSweepsImmediatelyAndOnTicks(t *testing.T) {
	purger := &fakePurger{}
	pruner := &fakePruner{}
	s := New(purger, pruner, 10*time.Millisecond, 30*24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(purger.calls()) >= 3 },
		time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return pruner.calls() >= 3 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}

func TestSweepUsesRetentionCutoff(t *testing.T) {
	purger := &fakePurger{}
	retention := 30 * 24 * time.Hour
	s := New(purger, &fakePruner{}, time.Hour, retention)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.sweep(context.Background())

	calls := purger.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, now.Add(-retention), calls[0])
}
