package reconcile

import (
	"context"
	"errors"
	"sync"
)

// ErrRunInProgress is returned by Runner.Run when a reconciliation is
// already in flight.
var ErrRunInProgress = errors.New("reconciliation already running")

// Runner serializes reconciliation triggers. The engine's sequential,
// paced flow assumes a single run at a time; overlapping triggers
// (a cron tick plus a manual run) would both list the window before
// either writes and recreate the desired set twice.
type Runner struct {
	mu      sync.Mutex
	running bool
	run     func(ctx context.Context) (*Ledger, error)
}

// NewRunner wraps run so that at most one invocation is active.
func NewRunner(run func(ctx context.Context) (*Ledger, error)) *Runner {
	return &Runner{run: run}
}

// Run executes one reconciliation, rejecting overlapping triggers with
// ErrRunInProgress.
func (r *Runner) Run(ctx context.Context) (*Ledger, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	return r.run(ctx)
}
