package watchlist

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrAlreadyRunning = errors.New("recurring task already running")

// Recurring runs fn once on Start and then every interval until Stop or ctx
// cancellation. fn runs on the task's goroutine, so a slow fn delays the next
// run rather than overlapping it.
type Recurring struct {
	interval time.Duration
	fn       func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRecurring(interval time.Duration, fn func(ctx context.Context)) *Recurring {
	return &Recurring{interval: interval, fn: fn}
}

func (r *Recurring) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	return nil
}

func (r *Recurring) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			r.fn(ctx)
		}
	}
}

// Stop cancels the schedule and waits for the task goroutine to exit. It is
// safe to call on a task that is not running.
func (r *Recurring) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Recurring) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
