package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
)

// ErrDispatcherBusy is reported when a share is dropped because every worker
// slot is taken.
var ErrDispatcherBusy = errors.New("publisher: dispatcher busy")

// ErrDispatcherClosed is logged for shares submitted after Close.
var ErrDispatcherClosed = errors.New("publisher: dispatcher closed")

// Failure is a share that did not go through.
type Failure struct {
	BadgeID id.BadgeID
	Err     error
}

// Dispatcher runs shares in the background, detached from the request that
// triggered them. Failures are delivered on Errors and never reach the
// issuing caller.
type Dispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	group  errgroup.Group
	errs   chan Failure
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithConcurrency bounds in-flight shares. Default is 4.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.group.SetLimit(n)
		}
	}
}

// WithTimeout bounds each share. Default is 30s.
func WithTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithDispatcherLogger configures a logger for the dispatcher.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher constructs a dispatcher over p. The Errors channel buffers
// up to errBuffer failures; further failures are logged and dropped.
func NewDispatcher(p Publisher, errBuffer int, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		publisher: p,
		logger:    slog.Default(),
		timeout:   30 * time.Second,
		errs:      make(chan Failure, max(errBuffer, 0)),
	}
	d.group.SetLimit(4)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit starts share in the background and reports whether it was accepted.
// Request-scoped values in ctx are kept but its cancellation is not, so the
// share outlives the request.
func (d *Dispatcher) Submit(ctx context.Context, share models.Share) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.WarnContext(ctx, "share rejected",
			"badge_id", share.BadgeID.String(),
			"error", ErrDispatcherClosed,
		)
		return false
	}

	detached := context.WithoutCancel(ctx)
	started := d.group.TryGo(func() error {
		runCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if _, err := d.publisher.Publish(runCtx, share); err != nil {
			d.fail(runCtx, Failure{BadgeID: share.BadgeID, Err: err})
		}
		return nil
	})
	if !started {
		d.fail(ctx, Failure{BadgeID: share.BadgeID, Err: ErrDispatcherBusy})
	}
	return started
}

// Errors delivers failed shares. It is closed by Close once in-flight shares finish.
func (d *Dispatcher) Errors() <-chan Failure {
	return d.errs
}

// Close stops accepting shares, waits for in-flight ones, and closes Errors.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	_ = d.group.Wait()
	close(d.errs)
}

func (d *Dispatcher) fail(ctx context.Context, f Failure) {
	select {
	case d.errs <- f:
	default:
		d.logger.WarnContext(ctx, "share failure dropped, error channel full",
			"badge_id", f.BadgeID.String(),
			"error", f.Err,
		)
	}
}
