// Package poll keeps a view's data fresh while the view is active. A
// Subscription fires its fetch immediately, then on a fixed schedule; each
// invocation is fire-and-forget with respect to the schedule, so one slow or
// failed fetch never delays the next. Fetch failures are swallowed here (the
// consumer keeps its last good data) and logged at debug.
//
// The subscription's context is the stale-response guard: Stop cancels it,
// so an in-flight fetch resolving afterwards must not apply its result.
// Consumers check ctx.Err() (or Alive) before touching their state.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// FetchFunc refreshes one view's data. It must honour ctx cancellation and
// must not apply its result once ctx is done.
type FetchFunc func(ctx context.Context) error

// Subscription is one active polling schedule, bound to a view's visible
// lifetime. It is created by Start and must be Stopped when the view goes
// away; it holds exactly one timer, never more.
type Subscription struct {
	fetch    FetchFunc
	interval time.Duration
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	kick   chan struct{}
	done   chan struct{}

	stopOnce sync.Once
}

// Option defines a function type to modify the Subscription instance.
type Option func(*Subscription)

// WithLogger sets the logger used for swallowed fetch failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Subscription) {
		s.logger = logger
	}
}

// Start begins polling: one immediate invocation of fetch, then one every
// interval until Stop is called or ctx is cancelled. Restarting means
// Stop-then-Start; a Subscription is never reused.
func Start(ctx context.Context, fetch FetchFunc, interval time.Duration, options ...Option) (*Subscription, error) {
	if fetch == nil {
		return nil, errors.New("[poll.Start] fetch function is required")
	}
	if interval <= 0 {
		return nil, errors.New("[poll.Start] interval must be positive")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		fetch:    fetch,
		interval: interval,
		logger:   zerolog.Nop(),
		ctx:      subCtx,
		cancel:   cancel,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	for _, opt := range options {
		opt(sub)
	}

	go sub.run()
	return sub, nil
}

// Stop tears the schedule down. It is idempotent, returns once the schedule
// goroutine has exited, and guarantees no further invocation fires
// afterwards; any fetch still in flight has its context cancelled so its
// result is discarded.
func (s *Subscription) Stop() {
	s.stopOnce.Do(s.cancel)
	<-s.done
}

// Refresh requests one out-of-band invocation, coalescing with the schedule:
// the periodic timer is neither reset nor duplicated, and overlapping manual
// refreshes collapse into one. Safe to call after Stop (it does nothing).
func (s *Subscription) Refresh() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Alive reports whether the subscription is still active. Consumers use it
// (or the fetch context) as the liveness check before applying results.
func (s *Subscription) Alive() bool {
	return s.ctx.Err() == nil
}

func (s *Subscription) run() {
	defer close(s.done)

	go s.invoke()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			go s.invoke()
		case <-s.kick:
			go s.invoke()
		}
	}
}

func (s *Subscription) invoke() {
	if s.ctx.Err() != nil {
		return
	}
	if err := s.fetch(s.ctx); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Debug().Err(err).Msg("poll fetch failed")
	}
}
