// Package poller implements the periodic polling framework (C4): a generic
// loop parameterized by an account type, driving any external-source
// handler (C5) on a per-account cadence with incremental cursors and
// per-item error isolation.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// Hooks are the callbacks a handler supplies to the framework. A is the
// handler's own account type (e.g. a resolved Connection+PollingState pair).
type Hooks[A any] struct {
	// Accounts enumerates the accounts to sweep this cycle.
	Accounts func(ctx context.Context) ([]A, error)

	// LastPoll returns the last successful poll time for a, or nil if a has
	// never been polled.
	LastPoll func(ctx context.Context, a A) (*time.Time, error)

	// ExecutePoll runs one poll of a. A returned error is classified via
	// pkg/ingesterrors to decide the failure-handling path.
	ExecutePoll func(ctx context.Context, a A) error

	// RecordPoll persists that a was successfully polled at t.
	RecordPoll func(ctx context.Context, a A, t time.Time) error

	// Label returns a short human-readable identifier for a, used in logs.
	Label func(a A) string

	// OnAuthFailure is invoked when ExecutePoll's error classifies as an
	// AuthError, after the framework has already logged it. Handlers wire
	// this to pkg/connection.Store.Invalidate.
	OnAuthFailure func(ctx context.Context, a A, err error)
}

// Config holds the polling cadence parameters.
type Config struct {
	// PollingInterval is the minimum gap between polls of the same account.
	PollingInterval time.Duration

	// InitialDelay is the grace period before the first cycle.
	InitialDelay time.Duration

	// CycleDelay is the gap between sweeps over all accounts.
	CycleDelay time.Duration
}

// Framework runs Hooks[A] on a cooperative, cancellable schedule. Per-account
// errors never abort a sweep; they are logged and the sweep continues.
type Framework[A any] struct {
	cfg   Config
	hooks Hooks[A]
}

// New creates a poller framework for account type A.
func New[A any](cfg Config, hooks Hooks[A]) *Framework[A] {
	return &Framework[A]{cfg: cfg, hooks: hooks}
}

// Run blocks, sweeping accounts every CycleDelay until ctx is cancelled.
// There are no blocking sleeps that escape cancellation: every wait is a
// select against ctx.Done().
func (f *Framework[A]) Run(ctx context.Context) {
	if !sleep(ctx, f.cfg.InitialDelay) {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		f.sweep(ctx)
		if !sleep(ctx, f.cfg.CycleDelay) {
			return
		}
	}
}

// sweep enumerates accounts and polls each one due. A failure enumerating
// accounts aborts only this sweep, not the loop.
func (f *Framework[A]) sweep(ctx context.Context) {
	accounts, err := f.hooks.Accounts(ctx)
	if err != nil {
		slog.Error("poller: failed to enumerate accounts", "error", err)
		return
	}

	for _, a := range accounts {
		if ctx.Err() != nil {
			return
		}
		f.pollOne(ctx, a)
	}
}

func (f *Framework[A]) pollOne(ctx context.Context, a A) {
	label := f.hooks.Label(a)

	last, err := f.hooks.LastPoll(ctx, a)
	if err != nil {
		slog.Error("poller: failed to read last poll time", "account", label, "error", err)
		return
	}

	if last != nil && time.Since(*last) < f.cfg.PollingInterval {
		return
	}

	if err := f.hooks.ExecutePoll(ctx, a); err != nil {
		if ingesterrors.IsCancellation(err) {
			return
		}

		if _, ok := ingesterrors.AsAuthError(err); ok {
			slog.Error("poller: authentication failure, connection invalidated", "account", label, "error", err)
			if f.hooks.OnAuthFailure != nil {
				f.hooks.OnAuthFailure(ctx, a, err)
			}
			return
		}

		if _, ok := ingesterrors.AsTransientError(err); ok {
			slog.Warn("poller: transient failure, will retry next cycle", "account", label, "error", err)
			return
		}

		slog.Error("poller: poll failed", "account", label, "error", err)
		return
	}

	now := time.Now()
	if err := f.hooks.RecordPoll(ctx, a, now); err != nil {
		slog.Error("poller: failed to record successful poll", "account", label, "error", err)
	}
}

// sleep waits for d, returning false if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
