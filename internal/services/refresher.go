package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Refreshable is anything that can reload its data on demand.
type Refreshable interface {
	Refresh(ctx context.Context) error
}

// Refresher drives periodic feed refreshes. One refresh runs at a time; a
// tick that fires while a refresh is still in flight is skipped rather than
// queued, so a slow upstream never builds a backlog.
type Refresher struct {
	target   Refreshable
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	inFlight atomic.Bool

	lastAttempt atomic.Pointer[time.Time]
	lastSuccess atomic.Pointer[time.Time]
}

// NewRefresher creates a refresher that reloads target every interval, with
// each attempt bounded by timeout.
func NewRefresher(target Refreshable, interval, timeout time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		target:   target,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start performs an immediate refresh, then ticks until Stop is called or
// ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("starting periodic refresh",
		zap.Duration("interval", r.interval),
		zap.Duration("timeout", r.timeout))
	go r.loop(ctx)
}

// Stop halts the refresh loop. Safe to call more than once.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		r.logger.Info("stopped periodic refresh")
	})
}

// LastAttempt returns when a refresh last started, or zero if none has.
func (r *Refresher) LastAttempt() time.Time {
	if t := r.lastAttempt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// LastSuccess returns when a refresh last completed without error, or zero
// if none has.
func (r *Refresher) LastSuccess() time.Time {
	if t := r.lastSuccess.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

func (r *Refresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	go r.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("periodic refresh stopping", zap.Error(ctx.Err()))
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			go r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Warn("refresh still in flight, skipping tick")
		return
	}
	defer r.inFlight.Store(false)

	started := time.Now()
	r.lastAttempt.Store(&started)

	refreshCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.target.Refresh(refreshCtx); err != nil {
		r.logger.Error("refresh failed, keeping previous data", zap.Error(err))
		return
	}

	finished := time.Now()
	r.lastSuccess.Store(&finished)
}
