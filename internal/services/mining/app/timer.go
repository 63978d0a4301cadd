package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/lodestone/internal/platform/timeouts"
	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// TimerHandler fires once per leased due timer. Errors marked with
// domain.Permanent park the timer instead of releasing it for redelivery.
type TimerHandler interface {
	Fire(ctx context.Context, timer storage.TimerRecord) error
}

// TimerHandlerFunc adapts a function to the TimerHandler interface.
type TimerHandlerFunc func(ctx context.Context, timer storage.TimerRecord) error

// Fire implements TimerHandler.
func (fn TimerHandlerFunc) Fire(ctx context.Context, timer storage.TimerRecord) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, timer)
}

// TimerLoop polls the durable timer table and fires due triggers with
// at-least-once delivery.
type TimerLoop struct {
	timers   storage.TimerStore
	handler  TimerHandler
	recorder AttemptRecorder
	cfg      Config
	now      func() time.Time
	logf     func(string, ...any)
}

// NewTimerLoop builds a timer poller. now and logf may be nil.
func NewTimerLoop(timers storage.TimerStore, handler TimerHandler, recorder AttemptRecorder, cfg Config, now func() time.Time, logf func(string, ...any)) *TimerLoop {
	if now == nil {
		now = time.Now
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	cfg = cfg.normalized()
	if strings.TrimSpace(cfg.Consumer) == defaultConsumer {
		cfg.Consumer = defaultConsumer + "-timer"
	}
	return &TimerLoop{
		timers:   timers,
		handler:  handler,
		recorder: recorder,
		cfg:      cfg,
		now:      now,
		logf:     logf,
	}
}

// Run polls for due timers until the context is canceled.
func (l *TimerLoop) Run(ctx context.Context) error {
	if l == nil || l.timers == nil || l.handler == nil {
		return fmt.Errorf("timer loop is not configured")
	}

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := l.Poll(ctx); err != nil {
			l.logf("timer poll: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll leases one batch of due timers and fires each in order.
func (l *TimerLoop) Poll(ctx context.Context) error {
	now := l.now().UTC()
	leaseCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
	timers, err := l.timers.LeaseDueTimers(leaseCtx, now, l.cfg.LeaseTTL, defaultLeaseBatch)
	cancel()
	if err != nil {
		return fmt.Errorf("lease due timers: %w", err)
	}
	for _, timer := range timers {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.fire(ctx, timer)
	}
	return nil
}

func (l *TimerLoop) fire(ctx context.Context, timer storage.TimerRecord) {
	fireErr := l.handler.Fire(ctx, timer)

	outcome := outcomeSucceeded
	switch {
	case fireErr == nil:
		if err := l.timers.CompleteTimer(ctx, timer.Name); err != nil {
			l.logf("complete timer %s: %v", timer.Name, err)
		}
	case domain.IsPermanent(fireErr) || int(timer.Attempts) >= l.cfg.MaxAttempts:
		outcome = outcomeDead
		if err := l.timers.DeadTimer(ctx, timer.Name); err != nil {
			l.logf("dead timer %s: %v", timer.Name, err)
		}
		l.logf("timer %s dead after %d attempts: %v", timer.Name, timer.Attempts, fireErr)
	default:
		outcome = outcomeRetry
		nextAttemptAt := l.now().UTC().Add(l.cfg.retryDelay(timer.Attempts))
		if err := l.timers.ReleaseTimer(ctx, timer.Name, nextAttemptAt); err != nil {
			l.logf("release timer %s: %v", timer.Name, err)
		}
	}

	if l.recorder == nil {
		return
	}
	lastError := ""
	if fireErr != nil {
		lastError = fireErr.Error()
	}
	if err := l.recorder.RecordAttempt(ctx, storage.AttemptRecord{
		EventID:      timer.Name,
		EventType:    "mining.completion_timer",
		Consumer:     l.cfg.Consumer,
		Outcome:      outcome,
		AttemptCount: timer.Attempts,
		LastError:    lastError,
		CreatedAt:    l.now().UTC(),
	}); err != nil {
		l.logf("record attempt for timer %s: %v", timer.Name, err)
	}
}
