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

const (
	defaultConsumer      = "miner"
	defaultPollInterval  = 2 * time.Second
	defaultLeaseTTL      = 30 * time.Second
	defaultMaxAttempts   = 8
	defaultRetryBackoff  = 5 * time.Second
	defaultRetryMaxDelay = 5 * time.Minute
	defaultLeaseBatch    = 16
)

// Outcome labels recorded with every processing attempt.
const (
	outcomeSucceeded = "succeeded"
	outcomeRetry     = "retry"
	outcomeDead      = "dead"
)

// EventHandler processes one durable inbox event. Returning an error marked
// with domain.Permanent dead-letters the event instead of retrying it.
type EventHandler interface {
	Handle(ctx context.Context, event storage.EventRecord) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event storage.EventRecord) error

// Handle implements EventHandler.
func (fn EventHandlerFunc) Handle(ctx context.Context, event storage.EventRecord) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// AttemptRecorder persists per-event processing outcomes.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt storage.AttemptRecord) error
}

// Config controls inbox loop pacing and retry policy.
type Config struct {
	Consumer      string
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Consumer) == "" {
		c.Consumer = defaultConsumer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	return c
}

// retryDelay doubles the base backoff per prior attempt up to the max delay.
func (c Config) retryDelay(attempts int32) time.Duration {
	delay := c.RetryBackoff
	for i := int32(1); i < attempts; i++ {
		delay *= 2
		if delay >= c.RetryMaxDelay {
			return c.RetryMaxDelay
		}
	}
	if delay > c.RetryMaxDelay {
		return c.RetryMaxDelay
	}
	return delay
}

// Loop consumes durable inbox events and dispatches them by event type.
type Loop struct {
	inbox    storage.InboxStore
	recorder AttemptRecorder
	handlers map[string]EventHandler
	cfg      Config
	now      func() time.Time
	logf     func(string, ...any)
}

// NewLoop builds an inbox consumer loop. now and logf may be nil.
func NewLoop(inbox storage.InboxStore, recorder AttemptRecorder, handlers map[string]EventHandler, cfg Config, now func() time.Time, logf func(string, ...any)) *Loop {
	if now == nil {
		now = time.Now
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Loop{
		inbox:    inbox,
		recorder: recorder,
		handlers: handlers,
		cfg:      cfg.normalized(),
		now:      now,
		logf:     logf,
	}
}

// Run polls for due events until the context is canceled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.inbox == nil {
		return fmt.Errorf("inbox loop is not configured")
	}

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := l.Poll(ctx); err != nil {
			l.logf("inbox poll: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll leases one batch of due events and processes each in order.
func (l *Loop) Poll(ctx context.Context) error {
	now := l.now().UTC()
	leaseCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
	events, err := l.inbox.LeaseDueEvents(leaseCtx, now, l.cfg.LeaseTTL, defaultLeaseBatch)
	cancel()
	if err != nil {
		return fmt.Errorf("lease due events: %w", err)
	}
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.process(ctx, event)
	}
	return nil
}

func (l *Loop) process(ctx context.Context, event storage.EventRecord) {
	handler, ok := l.handlers[event.EventType]
	var handleErr error
	if !ok {
		handleErr = domain.Permanent(fmt.Errorf("no handler for event type %q", event.EventType))
	} else {
		handleErr = handler.Handle(ctx, event)
	}

	outcome := outcomeSucceeded
	switch {
	case handleErr == nil:
		if err := l.inbox.CompleteEvent(ctx, event.ID); err != nil {
			l.logf("complete event %s: %v", event.ID, err)
		}
	case domain.IsPermanent(handleErr) || int(event.Attempts) >= l.cfg.MaxAttempts:
		outcome = outcomeDead
		if err := l.inbox.DeadEvent(ctx, event.ID); err != nil {
			l.logf("dead event %s: %v", event.ID, err)
		}
		l.logf("event %s (%s) dead after %d attempts: %v", event.ID, event.EventType, event.Attempts, handleErr)
	default:
		outcome = outcomeRetry
		nextAttemptAt := l.now().UTC().Add(l.cfg.retryDelay(event.Attempts))
		if err := l.inbox.ReleaseEvent(ctx, event.ID, nextAttemptAt); err != nil {
			l.logf("release event %s: %v", event.ID, err)
		}
	}

	l.record(ctx, event.ID, event.EventType, outcome, event.Attempts, handleErr)
}

func (l *Loop) record(ctx context.Context, eventID, eventType, outcome string, attempts int32, handleErr error) {
	if l.recorder == nil {
		return
	}
	lastError := ""
	if handleErr != nil {
		lastError = handleErr.Error()
	}
	if err := l.recorder.RecordAttempt(ctx, storage.AttemptRecord{
		EventID:      eventID,
		EventType:    eventType,
		Consumer:     l.cfg.Consumer,
		Outcome:      outcome,
		AttemptCount: attempts,
		LastError:    lastError,
		CreatedAt:    l.now().UTC(),
	}); err != nil {
		l.logf("record attempt for %s: %v", eventID, err)
	}
}
