package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// triggerNamePrefix builds the deterministic completion trigger name. One
// session maps to exactly one trigger name, which makes re-arming an upsert.
const triggerNamePrefix = "PM-"

// TriggerName returns the completion trigger name for a session.
func TriggerName(sessionID string) string {
	return triggerNamePrefix + sessionID
}

// Trigger is one deferred one-shot firing request.
type Trigger struct {
	Name    string
	FireAt  time.Time
	Payload string
}

// TriggerScheduler arms deferred triggers. Scheduling the same name twice
// replaces the previous arming.
type TriggerScheduler interface {
	Schedule(ctx context.Context, trigger Trigger) error
}

// TimerStoreScheduler arms triggers through the durable timer table.
type TimerStoreScheduler struct {
	Timers storage.TimerStore
}

// Schedule implements TriggerScheduler.
func (s TimerStoreScheduler) Schedule(ctx context.Context, trigger Trigger) error {
	if s.Timers == nil {
		return fmt.Errorf("timer store is not configured")
	}
	return s.Timers.ArmTimer(ctx, storage.TimerRecord{
		Name:    trigger.Name,
		FireAt:  trigger.FireAt,
		Payload: trigger.Payload,
	})
}

// SessionScheduler consumes session-start notifications: it persists the
// session, computes its end instant, activates it, and arms the completion
// trigger. All steps tolerate redelivery.
type SessionScheduler struct {
	sessions  storage.SessionStore
	scheduler TriggerScheduler
	duration  time.Duration
	logf      func(string, ...any)
}

// NewSessionScheduler builds the session-start handler. The session duration
// must already be resolved; a non-positive duration disables the handler and
// every event fails permanently rather than arming a bad trigger.
func NewSessionScheduler(sessions storage.SessionStore, scheduler TriggerScheduler, duration time.Duration, logf func(string, ...any)) *SessionScheduler {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &SessionScheduler{
		sessions:  sessions,
		scheduler: scheduler,
		duration:  duration,
		logf:      logf,
	}
}

// Handle implements EventHandler for mining.session_started events.
func (s *SessionScheduler) Handle(ctx context.Context, event storage.EventRecord) error {
	if s == nil || s.sessions == nil || s.scheduler == nil {
		return domain.Permanent(fmt.Errorf("session scheduler is not configured"))
	}
	if s.duration <= 0 {
		return domain.Permanent(fmt.Errorf("session duration is not configured"))
	}

	payload, err := domain.DecodeSessionStartedPayload(event.Payload)
	if err != nil {
		return domain.Permanent(err)
	}
	start, err := payload.Start()
	if err != nil {
		return domain.Permanent(err)
	}
	start = start.UTC()

	if err := s.sessions.CreateSession(ctx, domain.Session{
		ID:      payload.SessionID,
		UserID:  payload.UserID,
		StartAt: start,
		Status:  domain.StatusPending,
	}); err != nil {
		return fmt.Errorf("create session %s: %w", payload.SessionID, err)
	}

	endAt := domain.ComputeEndAt(start, s.duration)
	_, err = s.sessions.TransitionSession(ctx, payload.SessionID,
		domain.StatusPending, domain.StatusActive,
		storage.SessionUpdate{EndAt: &endAt})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrStatusConflict):
		// Redelivery after a previous activation. Re-arm from the stored end
		// so the trigger parameters never drift from the persisted session.
		session, getErr := s.sessions.GetSession(ctx, payload.SessionID)
		if getErr != nil {
			return fmt.Errorf("load activated session %s: %w", payload.SessionID, getErr)
		}
		if session.Status == domain.StatusCompleted {
			s.logf("session %s already completed, skipping arm", payload.SessionID)
			return nil
		}
		if session.EndAt == nil {
			return domain.Permanent(fmt.Errorf("session %s is %s without an end instant", payload.SessionID, session.Status))
		}
		endAt = *session.EndAt
	case errors.Is(err, storage.ErrNotFound):
		return domain.Permanent(fmt.Errorf("activate session %s: %w", payload.SessionID, err))
	default:
		return fmt.Errorf("activate session %s: %w", payload.SessionID, err)
	}

	completion, err := domain.EncodeCompletionPayload(domain.CompletionPayload{
		SessionID: payload.SessionID,
		UserID:    payload.UserID,
	})
	if err != nil {
		return domain.Permanent(err)
	}
	if err := s.scheduler.Schedule(ctx, Trigger{
		Name:    TriggerName(payload.SessionID),
		FireAt:  endAt,
		Payload: completion,
	}); err != nil {
		return fmt.Errorf("arm completion trigger for session %s: %w", payload.SessionID, err)
	}

	s.logf("session %s active for user %s until %s", payload.SessionID, payload.UserID, endAt.Format(time.RFC3339))
	return nil
}
