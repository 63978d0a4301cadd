package app

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

func TestSessionSchedulerHandle(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 30, 12, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	var created domain.Session
	var transitioned storage.SessionUpdate
	sessions := &fakeSessionStore{
		createFn: func(_ context.Context, session domain.Session) error {
			created = session
			return nil
		},
		transitionFn: func(_ context.Context, id string, from, to domain.Status, update storage.SessionUpdate) (domain.Session, error) {
			if id != "sess-1" || from != domain.StatusPending || to != domain.StatusActive {
				t.Fatalf("unexpected transition %s %s -> %s", id, from, to)
			}
			transitioned = update
			return domain.Session{ID: id, Status: domain.StatusActive, EndAt: update.EndAt}, nil
		},
	}
	var armed []Trigger
	scheduler := NewSessionScheduler(sessions, schedulerFunc(func(_ context.Context, trigger Trigger) error {
		armed = append(armed, trigger)
		return nil
	}), 24*time.Hour, nil)

	err := scheduler.Handle(context.Background(), storage.EventRecord{
		ID:        "evt-1",
		EventType: domain.EventSessionStarted,
		Payload:   `{"sessionId":"sess-1","userId":"user-1","startInstant":"2026-03-14T09:30:12Z"}`,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if created.ID != "sess-1" || created.UserID != "user-1" {
		t.Fatalf("created session = %+v", created)
	}
	if !created.StartAt.Equal(start) {
		t.Fatalf("created start = %v, want %v", created.StartAt, start)
	}
	if transitioned.EndAt == nil || !transitioned.EndAt.Equal(wantEnd) {
		t.Fatalf("transition end = %v, want %v", transitioned.EndAt, wantEnd)
	}
	if len(armed) != 1 {
		t.Fatalf("armed len = %d, want 1", len(armed))
	}
	if armed[0].Name != "PM-sess-1" {
		t.Fatalf("trigger name = %q, want %q", armed[0].Name, "PM-sess-1")
	}
	if !armed[0].FireAt.Equal(wantEnd) {
		t.Fatalf("trigger fire at = %v, want %v", armed[0].FireAt, wantEnd)
	}
	payload, err := domain.DecodeCompletionPayload(armed[0].Payload)
	if err != nil {
		t.Fatalf("decode trigger payload: %v", err)
	}
	if payload.SessionID != "sess-1" || payload.UserID != "user-1" {
		t.Fatalf("trigger payload = %+v", payload)
	}
}

func TestSessionSchedulerRedeliveryRearmsStoredEnd(t *testing.T) {
	storedEnd := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	sessions := &fakeSessionStore{
		transitionFn: func(context.Context, string, domain.Status, domain.Status, storage.SessionUpdate) (domain.Session, error) {
			return domain.Session{}, storage.ErrStatusConflict
		},
		getFn: func(_ context.Context, id string) (domain.Session, error) {
			return domain.Session{ID: id, Status: domain.StatusActive, EndAt: &storedEnd}, nil
		},
	}
	var armed []Trigger
	scheduler := NewSessionScheduler(sessions, schedulerFunc(func(_ context.Context, trigger Trigger) error {
		armed = append(armed, trigger)
		return nil
	}), 24*time.Hour, nil)

	err := scheduler.Handle(context.Background(), storage.EventRecord{
		Payload: `{"sessionId":"sess-1","userId":"user-1","startInstant":"2026-03-14T09:30:12Z"}`,
	})
	if err != nil {
		t.Fatalf("handle redelivery: %v", err)
	}
	if len(armed) != 1 {
		t.Fatalf("armed len = %d, want 1", len(armed))
	}
	if !armed[0].FireAt.Equal(storedEnd) {
		t.Fatalf("re-armed fire at = %v, want stored end %v", armed[0].FireAt, storedEnd)
	}
}

func TestSessionSchedulerCompletedSessionSkipsArming(t *testing.T) {
	sessions := &fakeSessionStore{
		transitionFn: func(context.Context, string, domain.Status, domain.Status, storage.SessionUpdate) (domain.Session, error) {
			return domain.Session{}, storage.ErrStatusConflict
		},
		getFn: func(_ context.Context, id string) (domain.Session, error) {
			return domain.Session{ID: id, Status: domain.StatusCompleted}, nil
		},
	}
	scheduler := NewSessionScheduler(sessions, schedulerFunc(func(context.Context, Trigger) error {
		t.Fatal("trigger armed for a completed session")
		return nil
	}), 24*time.Hour, nil)

	err := scheduler.Handle(context.Background(), storage.EventRecord{
		Payload: `{"sessionId":"sess-1","userId":"user-1","startInstant":"2026-03-14T09:30:12Z"}`,
	})
	if err != nil {
		t.Fatalf("handle completed redelivery: %v", err)
	}
}

func TestSessionSchedulerInvalidPayloadIsPermanent(t *testing.T) {
	scheduler := NewSessionScheduler(&fakeSessionStore{}, schedulerFunc(func(context.Context, Trigger) error {
		return nil
	}), 24*time.Hour, nil)

	cases := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "nope"},
		{name: "missing session id", payload: `{"userId":"u","startInstant":"2026-03-14T09:30:12Z"}`},
		{name: "bad instant", payload: `{"sessionId":"s","userId":"u","startInstant":"yesterday"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := scheduler.Handle(context.Background(), storage.EventRecord{Payload: tc.payload})
			if err == nil {
				t.Fatal("expected error")
			}
			if !domain.IsPermanent(err) {
				t.Fatalf("err = %v, want permanent", err)
			}
		})
	}
}

func TestSessionSchedulerArmFailureIsRetryable(t *testing.T) {
	end := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	sessions := &fakeSessionStore{
		transitionFn: func(_ context.Context, id string, _, _ domain.Status, update storage.SessionUpdate) (domain.Session, error) {
			return domain.Session{ID: id, Status: domain.StatusActive, EndAt: &end}, nil
		},
	}
	scheduler := NewSessionScheduler(sessions, schedulerFunc(func(context.Context, Trigger) error {
		return context.DeadlineExceeded
	}), 24*time.Hour, nil)

	err := scheduler.Handle(context.Background(), storage.EventRecord{
		Payload: `{"sessionId":"sess-1","userId":"user-1","startInstant":"2026-03-14T09:30:12Z"}`,
	})
	if err == nil {
		t.Fatal("expected arm failure")
	}
	if domain.IsPermanent(err) {
		t.Fatalf("arm failure should be retryable, got permanent: %v", err)
	}
}

type schedulerFunc func(ctx context.Context, trigger Trigger) error

func (fn schedulerFunc) Schedule(ctx context.Context, trigger Trigger) error {
	return fn(ctx, trigger)
}
