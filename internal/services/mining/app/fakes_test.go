package app

import (
	"context"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

type fakeSessionStore struct {
	createFn     func(ctx context.Context, session domain.Session) error
	getFn        func(ctx context.Context, id string) (domain.Session, error)
	transitionFn func(ctx context.Context, id string, from, to domain.Status, update storage.SessionUpdate) (domain.Session, error)
	listFn       func(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error)
	latestFn     func(ctx context.Context, userID string) (time.Time, error)
}

func (f *fakeSessionStore) CreateSession(ctx context.Context, session domain.Session) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, session)
}

func (f *fakeSessionStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if f.getFn == nil {
		return domain.Session{}, storage.ErrNotFound
	}
	return f.getFn(ctx, id)
}

func (f *fakeSessionStore) TransitionSession(ctx context.Context, id string, from, to domain.Status, update storage.SessionUpdate) (domain.Session, error) {
	if f.transitionFn == nil {
		return domain.Session{}, storage.ErrNotFound
	}
	return f.transitionFn(ctx, id, from, to, update)
}

func (f *fakeSessionStore) ListSessionStarts(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, userID, from, to)
}

func (f *fakeSessionStore) LatestSessionStart(ctx context.Context, userID string) (time.Time, error) {
	if f.latestFn == nil {
		return time.Time{}, storage.ErrNotFound
	}
	return f.latestFn(ctx, userID)
}

type fakeUserStore struct {
	createFn func(ctx context.Context, user storage.UserRecord) error
	getFn    func(ctx context.Context, id string) (storage.UserRecord, error)
	creditFn func(ctx context.Context, id string, amount float64) error
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user storage.UserRecord) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, user)
}

func (f *fakeUserStore) GetUser(ctx context.Context, id string) (storage.UserRecord, error) {
	if f.getFn == nil {
		return storage.UserRecord{}, storage.ErrNotFound
	}
	return f.getFn(ctx, id)
}

func (f *fakeUserStore) CreditBalance(ctx context.Context, id string, amount float64) error {
	if f.creditFn == nil {
		return nil
	}
	return f.creditFn(ctx, id, amount)
}

type fakePopulationStore struct {
	countFn     func(ctx context.Context) (int64, error)
	incrementFn func(ctx context.Context, delta int64) error
}

func (f *fakePopulationStore) PopulationCount(ctx context.Context) (int64, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx)
}

func (f *fakePopulationStore) IncrementPopulation(ctx context.Context, delta int64) error {
	if f.incrementFn == nil {
		return nil
	}
	return f.incrementFn(ctx, delta)
}

type fakeReferralStore struct {
	listFn func(ctx context.Context, code string, pageSize int, pageToken string) (storage.ReferralPage, error)
}

func (f *fakeReferralStore) ListReferredUsers(ctx context.Context, code string, pageSize int, pageToken string) (storage.ReferralPage, error) {
	if f.listFn == nil {
		return storage.ReferralPage{}, nil
	}
	return f.listFn(ctx, code, pageSize, pageToken)
}

type fakeTimerStore struct {
	armFn      func(ctx context.Context, timer storage.TimerRecord) error
	leaseFn    func(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]storage.TimerRecord, error)
	completeFn func(ctx context.Context, name string) error
	releaseFn  func(ctx context.Context, name string, nextAttemptAt time.Time) error
	deadFn     func(ctx context.Context, name string) error
}

func (f *fakeTimerStore) ArmTimer(ctx context.Context, timer storage.TimerRecord) error {
	if f.armFn == nil {
		return nil
	}
	return f.armFn(ctx, timer)
}

func (f *fakeTimerStore) LeaseDueTimers(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]storage.TimerRecord, error) {
	if f.leaseFn == nil {
		return nil, nil
	}
	return f.leaseFn(ctx, now, leaseFor, limit)
}

func (f *fakeTimerStore) CompleteTimer(ctx context.Context, name string) error {
	if f.completeFn == nil {
		return nil
	}
	return f.completeFn(ctx, name)
}

func (f *fakeTimerStore) ReleaseTimer(ctx context.Context, name string, nextAttemptAt time.Time) error {
	if f.releaseFn == nil {
		return nil
	}
	return f.releaseFn(ctx, name, nextAttemptAt)
}

func (f *fakeTimerStore) DeadTimer(ctx context.Context, name string) error {
	if f.deadFn == nil {
		return nil
	}
	return f.deadFn(ctx, name)
}

type fakeInboxStore struct {
	appendFn   func(ctx context.Context, event storage.EventRecord) error
	leaseFn    func(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]storage.EventRecord, error)
	completeFn func(ctx context.Context, id string) error
	releaseFn  func(ctx context.Context, id string, nextAttemptAt time.Time) error
	deadFn     func(ctx context.Context, id string) error
}

func (f *fakeInboxStore) AppendEvent(ctx context.Context, event storage.EventRecord) error {
	if f.appendFn == nil {
		return nil
	}
	return f.appendFn(ctx, event)
}

func (f *fakeInboxStore) LeaseDueEvents(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]storage.EventRecord, error) {
	if f.leaseFn == nil {
		return nil, nil
	}
	return f.leaseFn(ctx, now, leaseFor, limit)
}

func (f *fakeInboxStore) CompleteEvent(ctx context.Context, id string) error {
	if f.completeFn == nil {
		return nil
	}
	return f.completeFn(ctx, id)
}

func (f *fakeInboxStore) ReleaseEvent(ctx context.Context, id string, nextAttemptAt time.Time) error {
	if f.releaseFn == nil {
		return nil
	}
	return f.releaseFn(ctx, id, nextAttemptAt)
}

func (f *fakeInboxStore) DeadEvent(ctx context.Context, id string) error {
	if f.deadFn == nil {
		return nil
	}
	return f.deadFn(ctx, id)
}

type fakeAttemptRecorder struct {
	attempts []storage.AttemptRecord
}

func (f *fakeAttemptRecorder) RecordAttempt(_ context.Context, attempt storage.AttemptRecord) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}
