// Package storage defines the persistence interfaces for the mining engine.
//
// The session status field is the engine's only synchronization primitive:
// TransitionSession is a compare-and-set and implementations must never fall
// back to read-then-write.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/lodestone/internal/platform/errors"
	"github.com/louisbranch/lodestone/internal/services/mining/domain"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrAlreadyExists indicates a conditional insert lost to an existing record.
var ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")

// ErrStatusConflict indicates a compare-and-set transition observed a session
// outside the expected status. Completion handlers treat this as a successful
// no-op; it is how duplicate deliveries collapse to one reward.
var ErrStatusConflict = apperrors.New(apperrors.CodeSessionStatusConflict, "session is not in the expected status")

// SessionUpdate carries the fields a status transition may set alongside the
// compare-and-set. Nil fields are left untouched.
type SessionUpdate struct {
	EndAt               *time.Time
	RewardDistributedAt *time.Time
}

// SessionStore owns mining-session lifecycle state.
type SessionStore interface {
	// CreateSession inserts a session if absent; an existing id is a no-op so
	// duplicate creation notifications stay harmless.
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// TransitionSession atomically moves a session from one status to the
	// next, applying update in the same write. Returns ErrStatusConflict when
	// the session is not in the expected status and ErrNotFound when it does
	// not exist.
	TransitionSession(ctx context.Context, id string, from, to domain.Status, update SessionUpdate) (domain.Session, error)
	// ListSessionStarts returns the start instants of the user's sessions
	// with start in the inclusive [from, to] range.
	ListSessionStarts(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error)
	// LatestSessionStart returns the most recent session start for the user,
	// or ErrNotFound when the user has never mined.
	LatestSessionStart(ctx context.Context, userID string) (time.Time, error)
}

// UserRecord captures the user state the mining engine reads and mutates.
type UserRecord struct {
	ID             string
	ReferralCode   string
	ReferredByCode string
	Balance        float64
	CreatedAt      time.Time
}

// UserStore owns user balance and referral linkage state.
type UserStore interface {
	// CreateUser inserts a user, returning ErrAlreadyExists when the id is
	// taken. The distinction lets signup handlers count each user once.
	CreateUser(ctx context.Context, user UserRecord) error
	GetUser(ctx context.Context, id string) (UserRecord, error)
	// CreditBalance atomically adds amount to the user's balance, failing
	// with ErrNotFound when the user is missing. Implementations must issue
	// a single conditional increment, never read-modify-write.
	CreditBalance(ctx context.Context, id string, amount float64) error
}

// PopulationStore owns the global registered-user counter used for reward
// tier selection.
type PopulationStore interface {
	PopulationCount(ctx context.Context) (int64, error)
	IncrementPopulation(ctx context.Context, delta int64) error
}

// ReferralPage describes one page of referred user ids.
type ReferralPage struct {
	UserIDs       []string
	NextPageToken string
}

// ReferralStore resolves the referred-by index. The referred set is unbounded
// so enumeration is always paged.
type ReferralStore interface {
	ListReferredUsers(ctx context.Context, referralCode string, pageSize int, pageToken string) (ReferralPage, error)
}

// TimerRecord is one armed deferred trigger. Name is the idempotency key:
// re-arming the same name overwrites rather than duplicating.
type TimerRecord struct {
	Name      string
	FireAt    time.Time
	Payload   string
	Attempts  int32
	CreatedAt time.Time
}

// TimerStore persists armed one-shot triggers for at-least-once firing.
type TimerStore interface {
	ArmTimer(ctx context.Context, timer TimerRecord) error
	// LeaseDueTimers claims up to limit due timers until now+leaseFor,
	// incrementing their attempt count.
	LeaseDueTimers(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]TimerRecord, error)
	// CompleteTimer removes a fired timer once its handler succeeded.
	CompleteTimer(ctx context.Context, name string) error
	// ReleaseTimer schedules a failed timer for redelivery at nextAttemptAt.
	ReleaseTimer(ctx context.Context, name string, nextAttemptAt time.Time) error
	// DeadTimer parks a timer that exhausted its attempts.
	DeadTimer(ctx context.Context, name string) error
}

// EventRecord is one durable inbox event awaiting consumption.
type EventRecord struct {
	ID          string
	EventType   string
	Payload     string
	Attempts    int32
	AvailableAt time.Time
	CreatedAt   time.Time
}

// InboxStore persists incoming notifications for at-least-once consumption.
type InboxStore interface {
	AppendEvent(ctx context.Context, event EventRecord) error
	LeaseDueEvents(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]EventRecord, error)
	CompleteEvent(ctx context.Context, id string) error
	ReleaseEvent(ctx context.Context, id string, nextAttemptAt time.Time) error
	DeadEvent(ctx context.Context, id string) error
}

// AttemptRecord is one durable processing outcome record. The attempts log is
// the reconciliation surface for rewards that completed without a credit.
type AttemptRecord struct {
	ID           int64
	EventID      string
	EventType    string
	Consumer     string
	Outcome      string
	AttemptCount int32
	LastError    string
	CreatedAt    time.Time
}

// AttemptStore persists processing attempt records.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt AttemptRecord) error
	ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
}
