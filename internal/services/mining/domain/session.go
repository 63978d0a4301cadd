package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/lodestone/internal/platform/errors"
)

var (
	// ErrEmptySessionID indicates a missing session ID.
	ErrEmptySessionID = apperrors.New(apperrors.CodeSessionEmptyID, "session id is required")
	// ErrEmptyUserID indicates a missing owning user ID.
	ErrEmptyUserID = apperrors.New(apperrors.CodeSessionEmptyUserID, "session user id is required")
	// ErrInvalidStart indicates an unparseable session start instant.
	ErrInvalidStart = apperrors.New(apperrors.CodeSessionInvalidStart, "session start instant is invalid")
)

// Status represents the lifecycle state of a mining session.
type Status int

const (
	// StatusUnspecified represents an invalid session status.
	StatusUnspecified Status = iota
	// StatusPending indicates a created session whose end instant is not yet computed.
	StatusPending
	// StatusActive indicates the end instant is set and a completion trigger is armed.
	StatusActive
	// StatusCompleted indicates the reward has been distributed. Terminal.
	StatusCompleted
)

// String returns the storage representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusActive:
		return "ACTIVE"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return "UNSPECIFIED"
	}
}

// ParseStatus converts a storage representation back into a Status.
func ParseStatus(value string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "PENDING":
		return StatusPending, nil
	case "ACTIVE":
		return StatusActive, nil
	case "COMPLETED":
		return StatusCompleted, nil
	default:
		return StatusUnspecified, apperrors.WithMetadata(
			apperrors.CodeSessionInvalidStatus,
			"unknown session status",
			map[string]string{"Status": value},
		)
	}
}

// CanTransition reports whether a status move is allowed. Sessions only move
// forward: PENDING to ACTIVE, ACTIVE to COMPLETED.
func (s Status) CanTransition(to Status) bool {
	switch {
	case s == StatusPending && to == StatusActive:
		return true
	case s == StatusActive && to == StatusCompleted:
		return true
	default:
		return false
	}
}

// Session represents one time-boxed earning window attributed to a user.
//
// EndAt is nil until the scheduler computes it and is never modified after
// being set. RewardDistributedAt is set exactly once, by the completion
// transition.
type Session struct {
	ID                  string
	UserID              string
	StartAt             time.Time
	EndAt               *time.Time
	Status              Status
	RewardDistributedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Validate checks the identity fields every persisted session must carry.
func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptySessionID
	}
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUserID
	}
	if s.StartAt.IsZero() {
		return ErrInvalidStart
	}
	return nil
}

// ComputeEndAt returns the session end instant: start plus the configured
// duration, truncated to whole-minute granularity in UTC. Truncation keeps
// the armed trigger expression stable across retries.
func ComputeEndAt(start time.Time, duration time.Duration) time.Time {
	return start.Add(duration).UTC().Truncate(time.Minute)
}
