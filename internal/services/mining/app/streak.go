package app

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// StreakEvaluator reports whether a user mined on each of the last seven UTC
// calendar days.
type StreakEvaluator struct {
	sessions storage.SessionStore
}

// NewStreakEvaluator builds a streak evaluator over the session store.
func NewStreakEvaluator(sessions storage.SessionStore) *StreakEvaluator {
	return &StreakEvaluator{sessions: sessions}
}

// HasStreak evaluates the seven-day streak ending at reference.
func (e *StreakEvaluator) HasStreak(ctx context.Context, userID string, reference time.Time) (bool, error) {
	if e == nil || e.sessions == nil {
		return false, fmt.Errorf("streak evaluator is not configured")
	}

	windowStart, windowEnd := domain.StreakWindow(reference)
	starts, err := e.sessions.ListSessionStarts(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return false, fmt.Errorf("list session starts for %s: %w", userID, err)
	}
	return domain.HasStreak(starts, reference), nil
}
