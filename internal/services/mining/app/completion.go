package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// CompletionHandler distributes the reward when a session's trigger fires.
//
// The Active to Completed transition is the idempotency gate: exactly one
// delivery wins it, and only the winner computes and credits the reward.
// Redeliveries observe the status conflict and succeed as no-ops.
type CompletionHandler struct {
	sessions   storage.SessionStore
	users      storage.UserStore
	population storage.PopulationStore
	referrals  *ReferralResolver
	streaks    *StreakEvaluator
	bonusCap   int
	now        func() time.Time
	logf       func(string, ...any)
}

// NewCompletionHandler builds the completion handler. now and logf may be nil.
func NewCompletionHandler(
	sessions storage.SessionStore,
	users storage.UserStore,
	population storage.PopulationStore,
	referrals *ReferralResolver,
	streaks *StreakEvaluator,
	bonusCap int,
	now func() time.Time,
	logf func(string, ...any),
) *CompletionHandler {
	if bonusCap <= 0 {
		bonusCap = domain.DefaultReferralBonusCap
	}
	if now == nil {
		now = time.Now
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &CompletionHandler{
		sessions:   sessions,
		users:      users,
		population: population,
		referrals:  referrals,
		streaks:    streaks,
		bonusCap:   bonusCap,
		now:        now,
		logf:       logf,
	}
}

// Fire implements TimerHandler for completion triggers.
func (h *CompletionHandler) Fire(ctx context.Context, timer storage.TimerRecord) error {
	payload, err := domain.DecodeCompletionPayload(timer.Payload)
	if err != nil {
		return domain.Permanent(err)
	}
	return h.Complete(ctx, payload.SessionID, payload.UserID)
}

// Complete runs the three-step completion: win the status transition, compute
// the reward, credit the balance.
func (h *CompletionHandler) Complete(ctx context.Context, sessionID, userID string) error {
	if h == nil || h.sessions == nil || h.users == nil {
		return domain.Permanent(fmt.Errorf("completion handler is not configured"))
	}

	distributedAt := h.now().UTC()
	session, err := h.sessions.TransitionSession(ctx, sessionID,
		domain.StatusActive, domain.StatusCompleted,
		storage.SessionUpdate{RewardDistributedAt: &distributedAt})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrStatusConflict):
		h.logf("session %s already completed, skipping reward", sessionID)
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return domain.Permanent(fmt.Errorf("complete session %s: %w", sessionID, err))
	default:
		return fmt.Errorf("complete session %s: %w", sessionID, err)
	}

	breakdown := h.computeReward(ctx, session, userID)

	// The credit is conditional on the user row existing, so it runs even for
	// a zero reward: a vanished user must surface here, not complete silently.
	if err := h.users.CreditBalance(ctx, userID, breakdown.Final); err != nil {
		// The session is already Completed. A retry would lose the status
		// transition and never reach this credit again, so the failure is
		// parked for manual reconciliation instead.
		return domain.Permanent(fmt.Errorf("credit %v to user %s for session %s: %w", breakdown.Final, userID, sessionID, err))
	}

	h.logf("session %s completed: user=%s population=%d base=%v active_referred=%d social=%v streak=%t reward=%v",
		sessionID, userID, breakdown.Population, breakdown.Base, breakdown.ActiveReferred,
		breakdown.SocialMultiplier, breakdown.Streak, breakdown.Final)
	return nil
}

// computeReward gathers the reward inputs, degrading each component to its
// neutral value on failure so a flaky lookup never blocks distribution.
func (h *CompletionHandler) computeReward(ctx context.Context, session domain.Session, userID string) domain.RewardBreakdown {
	var population int64
	if h.population != nil {
		count, err := h.population.PopulationCount(ctx)
		if err != nil {
			h.logf("population count for session %s: %v", session.ID, err)
		} else {
			population = count
		}
	}

	activeReferred := 0
	if h.referrals != nil {
		user, err := h.users.GetUser(ctx, userID)
		switch {
		case err != nil:
			h.logf("load user %s for referral bonus: %v", userID, err)
		case user.ReferralCode != "":
			windowEnd := session.UpdatedAt
			if session.EndAt != nil {
				windowEnd = *session.EndAt
			}
			_, active, err := h.referrals.Resolve(ctx, user.ReferralCode, session.StartAt, windowEnd)
			if err != nil {
				h.logf("resolve referrals for user %s: %v", userID, err)
			} else {
				activeReferred = len(active)
			}
		}
	}

	streak := false
	if h.streaks != nil {
		reference := h.now().UTC()
		if session.EndAt != nil {
			reference = *session.EndAt
		}
		hasStreak, err := h.streaks.HasStreak(ctx, userID, reference)
		if err != nil {
			h.logf("evaluate streak for user %s: %v", userID, err)
		} else {
			streak = hasStreak
		}
	}

	return domain.ComputeReward(domain.RewardInput{
		Population:       population,
		ActiveReferred:   activeReferred,
		ReferralBonusCap: h.bonusCap,
		Streak:           streak,
	})
}
