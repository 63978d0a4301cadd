package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// SignupHandler consumes auth.signup_completed events: it records the user
// with referral linkage and counts each registration exactly once.
type SignupHandler struct {
	users      storage.UserStore
	population storage.PopulationStore
	logf       func(string, ...any)
}

// NewSignupHandler builds the registration handler. logf may be nil.
func NewSignupHandler(users storage.UserStore, population storage.PopulationStore, logf func(string, ...any)) *SignupHandler {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &SignupHandler{users: users, population: population, logf: logf}
}

// Handle implements EventHandler for auth.signup_completed events. The
// conditional insert is the idempotency gate: only the delivery that creates
// the row increments the population counter.
func (h *SignupHandler) Handle(ctx context.Context, event storage.EventRecord) error {
	if h == nil || h.users == nil || h.population == nil {
		return domain.Permanent(fmt.Errorf("signup handler is not configured"))
	}

	payload, err := domain.DecodeSignupCompletedPayload(event.Payload)
	if err != nil {
		return domain.Permanent(err)
	}

	err = h.users.CreateUser(ctx, storage.UserRecord{
		ID:             payload.UserID,
		ReferralCode:   payload.ReferralCode,
		ReferredByCode: payload.ReferredByCode,
	})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrAlreadyExists):
		h.logf("user %s already registered, skipping population increment", payload.UserID)
		return nil
	default:
		return fmt.Errorf("create user %s: %w", payload.UserID, err)
	}

	if err := h.population.IncrementPopulation(ctx, 1); err != nil {
		return fmt.Errorf("increment population for user %s: %w", payload.UserID, err)
	}

	h.logf("user %s registered with referral code %s", payload.UserID, payload.ReferralCode)
	return nil
}
