package domain

import "math"

// DefaultReferralBonusCap bounds how many active referred users can
// contribute to the social multiplier.
const DefaultReferralBonusCap = 20

// socialBonusPerUser is the multiplier contribution of one active referred user.
const socialBonusPerUser = 0.2

// streakBonusMultiplier applies when the user mined on each of the last
// seven calendar days.
const streakBonusMultiplier = 1.2

// BaseReward selects the population-tier base reward. Tiers are strictly
// ordered with inclusive upper bounds; first match wins.
func BaseReward(population int64) float64 {
	switch {
	case population <= 10_000:
		return 24
	case population <= 20_000:
		return 20
	case population <= 30_000:
		return 16
	case population <= 60_000:
		return 12
	case population <= 100_000:
		return 8
	default:
		return 6
	}
}

// SocialMultiplier returns 1 + 0.2 per active referred user, capped.
// A cap of zero or less falls back to DefaultReferralBonusCap.
func SocialMultiplier(activeReferred, cap int) float64 {
	if cap <= 0 {
		cap = DefaultReferralBonusCap
	}
	if activeReferred < 0 {
		activeReferred = 0
	}
	if activeReferred > cap {
		activeReferred = cap
	}
	return 1 + float64(activeReferred)*socialBonusPerUser
}

// StreakMultiplier returns the seven-day streak bonus multiplier.
func StreakMultiplier(streak bool) float64 {
	if streak {
		return streakBonusMultiplier
	}
	return 1.0
}

// FinalReward combines the components, floored to three decimals and clamped
// to a minimum of zero.
func FinalReward(base, social, streak float64) float64 {
	raw := base * social * streak
	floored := math.Floor(raw*1000) / 1000
	if floored < 0 {
		return 0
	}
	return floored
}

// RewardInput carries everything the reward calculation needs. All fields are
// plain values so the calculation stays unit-testable without I/O.
type RewardInput struct {
	Population       int64
	ActiveReferred   int
	ReferralBonusCap int
	Streak           bool
}

// RewardBreakdown records each component of a computed reward for
// structured logging and reconciliation.
type RewardBreakdown struct {
	Population       int64
	Base             float64
	ActiveReferred   int
	SocialMultiplier float64
	Streak           bool
	StreakMultiplier float64
	Final            float64
}

// ComputeReward derives the full reward breakdown from its inputs.
func ComputeReward(in RewardInput) RewardBreakdown {
	base := BaseReward(in.Population)
	social := SocialMultiplier(in.ActiveReferred, in.ReferralBonusCap)
	streak := StreakMultiplier(in.Streak)
	return RewardBreakdown{
		Population:       in.Population,
		Base:             base,
		ActiveReferred:   in.ActiveReferred,
		SocialMultiplier: social,
		Streak:           in.Streak,
		StreakMultiplier: streak,
		Final:            FinalReward(base, social, streak),
	}
}
