package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/storage"
	"golang.org/x/sync/errgroup"
)

const (
	defaultReferralPageSize   = 100
	defaultReferralBatchWidth = 20
)

// ReferralResolver enumerates the users referred by a code and splits them
// into invited and active sets. Activity means a latest session start inside
// the given window.
type ReferralResolver struct {
	referrals  storage.ReferralStore
	sessions   storage.SessionStore
	pageSize   int
	batchWidth int
}

// NewReferralResolver builds a resolver. Non-positive sizes fall back to the
// defaults.
func NewReferralResolver(referrals storage.ReferralStore, sessions storage.SessionStore, pageSize, batchWidth int) *ReferralResolver {
	if pageSize <= 0 {
		pageSize = defaultReferralPageSize
	}
	if batchWidth <= 0 {
		batchWidth = defaultReferralBatchWidth
	}
	return &ReferralResolver{
		referrals:  referrals,
		sessions:   sessions,
		pageSize:   pageSize,
		batchWidth: batchWidth,
	}
}

// Resolve returns the referred user ids and the subset whose latest session
// start falls inside the inclusive [windowStart, windowEnd] range. Referred
// sets are unbounded so enumeration pages through the index; activity lookups
// fan out with bounded concurrency, one batch at a time.
func (r *ReferralResolver) Resolve(ctx context.Context, referralCode string, windowStart, windowEnd time.Time) (invited, active []string, err error) {
	if r == nil || r.referrals == nil || r.sessions == nil {
		return nil, nil, fmt.Errorf("referral resolver is not configured")
	}

	pageToken := ""
	for {
		page, err := r.referrals.ListReferredUsers(ctx, referralCode, r.pageSize, pageToken)
		if err != nil {
			return nil, nil, fmt.Errorf("list referred users: %w", err)
		}
		invited = append(invited, page.UserIDs...)

		activeInPage, err := r.activeInWindow(ctx, page.UserIDs, windowStart, windowEnd)
		if err != nil {
			return nil, nil, err
		}
		active = append(active, activeInPage...)

		if page.NextPageToken == "" {
			return invited, active, nil
		}
		pageToken = page.NextPageToken
	}
}

func (r *ReferralResolver) activeInWindow(ctx context.Context, userIDs []string, windowStart, windowEnd time.Time) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	activeSet := make(map[string]bool, len(userIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.batchWidth)
	for _, userID := range userIDs {
		group.Go(func() error {
			latest, err := r.sessions.LatestSessionStart(groupCtx, userID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("latest session start for %s: %w", userID, err)
			}
			if latest.Before(windowStart) || latest.After(windowEnd) {
				return nil
			}
			mu.Lock()
			activeSet[userID] = true
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Preserve enumeration order in the result.
	active := make([]string, 0, len(activeSet))
	for _, userID := range userIDs {
		if activeSet[userID] {
			active = append(active, userID)
		}
	}
	return active, nil
}
