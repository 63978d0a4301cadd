package sqlite

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/lodestone/internal/platform/errors"
	"github.com/louisbranch/lodestone/internal/platform/pagination"
	"github.com/louisbranch/lodestone/internal/platform/storage/cursor"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

var referralPageSizes = pagination.PageSizeConfig{Default: 100, Max: 500}

var errInvalidPageToken = apperrors.New(apperrors.CodePageTokenInvalid, "page token is invalid")

// ListReferredUsers returns one page of user ids referred by the given code,
// ordered by insertion. Tokens are bound to the referral code: a token minted
// for one code fails validation when presented with another.
func (s *Store) ListReferredUsers(ctx context.Context, referralCode string, pageSize int, pageToken string) (storage.ReferralPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ReferralPage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.ReferralPage{}, err
	}
	if strings.TrimSpace(referralCode) == "" {
		return storage.ReferralPage{}, apperrors.New(apperrors.CodeReferralEmptyCode, "referral code is required")
	}

	size := pagination.ClampPageSize(pageSize, referralPageSizes)

	var afterSeq uint64
	if pageToken != "" {
		c, err := cursor.Decode(pageToken)
		if err != nil {
			return storage.ReferralPage{}, errInvalidPageToken
		}
		if err := cursor.ValidateFilterHash(c, referralCode); err != nil {
			return storage.ReferralPage{}, errInvalidPageToken
		}
		afterSeq = c.Seq
	}

	// Fetch one extra row to learn whether another page exists.
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT rowid, id
FROM users
WHERE referred_by_code = ? AND rowid > ?
ORDER BY rowid
LIMIT ?
`, referralCode, afterSeq, size+1)
	if err != nil {
		return storage.ReferralPage{}, fmt.Errorf("list referred users: %w", err)
	}
	defer rows.Close()

	var page storage.ReferralPage
	var lastSeq uint64
	for rows.Next() {
		var seq uint64
		var id string
		if err := rows.Scan(&seq, &id); err != nil {
			return storage.ReferralPage{}, fmt.Errorf("scan referred user: %w", err)
		}
		if len(page.UserIDs) == size {
			token, err := cursor.Encode(cursor.New(lastSeq, referralCode))
			if err != nil {
				return storage.ReferralPage{}, fmt.Errorf("encode page token: %w", err)
			}
			page.NextPageToken = token
			break
		}
		page.UserIDs = append(page.UserIDs, id)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return storage.ReferralPage{}, fmt.Errorf("iterate referred users: %w", err)
	}
	return page, nil
}
