package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// CreateSession inserts a session row, treating an existing id as a no-op.
func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if err := session.Validate(); err != nil {
		return err
	}
	if session.Status == domain.StatusUnspecified {
		session.Status = domain.StatusPending
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO mining_sessions (
	id,
	user_id,
	status,
	start_at,
	end_at,
	reward_distributed_at,
	created_at,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`,
		session.ID,
		session.UserID,
		session.Status.String(),
		session.StartAt.UTC().UnixMilli(),
		nullableMilli(session.EndAt),
		nullableMilli(session.RewardDistributedAt),
		session.CreatedAt.UTC().UnixMilli(),
		session.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession loads one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Session{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Session{}, domain.ErrEmptySessionID
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	id,
	user_id,
	status,
	start_at,
	end_at,
	reward_distributed_at,
	created_at,
	updated_at
FROM mining_sessions
WHERE id = ?
`, id)
	return scanSession(row)
}

// TransitionSession performs the compare-and-set status move. The WHERE clause
// carries the expected status so concurrent deliveries race on a single
// conditional write instead of a read-then-write.
func (s *Store) TransitionSession(ctx context.Context, id string, from, to domain.Status, update storage.SessionUpdate) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Session{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Session{}, domain.ErrEmptySessionID
	}
	if !from.CanTransition(to) {
		return domain.Session{}, fmt.Errorf("transition %s -> %s is not allowed", from, to)
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE mining_sessions
SET
	status = ?,
	end_at = COALESCE(?, end_at),
	reward_distributed_at = COALESCE(?, reward_distributed_at),
	updated_at = ?
WHERE id = ? AND status = ?
`,
		to.String(),
		nullableMilli(update.EndAt),
		nullableMilli(update.RewardDistributedAt),
		time.Now().UTC().UnixMilli(),
		id,
		from.String(),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("transition session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Session{}, fmt.Errorf("transition session rows affected: %w", err)
	}
	if affected == 0 {
		// Disambiguate a missing session from a lost compare-and-set.
		if _, getErr := s.GetSession(ctx, id); getErr != nil {
			if errors.Is(getErr, storage.ErrNotFound) {
				return domain.Session{}, storage.ErrNotFound
			}
			return domain.Session{}, getErr
		}
		return domain.Session{}, storage.ErrStatusConflict
	}
	return s.GetSession(ctx, id)
}

// ListSessionStarts returns session start instants for the user within the
// inclusive [from, to] range, oldest first.
func (s *Store) ListSessionStarts(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrEmptyUserID
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT start_at
FROM mining_sessions
WHERE user_id = ? AND start_at >= ? AND start_at <= ?
ORDER BY start_at
`, userID, from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list session starts: %w", err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var millis int64
		if err := rows.Scan(&millis); err != nil {
			return nil, fmt.Errorf("scan session start: %w", err)
		}
		starts = append(starts, time.UnixMilli(millis).UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session starts: %w", err)
	}
	return starts, nil
}

// LatestSessionStart returns the most recent session start for the user.
func (s *Store) LatestSessionStart(ctx context.Context, userID string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if err := s.ready(); err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return time.Time{}, domain.ErrEmptyUserID
	}

	var millis int64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT start_at
FROM mining_sessions
WHERE user_id = ?
ORDER BY start_at DESC
LIMIT 1
`, userID)
	if err := row.Scan(&millis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("latest session start: %w", err)
	}
	return time.UnixMilli(millis).UTC(), nil
}

type sessionScanner interface {
	Scan(dest ...any) error
}

func scanSession(row sessionScanner) (domain.Session, error) {
	var session domain.Session
	var status string
	var startAt, createdAt, updatedAt int64
	var endAt, rewardAt sql.NullInt64

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&status,
		&startAt,
		&endAt,
		&rewardAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, storage.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}

	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Session{}, err
	}
	session.Status = parsed
	session.StartAt = time.UnixMilli(startAt).UTC()
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	session.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if endAt.Valid {
		value := time.UnixMilli(endAt.Int64).UTC()
		session.EndAt = &value
	}
	if rewardAt.Valid {
		value := time.UnixMilli(rewardAt.Int64).UTC()
		session.RewardDistributedAt = &value
	}
	return session, nil
}

func nullableMilli(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}
