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

// CreateUser inserts a user, returning storage.ErrAlreadyExists when the id
// is already present.
func (s *Store) CreateUser(ctx context.Context, user storage.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.ErrEmptyUserID
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (
	id,
	referral_code,
	referred_by_code,
	balance,
	created_at
) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`,
		user.ID,
		user.ReferralCode,
		user.ReferredByCode,
		user.Balance,
		user.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrAlreadyExists
	}
	return nil
}

// GetUser loads one user by id.
func (s *Store) GetUser(ctx context.Context, id string) (storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.UserRecord{}, err
	}
	if strings.TrimSpace(id) == "" {
		return storage.UserRecord{}, domain.ErrEmptyUserID
	}

	var user storage.UserRecord
	var createdAt int64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, referral_code, referred_by_code, balance, created_at
FROM users
WHERE id = ?
`, id)
	if err := row.Scan(&user.ID, &user.ReferralCode, &user.ReferredByCode, &user.Balance, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	return user, nil
}

// CreditBalance adds amount to the user's balance in one conditional write.
func (s *Store) CreditBalance(ctx context.Context, id string, amount float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return domain.ErrEmptyUserID
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users
SET balance = balance + ?
WHERE id = ?
`, amount, id)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit balance rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PopulationCount returns the global registered-user counter.
func (s *Store) PopulationCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	var count int64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT registered_users FROM app_stats WHERE id = 'main'
`)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("population count: %w", err)
	}
	return count, nil
}

// IncrementPopulation adds delta to the global registered-user counter.
func (s *Store) IncrementPopulation(ctx context.Context, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE app_stats
SET registered_users = registered_users + ?
WHERE id = 'main'
`, delta)
	if err != nil {
		return fmt.Errorf("increment population: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment population rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
