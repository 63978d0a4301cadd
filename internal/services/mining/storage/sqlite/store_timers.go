package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// ArmTimer upserts a named one-shot trigger. Re-arming an existing name
// replaces its fire instant and payload and resets its delivery state, so the
// name acts as the idempotency key.
func (s *Store) ArmTimer(ctx context.Context, timer storage.TimerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	timer.Name = strings.TrimSpace(timer.Name)
	if timer.Name == "" {
		return fmt.Errorf("timer name is required")
	}
	if timer.FireAt.IsZero() {
		return fmt.Errorf("timer fire instant is required")
	}
	if timer.CreatedAt.IsZero() {
		timer.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO completion_timers (
	name,
	fire_at,
	available_at,
	payload,
	attempts,
	leased_until,
	dead_at,
	created_at
) VALUES (?, ?, ?, ?, 0, NULL, NULL, ?)
ON CONFLICT (name) DO UPDATE SET
	fire_at = excluded.fire_at,
	available_at = excluded.available_at,
	payload = excluded.payload,
	attempts = 0,
	leased_until = NULL,
	dead_at = NULL
`,
		timer.Name,
		timer.FireAt.UTC().UnixMilli(),
		timer.FireAt.UTC().UnixMilli(),
		timer.Payload,
		timer.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("arm timer: %w", err)
	}
	return nil
}

// LeaseDueTimers claims up to limit due timers until now+leaseFor, bumping
// their attempt counts. The claim happens inside one transaction so two
// pollers never fire the same timer concurrently.
func (s *Store) LeaseDueTimers(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]storage.TimerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if leaseFor <= 0 {
		return nil, fmt.Errorf("lease duration must be greater than zero")
	}

	nowMilli := now.UTC().UnixMilli()
	leaseMilli := now.Add(leaseFor).UTC().UnixMilli()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin lease tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT name, fire_at, payload, attempts, created_at
FROM completion_timers
WHERE dead_at IS NULL
  AND available_at <= ?
  AND (leased_until IS NULL OR leased_until <= ?)
ORDER BY available_at
LIMIT ?
`, nowMilli, nowMilli, limit)
	if err != nil {
		return nil, fmt.Errorf("select due timers: %w", err)
	}

	var timers []storage.TimerRecord
	for rows.Next() {
		var timer storage.TimerRecord
		var fireAt, createdAt int64
		if err := rows.Scan(&timer.Name, &fireAt, &timer.Payload, &timer.Attempts, &createdAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan due timer: %w", err)
		}
		timer.FireAt = time.UnixMilli(fireAt).UTC()
		timer.CreatedAt = time.UnixMilli(createdAt).UTC()
		timers = append(timers, timer)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate due timers: %w", err)
	}
	_ = rows.Close()

	for i := range timers {
		timers[i].Attempts++
		if _, err := tx.ExecContext(ctx, `
UPDATE completion_timers
SET leased_until = ?, attempts = ?
WHERE name = ?
`, leaseMilli, timers[i].Attempts, timers[i].Name); err != nil {
			return nil, fmt.Errorf("lease timer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease tx: %w", err)
	}
	return timers, nil
}

// CompleteTimer removes a fired timer after its handler succeeded.
func (s *Store) CompleteTimer(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("timer name is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM completion_timers WHERE name = ?
`, name); err != nil {
		return fmt.Errorf("complete timer: %w", err)
	}
	return nil
}

// ReleaseTimer schedules a failed timer for another firing attempt.
func (s *Store) ReleaseTimer(ctx context.Context, name string, nextAttemptAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("timer name is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
UPDATE completion_timers
SET available_at = ?, leased_until = NULL
WHERE name = ?
`, nextAttemptAt.UTC().UnixMilli(), name); err != nil {
		return fmt.Errorf("release timer: %w", err)
	}
	return nil
}

// DeadTimer parks a timer that exhausted its attempts.
func (s *Store) DeadTimer(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("timer name is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
UPDATE completion_timers
SET dead_at = ?, leased_until = NULL
WHERE name = ?
`, time.Now().UTC().UnixMilli(), name); err != nil {
		return fmt.Errorf("dead timer: %w", err)
	}
	return nil
}
