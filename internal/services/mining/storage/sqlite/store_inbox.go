package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/storage"
)

// AppendEvent inserts an inbox event, treating an existing id as a no-op so
// duplicate deliveries from upstream stay harmless.
func (s *Store) AppendEvent(ctx context.Context, event storage.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	event.ID = strings.TrimSpace(event.ID)
	event.EventType = strings.TrimSpace(event.EventType)
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if event.EventType == "" {
		return fmt.Errorf("event type is required")
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.AvailableAt.IsZero() {
		event.AvailableAt = event.CreatedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO inbox_events (
	id,
	event_type,
	payload,
	attempts,
	available_at,
	leased_until,
	dead_at,
	created_at
) VALUES (?, ?, ?, 0, ?, NULL, NULL, ?)
ON CONFLICT (id) DO NOTHING
`,
		event.ID,
		event.EventType,
		event.Payload,
		event.AvailableAt.UTC().UnixMilli(),
		event.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// LeaseDueEvents claims up to limit due events until now+leaseFor, bumping
// their attempt counts inside one transaction.
func (s *Store) LeaseDueEvents(ctx context.Context, now time.Time, leaseFor time.Duration, limit int) ([]storage.EventRecord, error) {
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
SELECT id, event_type, payload, attempts, available_at, created_at
FROM inbox_events
WHERE dead_at IS NULL
  AND available_at <= ?
  AND (leased_until IS NULL OR leased_until <= ?)
ORDER BY available_at
LIMIT ?
`, nowMilli, nowMilli, limit)
	if err != nil {
		return nil, fmt.Errorf("select due events: %w", err)
	}

	var events []storage.EventRecord
	for rows.Next() {
		var event storage.EventRecord
		var availableAt, createdAt int64
		if err := rows.Scan(&event.ID, &event.EventType, &event.Payload, &event.Attempts, &availableAt, &createdAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan due event: %w", err)
		}
		event.AvailableAt = time.UnixMilli(availableAt).UTC()
		event.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate due events: %w", err)
	}
	_ = rows.Close()

	for i := range events {
		events[i].Attempts++
		if _, err := tx.ExecContext(ctx, `
UPDATE inbox_events
SET leased_until = ?, attempts = ?
WHERE id = ?
`, leaseMilli, events[i].Attempts, events[i].ID); err != nil {
			return nil, fmt.Errorf("lease event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease tx: %w", err)
	}
	return events, nil
}

// CompleteEvent removes a consumed event.
func (s *Store) CompleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM inbox_events WHERE id = ?
`, id); err != nil {
		return fmt.Errorf("complete event: %w", err)
	}
	return nil
}

// ReleaseEvent schedules a failed event for another delivery attempt.
func (s *Store) ReleaseEvent(ctx context.Context, id string, nextAttemptAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
UPDATE inbox_events
SET available_at = ?, leased_until = NULL
WHERE id = ?
`, nextAttemptAt.UTC().UnixMilli(), id); err != nil {
		return fmt.Errorf("release event: %w", err)
	}
	return nil
}

// DeadEvent parks an event that exhausted its attempts.
func (s *Store) DeadEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
UPDATE inbox_events
SET dead_at = ?, leased_until = NULL
WHERE id = ?
`, time.Now().UTC().UnixMilli(), id); err != nil {
		return fmt.Errorf("dead event: %w", err)
	}
	return nil
}
