package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
)

// PendingOutbox returns up to limit unpublished events, oldest first.
func (s *Store) PendingOutbox(ctx context.Context, limit int) ([]admission.OutboxEvent, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, kind, payload, created_at
FROM outbox
WHERE published_at IS NULL
ORDER BY created_at ASC, id ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	defer rows.Close()

	var events []admission.OutboxEvent
	for rows.Next() {
		var (
			event     admission.OutboxEvent
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.Kind, &event.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		event.CreatedAt = fromMillis(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

// MarkPublished records the publication time of one event. Marking an
// already published event keeps the first timestamp.
func (s *Store) MarkPublished(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE outbox SET published_at = COALESCE(published_at, ?) WHERE id = ?
`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox published rows affected: %w", err)
	}
	if affected == 0 {
		return admission.NotFoundError("outbox event", id)
	}
	return nil
}

// GetOutboxEvent returns one outbox event including its publication time.
func (s *Store) GetOutboxEvent(ctx context.Context, id string) (admission.OutboxEvent, error) {
	if s == nil || s.sqlDB == nil {
		return admission.OutboxEvent{}, fmt.Errorf("storage is not configured")
	}
	var (
		event       admission.OutboxEvent
		createdAt   int64
		publishedAt sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, kind, payload, created_at, published_at
FROM outbox
WHERE id = ?
`, id).Scan(&event.ID, &event.Kind, &event.Payload, &createdAt, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return admission.OutboxEvent{}, admission.NotFoundError("outbox event", id)
	}
	if err != nil {
		return admission.OutboxEvent{}, fmt.Errorf("get outbox event: %w", err)
	}
	event.CreatedAt = fromMillis(createdAt)
	if publishedAt.Valid {
		published := fromMillis(publishedAt.Int64)
		event.PublishedAt = &published
	}
	return event, nil
}
