package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"gorm.io/gorm"
)

// PendingOutbox returns up to limit unpublished events, oldest first.
func (s *Store) PendingOutbox(ctx context.Context, limit int) ([]admission.OutboxEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	var rows []outboxRow
	err := s.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	events := make([]admission.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, admission.OutboxEvent{
			ID:        row.ID,
			Kind:      row.Kind,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return events, nil
}

// MarkPublished records the publication time of one event. Marking an
// already published event keeps the first timestamp.
func (s *Store) MarkPublished(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&outboxRow{}).
		Where("id = ?", id).
		Update("published_at", gorm.Expr("COALESCE(published_at, ?)", at.UTC()))
	if result.Error != nil {
		return fmt.Errorf("mark outbox published: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return admission.NotFoundError("outbox event", id)
	}
	return nil
}
