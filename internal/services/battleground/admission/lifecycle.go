package admission

import (
	"context"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StartDue moves every preparing battleground whose start time is at or
// before now to ongoing and returns their ids.
func (s *Service) StartDue(ctx context.Context, now time.Time) (started []uint64, err error) {
	ctx, span := s.startSpan(ctx, "admission.StartDue")
	defer func() { endSpan(span, err) }()

	now = now.UTC()
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		due, err := tx.ListDueBattlegrounds(ctx, now)
		if err != nil {
			return err
		}
		started = started[:0]
		for _, id := range due {
			if err := tx.UpdateStatus(ctx, id, battleground.StatusPreparing, battleground.StatusOngoing, now); err != nil {
				return err
			}
			started = append(started, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, id := range started {
		s.logger.Info("battleground started", zap.Uint64("battleground_id", id))
	}
	return started, nil
}

// Finish moves an ongoing battleground to finished. Only the game admin may
// finish a battleground.
func (s *Service) Finish(ctx context.Context, caller battleground.PublicKey, id uint64) (finished battleground.Battleground, err error) {
	ctx, span := s.startSpan(ctx, "admission.Finish", attribute.Int64("battleground.id", int64(id)))
	defer func() { endSpan(span, err) }()

	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		bg, err := tx.GetBattleground(ctx, id)
		if err != nil {
			return err
		}
		if !battleground.CanTransition(bg.Status, battleground.StatusFinished) {
			return InvalidTransitionError(bg.Status, battleground.StatusFinished)
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, id, bg.Status, battleground.StatusFinished, now); err != nil {
			return err
		}
		bg.Status = battleground.StatusFinished
		bg.UpdatedAt = now
		finished = bg
		return nil
	})
	if err != nil {
		return battleground.Battleground{}, err
	}
	s.logger.Info("battleground finished", zap.Uint64("battleground_id", id))
	return finished, nil
}
