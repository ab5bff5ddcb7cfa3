package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/address"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/fee"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/stats"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// JoinRequest asks to admit one asset into a battleground.
type JoinRequest struct {
	BattlegroundID uint64
	// Player is the authenticated caller paying the fee and holding the asset.
	Player  battleground.PublicKey
	Asset   battleground.PublicKey
	Attack  uint32
	Defense uint32
	// CollectionProof proves Asset against a collection allow-list root.
	CollectionProof []merkle.Hash
	// HolderProof proves Player against the holder allow-list root.
	HolderProof []merkle.Hash
}

// JoinResult describes a successful admission.
type JoinResult struct {
	Participant battleground.Participant
	Fees        fee.Split
	Event       JoinEvent
}

// Join admits an asset into a battleground. Gates run in order: stat budget,
// holder allow list, capacity, status, asset custody, collection provenance
// and the allocate-once participant record. The participant, the count
// increment, the three fee transfers and the join event commit together.
func (s *Service) Join(ctx context.Context, req JoinRequest) (result JoinResult, err error) {
	ctx, span := s.startSpan(ctx, "admission.Join",
		attribute.Int64("battleground.id", int64(req.BattlegroundID)),
		attribute.String("asset.id", req.Asset.String()),
	)
	defer func() { endSpan(span, err) }()

	derived, err := stats.Derive(req.Attack, req.Defense)
	if err != nil {
		return JoinResult{}, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		cfg, err := tx.GetGameConfig(ctx)
		if err != nil {
			return err
		}
		bg, err := tx.GetBattleground(ctx, req.BattlegroundID)
		if err != nil {
			return err
		}

		if err := provenance.VerifyHolder(bg.HolderAllowListRoot, req.Player, req.HolderProof); err != nil {
			return err
		}
		if !bg.HasCapacity() {
			return FullError(bg.ParticipantsCap)
		}
		if !bg.Status.AcceptsParticipants() {
			return WrongStatusError(bg.Status)
		}

		held, err := tx.Ledger().Balance(ctx, req.Player, req.Asset)
		if err != nil {
			return fmt.Errorf("read asset balance: %w", err)
		}
		if held != 1 {
			return apperrors.WithMetadata(apperrors.CodeAssetNotOwned, "player does not hold exactly one unit of the asset", map[string]string{
				"Held": strconv.FormatUint(held, 10),
			})
		}

		meta, err := tx.Registry().GetMetadata(ctx, req.Asset)
		if err != nil {
			return fmt.Errorf("read asset metadata: %w", err)
		}
		if err := provenance.VerifyCollection(bg.Collection, req.Asset, meta, req.CollectionProof); err != nil {
			return err
		}

		participantAddr, err := address.Participant(bg.Address, req.Asset)
		if err != nil {
			return err
		}
		now := s.now()
		participant := battleground.Participant{
			BattlegroundID:    bg.ID,
			Asset:             req.Asset,
			Address:           participantAddr,
			Owner:             req.Player,
			JoinOrder:         bg.ParticipantCount + 1,
			Attack:            derived.Attack,
			Defense:           derived.Defense,
			HealthPoints:      derived.HealthPoints,
			ActionPointsSpent: derived.ActionPointsSpent,
			Alive:             derived.Alive,
			JoinedAt:          now,
		}
		if err := tx.InsertParticipant(ctx, participant); err != nil {
			return err
		}
		if err := tx.IncrementParticipantCount(ctx, bg.ID, now); err != nil {
			return err
		}

		split, err := fee.Compute(bg.EntryFee, cfg.ProtocolFeeBps, bg.CreatorFeeBps)
		if err != nil {
			return err
		}
		ledger := tx.Ledger()
		if err := ledger.Transfer(ctx, req.Player, bg.Authority, bg.FeeAsset, split.Pot); err != nil {
			return err
		}
		if err := ledger.Transfer(ctx, req.Player, cfg.Treasury, bg.FeeAsset, split.Protocol); err != nil {
			return err
		}
		if err := ledger.Transfer(ctx, req.Player, bg.Creator, bg.FeeAsset, split.Creator); err != nil {
			return err
		}

		event := JoinEvent{
			ID:             s.newID(),
			BattlegroundID: bg.ID,
			AssetID:        req.Asset.String(),
			Player:         req.Player.String(),
			Attack:         req.Attack,
			Defense:        req.Defense,
			JoinedAt:       now,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal join event: %w", err)
		}
		if err := tx.AppendOutbox(ctx, OutboxEvent{
			ID:        event.ID,
			Kind:      EventKindJoined,
			Payload:   payload,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result = JoinResult{Participant: participant, Fees: split, Event: event}
		return nil
	})
	if err != nil {
		s.logger.Info("join rejected",
			zap.Uint64("battleground_id", req.BattlegroundID),
			zap.Stringer("asset", req.Asset),
			zap.String("code", string(apperrors.GetCode(err))),
			zap.Error(err),
		)
		return JoinResult{}, err
	}

	s.logger.Info("participant joined",
		zap.Uint64("battleground_id", req.BattlegroundID),
		zap.Stringer("asset", req.Asset),
		zap.Stringer("player", req.Player),
		zap.Uint32("join_order", result.Participant.JoinOrder),
		zap.Uint64("pot_share", result.Fees.Pot),
	)
	if s.notifier != nil {
		s.notifier.Notify()
	}
	return result, nil
}
