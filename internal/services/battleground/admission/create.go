package admission

import (
	"context"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/address"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/fee"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// InitGameConfig stores the game configuration unless one already exists.
// It returns the configuration in effect and whether this call created it.
func (s *Service) InitGameConfig(ctx context.Context, cfg battleground.GameConfig) (battleground.GameConfig, bool, error) {
	if cfg.Admin.IsZero() {
		return battleground.GameConfig{}, false, gameConfigInvalid("admin is required")
	}
	if cfg.Treasury.IsZero() {
		return battleground.GameConfig{}, false, gameConfigInvalid("treasury is required")
	}
	if cfg.ProtocolFeeBps > battleground.MaxBps {
		return battleground.GameConfig{}, false, gameConfigInvalid("protocol fee exceeds " + strconv.Itoa(battleground.MaxBps) + " bps")
	}
	cfg.BattlegroundCount = 0

	var (
		current battleground.GameConfig
		created bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		created, err = tx.InsertGameConfig(ctx, cfg)
		if err != nil {
			return err
		}
		current, err = tx.GetGameConfig(ctx)
		return err
	})
	if err != nil {
		return battleground.GameConfig{}, false, err
	}
	if created {
		s.logger.Info("game config initialized",
			zap.Stringer("admin", current.Admin),
			zap.Stringer("treasury", current.Treasury),
			zap.Uint16("protocol_fee_bps", current.ProtocolFeeBps),
		)
	}
	return current, created, nil
}

// CreateBattlegroundRequest describes a new battleground.
type CreateBattlegroundRequest struct {
	Creator             battleground.PublicKey
	Collection          battleground.CollectionInfo
	HolderAllowListRoot *merkle.Hash
	StartTime           time.Time
	ActionPointsPerDay  uint32
	ParticipantsCap     uint32
	FeeAsset            battleground.PublicKey
	EntryFee            uint64
	CreatorFeeBps       uint16
}

// CreateBattleground validates the request and stores a Preparing
// battleground under the next id from the game counter.
func (s *Service) CreateBattleground(ctx context.Context, req CreateBattlegroundRequest) (created battleground.Battleground, err error) {
	ctx, span := s.startSpan(ctx, "admission.CreateBattleground",
		attribute.String("creator", req.Creator.String()),
	)
	defer func() { endSpan(span, err) }()

	if err := provenance.ValidateCollectionInfo(req.Collection); err != nil {
		return battleground.Battleground{}, err
	}
	switch {
	case req.Creator.IsZero():
		return battleground.Battleground{}, battlegroundInvalid("creator is required")
	case req.FeeAsset.IsZero():
		return battleground.Battleground{}, battlegroundInvalid("fee asset is required")
	case req.ParticipantsCap == 0:
		return battleground.Battleground{}, battlegroundInvalid("participants cap must be positive")
	case req.StartTime.IsZero():
		return battleground.Battleground{}, battlegroundInvalid("start time is required")
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		cfg, err := tx.GetGameConfig(ctx)
		if err != nil {
			return err
		}
		if err := fee.ValidateRates(cfg.ProtocolFeeBps, req.CreatorFeeBps); err != nil {
			return err
		}

		id, err := tx.NextBattlegroundID(ctx)
		if err != nil {
			return err
		}
		bgAddr, err := address.Battleground(id)
		if err != nil {
			return err
		}
		authority, err := address.Authority(bgAddr)
		if err != nil {
			return err
		}

		now := s.now()
		created = battleground.Battleground{
			ID:                  id,
			Address:             bgAddr,
			Authority:           authority,
			Collection:          req.Collection,
			HolderAllowListRoot: req.HolderAllowListRoot,
			StartTime:           req.StartTime.UTC(),
			ActionPointsPerDay:  req.ActionPointsPerDay,
			ParticipantsCap:     req.ParticipantsCap,
			ParticipantCount:    0,
			Status:              battleground.StatusPreparing,
			FeeAsset:            req.FeeAsset,
			EntryFee:            req.EntryFee,
			Creator:             req.Creator,
			CreatorFeeBps:       req.CreatorFeeBps,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		return tx.InsertBattleground(ctx, created)
	})
	if err != nil {
		return battleground.Battleground{}, err
	}

	s.logger.Info("battleground created",
		zap.Uint64("battleground_id", created.ID),
		zap.Stringer("creator", created.Creator),
		zap.Uint32("participants_cap", created.ParticipantsCap),
		zap.Uint64("entry_fee", created.EntryFee),
	)
	return created, nil
}

func gameConfigInvalid(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeGameConfigInvalid, "invalid game config: "+reason, map[string]string{
		"Reason": reason,
	})
}

func battlegroundInvalid(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeBattlegroundInvalid, "invalid battleground: "+reason, map[string]string{
		"Reason": reason,
	})
}
