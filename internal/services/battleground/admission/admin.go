package admission

import (
	"context"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
	"go.uber.org/zap"
)

// Deposit credits amount of asset to owner on the ledger. Only the game
// admin may mint balances.
func (s *Service) Deposit(ctx context.Context, caller, owner, asset battleground.PublicKey, amount uint64) error {
	switch {
	case owner.IsZero():
		return invalidArgument("owner is required")
	case asset.IsZero():
		return invalidArgument("asset is required")
	case amount == 0:
		return invalidArgument("amount must be positive")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		return tx.Ledger().Mint(ctx, owner, asset, amount)
	})
	if err != nil {
		return err
	}
	s.logger.Info("ledger deposit",
		zap.Stringer("owner", owner),
		zap.Stringer("asset", asset),
		zap.Uint64("amount", amount),
	)
	return nil
}

// RegisterAsset writes the registry metadata of an asset. Only the game
// admin may edit the registry.
func (s *Service) RegisterAsset(ctx context.Context, caller battleground.PublicKey, meta provenance.Metadata) error {
	if meta.Asset.IsZero() {
		return invalidArgument("asset is required")
	}
	if meta.Symbol == "" || len(meta.Symbol) > provenance.MaxSymbolLength {
		return invalidArgument("symbol length out of range")
	}
	if len(meta.Creators) > provenance.MaxVerifiedCreators {
		return invalidArgument("too many creators")
	}
	return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		return tx.Registry().PutMetadata(ctx, meta)
	})
}

func requireAdmin(ctx context.Context, tx Tx, caller battleground.PublicKey) error {
	cfg, err := tx.GetGameConfig(ctx)
	if err != nil {
		return err
	}
	if caller != cfg.Admin {
		return apperrors.New(apperrors.CodeCallerNotAuthorized, "caller is not the game admin")
	}
	return nil
}

func invalidArgument(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, reason, map[string]string{
		"Reason": reason,
	})
}
