package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

type txStore struct {
	db *gorm.DB
}

func (t *txStore) GetGameConfig(context.Context) (battleground.GameConfig, error) {
	return getGameConfig(t.db, false)
}

func (t *txStore) InsertGameConfig(_ context.Context, cfg battleground.GameConfig) (bool, error) {
	row := gameConfigRow{
		Singleton:         1,
		Admin:             cfg.Admin.String(),
		ProtocolFeeBps:    int32(cfg.ProtocolFeeBps),
		Treasury:          cfg.Treasury.String(),
		BattlegroundCount: int64(cfg.BattlegroundCount),
	}
	result := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("insert game config: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (t *txStore) NextBattlegroundID(context.Context) (uint64, error) {
	cfg, err := getGameConfig(t.db, true)
	if err != nil {
		return 0, err
	}
	next := cfg.BattlegroundCount + 1
	err = t.db.Model(&gameConfigRow{}).
		Where("singleton = 1").
		Update("battleground_count", int64(next)).Error
	if err != nil {
		return 0, fmt.Errorf("increment battleground counter: %w", err)
	}
	return next, nil
}

func (t *txStore) InsertBattleground(_ context.Context, b battleground.Battleground) error {
	row := battlegroundToRow(b)
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("insert battleground: %w", err)
	}
	return nil
}

func (t *txStore) GetBattleground(_ context.Context, id uint64) (battleground.Battleground, error) {
	return getBattleground(t.db, id, true)
}

func (t *txStore) IncrementParticipantCount(_ context.Context, id uint64, now time.Time) error {
	result := t.db.Model(&battlegroundRow{}).
		Where("id = ? AND participant_count < participants_cap AND status = ?", int64(id), string(battleground.StatusPreparing)).
		Updates(map[string]any{
			"participant_count": gorm.Expr("participant_count + 1"),
			"updated_at":        now.UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("increment participant count: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := getBattleground(t.db, id, false)
	if err != nil {
		return err
	}
	if !current.HasCapacity() {
		return admission.FullError(current.ParticipantsCap)
	}
	return admission.WrongStatusError(current.Status)
}

func (t *txStore) UpdateStatus(_ context.Context, id uint64, from, to battleground.Status, now time.Time) error {
	if !battleground.CanTransition(from, to) {
		return admission.InvalidTransitionError(from, to)
	}
	result := t.db.Model(&battlegroundRow{}).
		Where("id = ? AND status = ?", int64(id), string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("update battleground status: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := getBattleground(t.db, id, false)
	if err != nil {
		return err
	}
	return admission.InvalidTransitionError(current.Status, to)
}

func (t *txStore) ListDueBattlegrounds(_ context.Context, now time.Time) ([]uint64, error) {
	var ids []int64
	err := t.db.Model(&battlegroundRow{}).
		Clauses(lockForUpdate).
		Where("status = ? AND start_time <= ?", string(battleground.StatusPreparing), now.UTC()).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list due battlegrounds: %w", err)
	}
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out, nil
}

func (t *txStore) InsertParticipant(_ context.Context, p battleground.Participant) error {
	row := participantRow{
		BattlegroundID:    int64(p.BattlegroundID),
		AssetID:           p.Asset.String(),
		Address:           p.Address.String(),
		Owner:             p.Owner.String(),
		JoinOrder:         int64(p.JoinOrder),
		Attack:            int32(p.Attack),
		Defense:           int32(p.Defense),
		HealthPoints:      int32(p.HealthPoints),
		ActionPointsSpent: int32(p.ActionPointsSpent),
		Alive:             p.Alive,
		JoinedAt:          p.JoinedAt.UTC(),
	}
	result := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("insert participant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return admission.AlreadyJoinedError(p.BattlegroundID, p.Asset)
	}
	return nil
}

func (t *txStore) AppendOutbox(_ context.Context, event admission.OutboxEvent) error {
	row := outboxRow{
		ID:        event.ID,
		Kind:      event.Kind,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt.UTC(),
	}
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

func (t *txStore) Ledger() admission.Ledger { return ledger{db: t.db} }

func (t *txStore) Registry() admission.MetadataRegistry { return registry{db: t.db} }

func getGameConfig(db *gorm.DB, lock bool) (battleground.GameConfig, error) {
	if lock {
		db = db.Clauses(lockForUpdate)
	}
	var row gameConfigRow
	if err := db.Where("singleton = 1").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return battleground.GameConfig{}, admission.NotFoundError("game config", "singleton")
		}
		return battleground.GameConfig{}, fmt.Errorf("get game config: %w", err)
	}
	cfg := battleground.GameConfig{
		ProtocolFeeBps:    uint16(row.ProtocolFeeBps),
		BattlegroundCount: uint64(row.BattlegroundCount),
	}
	var err error
	if cfg.Admin, err = battleground.ParsePublicKey(row.Admin); err != nil {
		return battleground.GameConfig{}, fmt.Errorf("parse admin: %w", err)
	}
	if cfg.Treasury, err = battleground.ParsePublicKey(row.Treasury); err != nil {
		return battleground.GameConfig{}, fmt.Errorf("parse treasury: %w", err)
	}
	return cfg, nil
}

func getBattleground(db *gorm.DB, id uint64, lock bool) (battleground.Battleground, error) {
	if lock {
		db = db.Clauses(lockForUpdate)
	}
	var row battlegroundRow
	if err := db.Where("id = ?", int64(id)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return battleground.Battleground{}, admission.NotFoundError("battleground", strconv.FormatUint(id, 10))
		}
		return battleground.Battleground{}, fmt.Errorf("get battleground: %w", err)
	}
	return battlegroundFromRow(row)
}

type ledger struct {
	db *gorm.DB
}

func (l ledger) Balance(_ context.Context, owner, asset battleground.PublicKey) (uint64, error) {
	var row tokenAccountRow
	err := l.db.Where("owner = ? AND asset = ?", owner.String(), asset.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return parseAmount(row.Amount)
}

func (l ledger) Transfer(ctx context.Context, from, to, asset battleground.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	held, err := l.lockBalance(from, asset)
	if err != nil {
		return err
	}
	if held < amount {
		return admission.InsufficientFundsError(held, amount)
	}
	if err := l.setBalance(from, asset, held-amount); err != nil {
		return err
	}
	return l.Mint(ctx, to, asset, amount)
}

func (l ledger) Mint(_ context.Context, owner, asset battleground.PublicKey, amount uint64) error {
	held, err := l.lockBalance(owner, asset)
	if err != nil {
		return err
	}
	if held+amount < held {
		return fmt.Errorf("balance overflow for %s", owner)
	}
	return l.setBalance(owner, asset, held+amount)
}

// lockBalance makes sure the account row exists and locks it, so concurrent
// transfers touching one account serialize.
func (l ledger) lockBalance(owner, asset battleground.PublicKey) (uint64, error) {
	seed := tokenAccountRow{Owner: owner.String(), Asset: asset.String(), Amount: "0"}
	if err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("ensure token account: %w", err)
	}
	var row tokenAccountRow
	err := l.db.Clauses(lockForUpdate).
		Where("owner = ? AND asset = ?", owner.String(), asset.String()).
		First(&row).Error
	if err != nil {
		return 0, fmt.Errorf("lock token account: %w", err)
	}
	return parseAmount(row.Amount)
}

func (l ledger) setBalance(owner, asset battleground.PublicKey, amount uint64) error {
	err := l.db.Model(&tokenAccountRow{}).
		Where("owner = ? AND asset = ?", owner.String(), asset.String()).
		Update("amount", strconv.FormatUint(amount, 10)).Error
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

type registry struct {
	db *gorm.DB
}

func (r registry) GetMetadata(_ context.Context, asset battleground.PublicKey) (*provenance.Metadata, error) {
	var row assetMetadataRow
	err := r.db.Where("asset_id = ?", asset.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read asset metadata: %w", err)
	}

	var creators []assetCreatorRow
	if err := r.db.Where("asset_id = ?", row.AssetID).Order("position ASC").Find(&creators).Error; err != nil {
		return nil, fmt.Errorf("read asset creators: %w", err)
	}
	meta := &provenance.Metadata{Asset: asset, Symbol: row.Symbol}
	for _, c := range creators {
		creator, err := battleground.ParsePublicKey(c.Creator)
		if err != nil {
			return nil, fmt.Errorf("parse asset creator: %w", err)
		}
		meta.Creators = append(meta.Creators, provenance.Creator{Address: creator, Verified: c.Verified})
	}
	return meta, nil
}

func (r registry) PutMetadata(_ context.Context, meta provenance.Metadata) error {
	asset := meta.Asset.String()
	row := assetMetadataRow{AssetID: asset, Symbol: meta.Symbol}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"symbol"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write asset metadata: %w", err)
	}
	if err := r.db.Where("asset_id = ?", asset).Delete(&assetCreatorRow{}).Error; err != nil {
		return fmt.Errorf("clear asset creators: %w", err)
	}
	for i, creator := range meta.Creators {
		c := assetCreatorRow{AssetID: asset, Position: int32(i), Creator: creator.Address.String(), Verified: creator.Verified}
		if err := r.db.Create(&c).Error; err != nil {
			return fmt.Errorf("write asset creator: %w", err)
		}
	}
	return nil
}

var _ admission.Tx = (*txStore)(nil)
