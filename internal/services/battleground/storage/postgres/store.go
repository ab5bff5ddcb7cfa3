// Package postgres provides the Postgres-backed battleground store built on
// gorm. Admission transactions lock the battleground row with SELECT ... FOR
// UPDATE, so concurrent joins into one battleground serialize while joins
// into different battlegrounds proceed in parallel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store persists battleground state in Postgres.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}
	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("postgres handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// WithTx runs fn in one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx admission.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txStore{db: tx})
	})
}

// GetGameConfig returns the game configuration.
func (s *Store) GetGameConfig(ctx context.Context) (battleground.GameConfig, error) {
	return getGameConfig(s.db.WithContext(ctx), false)
}

// GetBattleground returns one battleground.
func (s *Store) GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error) {
	return getBattleground(s.db.WithContext(ctx), id, false)
}

// GetParticipant returns one participant.
func (s *Store) GetParticipant(ctx context.Context, battlegroundID uint64, asset battleground.PublicKey) (battleground.Participant, error) {
	var row participantRow
	err := s.db.WithContext(ctx).
		Where("battleground_id = ? AND asset_id = ?", int64(battlegroundID), asset.String()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return battleground.Participant{}, admission.NotFoundError("participant", asset.String())
		}
		return battleground.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return participantFromRow(row)
}

// ListParticipants returns one page of participants in join order.
func (s *Store) ListParticipants(ctx context.Context, query admission.ParticipantQuery) ([]battleground.Participant, error) {
	q := s.db.WithContext(ctx).Where("battleground_id = ?", int64(query.BattlegroundID))
	order := "join_order ASC"
	if query.Descending {
		order = "join_order DESC"
	}
	if query.AfterSeq > 0 {
		if query.Descending {
			q = q.Where("join_order < ?", int64(query.AfterSeq))
		} else {
			q = q.Where("join_order > ?", int64(query.AfterSeq))
		}
	}
	if !query.Condition.IsEmpty() {
		q = q.Where(query.Condition.Clause, query.Condition.Params...)
	}
	q = q.Order(order)
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var rows []participantRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	participants := make([]battleground.Participant, 0, len(rows))
	for _, row := range rows {
		p, err := participantFromRow(row)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// Balance returns a committed ledger balance.
func (s *Store) Balance(ctx context.Context, owner, asset battleground.PublicKey) (uint64, error) {
	var row tokenAccountRow
	err := s.db.WithContext(ctx).Where("owner = ? AND asset = ?", owner.String(), asset.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return parseAmount(row.Amount)
}

func battlegroundFromRow(row battlegroundRow) (battleground.Battleground, error) {
	b := battleground.Battleground{
		ID:                 uint64(row.ID),
		Collection:         battleground.CollectionInfo{Symbol: row.CollectionSymbol},
		StartTime:          row.StartTime.UTC(),
		ActionPointsPerDay: uint32(row.ActionPointsPerDay),
		ParticipantsCap:    uint32(row.ParticipantsCap),
		ParticipantCount:   uint32(row.ParticipantCount),
		CreatorFeeBps:      uint16(row.CreatorFeeBps),
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
	parsedStatus, ok := battleground.ParseStatus(row.Status)
	if !ok {
		return battleground.Battleground{}, fmt.Errorf("unknown battleground status %q", row.Status)
	}
	b.Status = parsedStatus
	var err error
	if b.Address, err = battleground.ParsePublicKey(row.Address); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse address: %w", err)
	}
	if b.Authority, err = battleground.ParsePublicKey(row.Authority); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse authority: %w", err)
	}
	if b.FeeAsset, err = battleground.ParsePublicKey(row.FeeAsset); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse fee asset: %w", err)
	}
	if b.Creator, err = battleground.ParsePublicKey(row.Creator); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse creator: %w", err)
	}
	if b.EntryFee, err = parseAmount(row.EntryFee); err != nil {
		return battleground.Battleground{}, err
	}
	if row.CollectionCreators != "" {
		for _, raw := range strings.Split(row.CollectionCreators, ",") {
			key, err := battleground.ParsePublicKey(raw)
			if err != nil {
				return battleground.Battleground{}, fmt.Errorf("parse verified creator: %w", err)
			}
			b.Collection.VerifiedCreators = append(b.Collection.VerifiedCreators, key)
		}
	}
	if b.Collection.AllowListRoot, err = parseHashPtr(row.CollectionAllowListRoot); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse collection root: %w", err)
	}
	if b.HolderAllowListRoot, err = parseHashPtr(row.HolderAllowListRoot); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse holder root: %w", err)
	}
	return b, nil
}

func battlegroundToRow(b battleground.Battleground) battlegroundRow {
	creators := make([]string, len(b.Collection.VerifiedCreators))
	for i, creator := range b.Collection.VerifiedCreators {
		creators[i] = creator.String()
	}
	return battlegroundRow{
		ID:                      int64(b.ID),
		Address:                 b.Address.String(),
		Authority:               b.Authority.String(),
		CollectionSymbol:        b.Collection.Symbol,
		CollectionCreators:      strings.Join(creators, ","),
		CollectionAllowListRoot: hashPtr(b.Collection.AllowListRoot),
		HolderAllowListRoot:     hashPtr(b.HolderAllowListRoot),
		StartTime:               b.StartTime.UTC(),
		ActionPointsPerDay:      int64(b.ActionPointsPerDay),
		ParticipantsCap:         int64(b.ParticipantsCap),
		ParticipantCount:        int64(b.ParticipantCount),
		Status:                  string(b.Status),
		FeeAsset:                b.FeeAsset.String(),
		EntryFee:                strconv.FormatUint(b.EntryFee, 10),
		Creator:                 b.Creator.String(),
		CreatorFeeBps:           int32(b.CreatorFeeBps),
		CreatedAt:               b.CreatedAt.UTC(),
		UpdatedAt:               b.UpdatedAt.UTC(),
	}
}

func participantFromRow(row participantRow) (battleground.Participant, error) {
	p := battleground.Participant{
		BattlegroundID:    uint64(row.BattlegroundID),
		JoinOrder:         uint32(row.JoinOrder),
		Attack:            uint16(row.Attack),
		Defense:           uint16(row.Defense),
		HealthPoints:      uint16(row.HealthPoints),
		ActionPointsSpent: uint16(row.ActionPointsSpent),
		Alive:             row.Alive,
		JoinedAt:          row.JoinedAt.UTC(),
	}
	var err error
	if p.Asset, err = battleground.ParsePublicKey(row.AssetID); err != nil {
		return battleground.Participant{}, fmt.Errorf("parse asset: %w", err)
	}
	if p.Address, err = battleground.ParsePublicKey(row.Address); err != nil {
		return battleground.Participant{}, fmt.Errorf("parse participant address: %w", err)
	}
	if p.Owner, err = battleground.ParsePublicKey(row.Owner); err != nil {
		return battleground.Participant{}, fmt.Errorf("parse owner: %w", err)
	}
	return p, nil
}

func hashPtr(h *merkle.Hash) *string {
	if h == nil {
		return nil
	}
	value := h.String()
	return &value
}

func parseHashPtr(value *string) (*merkle.Hash, error) {
	if value == nil {
		return nil, nil
	}
	h, err := merkle.ParseHash(*value)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func parseAmount(value string) (uint64, error) {
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return amount, nil
}

var _ admission.Store = (*Store)(nil)
