package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
)

const battlegroundColumns = `id, address, authority, collection_symbol, collection_creators,
	collection_allow_list_root, holder_allow_list_root, start_time, action_points_per_day,
	participants_cap, participant_count, status, fee_asset, entry_fee, creator,
	creator_fee_bps, created_at, updated_at`

const participantColumns = `battleground_id, asset_id, address, owner, join_order, attack,
	defense, health_points, action_points_spent, alive, joined_at`

// txStore implements admission.Tx on one open transaction.
type txStore struct {
	q queryer
}

func (t *txStore) GetGameConfig(ctx context.Context) (battleground.GameConfig, error) {
	return getGameConfig(ctx, t.q)
}

func (t *txStore) InsertGameConfig(ctx context.Context, cfg battleground.GameConfig) (bool, error) {
	result, err := t.q.ExecContext(ctx, `
INSERT INTO game_config (singleton, admin, protocol_fee_bps, treasury, battleground_count)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT (singleton) DO NOTHING
`, cfg.Admin.String(), int64(cfg.ProtocolFeeBps), cfg.Treasury.String(), int64(cfg.BattlegroundCount))
	if err != nil {
		return false, fmt.Errorf("insert game config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert game config rows affected: %w", err)
	}
	return affected == 1, nil
}

func (t *txStore) NextBattlegroundID(ctx context.Context) (uint64, error) {
	var next int64
	err := t.q.QueryRowContext(ctx, `
UPDATE game_config
SET battleground_count = battleground_count + 1
WHERE singleton = 1
RETURNING battleground_count
`).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, admission.NotFoundError("game config", "singleton")
		}
		return 0, fmt.Errorf("increment battleground counter: %w", err)
	}
	return uint64(next), nil
}

func (t *txStore) InsertBattleground(ctx context.Context, b battleground.Battleground) error {
	creators := make([]string, len(b.Collection.VerifiedCreators))
	for i, creator := range b.Collection.VerifiedCreators {
		creators[i] = creator.String()
	}
	_, err := t.q.ExecContext(ctx, `
INSERT INTO battlegrounds (`+battlegroundColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		int64(b.ID),
		b.Address.String(),
		b.Authority.String(),
		b.Collection.Symbol,
		strings.Join(creators, ","),
		nullableHash(b.Collection.AllowListRoot),
		nullableHash(b.HolderAllowListRoot),
		toMillis(b.StartTime),
		int64(b.ActionPointsPerDay),
		int64(b.ParticipantsCap),
		int64(b.ParticipantCount),
		string(b.Status),
		b.FeeAsset.String(),
		formatAmount(b.EntryFee),
		b.Creator.String(),
		int64(b.CreatorFeeBps),
		toMillis(b.CreatedAt),
		toMillis(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert battleground: %w", err)
	}
	return nil
}

// GetBattleground needs no explicit lock: the immediate transaction already
// holds the database write lock.
func (t *txStore) GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error) {
	return getBattleground(ctx, t.q, id)
}

func (t *txStore) IncrementParticipantCount(ctx context.Context, id uint64, now time.Time) error {
	result, err := t.q.ExecContext(ctx, `
UPDATE battlegrounds
SET participant_count = participant_count + 1, updated_at = ?
WHERE id = ? AND participant_count < participants_cap AND status = ?
`, toMillis(now), int64(id), string(battleground.StatusPreparing))
	if err != nil {
		return fmt.Errorf("increment participant count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment participant count rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	current, err := getBattleground(ctx, t.q, id)
	if err != nil {
		return err
	}
	if !current.HasCapacity() {
		return admission.FullError(current.ParticipantsCap)
	}
	return admission.WrongStatusError(current.Status)
}

func (t *txStore) UpdateStatus(ctx context.Context, id uint64, from, to battleground.Status, now time.Time) error {
	if !battleground.CanTransition(from, to) {
		return admission.InvalidTransitionError(from, to)
	}
	result, err := t.q.ExecContext(ctx, `
UPDATE battlegrounds
SET status = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(to), toMillis(now), int64(id), string(from))
	if err != nil {
		return fmt.Errorf("update battleground status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update battleground status rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	current, err := getBattleground(ctx, t.q, id)
	if err != nil {
		return err
	}
	return admission.InvalidTransitionError(current.Status, to)
}

func (t *txStore) ListDueBattlegrounds(ctx context.Context, now time.Time) ([]uint64, error) {
	rows, err := t.q.QueryContext(ctx, `
SELECT id
FROM battlegrounds
WHERE status = ? AND start_time <= ?
ORDER BY id ASC
`, string(battleground.StatusPreparing), toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("list due battlegrounds: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due battleground: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due battlegrounds: %w", err)
	}
	return ids, nil
}

func (t *txStore) InsertParticipant(ctx context.Context, p battleground.Participant) error {
	_, err := t.q.ExecContext(ctx, `
INSERT INTO participants (`+participantColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		int64(p.BattlegroundID),
		p.Asset.String(),
		p.Address.String(),
		p.Owner.String(),
		int64(p.JoinOrder),
		int64(p.Attack),
		int64(p.Defense),
		int64(p.HealthPoints),
		int64(p.ActionPointsSpent),
		p.Alive,
		toMillis(p.JoinedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return admission.AlreadyJoinedError(p.BattlegroundID, p.Asset)
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (t *txStore) AppendOutbox(ctx context.Context, event admission.OutboxEvent) error {
	_, err := t.q.ExecContext(ctx, `
INSERT INTO outbox (id, kind, payload, created_at)
VALUES (?, ?, ?, ?)
`, event.ID, event.Kind, event.Payload, toMillis(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

func (t *txStore) Ledger() admission.Ledger { return ledger{q: t.q} }

func (t *txStore) Registry() admission.MetadataRegistry { return registry{q: t.q} }

func getGameConfig(ctx context.Context, q queryer) (battleground.GameConfig, error) {
	var (
		admin, treasury string
		feeBps, count   int64
	)
	err := q.QueryRowContext(ctx, `
SELECT admin, protocol_fee_bps, treasury, battleground_count
FROM game_config
WHERE singleton = 1
`).Scan(&admin, &feeBps, &treasury, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return battleground.GameConfig{}, admission.NotFoundError("game config", "singleton")
		}
		return battleground.GameConfig{}, fmt.Errorf("get game config: %w", err)
	}
	cfg := battleground.GameConfig{
		ProtocolFeeBps:    uint16(feeBps),
		BattlegroundCount: uint64(count),
	}
	if cfg.Admin, err = battleground.ParsePublicKey(admin); err != nil {
		return battleground.GameConfig{}, fmt.Errorf("parse admin: %w", err)
	}
	if cfg.Treasury, err = battleground.ParsePublicKey(treasury); err != nil {
		return battleground.GameConfig{}, fmt.Errorf("parse treasury: %w", err)
	}
	return cfg, nil
}

func getBattleground(ctx context.Context, q queryer, id uint64) (battleground.Battleground, error) {
	row := q.QueryRowContext(ctx, `
SELECT `+battlegroundColumns+`
FROM battlegrounds
WHERE id = ?
`, int64(id))
	b, err := scanBattleground(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return battleground.Battleground{}, admission.NotFoundError("battleground", strconv.FormatUint(id, 10))
		}
		return battleground.Battleground{}, fmt.Errorf("get battleground: %w", err)
	}
	return b, nil
}

func scanBattleground(scan func(dest ...any) error) (battleground.Battleground, error) {
	var (
		id, startTime, apPerDay, participantsCap int64
		participantCount, creatorFeeBps          int64
		createdAt, updatedAt                     int64
		address, authority, symbol, creators     string
		status, feeAsset, entryFee, creator      string
		collectionRoot, holderRoot               sql.NullString
	)
	if err := scan(
		&id, &address, &authority, &symbol, &creators,
		&collectionRoot, &holderRoot, &startTime, &apPerDay,
		&participantsCap, &participantCount, &status, &feeAsset, &entryFee, &creator,
		&creatorFeeBps, &createdAt, &updatedAt,
	); err != nil {
		return battleground.Battleground{}, err
	}

	b := battleground.Battleground{
		ID:                 uint64(id),
		Collection:         battleground.CollectionInfo{Symbol: symbol},
		StartTime:          fromMillis(startTime),
		ActionPointsPerDay: uint32(apPerDay),
		ParticipantsCap:    uint32(participantsCap),
		ParticipantCount:   uint32(participantCount),
		CreatorFeeBps:      uint16(creatorFeeBps),
		CreatedAt:          fromMillis(createdAt),
		UpdatedAt:          fromMillis(updatedAt),
	}
	parsedStatus, ok := battleground.ParseStatus(status)
	if !ok {
		return battleground.Battleground{}, fmt.Errorf("unknown battleground status %q", status)
	}
	b.Status = parsedStatus
	var err error
	if b.Address, err = battleground.ParsePublicKey(address); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse address: %w", err)
	}
	if b.Authority, err = battleground.ParsePublicKey(authority); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse authority: %w", err)
	}
	if b.FeeAsset, err = battleground.ParsePublicKey(feeAsset); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse fee asset: %w", err)
	}
	if b.Creator, err = battleground.ParsePublicKey(creator); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse creator: %w", err)
	}
	if b.EntryFee, err = parseAmount(entryFee); err != nil {
		return battleground.Battleground{}, err
	}
	if creators != "" {
		for _, raw := range strings.Split(creators, ",") {
			key, err := battleground.ParsePublicKey(raw)
			if err != nil {
				return battleground.Battleground{}, fmt.Errorf("parse verified creator: %w", err)
			}
			b.Collection.VerifiedCreators = append(b.Collection.VerifiedCreators, key)
		}
	}
	if b.Collection.AllowListRoot, err = parseNullableHash(collectionRoot); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse collection root: %w", err)
	}
	if b.HolderAllowListRoot, err = parseNullableHash(holderRoot); err != nil {
		return battleground.Battleground{}, fmt.Errorf("parse holder root: %w", err)
	}
	return b, nil
}

func scanParticipant(scan func(dest ...any) error) (battleground.Participant, error) {
	var (
		battlegroundID, joinOrder, joinedAt              int64
		attack, defense, healthPoints, actionPointsSpent int64
		asset, address, owner                            string
		alive                                            bool
	)
	if err := scan(
		&battlegroundID, &asset, &address, &owner, &joinOrder, &attack,
		&defense, &healthPoints, &actionPointsSpent, &alive, &joinedAt,
	); err != nil {
		return battleground.Participant{}, err
	}
	p := battleground.Participant{
		BattlegroundID:    uint64(battlegroundID),
		JoinOrder:         uint32(joinOrder),
		Attack:            uint16(attack),
		Defense:           uint16(defense),
		HealthPoints:      uint16(healthPoints),
		ActionPointsSpent: uint16(actionPointsSpent),
		Alive:             alive,
		JoinedAt:          fromMillis(joinedAt),
	}
	var err error
	if p.Asset, err = battleground.ParsePublicKey(asset); err != nil {
		return battleground.Participant{}, fmt.Errorf("parse asset: %w", err)
	}
	if p.Address, err = battleground.ParsePublicKey(address); err != nil {
		return battleground.Participant{}, fmt.Errorf("parse participant address: %w", err)
	}
	if p.Owner, err = battleground.ParsePublicKey(owner); err != nil {
		return battleground.Participant{}, fmt.Errorf("parse owner: %w", err)
	}
	return p, nil
}

func nullableHash(h *merkle.Hash) sql.NullString {
	if h == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: h.String(), Valid: true}
}

func parseNullableHash(value sql.NullString) (*merkle.Hash, error) {
	if !value.Valid {
		return nil, nil
	}
	h, err := merkle.ParseHash(value.String)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

var _ admission.Tx = (*txStore)(nil)
