package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

type ledger struct {
	q queryer
}

func (l ledger) Balance(ctx context.Context, owner, asset battleground.PublicKey) (uint64, error) {
	return balance(ctx, l.q, owner, asset)
}

func (l ledger) Transfer(ctx context.Context, from, to, asset battleground.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	held, err := balance(ctx, l.q, from, asset)
	if err != nil {
		return err
	}
	if held < amount {
		return admission.InsufficientFundsError(held, amount)
	}
	if err := setBalance(ctx, l.q, from, asset, held-amount); err != nil {
		return err
	}
	return l.Mint(ctx, to, asset, amount)
}

func (l ledger) Mint(ctx context.Context, owner, asset battleground.PublicKey, amount uint64) error {
	held, err := balance(ctx, l.q, owner, asset)
	if err != nil {
		return err
	}
	if held+amount < held {
		return fmt.Errorf("balance overflow for %s", owner)
	}
	return setBalance(ctx, l.q, owner, asset, held+amount)
}

func balance(ctx context.Context, q queryer, owner, asset battleground.PublicKey) (uint64, error) {
	var raw string
	err := q.QueryRowContext(ctx, `
SELECT amount FROM token_accounts WHERE owner = ? AND asset = ?
`, owner.String(), asset.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return parseAmount(raw)
}

func setBalance(ctx context.Context, q queryer, owner, asset battleground.PublicKey, amount uint64) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO token_accounts (owner, asset, amount)
VALUES (?, ?, ?)
ON CONFLICT (owner, asset) DO UPDATE SET amount = excluded.amount
`, owner.String(), asset.String(), formatAmount(amount))
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

type registry struct {
	q queryer
}

func (r registry) GetMetadata(ctx context.Context, asset battleground.PublicKey) (*provenance.Metadata, error) {
	meta := provenance.Metadata{Asset: asset}
	err := r.q.QueryRowContext(ctx, `
SELECT symbol FROM asset_metadata WHERE asset_id = ?
`, asset.String()).Scan(&meta.Symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read asset metadata: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `
SELECT creator, verified
FROM asset_creators
WHERE asset_id = ?
ORDER BY position ASC
`, asset.String())
	if err != nil {
		return nil, fmt.Errorf("read asset creators: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			raw      string
			verified bool
		)
		if err := rows.Scan(&raw, &verified); err != nil {
			return nil, fmt.Errorf("scan asset creator: %w", err)
		}
		creator, err := battleground.ParsePublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse asset creator: %w", err)
		}
		meta.Creators = append(meta.Creators, provenance.Creator{Address: creator, Verified: verified})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset creators: %w", err)
	}
	return &meta, nil
}

func (r registry) PutMetadata(ctx context.Context, meta provenance.Metadata) error {
	asset := meta.Asset.String()
	if _, err := r.q.ExecContext(ctx, `
INSERT INTO asset_metadata (asset_id, symbol)
VALUES (?, ?)
ON CONFLICT (asset_id) DO UPDATE SET symbol = excluded.symbol
`, asset, meta.Symbol); err != nil {
		return fmt.Errorf("write asset metadata: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM asset_creators WHERE asset_id = ?`, asset); err != nil {
		return fmt.Errorf("clear asset creators: %w", err)
	}
	for i, creator := range meta.Creators {
		if _, err := r.q.ExecContext(ctx, `
INSERT INTO asset_creators (asset_id, position, creator, verified)
VALUES (?, ?, ?, ?)
`, asset, i, creator.Address.String(), creator.Verified); err != nil {
			return fmt.Errorf("write asset creator: %w", err)
		}
	}
	return nil
}
