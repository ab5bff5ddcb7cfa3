package admission

import (
	"context"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/core/filter"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

// Store opens transactions and serves read-only queries.
type Store interface {
	// WithTx runs fn in a single transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetGameConfig(ctx context.Context) (battleground.GameConfig, error)
	GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error)
	GetParticipant(ctx context.Context, battlegroundID uint64, asset battleground.PublicKey) (battleground.Participant, error)
	ListParticipants(ctx context.Context, query ParticipantQuery) ([]battleground.Participant, error)
}

// Tx is the set of operations available inside one transaction.
type Tx interface {
	// GetGameConfig returns NOT_FOUND when the singleton was never created.
	GetGameConfig(ctx context.Context) (battleground.GameConfig, error)
	// InsertGameConfig stores cfg unless a configuration already exists and
	// reports whether it was created.
	InsertGameConfig(ctx context.Context, cfg battleground.GameConfig) (bool, error)
	// NextBattlegroundID increments and returns the battleground counter.
	NextBattlegroundID(ctx context.Context) (uint64, error)

	InsertBattleground(ctx context.Context, b battleground.Battleground) error
	// GetBattleground reads a battleground, locking it for the rest of the
	// transaction where the backend supports row locks.
	GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error)
	// IncrementParticipantCount adds one participant, re-checking capacity
	// and status in the same write. It fails with BATTLEGROUND_FULL or
	// WRONG_BATTLEGROUND_STATUS when the committed state no longer allows it.
	IncrementParticipantCount(ctx context.Context, id uint64, now time.Time) error
	// UpdateStatus moves a battleground from one status to another and fails
	// with INVALID_STATUS_TRANSITION when the stored status is not from.
	UpdateStatus(ctx context.Context, id uint64, from, to battleground.Status, now time.Time) error
	// ListDueBattlegrounds returns preparing battlegrounds whose start time
	// is at or before now.
	ListDueBattlegrounds(ctx context.Context, now time.Time) ([]uint64, error)

	// InsertParticipant creates the participant record once and fails with
	// PARTICIPANT_ALREADY_JOINED when the asset already joined.
	InsertParticipant(ctx context.Context, p battleground.Participant) error

	// AppendOutbox records an event for publication after commit.
	AppendOutbox(ctx context.Context, event OutboxEvent) error

	Ledger() Ledger
	Registry() MetadataRegistry
}

// Ledger moves fungible and non-fungible balances between identities.
type Ledger interface {
	// Balance returns the amount of asset held by owner.
	Balance(ctx context.Context, owner, asset battleground.PublicKey) (uint64, error)
	// Transfer moves amount of asset and fails with INSUFFICIENT_FUNDS when
	// from holds less. A zero amount is a no-op.
	Transfer(ctx context.Context, from, to, asset battleground.PublicKey, amount uint64) error
	// Mint credits amount of asset to owner.
	Mint(ctx context.Context, owner, asset battleground.PublicKey, amount uint64) error
}

// MetadataRegistry reads and writes the asset metadata registry.
type MetadataRegistry interface {
	// GetMetadata returns nil without error when the asset has no record.
	GetMetadata(ctx context.Context, asset battleground.PublicKey) (*provenance.Metadata, error)
	// PutMetadata creates or replaces the record of meta.Asset.
	PutMetadata(ctx context.Context, meta provenance.Metadata) error
}

// ParticipantQuery selects one page of participants ordered by join order.
type ParticipantQuery struct {
	BattlegroundID uint64
	Condition      filter.SQLCondition
	// AfterSeq excludes participants up to (or, descending, from) this join
	// order. Zero starts from the first page.
	AfterSeq   uint32
	Descending bool
	Limit      int
}
