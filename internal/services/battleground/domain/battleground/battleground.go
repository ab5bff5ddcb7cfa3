package battleground

import (
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
)

// MaxBps is the basis-point denominator for fee rates.
const MaxBps = 10_000

// GameConfig is the singleton configuration shared by every battleground.
type GameConfig struct {
	// Admin is the operator identity allowed to manage lifecycle transitions.
	Admin PublicKey
	// ProtocolFeeBps is the protocol share of each entry fee, in basis points.
	ProtocolFeeBps uint16
	// Treasury receives the protocol share of entry fees.
	Treasury PublicKey
	// BattlegroundCount is the last battleground id handed out.
	BattlegroundCount uint64
}

// CollectionInfo describes which assets a battleground admits. Exactly one
// of VerifiedCreators or AllowListRoot is set.
type CollectionInfo struct {
	Symbol           string
	VerifiedCreators []PublicKey
	AllowListRoot    *merkle.Hash
}

// Battleground is one competitive arena and its admission rules.
type Battleground struct {
	ID uint64
	// Address is the derived identity of the battleground record.
	Address PublicKey
	// Authority is the derived identity that owns the prize pot.
	Authority           PublicKey
	Collection          CollectionInfo
	HolderAllowListRoot *merkle.Hash
	StartTime           time.Time
	ActionPointsPerDay  uint32
	ParticipantsCap     uint32
	ParticipantCount    uint32
	Status              Status
	FeeAsset            PublicKey
	EntryFee            uint64
	Creator             PublicKey
	CreatorFeeBps       uint16
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasCapacity reports whether another participant fits.
func (b Battleground) HasCapacity() bool {
	return b.ParticipantCount < b.ParticipantsCap
}

// Participant is an asset admitted to a battleground with its derived stats.
type Participant struct {
	BattlegroundID uint64
	Asset          PublicKey
	// Address is the derived identity of the participant record.
	Address PublicKey
	Owner   PublicKey
	// JoinOrder is the 1-based admission position within the battleground.
	JoinOrder         uint32
	Attack            uint16
	Defense           uint16
	HealthPoints      uint16
	ActionPointsSpent uint16
	Alive             bool
	JoinedAt          time.Time
}
