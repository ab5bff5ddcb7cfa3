package httpapi

import (
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

// Amounts are encoded as decimal strings so uint64 values survive
// JavaScript clients.

type gameConfigJSON struct {
	Admin             battleground.PublicKey `json:"admin"`
	ProtocolFeeBps    uint16                 `json:"protocol_fee_bps"`
	Treasury          battleground.PublicKey `json:"treasury"`
	BattlegroundCount uint64                 `json:"battleground_count"`
}

type collectionJSON struct {
	Symbol           string                   `json:"symbol"`
	VerifiedCreators []battleground.PublicKey `json:"verified_creators,omitempty"`
	AllowListRoot    *merkle.Hash             `json:"allow_list_root,omitempty"`
}

type battlegroundJSON struct {
	ID                  uint64                 `json:"id"`
	Address             battleground.PublicKey `json:"address"`
	Authority           battleground.PublicKey `json:"authority"`
	Collection          collectionJSON         `json:"collection"`
	HolderAllowListRoot *merkle.Hash           `json:"holder_allow_list_root,omitempty"`
	StartTime           time.Time              `json:"start_time"`
	ActionPointsPerDay  uint32                 `json:"action_points_per_day"`
	ParticipantsCap     uint32                 `json:"participants_cap"`
	ParticipantCount    uint32                 `json:"participant_count"`
	Status              battleground.Status    `json:"status"`
	FeeAsset            battleground.PublicKey `json:"fee_asset"`
	EntryFee            uint64                 `json:"entry_fee,string"`
	Creator             battleground.PublicKey `json:"creator"`
	CreatorFeeBps       uint16                 `json:"creator_fee_bps"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

type participantJSON struct {
	BattlegroundID    uint64                 `json:"battleground_id"`
	Asset             battleground.PublicKey `json:"asset"`
	Address           battleground.PublicKey `json:"address"`
	Owner             battleground.PublicKey `json:"owner"`
	JoinOrder         uint32                 `json:"join_order"`
	Attack            uint16                 `json:"attack"`
	Defense           uint16                 `json:"defense"`
	HealthPoints      uint16                 `json:"health_points"`
	ActionPointsSpent uint16                 `json:"action_points_spent"`
	Alive             bool                   `json:"alive"`
	JoinedAt          time.Time              `json:"joined_at"`
}

// participantDetailJSON adds the points available at read time.
type participantDetailJSON struct {
	participantJSON
	ActionPointsAvailable uint64 `json:"action_points_available"`
}

type feesJSON struct {
	Protocol uint64 `json:"protocol,string"`
	Creator  uint64 `json:"creator,string"`
	Pot      uint64 `json:"pot,string"`
}

type joinResponse struct {
	Participant participantJSON `json:"participant"`
	Fees        feesJSON        `json:"fees"`
	EventID     string          `json:"event_id"`
}

type listParticipantsResponse struct {
	Participants  []participantJSON `json:"participants"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type createBattlegroundBody struct {
	Collection          collectionJSON         `json:"collection"`
	HolderAllowListRoot *merkle.Hash           `json:"holder_allow_list_root"`
	StartTime           time.Time              `json:"start_time"`
	ActionPointsPerDay  uint32                 `json:"action_points_per_day"`
	ParticipantsCap     uint32                 `json:"participants_cap"`
	FeeAsset            battleground.PublicKey `json:"fee_asset"`
	EntryFee            uint64                 `json:"entry_fee,string"`
	CreatorFeeBps       uint16                 `json:"creator_fee_bps"`
}

// joinBody leaves absent proofs nil; an empty array is a supplied proof of
// length zero.
type joinBody struct {
	Asset           battleground.PublicKey `json:"asset"`
	Attack          uint32                 `json:"attack"`
	Defense         uint32                 `json:"defense"`
	CollectionProof []merkle.Hash          `json:"collection_proof"`
	HolderProof     []merkle.Hash          `json:"holder_proof"`
}

type depositBody struct {
	Owner  battleground.PublicKey `json:"owner"`
	Asset  battleground.PublicKey `json:"asset"`
	Amount uint64                 `json:"amount,string"`
}

type creatorJSON struct {
	Address  battleground.PublicKey `json:"address"`
	Verified bool                   `json:"verified"`
}

type assetMetadataBody struct {
	Symbol   string        `json:"symbol"`
	Creators []creatorJSON `json:"creators"`
}

func toGameConfigJSON(cfg battleground.GameConfig) gameConfigJSON {
	return gameConfigJSON{
		Admin:             cfg.Admin,
		ProtocolFeeBps:    cfg.ProtocolFeeBps,
		Treasury:          cfg.Treasury,
		BattlegroundCount: cfg.BattlegroundCount,
	}
}

func toBattlegroundJSON(b battleground.Battleground) battlegroundJSON {
	return battlegroundJSON{
		ID:        b.ID,
		Address:   b.Address,
		Authority: b.Authority,
		Collection: collectionJSON{
			Symbol:           b.Collection.Symbol,
			VerifiedCreators: b.Collection.VerifiedCreators,
			AllowListRoot:    b.Collection.AllowListRoot,
		},
		HolderAllowListRoot: b.HolderAllowListRoot,
		StartTime:           b.StartTime,
		ActionPointsPerDay:  b.ActionPointsPerDay,
		ParticipantsCap:     b.ParticipantsCap,
		ParticipantCount:    b.ParticipantCount,
		Status:              b.Status,
		FeeAsset:            b.FeeAsset,
		EntryFee:            b.EntryFee,
		Creator:             b.Creator,
		CreatorFeeBps:       b.CreatorFeeBps,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func toParticipantJSON(p battleground.Participant) participantJSON {
	return participantJSON{
		BattlegroundID:    p.BattlegroundID,
		Asset:             p.Asset,
		Address:           p.Address,
		Owner:             p.Owner,
		JoinOrder:         p.JoinOrder,
		Attack:            p.Attack,
		Defense:           p.Defense,
		HealthPoints:      p.HealthPoints,
		ActionPointsSpent: p.ActionPointsSpent,
		Alive:             p.Alive,
		JoinedAt:          p.JoinedAt,
	}
}

func (b createBattlegroundBody) request(creator battleground.PublicKey) admission.CreateBattlegroundRequest {
	return admission.CreateBattlegroundRequest{
		Creator: creator,
		Collection: battleground.CollectionInfo{
			Symbol:           b.Collection.Symbol,
			VerifiedCreators: b.Collection.VerifiedCreators,
			AllowListRoot:    b.Collection.AllowListRoot,
		},
		HolderAllowListRoot: b.HolderAllowListRoot,
		StartTime:           b.StartTime,
		ActionPointsPerDay:  b.ActionPointsPerDay,
		ParticipantsCap:     b.ParticipantsCap,
		FeeAsset:            b.FeeAsset,
		EntryFee:            b.EntryFee,
		CreatorFeeBps:       b.CreatorFeeBps,
	}
}

func (b assetMetadataBody) metadata(asset battleground.PublicKey) provenance.Metadata {
	creators := make([]provenance.Creator, 0, len(b.Creators))
	for _, c := range b.Creators {
		creators = append(creators, provenance.Creator{Address: c.Address, Verified: c.Verified})
	}
	return provenance.Metadata{Asset: asset, Symbol: b.Symbol, Creators: creators}
}
