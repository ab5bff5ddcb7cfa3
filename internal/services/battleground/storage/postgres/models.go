package postgres

import "time"

// Identities and hashes are lowercase hex; uint64 amounts are decimal text
// because Postgres integers are signed.

type gameConfigRow struct {
	Singleton         int16  `gorm:"primaryKey;autoIncrement:false;check:singleton = 1"`
	Admin             string `gorm:"not null"`
	ProtocolFeeBps    int32  `gorm:"not null;check:protocol_fee_bps BETWEEN 0 AND 10000"`
	Treasury          string `gorm:"not null"`
	BattlegroundCount int64  `gorm:"not null;default:0"`
}

func (gameConfigRow) TableName() string { return "game_config" }

type battlegroundRow struct {
	ID                      int64  `gorm:"primaryKey;autoIncrement:false"`
	Address                 string `gorm:"uniqueIndex;not null"`
	Authority               string `gorm:"not null"`
	CollectionSymbol        string `gorm:"not null"`
	CollectionCreators      string `gorm:"not null;default:''"`
	CollectionAllowListRoot *string
	HolderAllowListRoot     *string
	StartTime               time.Time `gorm:"not null;index:idx_battlegrounds_status_start,priority:2"`
	ActionPointsPerDay      int64     `gorm:"not null"`
	ParticipantsCap         int64     `gorm:"not null;check:participants_cap > 0"`
	ParticipantCount        int64     `gorm:"not null;default:0"`
	Status                  string    `gorm:"not null;index:idx_battlegrounds_status_start,priority:1"`
	FeeAsset                string    `gorm:"not null"`
	EntryFee                string    `gorm:"not null"`
	Creator                 string    `gorm:"not null"`
	CreatorFeeBps           int32     `gorm:"not null"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (battlegroundRow) TableName() string { return "battlegrounds" }

type participantRow struct {
	BattlegroundID    int64     `gorm:"primaryKey;autoIncrement:false;uniqueIndex:idx_participants_join_order,priority:1"`
	AssetID           string    `gorm:"primaryKey"`
	Address           string    `gorm:"not null"`
	Owner             string    `gorm:"not null;index"`
	JoinOrder         int64     `gorm:"not null;uniqueIndex:idx_participants_join_order,priority:2"`
	Attack            int32     `gorm:"not null"`
	Defense           int32     `gorm:"not null"`
	HealthPoints      int32     `gorm:"not null"`
	ActionPointsSpent int32     `gorm:"not null"`
	Alive             bool      `gorm:"not null"`
	JoinedAt          time.Time `gorm:"not null"`
}

func (participantRow) TableName() string { return "participants" }

type tokenAccountRow struct {
	Owner  string `gorm:"primaryKey"`
	Asset  string `gorm:"primaryKey"`
	Amount string `gorm:"not null"`
}

func (tokenAccountRow) TableName() string { return "token_accounts" }

type assetMetadataRow struct {
	AssetID string `gorm:"primaryKey"`
	Symbol  string `gorm:"not null"`
}

func (assetMetadataRow) TableName() string { return "asset_metadata" }

type assetCreatorRow struct {
	AssetID  string `gorm:"primaryKey"`
	Position int32  `gorm:"primaryKey;autoIncrement:false"`
	Creator  string `gorm:"not null"`
	Verified bool   `gorm:"not null"`
}

func (assetCreatorRow) TableName() string { return "asset_creators" }

type outboxRow struct {
	ID          string    `gorm:"primaryKey"`
	Kind        string    `gorm:"not null"`
	Payload     []byte    `gorm:"type:bytea;not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
	PublishedAt *time.Time
}

func (outboxRow) TableName() string { return "outbox" }

func allModels() []any {
	return []any{
		&gameConfigRow{},
		&battlegroundRow{},
		&participantRow{},
		&tokenAccountRow{},
		&assetMetadataRow{},
		&assetCreatorRow{},
		&outboxRow{},
	}
}
