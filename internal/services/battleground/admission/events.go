package admission

import "time"

// EventKindJoined is the outbox kind of JoinEvent payloads.
const EventKindJoined = "battleground.participant_joined"

// JoinEvent announces an admission. Attack and Defense are the raw points
// the player chose, not the derived stats.
type JoinEvent struct {
	ID             string    `json:"id"`
	BattlegroundID uint64    `json:"battleground_id"`
	AssetID        string    `json:"asset_id"`
	Player         string    `json:"player"`
	Attack         uint32    `json:"attack"`
	Defense        uint32    `json:"defense"`
	JoinedAt       time.Time `json:"joined_at"`
}

// OutboxEvent is an event waiting to be published.
type OutboxEvent struct {
	ID          string
	Kind        string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}
