package battleground

import "strings"

// Status describes where a battleground is in its lifecycle.
type Status string

const (
	StatusUnspecified Status = ""
	StatusPreparing   Status = "preparing"
	StatusOngoing     Status = "ongoing"
	StatusFinished    Status = "finished"
)

// ParseStatus canonicalizes a status label.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "preparing":
		return StatusPreparing, true
	case "ongoing":
		return StatusOngoing, true
	case "finished":
		return StatusFinished, true
	default:
		return StatusUnspecified, false
	}
}

// CanTransition reports whether a battleground may move from one status to
// another. Status only moves forward: Preparing, Ongoing, Finished.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPreparing:
		return to == StatusOngoing
	case StatusOngoing:
		return to == StatusFinished
	default:
		return false
	}
}

// AcceptsParticipants reports whether joins are allowed in this status.
func (s Status) AcceptsParticipants() bool {
	return s == StatusPreparing
}
