// Package stats derives a participant's combat statistics from the raw
// attack and defense points chosen at join time.
package stats

import (
	"strconv"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
)

const (
	// MaxPoints bounds attack + defense.
	MaxPoints = 100

	BaseAttack  = 100
	BaseDefense = 50
	BaseHealth  = 750
	// HealthPerDefense is the health granted per derived defense point.
	HealthPerDefense = 5
)

// Stats are the derived statistics persisted on a participant.
type Stats struct {
	Attack            uint16
	Defense           uint16
	HealthPoints      uint16
	ActionPointsSpent uint16
	Alive             bool
}

// Derive validates the raw points and derives the participant stats.
func Derive(attack, defense uint32) (Stats, error) {
	// Summed in 64 bits so huge inputs cannot wrap below the bound.
	if uint64(attack)+uint64(defense) > MaxPoints {
		return Stats{}, apperrors.WithMetadata(apperrors.CodeInvalidStatistics, "attack + defense exceeds maximum points", map[string]string{
			"Attack":  strconv.FormatUint(uint64(attack), 10),
			"Defense": strconv.FormatUint(uint64(defense), 10),
		})
	}
	derivedDefense := uint16(defense) + BaseDefense
	return Stats{
		Attack:            uint16(attack) + BaseAttack,
		Defense:           derivedDefense,
		HealthPoints:      BaseHealth + derivedDefense*HealthPerDefense,
		ActionPointsSpent: 0,
		Alive:             true,
	}, nil
}
