package admission

import (
	"strconv"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
)

// Error constructors shared by the workflows and the Store implementations,
// so every backend reports the same codes and template metadata.

// FullError reports a battleground at capacity.
func FullError(participantsCap uint32) error {
	return apperrors.WithMetadata(apperrors.CodeBattlegroundFull, "battleground is full", map[string]string{
		"Cap": strconv.FormatUint(uint64(participantsCap), 10),
	})
}

// WrongStatusError reports a battleground that no longer accepts joins.
func WrongStatusError(status battleground.Status) error {
	return apperrors.WithMetadata(apperrors.CodeWrongBattlegroundStatus, "battleground is not accepting participants", map[string]string{
		"Status": string(status),
	})
}

// InvalidTransitionError reports a rejected status change.
func InvalidTransitionError(from, to battleground.Status) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidStatusTransition, "invalid battleground status transition", map[string]string{
		"From": string(from),
		"To":   string(to),
	})
}

// AlreadyJoinedError reports an allocate-once collision.
func AlreadyJoinedError(battlegroundID uint64, asset battleground.PublicKey) error {
	return apperrors.WithMetadata(apperrors.CodeParticipantAlreadyJoined, "asset already joined battleground", map[string]string{
		"BattlegroundID": strconv.FormatUint(battlegroundID, 10),
		"Asset":          asset.String(),
	})
}

// InsufficientFundsError reports a transfer larger than the sender balance.
func InsufficientFundsError(held, amount uint64) error {
	return apperrors.WithMetadata(apperrors.CodeInsufficientFunds, "insufficient funds for transfer", map[string]string{
		"Held":   strconv.FormatUint(held, 10),
		"Amount": strconv.FormatUint(amount, 10),
	})
}

// NotFoundError reports a missing record.
func NotFoundError(resource, id string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, resource+" not found", map[string]string{
		"Resource": resource,
		"ID":       id,
	})
}
