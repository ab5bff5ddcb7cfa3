// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Admission errors
	CodeInvalidStatistics            Code = "INVALID_STATISTICS"
	CodeCollectionVerificationFailed Code = "COLLECTION_VERIFICATION_FAILED"
	CodeHolderNotAllowListed         Code = "HOLDER_NOT_ALLOW_LISTED"
	CodeAssetNotOwned                Code = "ASSET_NOT_OWNED"
	CodeParticipantAlreadyJoined     Code = "PARTICIPANT_ALREADY_JOINED"
	CodeInsufficientFunds            Code = "INSUFFICIENT_FUNDS"

	// Battleground errors
	CodeCollectionSymbolInvalid  Code = "COLLECTION_SYMBOL_INVALID"
	CodeVerifiedCreatorsInvalid  Code = "VERIFIED_CREATORS_INVALID"
	CodeBattlegroundInvalid      Code = "BATTLEGROUND_INVALID"
	CodeWrongBattlegroundStatus  Code = "WRONG_BATTLEGROUND_STATUS"
	CodeBattlegroundFull         Code = "BATTLEGROUND_FULL"
	CodeInvalidStatusTransition  Code = "INVALID_STATUS_TRANSITION"
	CodeInvalidFeeConfiguration  Code = "INVALID_FEE_CONFIGURATION"
	CodeGameConfigInvalid        Code = "GAME_CONFIG_INVALID"
	CodeInsufficientActionPoints Code = "INSUFFICIENT_ACTION_POINTS"

	// Caller errors
	CodePlayerTokenInvalid  Code = "PLAYER_TOKEN_INVALID"
	CodePlayerTokenExpired  Code = "PLAYER_TOKEN_EXPIRED"
	CodeCallerNotAuthorized Code = "CALLER_NOT_AUTHORIZED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Request errors
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeFilterInvalid    Code = "FILTER_INVALID"
	CodePageTokenInvalid Code = "PAGE_TOKEN_INVALID"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidStatistics,
		CodeCollectionSymbolInvalid,
		CodeVerifiedCreatorsInvalid,
		CodeBattlegroundInvalid,
		CodeInvalidFeeConfiguration,
		CodeGameConfigInvalid,
		CodeInvalidArgument,
		CodeFilterInvalid,
		CodePageTokenInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeWrongBattlegroundStatus,
		CodeInvalidStatusTransition,
		CodeInsufficientFunds,
		CodeInsufficientActionPoints:
		return codes.FailedPrecondition

	// ResourceExhausted - no seat left
	case CodeBattlegroundFull:
		return codes.ResourceExhausted

	// PermissionDenied - caller or asset not admitted
	case CodeCollectionVerificationFailed,
		CodeHolderNotAllowListed,
		CodeAssetNotOwned,
		CodeCallerNotAuthorized:
		return codes.PermissionDenied

	// Unauthenticated - identity could not be established
	case CodePlayerTokenInvalid,
		CodePlayerTokenExpired:
		return codes.Unauthenticated

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - allocate-once collision
	case CodeParticipantAlreadyJoined:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
