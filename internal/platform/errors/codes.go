package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionEmptyID        Code = "SESSION_EMPTY_ID"
	CodeSessionEmptyUserID    Code = "SESSION_EMPTY_USER_ID"
	CodeSessionInvalidStart   Code = "SESSION_INVALID_START"
	CodeSessionInvalidStatus  Code = "SESSION_INVALID_STATUS"
	CodeSessionStatusConflict Code = "SESSION_STATUS_CONFLICT"
	CodeSessionEndNotComputed Code = "SESSION_END_NOT_COMPUTED"
	CodeSessionRewardRecorded Code = "SESSION_REWARD_ALREADY_RECORDED"

	// User errors
	CodeUserEmptyID           Code = "USER_EMPTY_ID"
	CodeUserEmptyReferralCode Code = "USER_EMPTY_REFERRAL_CODE"

	// Reward errors
	CodeRewardInvalidAmount Code = "REWARD_INVALID_AMOUNT"

	// Trigger errors
	CodeTriggerEmptyName     Code = "TRIGGER_EMPTY_NAME"
	CodeTriggerInvalidFireAt Code = "TRIGGER_INVALID_FIRE_AT"

	// Referral errors
	CodeReferralEmptyCode Code = "REFERRAL_EMPTY_CODE"
	CodePageTokenInvalid  Code = "PAGE_TOKEN_INVALID"

	// Configuration errors
	CodeConfigInvalidDuration Code = "CONFIG_INVALID_DURATION"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSessionEmptyID,
		CodeSessionEmptyUserID,
		CodeSessionInvalidStart,
		CodeSessionInvalidStatus,
		CodeUserEmptyID,
		CodeUserEmptyReferralCode,
		CodeRewardInvalidAmount,
		CodeTriggerEmptyName,
		CodeTriggerInvalidFireAt,
		CodeReferralEmptyCode,
		CodePageTokenInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSessionStatusConflict,
		CodeSessionEndNotComputed,
		CodeSessionRewardRecorded,
		CodeConfigInvalidDuration:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - conditional insert conflict
	case CodeAlreadyExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
