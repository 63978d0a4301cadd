package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeSessionEmptyID        = "SESSION_EMPTY_ID"
	CodeSessionEmptyUserID    = "SESSION_EMPTY_USER_ID"
	CodeSessionInvalidStart   = "SESSION_INVALID_START"
	CodeSessionInvalidStatus  = "SESSION_INVALID_STATUS"
	CodeSessionStatusConflict = "SESSION_STATUS_CONFLICT"
	CodeSessionEndNotComputed = "SESSION_END_NOT_COMPUTED"
	CodeSessionRewardRecorded = "SESSION_REWARD_ALREADY_RECORDED"
	CodeUserEmptyID           = "USER_EMPTY_ID"
	CodeUserEmptyReferralCode = "USER_EMPTY_REFERRAL_CODE"
	CodeRewardInvalidAmount   = "REWARD_INVALID_AMOUNT"
	CodeTriggerEmptyName      = "TRIGGER_EMPTY_NAME"
	CodeTriggerInvalidFireAt  = "TRIGGER_INVALID_FIRE_AT"
	CodeReferralEmptyCode     = "REFERRAL_EMPTY_CODE"
	CodePageTokenInvalid      = "PAGE_TOKEN_INVALID"
	CodeConfigInvalidDuration = "CONFIG_INVALID_DURATION"
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
)

// enUS holds the base-locale user-facing message templates.
var enUS = map[Code]string{
	// Session errors
	CodeSessionEmptyID:        "Session ID is required",
	CodeSessionEmptyUserID:    "Session user ID is required",
	CodeSessionInvalidStart:   "Session start instant {{.Start}} is not a valid timestamp",
	CodeSessionInvalidStatus:  "Unknown session status {{.Status}}",
	CodeSessionStatusConflict: "Session is not in status {{.Expected}}",
	CodeSessionEndNotComputed: "Session end instant has not been computed yet",
	CodeSessionRewardRecorded: "Session reward has already been distributed",

	// User errors
	CodeUserEmptyID:           "User ID is required",
	CodeUserEmptyReferralCode: "User referral code is required",

	// Reward errors
	CodeRewardInvalidAmount: "Reward amount {{.Amount}} is invalid",

	// Trigger errors
	CodeTriggerEmptyName:     "Trigger name is required",
	CodeTriggerInvalidFireAt: "Trigger fire instant is required",

	// Referral errors
	CodeReferralEmptyCode: "Referral code is required",
	CodePageTokenInvalid:  "Page token is invalid or expired",

	// Configuration errors
	CodeConfigInvalidDuration: "Session duration configuration {{.Value}} is not a valid number of minutes",

	// Storage errors
	CodeNotFound:      "Record not found",
	CodeAlreadyExists: "Record already exists",
}
