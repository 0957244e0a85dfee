package booking

import "errors"

// Claim rejection reasons. Each surfaces verbatim through the claim API;
// none of them is retryable.
var (
	ErrTokenNotFound    = errors.New("claim token not found")
	ErrTokenExpired     = errors.New("claim token has expired")
	ErrTokenAlreadyUsed = errors.New("claim token was already used")
	ErrTokenSuperseded  = errors.New("slot was claimed by someone else")
	ErrSlotUnavailable  = errors.New("slot is no longer available")
)

// ErrStoreUnavailable reports a commit that failed for infrastructure
// reasons. Unlike the rejections above, the caller may retry it.
var ErrStoreUnavailable = errors.New("booking store unavailable")

// errFillConflict is the internal signal that the conditional fill update
// matched zero rows.
var errFillConflict = errors.New("fill conflict")
