package constants

import "errors"

// Token errors.
var (
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
	ErrBlankToken        = errors.New("token is blank")
)

// Configuration errors.
var (
	ErrBaseURLRequired     = errors.New("base URL is required")
	ErrCredentialsRequired = errors.New("userid and secretkey are required")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
)

// CLI validation errors.
var (
	ErrAtLeastOneTagRequired = errors.New("at least one tag name is required")
	ErrInvalidTimeFormat     = errors.New("invalid time, expected RFC3339 or unix seconds")
)
