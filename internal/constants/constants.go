package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Authentication defaults.
const (
	// DefaultTokenExpireSeconds is the token lifetime assumed when none is configured.
	DefaultTokenExpireSeconds = 1800

	// TokenExpiryBuffer is subtracted from the token lifetime so cached tokens
	// are evicted before the server stops accepting them.
	TokenExpiryBuffer = 5 * time.Second

	// TokenCacheKey is the cache key holding the shared access token.
	TokenCacheKey = "hls.access_token"

	// TokenInvalidCode is the envelope code the historian returns for a rejected token.
	TokenInvalidCode = 4004

	// SuccessCode is the envelope code of a successful call.
	SuccessCode = 0

	// UserIDHeader and SecretKeyHeader carry the credentials on the token endpoint.
	UserIDHeader    = "userid"
	SecretKeyHeader = "secretkey"

	// TokenPartsCount is the number of dot separated parts of a JWT.
	TokenPartsCount = 3
)

// HTTP and network timeouts.
const (
	// Unbounded disables a connect or read timeout.
	Unbounded time.Duration = -1

	// ShortHTTPTimeout is used for quick CLI operations.
	ShortHTTPTimeout = 10 * time.Second

	// DialKeepAlive is the TCP keep-alive used with a custom connect timeout.
	DialKeepAlive = 30 * time.Second

	// NATSConnectTimeout bounds the initial NATS connection.
	NATSConnectTimeout = 5 * time.Second
)

// HTTP headers and values.
const (
	HeaderContentType = "Content-Type"
	HeaderUserAgent   = "User-Agent"
	HeaderRequestID   = "X-Request-ID"
	ContentTypeJSON   = "application/json"
	DefaultUserAgent  = "hls-client-go"
)

// Cache defaults.
const (
	// DefaultCacheSize is the default maximum number of in-memory entries.
	DefaultCacheSize = 1000

	// DefaultNATSBucket is the JetStream key-value bucket used for shared tokens.
	DefaultNATSBucket = "hls_tokens"

	// DefaultNATSURL is used when a NATS cache is configured without a URL.
	DefaultNATSURL = "nats://127.0.0.1:4222"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// CLI argument and display constants.
const (
	// BooleanTrue is the literal accepted as true by config set.
	BooleanTrue = "true"

	// MinimumArgumentCount is the argument count of KEY VALUE style commands.
	MinimumArgumentCount = 2

	// TokenDisplayLength is how many token characters the CLI shows before masking.
	TokenDisplayLength = 12

	// DefaultHistoryInterval is the default history sampling interval in seconds.
	DefaultHistoryInterval = 1

	// DefaultHistoryWindow is the default history window looking back from now.
	DefaultHistoryWindow = 5 * time.Minute
)
