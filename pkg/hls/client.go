package hls

import (
	"context"
	"net/http"
	"time"
)

// Client is the historian service facade.
type Client interface {
	// QueryAllTags lists every tag known to the historian.
	QueryAllTags(ctx context.Context) (*TagsResult, error)

	// GetLiveValues reads the current value of each requested tag. The
	// returned values carry the tag names in request order.
	GetLiveValues(ctx context.Context, req *TagNameListRequest) (*LiveValuesResult, error)
	GetLiveValuesByName(ctx context.Context, names ...string) (*LiveValuesResult, error)

	// GetHistory reads aggregated history. Series carry the tag name of the
	// request position given by their Index.
	GetHistory(ctx context.Context, req *HistorianRequest) (*HistoryResult, error)
	GetHistoryByName(ctx context.Context, start, end time.Time, interval time.Duration, agg Aggregates, names ...string) (*HistoryResult, error)
	GetHistoryAvg(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*HistoryResult, error)
	GetHistoryMin(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*HistoryResult, error)
	GetHistoryMax(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*HistoryResult, error)
	GetHistoryBound(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*HistoryResult, error)
	GetHistoryAll(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*HistoryResult, error)

	// Execute calls any registered endpoint through the dispatch engine.
	Execute(ctx context.Context, module Module, id EndpointID, params Params, body interface{}) (interface{}, error)

	// Token returns the current valid token, refreshing when needed.
	Token(ctx context.Context) (string, error)

	// ClearToken drops the cached token so the next call refreshes it.
	ClearToken(ctx context.Context) error

	// Close releases the cache backend.
	Close() error
}

// Params holds named parameter values. Values are stringified when they
// are placed into a query, path, form or header.
type Params map[string]interface{}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]interface{}) {}
func (NoopLogger) Info(string, map[string]interface{})  {}
func (NoopLogger) Warn(string, map[string]interface{})  {}
func (NoopLogger) Error(string, map[string]interface{}) {}

// Config represents client configuration for building an hls.Client.
//
// # Timeouts
//
// ConnectTimeout bounds connection establishment and ReadTimeout bounds the
// wait for response headers. A negative value disables the bound; zero
// selects the transport default. Per-call deadlines can also be set with the
// context passed to each method.
//
// # Token lifetime
//
// Tokens are cached for TokenTTL minus a five second safety margin, or until
// the JWT exp claim when the token carries one, whichever comes first.
type Config struct {
	// BaseURL: scheme, host and optional context path of the historian
	// (e.g., "http://historian.local:8080/hls").
	BaseURL string
	// UserID: account sent in the userid header of the token call.
	UserID string
	// SecretKey: secret sent in the secretkey header of the token call.
	SecretKey string

	// TokenTTL: server-side token lifetime. Defaults to 1800s.
	TokenTTL time.Duration
	// ConnectTimeout: connection establishment bound.
	ConnectTimeout time.Duration
	// ReadTimeout: response header bound.
	ReadTimeout time.Duration

	// Cache: token cache backend. Defaults to an in-process memory cache.
	Cache *CacheConfig

	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the transport, engine and token manager.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// HTTPClient: optional base client. Its Transport is kept; timeouts
	// above are applied on top when it is an *http.Transport.
	HTTPClient *http.Client
	// Interceptors: optional extra request/response hooks.
	Interceptors *InterceptorChain
}
