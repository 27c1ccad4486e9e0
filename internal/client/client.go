package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fivetwenty-io/hls-client/internal/auth"
	"github.com/fivetwenty-io/hls-client/internal/constants"
	"github.com/fivetwenty-io/hls-client/internal/dispatch"
	"github.com/fivetwenty-io/hls-client/internal/http"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// Client implements the hls.Client interface.
type Client struct {
	engine *dispatch.Engine
	tokens *auth.TokenManager
	cache  hls.Cache
	logger hls.Logger
}

var _ hls.Client = (*Client)(nil)

// New creates a new historian client.
func New(ctx context.Context, config *hls.Config) (*Client, error) {
	if config == nil {
		return nil, hls.ErrConfigRequired
	}

	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, hls.ErrBaseURLRequired
	}

	if config.UserID == "" || config.SecretKey == "" {
		return nil, constants.ErrCredentialsRequired
	}

	logger := config.Logger
	if logger == nil {
		logger = hls.NoopLogger{}
	}

	tokenTTL := config.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = constants.DefaultTokenExpireSeconds * time.Second
	}

	cache, err := createCache(config.Cache, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token cache: %w", err)
	}

	engine, err := dispatch.New(config.BaseURL, http.NewClient(createHTTPClientOptions(config)...),
		dispatch.WithLogger(logger),
		dispatch.WithInterceptors(createInterceptors(config, logger)),
	)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenManager(engine, cache, config.UserID, config.SecretKey,
		auth.WithTokenTTL(tokenTTL),
		auth.WithLogger(logger),
	)
	engine.SetTokenSource(tokens)

	logger.Debug("HLS client created", map[string]interface{}{
		"base_url":  engine.BaseURL(),
		"token_ttl": tokenTTL.String(),
	})

	return &Client{
		engine: engine,
		tokens: tokens,
		cache:  cache,
		logger: logger,
	}, nil
}

// createCache builds the token cache, defaulting its TTL to the token lifetime.
func createCache(config *hls.CacheConfig, tokenTTL time.Duration) (hls.Cache, error) {
	if config == nil {
		config = hls.DefaultCacheConfig()
	}

	resolved := *config
	if resolved.DefaultTTL == 0 {
		resolved.DefaultTTL = tokenTTL - constants.TokenExpiryBuffer
	}

	return hls.NewCacheFromConfig(&resolved)
}

// createHTTPClientOptions builds transport options from config.
func createHTTPClientOptions(config *hls.Config) []http.Option {
	httpOpts := []http.Option{
		http.WithTimeouts(config.ConnectTimeout, config.ReadTimeout),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(config.HTTPClient))
	}

	return httpOpts
}

// createInterceptors prepends the built-in hooks to the configured chain.
func createInterceptors(config *hls.Config, logger hls.Logger) *hls.InterceptorChain {
	chain := hls.NewInterceptorChain()
	chain.AddRequestInterceptor(hls.RequestIDInterceptor())

	if config.Debug {
		chain.AddRequestInterceptor(hls.LoggingInterceptor(logger))
		chain.AddResponseInterceptor(hls.LoggingResponseInterceptor(logger))
	}

	if config.Interceptors != nil {
		chain.AddRequestInterceptor(config.Interceptors.ExecuteRequestInterceptors)
		chain.AddResponseInterceptor(config.Interceptors.ExecuteResponseInterceptors)
	}

	return chain
}

// Execute implements hls.Client.Execute.
func (c *Client) Execute(ctx context.Context, module hls.Module, id hls.EndpointID, params hls.Params, body interface{}) (interface{}, error) {
	return c.engine.Execute(ctx, module, id, params, body)
}

// Token implements hls.Client.Token.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.tokens.GetValidToken(ctx)
}

// ClearToken implements hls.Client.ClearToken.
func (c *Client) ClearToken(ctx context.Context) error {
	return c.tokens.ClearToken(ctx)
}

// Close implements hls.Client.Close.
func (c *Client) Close() error {
	if closer, ok := c.cache.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
