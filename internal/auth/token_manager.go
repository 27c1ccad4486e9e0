// Package auth manages the historian access token shared by all calls of a
// client.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fivetwenty-io/hls-client/internal/constants"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// Caller executes endpoint calls. The dispatch engine implements it.
type Caller interface {
	Execute(ctx context.Context, module hls.Module, id hls.EndpointID, params hls.Params, body interface{}) (interface{}, error)
}

// TokenManager obtains tokens from the historian and keeps them in a cache.
// At most one refresh runs at a time per manager.
type TokenManager struct {
	caller    Caller
	cache     hls.Cache
	userID    string
	secretKey string
	tokenTTL  time.Duration
	logger    hls.Logger
	now       func() time.Time

	refreshMu sync.Mutex
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithTokenTTL sets the server-side token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.tokenTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger hls.Logger) Option {
	return func(m *TokenManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the clock used to evaluate JWT expiry.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewTokenManager creates a token manager authenticating as userID.
func NewTokenManager(caller Caller, cache hls.Cache, userID, secretKey string, opts ...Option) *TokenManager {
	manager := &TokenManager{
		caller:    caller,
		cache:     cache,
		userID:    userID,
		secretKey: secretKey,
		tokenTTL:  constants.DefaultTokenExpireSeconds * time.Second,
		logger:    hls.NoopLogger{},
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// TTL returns how long a freshly issued token stays cached.
func (m *TokenManager) TTL() time.Duration {
	return m.tokenTTL - constants.TokenExpiryBuffer
}

// GetValidToken returns the cached token, refreshing it when absent.
func (m *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	token, ok := m.cached(ctx)
	if ok {
		return token, nil
	}

	return m.RefreshToken(ctx)
}

// RefreshToken fetches a new token unless another caller cached one while
// this one waited for the lock.
func (m *TokenManager) RefreshToken(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	token, ok := m.cached(ctx)
	if ok {
		return token, nil
	}

	m.logger.Info("Refreshing historian token", map[string]interface{}{
		"user_id": m.userID,
	})

	out, err := m.caller.Execute(ctx, hls.ModuleOAuth, hls.EndpointGetToken, hls.Params{
		constants.UserIDHeader:    m.userID,
		constants.SecretKeyHeader: m.secretKey,
	}, nil)
	if err != nil {
		return "", &hls.AuthenticationError{Err: err}
	}

	result, ok := out.(*hls.TokenResult)
	if !ok {
		return "", &hls.AuthenticationError{Err: fmt.Errorf("%w: %T", hls.ErrUnexpectedResponseType, out)}
	}

	if !result.Success() {
		return "", &hls.AuthenticationError{Code: result.Code, Message: result.Msg}
	}

	token = strings.TrimSpace(result.Data.Token)
	if token == "" {
		return "", &hls.AuthenticationError{Code: result.Code, Message: result.Msg, Err: constants.ErrBlankToken}
	}

	m.store(ctx, token)

	return token, nil
}

// SetToken caches a token obtained elsewhere.
func (m *TokenManager) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return constants.ErrBlankToken
	}

	ttl := m.ttlFor(token)
	if ttl <= 0 {
		return m.ClearToken(ctx)
	}

	err := m.cache.Set(ctx, constants.TokenCacheKey, token, ttl)
	if err != nil {
		return fmt.Errorf("caching token: %w", err)
	}

	return nil
}

// ClearToken removes the cached token.
func (m *TokenManager) ClearToken(ctx context.Context) error {
	err := m.cache.Delete(ctx, constants.TokenCacheKey)
	if err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}

	return nil
}

func (m *TokenManager) cached(ctx context.Context) (string, bool) {
	token, ok, err := m.cache.Get(ctx, constants.TokenCacheKey)
	if err != nil {
		m.logger.Warn("Token cache read failed", map[string]interface{}{
			"error": err.Error(),
		})

		return "", false
	}

	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}

	return token, true
}

func (m *TokenManager) store(ctx context.Context, token string) {
	ttl := m.ttlFor(token)
	if ttl <= 0 {
		m.logger.Warn("Token lifetime too short to cache", map[string]interface{}{
			"ttl": ttl.String(),
		})

		return
	}

	err := m.cache.Set(ctx, constants.TokenCacheKey, token, ttl)
	if err != nil {
		m.logger.Warn("Token cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// ttlFor caps the configured lifetime by the token's own exp claim.
func (m *TokenManager) ttlFor(token string) time.Duration {
	ttl := m.TTL()

	expiresAt, err := jwtExpiry(token)
	if err != nil {
		return ttl
	}

	untilExpiry := expiresAt.Sub(m.now()) - constants.TokenExpiryBuffer
	if untilExpiry < ttl {
		return untilExpiry
	}

	return ttl
}

func jwtExpiry(token string) (time.Time, error) {
	if len(strings.Split(token, ".")) != constants.TokenPartsCount {
		return time.Time{}, constants.ErrInvalidJWTFormat
	}

	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	if exp == nil {
		return time.Time{}, constants.ErrNoExpirationClaim
	}

	return exp.Time, nil
}
