// Package hlsclient provides the main entry point for creating historian clients
package hlsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/hls-client/internal/client"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// New creates a new historian client.
func New(ctx context.Context, config *hls.Config) (hls.Client, error) {
	if config == nil {
		return nil, hls.ErrConfigRequired
	}

	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, hls.ErrBaseURLRequired
	}

	normalized := *config
	normalized.BaseURL = NormalizeBaseURL(config.BaseURL)

	// Use the internal client implementation
	client, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return client, nil
}

// NormalizeBaseURL trims surrounding blanks and trailing slashes and adds
// "http://" when no scheme is present. Historians are usually reached over
// plain HTTP inside the plant network.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ""
	}

	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return baseURL
}

// NewWithCredentials creates a client with the default in-process token cache.
func NewWithCredentials(ctx context.Context, baseURL, userID, secretKey string) (hls.Client, error) {
	return New(ctx, &hls.Config{
		BaseURL:   baseURL,
		UserID:    userID,
		SecretKey: secretKey,
	})
}

// NewWithNATSCache creates a client sharing its token through a NATS
// JetStream key-value bucket.
func NewWithNATSCache(ctx context.Context, baseURL, userID, secretKey string, nats *hls.NATSKVConfig) (hls.Client, error) {
	return New(ctx, &hls.Config{
		BaseURL:   baseURL,
		UserID:    userID,
		SecretKey: secretKey,
		Cache: hls.NewCacheBuilder().
			WithType(hls.CacheTypeNATS).
			WithNATSConfig(nats).
			Config(),
	})
}
