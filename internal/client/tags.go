package client

import (
	"context"

	"github.com/fivetwenty-io/hls-client/internal/dispatch"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// QueryAllTags implements hls.Client.QueryAllTags.
func (c *Client) QueryAllTags(ctx context.Context) (*hls.TagsResult, error) {
	return dispatch.Call[*hls.TagsResult](ctx, c.engine, hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
}
