package client

import (
	"context"

	"github.com/fivetwenty-io/hls-client/internal/dispatch"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// GetLiveValues implements hls.Client.GetLiveValues.
func (c *Client) GetLiveValues(ctx context.Context, req *hls.TagNameListRequest) (*hls.LiveValuesResult, error) {
	if req == nil || len(req.TagNameList) == 0 {
		return nil, &hls.ParameterError{Position: hls.ParamBody, Name: "TagNameList", Reason: "at least one tag name is required"}
	}

	result, err := dispatch.Call[*hls.LiveValuesResult](ctx, c.engine, hls.ModuleData, hls.EndpointReadLiveValues, nil, req)
	if err != nil {
		return nil, err
	}

	// The server answers in request order without echoing the names.
	names := req.Names()
	values := result.Data.DDBTagValueList

	for i := range values {
		if i < len(names) {
			values[i].TagName = names[i]
		}
	}

	return result, nil
}

// GetLiveValuesByName implements hls.Client.GetLiveValuesByName.
func (c *Client) GetLiveValuesByName(ctx context.Context, names ...string) (*hls.LiveValuesResult, error) {
	return c.GetLiveValues(ctx, hls.NewTagNameListRequest(names...))
}
