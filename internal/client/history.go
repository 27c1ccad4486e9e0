package client

import (
	"context"
	"time"

	"github.com/fivetwenty-io/hls-client/internal/dispatch"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// GetHistory implements hls.Client.GetHistory.
func (c *Client) GetHistory(ctx context.Context, req *hls.HistorianRequest) (*hls.HistoryResult, error) {
	if req == nil {
		return nil, &hls.ParameterError{Position: hls.ParamBody, Reason: "request body is required"}
	}

	err := req.Validate()
	if err != nil {
		return nil, err
	}

	result, err := dispatch.Call[*hls.HistoryResult](ctx, c.engine, hls.ModuleData, hls.EndpointReadHistory, nil, req)
	if err != nil {
		return nil, err
	}

	names := req.Names()
	series := result.Data.HDBTagValueList

	for i := range series {
		if series[i].Index >= 0 && series[i].Index < len(names) {
			series[i].TagName = names[series[i].Index]
		}
	}

	return result, nil
}

// GetHistoryByName implements hls.Client.GetHistoryByName.
func (c *Client) GetHistoryByName(ctx context.Context, start, end time.Time, interval time.Duration, agg hls.Aggregates, names ...string) (*hls.HistoryResult, error) {
	req, err := hls.NewHistorianRequest(start, end, interval, agg, names...)
	if err != nil {
		return nil, err
	}

	return c.GetHistory(ctx, req)
}

// GetHistoryAvg implements hls.Client.GetHistoryAvg.
func (c *Client) GetHistoryAvg(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*hls.HistoryResult, error) {
	return c.GetHistoryByName(ctx, start, end, interval, hls.AggregateAvg, names...)
}

// GetHistoryMin implements hls.Client.GetHistoryMin.
func (c *Client) GetHistoryMin(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*hls.HistoryResult, error) {
	return c.GetHistoryByName(ctx, start, end, interval, hls.AggregateMin, names...)
}

// GetHistoryMax implements hls.Client.GetHistoryMax.
func (c *Client) GetHistoryMax(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*hls.HistoryResult, error) {
	return c.GetHistoryByName(ctx, start, end, interval, hls.AggregateMax, names...)
}

// GetHistoryBound implements hls.Client.GetHistoryBound.
func (c *Client) GetHistoryBound(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*hls.HistoryResult, error) {
	return c.GetHistoryByName(ctx, start, end, interval, hls.AggregateBound, names...)
}

// GetHistoryAll implements hls.Client.GetHistoryAll.
func (c *Client) GetHistoryAll(ctx context.Context, start, end time.Time, interval time.Duration, names ...string) (*hls.HistoryResult, error) {
	return c.GetHistoryByName(ctx, start, end, interval, hls.AggregateAll, names...)
}
