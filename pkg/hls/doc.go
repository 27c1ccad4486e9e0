// Package hls provides types, interfaces, and helpers for working with an
// HLS industrial historian.
//
// # Overview
//
// The hls package defines the endpoint table (EndpointDescriptor, Module,
// AuthScheme), the request and response types (TagNameListRequest,
// HistorianRequest, TagsResult, LiveValuesResult, HistoryResult), the error
// taxonomy, and the token cache backends. A concrete Client is provided by
// the hlsclient package, which wires configuration, transport, token
// management and the dispatch engine.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/hls-client/pkg/hls"
//	  "github.com/fivetwenty-io/hls-client/pkg/hlsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := hlsclient.New(ctx, &hls.Config{
//	    BaseURL:   "http://historian.local:8080",
//	    UserID:    "operator",
//	    SecretKey: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  live, err := cli.GetLiveValuesByName(ctx, "FIC101.PV", "TI205.PV")
//	  if err != nil { log.Fatal(err) }
//	  _ = hls.FlattenLiveValues(live.Data.DDBTagValueList)
//	}
//
// # Tokens
//
// Every call to a module with a token scheme obtains the token from the
// shared cache. When the cache is empty, exactly one refresh runs per
// client even under concurrent use. A 401 response or a 4004 result code
// drops the cached token; the failing call is not retried.
//
// # Cache backends
//
// The in-process MemoryCache is the default. NATSKVCache shares the token
// between processes through a NATS JetStream key-value bucket:
//
//	cfg.Cache = hls.NewCacheBuilder().
//	  WithType(hls.CacheTypeNATS).
//	  WithNATSConfig(&hls.NATSKVConfig{URL: "nats://127.0.0.1:4222"}).
//	  Config()
//
// # Custom endpoints
//
// RegisterEndpoint adds endpoints to the table; Client.Execute calls them:
//
//	_ = hls.RegisterEndpoint("data.read_tag_info", hls.EndpointDescriptor{
//	  Path:           "/ddb/read_taginfo/{tag}",
//	  Method:         http.MethodGet,
//	  PrimaryParam:   hls.ParamPath,
//	  SecondaryParam: hls.ParamNone,
//	})
//	raw, err := cli.Execute(ctx, hls.ModuleData, "data.read_tag_info", hls.Params{"tag": "FIC101.PV"}, nil)
package hls
