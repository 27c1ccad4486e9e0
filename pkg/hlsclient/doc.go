// Package hlsclient is the primary entry point for constructing a historian
// client that implements the hls.Client interface.
//
// It layers configuration, HTTP transport, token management and the
// dispatch engine on top of the types defined in the hls package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//	  "time"
//
//	  "github.com/fivetwenty-io/hls-client/pkg/hls"
//	  "github.com/fivetwenty-io/hls-client/pkg/hlsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := hlsclient.NewWithCredentials(ctx, "historian.local:8080", "operator", "secret")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  end := time.Now()
//	  history, err := cli.GetHistoryAvg(ctx, end.Add(-time.Hour), end, time.Minute, "FIC101.PV")
//	  if err != nil { log.Fatal(err) }
//	  if err := hls.CheckResult(history); err != nil { log.Fatal(err) }
//
//	  for tag, samples := range hls.FlattenHistory(history, hls.SelectAvg) {
//	    log.Println(tag, len(samples))
//	  }
//	}
//
// # Configuration
//
// Pass an *hls.Config to New for full control over timeouts, token lifetime,
// logging, interceptors and the token cache backend. Timeouts are durations;
// a negative value disables the bound.
package hlsclient
