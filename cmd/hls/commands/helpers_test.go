package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// historian answers the built-in endpoints with fixed data.
type historian struct {
	server *httptest.Server

	mu      sync.Mutex
	history []hls.HistorianRequest
}

func newHistorian(t *testing.T) *historian {
	t.Helper()

	h := &historian{}

	mux := http.NewServeMux()
	mux.HandleFunc("/hls/user/get_token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("secretkey") != "s3cret" {
			writeJSON(w, map[string]interface{}{"code": 3016, "msg": "userid or secretkey error"})

			return
		}

		writeJSON(w, map[string]interface{}{"code": 0, "msg": "ok", "Data": map[string]string{"token": "abcdefghijklmnopqrstuvwxyz"}})
	})
	mux.HandleFunc("/hls/ddb/read_alltagname", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]interface{}{"code": 0, "msg": "ok", "Data": map[string]interface{}{
			"TagNameList": []hls.TagName{
				{TagDes: "feed flow", TagName: "FIC101.PV"},
				{TagDes: "reactor temperature", TagName: "TI205.PV"},
			},
		}})
	})
	mux.HandleFunc("/hls/ddb/read_ddbtagvalue", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]interface{}{"code": 0, "msg": "ok", "data": map[string]interface{}{
			"DDBTagValueList": []map[string]interface{}{
				{"Quality": "1", "TagSize": "8", "TagType": "8", "TagValue": "12.5   ", "TagValueTime": 1709280000},
			},
		}})
	})
	mux.HandleFunc("/hls/hdb/read_hdbtagvalue", func(w http.ResponseWriter, r *http.Request) {
		var req hls.HistorianRequest

		_ = json.NewDecoder(r.Body).Decode(&req)

		h.mu.Lock()
		h.history = append(h.history, req)
		h.mu.Unlock()

		writeJSON(w, map[string]interface{}{"code": 0, "msg": "ok", "data": map[string]interface{}{
			"HDBTagValueList": []map[string]interface{}{{
				"Index":   0,
				"TagType": "8",
				"OneTagHDBValueList": []map[string]interface{}{
					{"TagValueTime": req.StartTime.Unix(), "TagValue_AVG": " 1.5 ", "TagValue_MAX": "3"},
				},
			}},
		}})
	})

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)

	return h
}

func (h *historian) lastHistory() hls.HistorianRequest {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.history[len(h.history)-1]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// useConfig resets viper to the given values and a temporary config file.
func useConfig(t *testing.T, values map[string]interface{}) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yml")
	viper.SetConfigFile(configFile)

	for k, v := range values {
		viper.Set(k, v)
	}

	return configFile
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func decodeJSON(t *testing.T, data string, v interface{}) {
	t.Helper()

	require.NoError(t, json.Unmarshal([]byte(data), v))
}
