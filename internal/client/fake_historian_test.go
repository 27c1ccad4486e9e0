package client_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// fakeHistorian is an in-process historian answering the built-in endpoints.
type fakeHistorian struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	requests      map[string]int
	issued        int
	currentToken  string
	rejectNext    int
	unauthorized  int
	secretKey     string
	tags          []hls.TagName
	historyBodies []hls.HistorianRequest
}

func newFakeHistorian(t *testing.T) *fakeHistorian {
	t.Helper()

	f := &fakeHistorian{
		t:         t,
		requests:  make(map[string]int),
		secretKey: "s3cret",
		tags: []hls.TagName{
			{TagDes: "feed flow", TagName: "FIC101.PV"},
			{TagDes: "reactor temperature", TagName: "TI205.PV"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/hls/user/get_token", f.getToken)
	mux.HandleFunc("/hls/ddb/read_alltagname", f.authorized(f.readAllTagNames))
	mux.HandleFunc("/hls/ddb/read_ddbtagvalue", f.authorized(f.readLiveValues))
	mux.HandleFunc("/hls/hdb/read_hdbtagvalue", f.authorized(f.readHistory))

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.URL.Path]++
		f.mu.Unlock()

		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeHistorian) baseURL() string {
	return f.server.URL + "/hls"
}

func (f *fakeHistorian) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests["/hls"+path]
}

func (f *fakeHistorian) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.requests {
		n += c
	}

	return n
}

func (f *fakeHistorian) historyBody(i int) hls.HistorianRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.historyBodies[i]
}

// rejectTokens makes the next n data calls answer with code 4004.
func (f *fakeHistorian) rejectTokens(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rejectNext = n
}

// expireTokens makes the next n data calls answer with HTTP 401.
func (f *fakeHistorian) expireTokens(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unauthorized = n
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeHistorian) getToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)

		return
	}

	if r.Header.Get("secretkey") != f.secretKey || r.Header.Get("userid") == "" {
		writeJSON(w, map[string]interface{}{"code": 3016, "msg": "userid or secretkey error"})

		return
	}

	f.mu.Lock()
	f.issued++
	f.currentToken = "token-" + strconv.Itoa(f.issued)
	token := f.currentToken
	f.mu.Unlock()

	writeJSON(w, map[string]interface{}{"code": 0, "msg": "ok", "Data": map[string]string{"token": token}})
}

func (f *fakeHistorian) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			writeJSON(w, map[string]interface{}{"code": int(hls.StateContentTypeNotJSON), "msg": "content type is not json"})

			return
		}

		f.mu.Lock()
		current := f.currentToken
		unauthorized := f.unauthorized > 0
		if unauthorized {
			f.unauthorized--
		}
		reject := f.rejectNext > 0
		if reject {
			f.rejectNext--
		}
		f.mu.Unlock()

		switch {
		case unauthorized:
			http.Error(w, "token expired", http.StatusUnauthorized)
		case reject || r.Header.Get("token") != current:
			writeJSON(w, map[string]interface{}{"code": int(hls.StateTokenInvalid), "msg": "invalid token"})
		default:
			next(w, r)
		}
	}
}

func (f *fakeHistorian) readAllTagNames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{
		"code": 0,
		"msg":  "ok",
		"Data": map[string]interface{}{"TagNameList": f.tags},
	})
}

func (f *fakeHistorian) readLiveValues(w http.ResponseWriter, r *http.Request) {
	var req hls.TagNameListRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	values := make([]map[string]interface{}, 0, len(req.TagNameList))
	for i := range req.TagNameList {
		values = append(values, map[string]interface{}{
			"Quality":      "1",
			"TagSize":      "4",
			"TagType":      "8",
			"TagValue":     fmt.Sprintf("%d.5   ", i+1),
			"TagValueTime": 1709280000,
		})
	}

	writeJSON(w, map[string]interface{}{
		"code": 0,
		"msg":  "ok",
		"data": map[string]interface{}{"DDBTagValueList": values},
	})
}

// readHistory answers one point per interval, both window ends included,
// and lists the series in reverse request order.
func (f *fakeHistorian) readHistory(w http.ResponseWriter, r *http.Request) {
	var req hls.HistorianRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	f.mu.Lock()
	f.historyBodies = append(f.historyBodies, req)
	f.mu.Unlock()

	step := time.Duration(req.Interval) * time.Second
	if step <= 0 {
		step = time.Second
	}
	series := make([]map[string]interface{}, 0, len(req.TagNameList))

	for index := len(req.TagNameList) - 1; index >= 0; index-- {
		points := make([]map[string]interface{}, 0)

		for ts, n := req.StartTime.Time, 0; !ts.After(req.EndTime.Time); ts, n = ts.Add(step), n+1 {
			point := map[string]interface{}{"TagValueTime": ts.Unix()}
			if req.NeedQueryAVG {
				point["TagValue_AVG"] = fmt.Sprintf(" %d.%d ", index, n)
			}

			if req.NeedQueryMAX {
				point["TagValue_MAX"] = strconv.Itoa(100 + n)
				point["Quality_MAX"] = "1"
			}

			if req.NeedQueryMIN {
				point["TagValue_MIN"] = strconv.Itoa(n)
				point["Quality_MIN"] = "1"
			}

			if req.NeedQueryBound {
				point["TagValue_Bound"] = strconv.Itoa(50 + n)
				point["Quality_Bound"] = "0"
			}

			points = append(points, point)
		}

		series = append(series, map[string]interface{}{
			"Index":              index,
			"TagType":            "8",
			"OneTagHDBValueList": points,
		})
	}

	writeJSON(w, map[string]interface{}{
		"code": 0,
		"msg":  "ok",
		"data": map[string]interface{}{"HDBTagValueList": series},
	})
}
