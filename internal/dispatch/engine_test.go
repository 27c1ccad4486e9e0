package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hls-client/internal/dispatch"
	hlshttp "github.com/fivetwenty-io/hls-client/internal/http"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

const baseURL = "http://historian.test:8080/hls"

const (
	endpointQuery         hls.EndpointID = "test.query"
	endpointQueryExisting hls.EndpointID = "test.query_existing"
	endpointPath          hls.EndpointID = "test.path"
	endpointForm          hls.EndpointID = "test.form"
	endpointRawBody       hls.EndpointID = "test.raw_body"
)

var registerOnce sync.Once

func registerTestEndpoints(t *testing.T) {
	t.Helper()

	registerOnce.Do(func() {
		for id, descriptor := range map[hls.EndpointID]hls.EndpointDescriptor{
			endpointQuery: {
				Path: "/items", Method: http.MethodGet,
				PrimaryParam: hls.ParamQuery, SecondaryParam: hls.ParamNone,
			},
			endpointQueryExisting: {
				Path: "/items?fixed=1", Method: http.MethodGet,
				PrimaryParam: hls.ParamQuery, SecondaryParam: hls.ParamNone,
			},
			endpointPath: {
				Path: "/tags/{tag}/values", Method: http.MethodGet,
				PrimaryParam: hls.ParamPath, SecondaryParam: hls.ParamQuery,
			},
			endpointForm: {
				Path: "/form", Method: http.MethodPost,
				PrimaryParam: hls.ParamForm, SecondaryParam: hls.ParamHeader,
				NewResponse: func() hls.Envelope { return &hls.Result{} },
			},
			endpointRawBody: {
				Path: "/raw", Method: http.MethodPost,
				PrimaryParam: hls.ParamBody, SecondaryParam: hls.ParamNone,
				NewResponse: func() hls.Envelope { return &hls.Result{} },
			},
		} {
			require.NoError(t, hls.RegisterEndpoint(id, descriptor))
		}
	})
}

// recordingTransport counts calls and answers with a canned response.
type recordingTransport struct {
	mu      sync.Mutex
	calls   []*hlshttp.Request
	respond func(req *hlshttp.Request) (*hlshttp.Response, error)
}

func (r *recordingTransport) Do(_ context.Context, req *hlshttp.Request) (*hlshttp.Response, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	r.mu.Unlock()

	if r.respond == nil {
		return &hlshttp.Response{StatusCode: http.StatusOK, Body: []byte(`{"code":0,"msg":"ok"}`)}, nil
	}

	return r.respond(req)
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}

func (r *recordingTransport) last() *hlshttp.Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls[len(r.calls)-1]
}

func respondWith(status int, body string) func(*hlshttp.Request) (*hlshttp.Response, error) {
	return func(*hlshttp.Request) (*hlshttp.Response, error) {
		return &hlshttp.Response{StatusCode: status, Body: []byte(body)}, nil
	}
}

type fakeTokens struct {
	mu      sync.Mutex
	token   string
	err     error
	gets    int
	cleared int
}

func (f *fakeTokens) GetValidToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++

	return f.token, f.err
}

func (f *fakeTokens) ClearToken(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cleared++

	return nil
}

func newEngine(t *testing.T, transport *recordingTransport, tokens *fakeTokens, opts ...dispatch.Option) *dispatch.Engine {
	t.Helper()
	registerTestEndpoints(t)

	opts = append(opts, dispatch.WithTokenSource(tokens))
	engine, err := dispatch.New(baseURL+"/", transport, opts...)
	require.NoError(t, err)

	return engine
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := dispatch.New("  ", &recordingTransport{})
	require.ErrorIs(t, err, hls.ErrBaseURLRequired)

	engine, err := dispatch.New("http://h/", &recordingTransport{})
	require.NoError(t, err)
	assert.Equal(t, "http://h", engine.BaseURL())
}

func TestExecute_UnknownEndpoint(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{}
	engine := newEngine(t, transport, &fakeTokens{token: "tok"})

	_, err := engine.Execute(context.Background(), hls.ModuleData, "no.such.endpoint", nil, nil)

	var configErr *hls.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.ErrorIs(t, err, hls.ErrEndpointNotFound)
	assert.Equal(t, 0, transport.count())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestExecute_Authentication(t *testing.T) {
	t.Parallel()

	t.Run("common scheme sends raw token", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusOK,
			`{"code":0,"msg":"ok","Data":{"TagNameList":[{"TagDes":"flow","TagName":"FIC101"}]}}`)}
		tokens := &fakeTokens{token: "tok-1"}
		engine := newEngine(t, transport, tokens)

		tags, err := dispatch.Call[*hls.TagsResult](context.Background(), engine, hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"FIC101"}, tags.Names())

		req := transport.last()
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, baseURL+"/ddb/read_alltagname", req.URL)
		assert.Equal(t, "tok-1", req.Headers.Get("token"))
		assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
		assert.Nil(t, req.Body)
	})

	t.Run("bearer scheme prefixes token", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok-2"})
		module := hls.Module{Code: "v2", BasePath: "/v2", Auth: hls.AuthBearer}

		_, err := engine.Execute(context.Background(), module, hls.EndpointQueryAllTags, nil, nil)
		require.NoError(t, err)

		req := transport.last()
		assert.Equal(t, baseURL+"/v2/ddb/read_alltagname", req.URL)
		assert.Equal(t, "Bearer tok-2", req.Headers.Get("Authorization"))
	})

	t.Run("none scheme never asks for a token", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusOK, `{"code":0,"msg":"ok","Data":{"token":"abc"}}`)}
		tokens := &fakeTokens{token: "unused"}
		engine := newEngine(t, transport, tokens)

		result, err := dispatch.Call[*hls.TokenResult](context.Background(), engine, hls.ModuleOAuth, hls.EndpointGetToken,
			hls.Params{"userid": "operator", "secretkey": "s3cret"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "abc", result.Data.Token)
		assert.Equal(t, 0, tokens.gets)

		req := transport.last()
		assert.Equal(t, "operator", req.Headers.Get("userid"))
		assert.Equal(t, "s3cret", req.Headers.Get("secretkey"))
		assert.Empty(t, req.Headers.Get("token"))
	})

	t.Run("token failure aborts before the network", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		authErr := &hls.AuthenticationError{Code: 3016, Message: "bad secret"}
		engine := newEngine(t, transport, &fakeTokens{err: authErr})

		_, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.ErrorIs(t, err, authErr)
		assert.Equal(t, 0, transport.count())
	})

	t.Run("missing token source", func(t *testing.T) {
		t.Parallel()

		registerTestEndpoints(t)

		engine, err := dispatch.New(baseURL, &recordingTransport{})
		require.NoError(t, err)

		_, err = engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.ErrorIs(t, err, hls.ErrNotAuthenticated)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestExecute_ParameterPlacement(t *testing.T) {
	t.Parallel()

	t.Run("query appended with question mark", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, endpointQuery, hls.Params{"name": "a b", "limit": 10}, nil)
		require.NoError(t, err)
		assert.Equal(t, baseURL+"/items?limit=10&name=a+b", transport.last().URL)
	})

	t.Run("query appended with ampersand", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, endpointQueryExisting, hls.Params{"page": 2}, nil)
		require.NoError(t, err)
		assert.Equal(t, baseURL+"/items?fixed=1&page=2", transport.last().URL)
	})

	t.Run("query without params", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, endpointQuery, nil, nil)

		var paramErr *hls.ParameterError
		require.ErrorAs(t, err, &paramErr)
		assert.Equal(t, hls.ParamQuery, paramErr.Position)
		assert.Equal(t, 0, transport.count())
	})

	t.Run("path substitution and secondary query", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, endpointPath, hls.Params{"tag": "FIC 101/PV"}, nil)
		require.NoError(t, err)
		assert.Equal(t, baseURL+"/tags/FIC%20101%2FPV/values?tag=FIC+101%2FPV", transport.last().URL)
	})

	t.Run("path placeholder without value", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, endpointPath, hls.Params{"other": "x"}, nil)

		var missing *hls.MissingParameterError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "tag", missing.Name)
		assert.Equal(t, 0, transport.count())
	})

	t.Run("form with header secondary", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, endpointForm, hls.Params{"tag": "A", "n": 3}, nil)
		require.NoError(t, err)

		req := transport.last()
		assert.Equal(t, "n=3&tag=A", string(req.Body))
		assert.Equal(t, "A", req.Headers.Get("tag"))
		assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
	})

	t.Run("header overwrites", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleOAuth, hls.EndpointGetToken,
			hls.Params{"Content-Type": "text/plain", "userid": 42}, nil)
		require.NoError(t, err)

		req := transport.last()
		assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
		assert.Equal(t, []string{"42"}, req.Headers.Values("userid"))
	})

	t.Run("header without params", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleOAuth, hls.EndpointGetToken, hls.Params{}, nil)

		var paramErr *hls.ParameterError
		require.ErrorAs(t, err, &paramErr)
		assert.Equal(t, hls.ParamHeader, paramErr.Position)
		assert.Equal(t, 0, transport.count())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestExecute_Body(t *testing.T) {
	t.Parallel()

	emptyBodies := map[string]interface{}{
		"nil":         nil,
		"nil pointer": (*hls.TagNameListRequest)(nil),
		"nil map":     map[string]string(nil),
		"empty":       "",
		"empty bytes": []byte{},
		"empty raw":   json.RawMessage{},
		"empty map":   map[string]any{},
		"empty slice": []string{},
	}

	for name, body := range emptyBodies {
		t.Run("rejects "+name, func(t *testing.T) {
			t.Parallel()

			transport := &recordingTransport{}
			engine := newEngine(t, transport, &fakeTokens{token: "tok"})

			_, err := engine.Execute(context.Background(), hls.ModuleData, endpointRawBody, nil, body)

			var paramErr *hls.ParameterError
			require.ErrorAs(t, err, &paramErr)
			assert.Equal(t, hls.ParamBody, paramErr.Position)
			assert.Equal(t, 0, transport.count())
		})
	}

	t.Run("rejects mismatched request type", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, hls.EndpointReadHistory, nil, hls.NewTagNameListRequest("A"))

		var paramErr *hls.ParameterError
		require.ErrorAs(t, err, &paramErr)
		assert.Equal(t, 0, transport.count())
	})

	t.Run("typed body encoded as json", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, hls.EndpointReadLiveValues, nil, hls.NewTagNameListRequest("A", "B"))
		require.NoError(t, err)

		req := transport.last()
		assert.Equal(t, http.MethodPost, req.Method)
		assert.JSONEq(t, `{"TagNameList":[{"TagName":"A"},{"TagName":"B"}]}`, string(req.Body))
	})

	t.Run("value body matches request type", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, hls.EndpointReadLiveValues, nil, *hls.NewTagNameListRequest("A"))
		require.NoError(t, err)
	})

	t.Run("string body sent verbatim", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleData, hls.EndpointReadLiveValues, nil, `{"TagNameList":[]}`)
		require.NoError(t, err)
		assert.Equal(t, `{"TagNameList":[]}`, string(transport.last().Body))
	})

	t.Run("enums use their string form", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		body := struct {
			Type    hls.TagType `json:"TagType"`
			Quality hls.Quality `json:"Quality"`
		}{Type: hls.TagType(8), Quality: hls.QualityGood}

		_, err := engine.Execute(context.Background(), hls.ModuleData, endpointRawBody, nil, body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"TagType":"8","Quality":"1"}`, string(transport.last().Body))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestExecute_Responses(t *testing.T) {
	t.Parallel()

	t.Run("non 200 status", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusInternalServerError, "boom")}
		tokens := &fakeTokens{token: "tok"}
		engine := newEngine(t, transport, tokens)

		_, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)

		var callErr *hls.APICallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, http.StatusInternalServerError, callErr.StatusCode)
		assert.Equal(t, "boom", callErr.Body)
		assert.Equal(t, 0, tokens.cleared)
	})

	t.Run("401 clears the token without retry", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusUnauthorized, "expired")}
		tokens := &fakeTokens{token: "tok"}
		engine := newEngine(t, transport, tokens)

		_, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.Error(t, err)
		assert.True(t, hls.IsUnauthorized(err))
		assert.Equal(t, 1, tokens.cleared)
		assert.Equal(t, 1, transport.count())
	})

	t.Run("4004 clears the token and returns the envelope", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusOK, `{"code":4004,"msg":"token invalid"}`)}
		tokens := &fakeTokens{token: "tok"}
		engine := newEngine(t, transport, tokens)

		tags, err := dispatch.Call[*hls.TagsResult](context.Background(), engine, hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, hls.StateTokenInvalid, tags.State())
		assert.False(t, tags.Success())
		assert.Equal(t, 1, tokens.cleared)
	})

	t.Run("other failure codes keep the token", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusOK, `{"code":4001,"msg":"not found"}`)}
		tokens := &fakeTokens{token: "tok"}
		engine := newEngine(t, transport, tokens)

		out, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 4001, out.(hls.Envelope).ResultCode())
		assert.Equal(t, 0, tokens.cleared)
	})

	t.Run("generic json without response type", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusOK, `{"code":0,"items":[1,2]}`)}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		out, err := engine.Execute(context.Background(), hls.ModuleData, endpointQuery, hls.Params{"q": "x"}, nil)
		require.NoError(t, err)

		generic, ok := out.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, []interface{}{float64(1), float64(2)}, generic["items"])
	})

	t.Run("decode error keeps the body", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: respondWith(http.StatusOK, `<html>`)}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)

		var decodeErr *hls.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, "<html>", decodeErr.Body)
		assert.Equal(t, hls.EndpointQueryAllTags, decodeErr.Endpoint)
	})

	t.Run("timeout passes through", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{respond: func(req *hlshttp.Request) (*hlshttp.Response, error) {
			return nil, &hls.TimeoutError{Method: req.Method, URL: req.URL, Err: context.DeadlineExceeded}
		}}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.Error(t, err)
		assert.True(t, hls.IsTimeout(err))
		assert.Equal(t, 1, transport.count())
	})

	t.Run("typed call with wrong type", func(t *testing.T) {
		t.Parallel()

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"})

		_, err := dispatch.Call[*hls.HistoryResult](context.Background(), engine, hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.ErrorIs(t, err, hls.ErrUnexpectedResponseType)
	})
}

func TestExecute_Interceptors(t *testing.T) {
	t.Parallel()

	t.Run("request and response hooks", func(t *testing.T) {
		t.Parallel()

		chain := hls.NewInterceptorChain()
		chain.AddRequestInterceptor(hls.HeaderInterceptor(map[string]string{"X-Plant": "north"}))
		chain.AddRequestInterceptor(hls.RequestIDInterceptor())

		var seenStatus int

		chain.AddResponseInterceptor(func(_ context.Context, req *hls.Request, resp *hls.Response) error {
			assert.Equal(t, hls.EndpointQueryAllTags, req.Endpoint)
			seenStatus = resp.StatusCode

			return nil
		})

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"}, dispatch.WithInterceptors(chain))

		_, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.NoError(t, err)

		req := transport.last()
		assert.Equal(t, "north", req.Headers.Get("X-Plant"))
		assert.NotEmpty(t, req.Headers.Get("X-Request-ID"))
		assert.Equal(t, http.StatusOK, seenStatus)
	})

	t.Run("failing request hook aborts", func(t *testing.T) {
		t.Parallel()

		errBlocked := errors.New("blocked")
		chain := hls.NewInterceptorChain()
		chain.AddRequestInterceptor(func(context.Context, *hls.Request) error { return errBlocked })

		transport := &recordingTransport{}
		engine := newEngine(t, transport, &fakeTokens{token: "tok"}, dispatch.WithInterceptors(chain))

		_, err := engine.Execute(context.Background(), hls.ModuleTags, hls.EndpointQueryAllTags, nil, nil)
		require.ErrorIs(t, err, errBlocked)
		assert.Equal(t, 0, transport.count())
	})
}
