// Package dispatch implements the generic call path shared by every
// historian endpoint: descriptor lookup, parameter placement, token
// injection, transport and decoding.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/fivetwenty-io/hls-client/internal/constants"
	hlshttp "github.com/fivetwenty-io/hls-client/internal/http"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// Transport sends one prepared request.
type Transport interface {
	Do(ctx context.Context, req *hlshttp.Request) (*hlshttp.Response, error)
}

// TokenSource supplies and invalidates the shared access token.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

// Engine executes calls described by the endpoint table.
type Engine struct {
	baseURL      string
	transport    Transport
	tokens       TokenSource
	interceptors *hls.InterceptorChain
	logger       hls.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger hls.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithInterceptors sets the interceptor chain run around every call.
func WithInterceptors(chain *hls.InterceptorChain) Option {
	return func(e *Engine) {
		e.interceptors = chain
	}
}

// WithTokenSource sets the token source used by token-authenticated modules.
func WithTokenSource(tokens TokenSource) Option {
	return func(e *Engine) {
		e.tokens = tokens
	}
}

// New creates an engine calling baseURL through transport.
func New(baseURL string, transport Transport, opts ...Option) (*Engine, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, hls.ErrBaseURLRequired
	}

	if transport == nil {
		transport = hlshttp.NewClient()
	}

	engine := &Engine{
		baseURL:   baseURL,
		transport: transport,
		logger:    hls.NoopLogger{},
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine, nil
}

// SetTokenSource installs the token source. The token manager itself calls
// through the engine, so it is wired after both exist.
func (e *Engine) SetTokenSource(tokens TokenSource) {
	e.tokens = tokens
}

// BaseURL returns the normalized base URL.
func (e *Engine) BaseURL() string {
	return e.baseURL
}

// Execute performs one call and returns the decoded response: the
// descriptor's envelope type, or a generic JSON value when the descriptor
// declares none. A decoded envelope is returned whatever its code.
func (e *Engine) Execute(ctx context.Context, module hls.Module, id hls.EndpointID, params hls.Params, body interface{}) (interface{}, error) {
	descriptor, err := lookup(id)
	if err != nil {
		return nil, err
	}

	call := &callBuilder{
		path:    descriptor.Path,
		headers: make(http.Header),
	}

	for _, position := range []hls.ParamPosition{descriptor.PrimaryParam, descriptor.SecondaryParam} {
		err = call.place(position, descriptor, params, body)
		if err != nil {
			return nil, err
		}
	}

	call.headers.Set(constants.HeaderContentType, constants.ContentTypeJSON)

	if module.Auth.RequiresToken() {
		token, tokenErr := e.token(ctx)
		if tokenErr != nil {
			return nil, tokenErr
		}

		call.headers.Set(module.Auth.Header, module.Auth.Format(token))
	}

	req := &hls.Request{
		Endpoint: id,
		Module:   module.Code,
		Method:   descriptor.Method,
		URL:      e.baseURL + module.BasePath + call.url(),
		Headers:  call.headers,
		Body:     call.body,
	}

	err = e.interceptors.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := e.transport.Do(ctx, &hlshttp.Request{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Body:    req.Body,
	})
	if err != nil {
		_ = e.interceptors.ExecuteResponseInterceptors(ctx, req, &hls.Response{Error: err})

		return nil, err
	}

	err = e.interceptors.ExecuteResponseInterceptors(ctx, req, &hls.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	})
	if err != nil {
		return nil, err
	}

	return e.decode(ctx, id, descriptor, req, resp)
}

func (e *Engine) token(ctx context.Context) (string, error) {
	if e.tokens == nil {
		return "", hls.ErrNotAuthenticated
	}

	return e.tokens.GetValidToken(ctx)
}

func (e *Engine) decode(ctx context.Context, id hls.EndpointID, descriptor hls.EndpointDescriptor, req *hls.Request, resp *hlshttp.Response) (interface{}, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		e.clearToken(ctx, id, "unauthorized response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &hls.APICallError{
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}

	if descriptor.NewResponse == nil {
		var generic interface{}

		err := json.Unmarshal(resp.Body, &generic)
		if err != nil {
			return nil, &hls.DecodeError{Endpoint: id, Body: string(resp.Body), Err: err}
		}

		return generic, nil
	}

	envelope := descriptor.NewResponse()

	err := json.Unmarshal(resp.Body, envelope)
	if err != nil {
		return nil, &hls.DecodeError{Endpoint: id, Body: string(resp.Body), Err: err}
	}

	if hls.IsTokenInvalid(envelope) {
		e.clearToken(ctx, id, envelope.ResultMessage())
	}

	return envelope, nil
}

func (e *Engine) clearToken(ctx context.Context, id hls.EndpointID, reason string) {
	if e.tokens == nil {
		return
	}

	e.logger.Warn("Token rejected, clearing cached token", map[string]interface{}{
		"endpoint": string(id),
		"reason":   reason,
	})

	err := e.tokens.ClearToken(ctx)
	if err != nil {
		e.logger.Error("Failed to clear cached token", map[string]interface{}{
			"endpoint": string(id),
			"error":    err.Error(),
		})
	}
}

// Call executes an endpoint and asserts the decoded envelope type.
func Call[T hls.Envelope](ctx context.Context, e *Engine, module hls.Module, id hls.EndpointID, params hls.Params, body interface{}) (T, error) {
	var zero T

	out, err := e.Execute(ctx, module, id, params, body)
	if err != nil {
		return zero, err
	}

	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", hls.ErrUnexpectedResponseType, id, out)
	}

	return typed, nil
}

func lookup(id hls.EndpointID) (hls.EndpointDescriptor, error) {
	if id == "" {
		return hls.EndpointDescriptor{}, &hls.ConfigurationError{Endpoint: id, Err: hls.ErrEndpointIDRequired}
	}

	descriptor, ok := hls.LookupEndpoint(id)
	if !ok {
		return hls.EndpointDescriptor{}, &hls.ConfigurationError{Endpoint: id, Err: hls.ErrEndpointNotFound}
	}

	err := descriptor.Validate()
	if err != nil {
		return hls.EndpointDescriptor{}, &hls.ConfigurationError{Endpoint: id, Err: err}
	}

	return descriptor, nil
}

var placeholderPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// callBuilder accumulates the pieces of a request while parameters are placed.
type callBuilder struct {
	path    string
	query   url.Values
	headers http.Header
	body    []byte
}

func (b *callBuilder) url() string {
	if len(b.query) == 0 {
		return b.path
	}

	separator := "?"
	if strings.Contains(b.path, "?") {
		separator = "&"
	}

	return b.path + separator + b.query.Encode()
}

func (b *callBuilder) place(position hls.ParamPosition, descriptor hls.EndpointDescriptor, params hls.Params, body interface{}) error {
	switch position {
	case hls.ParamNone:
		return nil
	case hls.ParamBody:
		return b.placeBody(descriptor, body)
	}

	if len(params) == 0 {
		return &hls.ParameterError{Position: position, Reason: "parameters are required"}
	}

	switch position {
	case hls.ParamQuery:
		if b.query == nil {
			b.query = make(url.Values)
		}

		for name, value := range params {
			b.query.Set(name, cast.ToString(value))
		}

	case hls.ParamPath:
		return b.placePath(params)

	case hls.ParamForm:
		form := make(url.Values)
		for name, value := range params {
			form.Set(name, cast.ToString(value))
		}

		b.body = []byte(form.Encode())

	case hls.ParamHeader:
		for name, value := range params {
			b.headers.Set(name, cast.ToString(value))
		}

	default:
		return fmt.Errorf("%w: %q", hls.ErrInvalidParamPosition, position)
	}

	return nil
}

func (b *callBuilder) placePath(params hls.Params) error {
	for _, match := range placeholderPattern.FindAllStringSubmatch(b.path, -1) {
		if _, ok := params[match[1]]; !ok {
			return &hls.MissingParameterError{Name: match[1], Path: b.path}
		}
	}

	b.path = placeholderPattern.ReplaceAllStringFunc(b.path, func(placeholder string) string {
		name := placeholder[1 : len(placeholder)-1]

		return url.PathEscape(cast.ToString(params[name]))
	})

	return nil
}

func (b *callBuilder) placeBody(descriptor hls.EndpointDescriptor, body interface{}) error {
	if isEmptyBody(body) {
		return &hls.ParameterError{Position: hls.ParamBody, Reason: "request body is required"}
	}

	switch v := body.(type) {
	case string:
		b.body = []byte(v)

		return nil
	case json.RawMessage:
		b.body = v

		return nil
	case []byte:
		b.body = v

		return nil
	}

	if descriptor.RequestType != nil {
		bodyType := reflect.TypeOf(body)
		for bodyType.Kind() == reflect.Pointer {
			bodyType = bodyType.Elem()
		}

		if bodyType != descriptor.RequestType {
			return &hls.ParameterError{
				Position: hls.ParamBody,
				Reason:   fmt.Sprintf("expected %s, got %T", descriptor.RequestType, body),
			}
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return &hls.ParameterError{Position: hls.ParamBody, Reason: "encoding body: " + err.Error()}
	}

	b.body = data

	return nil
}

func isEmptyBody(body interface{}) bool {
	if body == nil {
		return true
	}

	v := reflect.ValueOf(body)
	switch v.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
