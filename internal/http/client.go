// Package http is the transport used by the dispatch engine. It sends one
// prepared request per call with connect and read timeouts and never retries.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/hls-client/internal/constants"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// Static errors for err113 compliance.
var (
	ErrBodyReadTimeout = errors.New("response body read timed out")
)

// Request is a fully prepared outbound call.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the raw result of a call. Any status is returned as-is.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client sends requests through go-retryablehttp with retries disabled.
type Client struct {
	httpClient     *retryablehttp.Client
	base           *http.Client
	logger         hls.Logger
	debug          bool
	userAgent      string
	connectTimeout time.Duration
	readTimeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger hls.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeouts sets the connect and read timeouts. Negative disables the
// bound, zero keeps the transport default.
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = connect
		c.readTimeout = read
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.base = client
	}
}

// NewClient creates a new transport client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		logger:    hls.NoopLogger{},
		userAgent: constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = client.buildHTTPClient()
	retryClient.RetryMax = 0
	retryClient.CheckRetry = noRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if client.debug {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	} else {
		retryClient.Logger = nil
	}

	client.httpClient = retryClient

	return client
}

// buildHTTPClient copies the base client and applies the timeouts to its
// transport when it is an *http.Transport.
func (c *Client) buildHTTPClient() *http.Client {
	httpClient := &http.Client{}
	if c.base != nil {
		copied := *c.base
		httpClient = &copied
	}

	var transport *http.Transport

	switch rt := httpClient.Transport.(type) {
	case nil:
		defaultTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return httpClient
		}

		transport = defaultTransport.Clone()
	case *http.Transport:
		transport = rt.Clone()
	default:
		return httpClient
	}

	if c.connectTimeout != 0 {
		dialer := &net.Dialer{KeepAlive: constants.DialKeepAlive}
		if c.connectTimeout > 0 {
			dialer.Timeout = c.connectTimeout
		}

		transport.DialContext = dialer.DialContext
	}

	if c.readTimeout > 0 {
		transport.ResponseHeaderTimeout = c.readTimeout
	} else if c.readTimeout < 0 {
		transport.ResponseHeaderTimeout = 0
	}

	httpClient.Transport = transport

	return httpClient
}

// Do executes the request once. Timeouts are reported as *hls.TimeoutError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var body interface{}
	if len(req.Body) > 0 {
		body = req.Body
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	httpReq, err := retryablehttp.NewRequestWithContext(reqCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if req.Headers != nil {
		httpReq.Header = req.Headers.Clone()
	}

	if httpReq.Header.Get(constants.HeaderUserAgent) == "" {
		httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)
	}

	start := time.Now()

	if c.debug {
		c.logger.Debug("HTTP request", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL,
		})
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, &hls.TimeoutError{Method: req.Method, URL: req.URL, Err: err}
		}

		return nil, fmt.Errorf("executing request %s %s: %w", req.Method, req.URL, err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := c.readBody(reqCtx, resp.Body, cancel)
	if err != nil {
		if isTimeout(err) || errors.Is(err, ErrBodyReadTimeout) {
			return nil, &hls.TimeoutError{Method: req.Method, URL: req.URL, Err: err}
		}

		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug {
		c.logger.Debug("HTTP response", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL,
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
			"bytes":    len(respBody),
		})
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       bytes.TrimSpace(respBody),
	}, nil
}

// readBody reads the response body. With a read timeout set, each read must
// make progress within that timeout or the request is cancelled.
func (c *Client) readBody(ctx context.Context, body io.Reader, cancel context.CancelCauseFunc) ([]byte, error) {
	if c.readTimeout <= 0 {
		return io.ReadAll(body)
	}

	timer := time.AfterFunc(c.readTimeout, func() { cancel(ErrBodyReadTimeout) })
	defer timer.Stop()

	data, err := io.ReadAll(&idleReader{reader: body, timer: timer, timeout: c.readTimeout})
	if err != nil && errors.Is(context.Cause(ctx), ErrBodyReadTimeout) {
		return nil, fmt.Errorf("%w after %s", ErrBodyReadTimeout, c.readTimeout)
	}

	return data, err
}

// idleReader restarts the read timer after every read.
type idleReader struct {
	reader  io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.timer.Reset(r.timeout)

	return n, err
}

func noRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	return false, err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// leveledLogger adapts hls.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger hls.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
