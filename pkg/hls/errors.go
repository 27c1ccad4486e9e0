package hls

import (
	"errors"
	"fmt"
	"net/http"
)

// ParameterError reports a required parameter that is missing or empty for
// the position the endpoint declares.
type ParameterError struct {
	Position ParamPosition
	Name     string
	Reason   string
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("parameter error (%s): %s", e.Position, e.Reason)
	}

	return fmt.Sprintf("parameter error (%s %s): %s", e.Position, e.Name, e.Reason)
}

// MissingParameterError reports a path placeholder without a value.
type MissingParameterError struct {
	Name string
	Path string
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing path parameter %q in %s", e.Name, e.Path)
}

// ConfigurationError reports bad or missing endpoint metadata. It signals a
// programming mistake rather than a runtime failure.
type ConfigurationError struct {
	Endpoint EndpointID
	Err      error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("endpoint %q misconfigured: %v", e.Endpoint, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// AuthenticationError reports a failed token refresh. Code and Message are
// set when the server rejected the credentials; Err when the call failed.
type AuthenticationError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token refresh failed: %v", e.Err)
	}

	return fmt.Sprintf("token refresh failed: %s (code: %d)", e.Message, e.Code)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// APICallError reports a response with a status other than 200.
type APICallError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APICallError) Error() string {
	return fmt.Sprintf("API call %s %s failed: %d - %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// TimeoutError reports an exceeded connect or read timeout.
type TimeoutError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("API call %s %s timed out: %v", e.Method, e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// DecodeError reports a body that does not match the declared response shape.
type DecodeError struct {
	Endpoint EndpointID
	Body     string
	Err      error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v (body: %s)", e.Endpoint, e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ResultError reports an envelope whose code is not SUCCESS.
type ResultError struct {
	Code    StateCode
	Message string
}

// Error implements the error interface.
func (e *ResultError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.Description()
	}

	return fmt.Sprintf("historian returned code %d: %s", int(e.Code), msg)
}

// CheckResult returns a *ResultError when env does not carry SUCCESS.
func CheckResult(env Envelope) error {
	if env == nil {
		return ErrUnexpectedResponseType
	}

	if env.ResultCode() == int(StateSuccess) {
		return nil
	}

	return &ResultError{Code: StateCode(env.ResultCode()), Message: env.ResultMessage()}
}

// Static errors for err113 compliance.
var (
	ErrConfigRequired            = errors.New("config is required")
	ErrBaseURLRequired           = errors.New("base URL is required")
	ErrEndpointIDRequired        = errors.New("endpoint id is required")
	ErrEndpointNotFound          = errors.New("endpoint not found")
	ErrEndpointAlreadyRegistered = errors.New("endpoint already registered")
	ErrEndpointPathRequired      = errors.New("endpoint path is required")
	ErrEndpointMethodRequired    = errors.New("endpoint method is required")
	ErrInvalidParamPosition      = errors.New("invalid parameter position")
	ErrMultipleBodyParams        = errors.New("at most one parameter position may be BODY")
	ErrUnexpectedResponseType    = errors.New("unexpected response type")
	ErrNotAuthenticated          = errors.New("not authenticated")
)

// IsUnauthorized reports whether err is an HTTP 401 from the historian.
func IsUnauthorized(err error) bool {
	callErr := &APICallError{}
	if errors.As(err, &callErr) {
		return callErr.StatusCode == http.StatusUnauthorized
	}

	return false
}

// IsTimeout reports whether err is a connect or read timeout.
func IsTimeout(err error) bool {
	timeoutErr := &TimeoutError{}

	return errors.As(err, &timeoutErr)
}

// IsTokenInvalid reports whether an envelope carries the rejected-token code.
func IsTokenInvalid(env Envelope) bool {
	return env != nil && env.ResultCode() == int(StateTokenInvalid)
}
