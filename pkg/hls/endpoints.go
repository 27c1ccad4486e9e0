package hls

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
)

// ParamPosition says where an endpoint expects its parameters.
type ParamPosition string

const (
	ParamQuery  ParamPosition = "QUERY"
	ParamPath   ParamPosition = "PATH"
	ParamBody   ParamPosition = "BODY"
	ParamForm   ParamPosition = "FORM"
	ParamHeader ParamPosition = "HEADER"
	ParamNone   ParamPosition = "NONE"
)

// Valid reports whether p is a known position.
func (p ParamPosition) Valid() bool {
	switch p {
	case ParamQuery, ParamPath, ParamBody, ParamForm, ParamHeader, ParamNone:
		return true
	default:
		return false
	}
}

// EndpointID identifies an entry of the endpoint table.
type EndpointID string

// Built-in historian endpoints.
const (
	EndpointGetToken       EndpointID = "oauth.get_token"
	EndpointQueryAllTags   EndpointID = "tags.query_all"
	EndpointReadLiveValues EndpointID = "data.read_ddb_values"
	EndpointReadHistory    EndpointID = "data.read_hdb_values"
)

// EndpointDescriptor is the static metadata the dispatch engine needs to
// call one remote operation.
type EndpointDescriptor struct {
	Description    string
	Path           string
	Method         string
	PrimaryParam   ParamPosition
	SecondaryParam ParamPosition

	// RequestType is the expected body type for BODY endpoints. Nil accepts any body.
	RequestType reflect.Type

	// NewResponse allocates the envelope the response decodes into. Nil
	// decodes into a generic JSON value.
	NewResponse func() Envelope
}

// Validate checks the descriptor for configuration mistakes.
func (d EndpointDescriptor) Validate() error {
	switch {
	case d.Path == "":
		return ErrEndpointPathRequired
	case d.Method == "":
		return ErrEndpointMethodRequired
	case !d.PrimaryParam.Valid():
		return fmt.Errorf("%w: primary %q", ErrInvalidParamPosition, d.PrimaryParam)
	case !d.SecondaryParam.Valid():
		return fmt.Errorf("%w: secondary %q", ErrInvalidParamPosition, d.SecondaryParam)
	case d.PrimaryParam == ParamBody && d.SecondaryParam == ParamBody:
		return ErrMultipleBodyParams
	}

	return nil
}

var (
	endpointsMu sync.RWMutex
	endpoints   = map[EndpointID]EndpointDescriptor{
		EndpointGetToken: {
			Description:    "get token",
			Path:           "/user/get_token",
			Method:         http.MethodGet,
			PrimaryParam:   ParamHeader,
			SecondaryParam: ParamNone,
			NewResponse:    func() Envelope { return &TokenResult{} },
		},
		EndpointQueryAllTags: {
			Description:    "list all tag names",
			Path:           "/ddb/read_alltagname",
			Method:         http.MethodGet,
			PrimaryParam:   ParamNone,
			SecondaryParam: ParamNone,
			NewResponse:    func() Envelope { return &TagsResult{} },
		},
		EndpointReadLiveValues: {
			Description:    "read live tag values",
			Path:           "/ddb/read_ddbtagvalue",
			Method:         http.MethodPost,
			PrimaryParam:   ParamBody,
			SecondaryParam: ParamNone,
			RequestType:    reflect.TypeFor[TagNameListRequest](),
			NewResponse:    func() Envelope { return &LiveValuesResult{} },
		},
		EndpointReadHistory: {
			Description:    "read historical tag values",
			Path:           "/hdb/read_hdbtagvalue",
			Method:         http.MethodPost,
			PrimaryParam:   ParamBody,
			SecondaryParam: ParamNone,
			RequestType:    reflect.TypeFor[HistorianRequest](),
			NewResponse:    func() Envelope { return &HistoryResult{} },
		},
	}
)

// LookupEndpoint returns the descriptor registered under id.
func LookupEndpoint(id EndpointID) (EndpointDescriptor, bool) {
	endpointsMu.RLock()
	defer endpointsMu.RUnlock()

	d, ok := endpoints[id]

	return d, ok
}

// RegisterEndpoint adds an endpoint to the table. It should be called during
// start-up, before any client uses the endpoint.
func RegisterEndpoint(id EndpointID, d EndpointDescriptor) error {
	if id == "" {
		return ErrEndpointIDRequired
	}

	err := d.Validate()
	if err != nil {
		return &ConfigurationError{Endpoint: id, Err: err}
	}

	endpointsMu.Lock()
	defer endpointsMu.Unlock()

	if _, exists := endpoints[id]; exists {
		return fmt.Errorf("%w: %s", ErrEndpointAlreadyRegistered, id)
	}

	endpoints[id] = d

	return nil
}

// AuthScheme describes how a module authenticates its calls.
type AuthScheme struct {
	Name   string
	Header string
	Prefix string
}

// Built-in schemes.
var (
	AuthNone   = AuthScheme{Name: "none"}
	AuthCommon = AuthScheme{Name: "common", Header: "token"}
	AuthBearer = AuthScheme{Name: "bearer", Header: "Authorization", Prefix: "Bearer"}
)

// NewAuthScheme builds a token scheme sent as "{prefix} {token}" under header.
func NewAuthScheme(name, header, prefix string) AuthScheme {
	return AuthScheme{Name: name, Header: header, Prefix: prefix}
}

// RequiresToken reports whether calls under this scheme carry a token.
func (s AuthScheme) RequiresToken() bool {
	return s.Header != ""
}

// Format renders the header value for token.
func (s AuthScheme) Format(token string) string {
	if strings.TrimSpace(s.Prefix) == "" {
		return token
	}

	return s.Prefix + " " + token
}

// Module groups endpoints sharing a base path and auth scheme.
type Module struct {
	Code        string
	Description string
	BasePath    string
	Auth        AuthScheme
}

// Built-in historian modules.
var (
	ModuleData  = Module{Code: "data", Description: "data access", Auth: AuthCommon}
	ModuleTags  = Module{Code: "tags", Description: "tag management", Auth: AuthCommon}
	ModuleOAuth = Module{Code: "oauth", Description: "authentication", Auth: AuthNone}
)
