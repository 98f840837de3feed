package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/goccy/go-json"
)

// Kind classifies a failed vendor response.
type Kind int

const (
	KindGeneric Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnprocessableEntity
	KindRateLimited
	KindInternalServerError
	KindNotImplemented
	KindBadGateway
	KindServiceUnavailable
	KindGatewayTimeout
)

type kindInfo struct {
	name      string
	status    int
	retryable bool
	message   string
}

var kinds = map[Kind]kindInfo{
	KindGeneric:             {"generic", 0, false, "Unknown Error"},
	KindBadRequest:          {"bad_request", 400, false, "A validation exception has occurred."},
	KindUnauthorized:        {"unauthorized", 401, false, "The access token provided is expired, revoked, malformed or invalid for other reasons."},
	KindForbidden:           {"forbidden", 403, false, "You are missing the following required scopes: read"},
	KindNotFound:            {"not_found", 404, false, "The resource you have specified cannot be found."},
	KindConflict:            {"conflict", 409, false, "The API request cannot be completed because the requested operation would conflict with an existing item."},
	KindUnprocessableEntity: {"unprocessable_entity", 422, true, "The request content itself is not processable by the server."},
	KindRateLimited:         {"rate_limited", 429, true, "The API rate limit for your organisation/application pairing has been exceeded."},
	KindInternalServerError: {"internal_server_error", 500, true, "The server encountered an unexpected condition which prevented it from fulfilling the request."},
	KindNotImplemented:      {"not_implemented", 501, true, "The server does not support the functionality required to fulfill the request."},
	KindBadGateway:          {"bad_gateway", 502, true, "Server received an invalid response."},
	KindServiceUnavailable:  {"service_unavailable", 503, true, "API service is currently unavailable."},
	KindGatewayTimeout:      {"gateway_timeout", 504, true, "API request timed out after waiting for a response."},
}

var kindByStatus = func() map[int]Kind {
	m := make(map[int]Kind, len(kinds))
	for k, info := range kinds {
		if info.status != 0 {
			m[info.status] = k
		}
	}
	return m
}()

func (k Kind) String() string { return kinds[k].name }

func (k Kind) Retryable() bool { return kinds[k].retryable }

// DefaultMessage is used when the response body carries no detail.
func (k Kind) DefaultMessage() string { return kinds[k].message }

// KindForStatus maps an HTTP status to its kind; unmapped codes are generic.
func KindForStatus(status int) Kind {
	if k, ok := kindByStatus[status]; ok {
		return k
	}
	return KindGeneric
}

// Sentinels for errors.Is comparisons.
var (
	ErrGeneric             = &Error{Kind: KindGeneric}
	ErrBadRequest          = &Error{Kind: KindBadRequest}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrUnprocessableEntity = &Error{Kind: KindUnprocessableEntity}
	ErrRateLimited         = &Error{Kind: KindRateLimited}
	ErrInternalServerError = &Error{Kind: KindInternalServerError}
	ErrNotImplemented      = &Error{Kind: KindNotImplemented}
	ErrBadGateway          = &Error{Kind: KindBadGateway}
	ErrServiceUnavailable  = &Error{Kind: KindServiceUnavailable}
	ErrGatewayTimeout      = &Error{Kind: KindGatewayTimeout}
)

// Error is a non-success vendor response.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Code and Details are the vendor error fields, when present.
	Code     string
	Details  string
	Response map[string]any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// RaiseForStatus returns nil for 200, 201 and 204, and a typed *Error otherwise.
func RaiseForStatus(status int, body []byte) error {
	switch status {
	case 200, 201, 204:
		return nil
	}

	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
			payload = map[string]any{}
		}
	}

	kind := KindForStatus(status)
	detail := firstString(payload, "details", "error", "message")
	if detail == "" {
		detail = kind.DefaultMessage()
	}

	return &Error{
		Kind:       kind,
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP-error-code: %d, Error: %s", status, detail),
		Code:       firstString(payload, "code"),
		Details:    firstString(payload, "details"),
		Response:   payload,
	}
}

func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case nil:
		case map[string]any, []any:
			if raw, err := json.Marshal(v); err == nil {
				return string(raw)
			}
			return fmt.Sprint(v)
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// IsRetryable reports whether err is a retryable vendor error or a transport fault.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return isTransportFault(err)
}

// isTransportFault covers connection resets, refused connections, timeouts and
// bodies cut short mid-stream.
func isTransportFault(err error) bool {
	var tErr *transportError
	if errors.As(err, &tErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
