// Package bridgeerrors declares the typed error kinds the bridge's HTTP
// layer maps to status codes: config failures, auth failures, scope
// violations, upstream HTTP errors, rate limiting, storage errors, and
// pipeline errors.
package bridgeerrors

import "errors"

// Kind identifies one of the bridge's error categories.
type Kind string

const (
	KindConfig            Kind = "config_error"
	KindAuthFailure       Kind = "auth_failure"
	KindInsufficientScope Kind = "insufficient_scope"
	KindUpstreamHTTP      Kind = "upstream_http_error"
	KindRateLimited       Kind = "rate_limited"
	KindStorage           Kind = "storage_error"
	KindPipeline          Kind = "pipeline_error"
)

// Error is a typed bridge error carrying a Kind, a human message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NewConfigError(message string, cause error) *Error       { return New(KindConfig, message, cause) }
func NewAuthFailure(message string, cause error) *Error       { return New(KindAuthFailure, message, cause) }
func NewInsufficientScope(message string, cause error) *Error { return New(KindInsufficientScope, message, cause) }
func NewUpstreamHTTPError(message string, cause error) *Error { return New(KindUpstreamHTTP, message, cause) }
func NewRateLimited(message string, cause error) *Error       { return New(KindRateLimited, message, cause) }
func NewStorageError(message string, cause error) *Error      { return New(KindStorage, message, cause) }
func NewPipelineError(message string, cause error) *Error     { return New(KindPipeline, message, cause) }

func is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func IsConfig(err error) bool            { return is(err, KindConfig) }
func IsAuthFailure(err error) bool       { return is(err, KindAuthFailure) }
func IsInsufficientScope(err error) bool { return is(err, KindInsufficientScope) }
func IsUpstreamHTTP(err error) bool      { return is(err, KindUpstreamHTTP) }
func IsRateLimited(err error) bool       { return is(err, KindRateLimited) }
func IsStorage(err error) bool           { return is(err, KindStorage) }
func IsPipeline(err error) bool          { return is(err, KindPipeline) }

// StatusCode maps a Kind to the HTTP status the transport layer should
// return for it. Unrecognized errors map to 500.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return 500
	}
	switch e.Kind {
	case KindAuthFailure:
		return 401
	case KindInsufficientScope:
		return 403
	case KindRateLimited:
		return 429
	case KindUpstreamHTTP:
		return 502
	case KindConfig, KindStorage, KindPipeline:
		return 500
	default:
		return 500
	}
}
