package bridgeerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with cause",
			err:  &Error{Kind: KindUpstreamHTTP, Message: "fetch failed", Cause: cause},
			want: "upstream_http_error: fetch failed: underlying error",
		},
		{
			name: "without cause",
			err:  &Error{Kind: KindAuthFailure, Message: "no token"},
			want: "auth_failure: no token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := New(KindStorage, "write failed", cause)
	assert.Equal(t, cause, err.Unwrap())

	noCause := New(KindStorage, "write failed", nil)
	assert.Nil(t, noCause.Unwrap())
}

func TestConstructorsAndCheckers(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")

	tests := []struct {
		name        string
		constructor func(string, error) *Error
		checker     func(error) bool
		wantKind    Kind
	}{
		{"config", NewConfigError, IsConfig, KindConfig},
		{"auth", NewAuthFailure, IsAuthFailure, KindAuthFailure},
		{"scope", NewInsufficientScope, IsInsufficientScope, KindInsufficientScope},
		{"upstream", NewUpstreamHTTPError, IsUpstreamHTTP, KindUpstreamHTTP},
		{"rate", NewRateLimited, IsRateLimited, KindRateLimited},
		{"storage", NewStorageError, IsStorage, KindStorage},
		{"pipeline", NewPipelineError, IsPipeline, KindPipeline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.constructor("msg", cause)
			assert.Equal(t, tt.wantKind, err.Kind)
			assert.True(t, tt.checker(err))
			assert.False(t, tt.checker(errors.New("plain")))
		})
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth failure", NewAuthFailure("x", nil), 401},
		{"insufficient scope", NewInsufficientScope("x", nil), 403},
		{"rate limited", NewRateLimited("x", nil), 429},
		{"upstream", NewUpstreamHTTPError("x", nil), 502},
		{"config", NewConfigError("x", nil), 500},
		{"plain error", errors.New("plain"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}
