package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunHealthcheck_LiveServerSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health/live", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, runHealthcheck(srv.URL))
}

func TestRunHealthcheck_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := runHealthcheck(srv.URL)
	assert.Error(t, err)
}

func TestRunHealthcheck_UnreachableAddressFails(t *testing.T) {
	err := runHealthcheck("http://127.0.0.1:1")
	assert.Error(t, err)
}
