package adminweb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeReporter struct{ status VectorSyncStatus }

func (f fakeReporter) Status() VectorSyncStatus { return f.status }

type fakeSearcher struct {
	results []VectorSearchResult
	err     error
}

func (f fakeSearcher) Search(_ context.Context, _ string, _ int) ([]VectorSearchResult, error) {
	return f.results, f.err
}

func (f fakeSearcher) ChunkContext(_ context.Context, _ string, _ int) (string, string, string, error) {
	return "before", "chunk", "after", f.err
}

func TestVectorSyncStatusHandler_NilReporterReportsDisabled(t *testing.T) {
	a := New(Config{})
	req := httptest.NewRequest(http.MethodGet, "/app/vector-sync/status", nil)
	w := httptest.NewRecorder()
	a.VectorSyncStatusHandler(nil)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":false`)
}

func TestVectorSyncStatusHandler_ReportsProvidedStatus(t *testing.T) {
	a := New(Config{})
	reporter := fakeReporter{status: VectorSyncStatus{Enabled: true, QueueDepth: 3, QueueCapacity: 100, WorkerCount: 4}}

	req := httptest.NewRequest(http.MethodGet, "/app/vector-sync/status", nil)
	w := httptest.NewRecorder()
	a.VectorSyncStatusHandler(reporter)(w, req)

	assert.Contains(t, w.Body.String(), `"queue_depth":3`)
}

func TestVectorVizSearch_RequiresQuery(t *testing.T) {
	a := New(Config{})
	req := httptest.NewRequest(http.MethodGet, "/app/vector-viz/search", nil)
	w := httptest.NewRecorder()
	a.VectorVizSearch(fakeSearcher{})(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVectorVizSearch_NilSearcherReturnsUnavailable(t *testing.T) {
	a := New(Config{})
	req := httptest.NewRequest(http.MethodGet, "/app/vector-viz/search?q=notes", nil)
	w := httptest.NewRecorder()
	a.VectorVizSearch(nil)(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVectorVizSearch_ReturnsResults(t *testing.T) {
	a := New(Config{})
	searcher := fakeSearcher{results: []VectorSearchResult{{FileID: "f1", ChunkIndex: 0, Text: "hello", Score: 0.9}}}

	req := httptest.NewRequest(http.MethodGet, "/app/vector-viz/search?q=hello", nil)
	w := httptest.NewRecorder()
	a.VectorVizSearch(searcher)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"file_id":"f1"`)
}

func TestChunkContext_ReturnsBeforeAndAfter(t *testing.T) {
	a := New(Config{})
	req := httptest.NewRequest(http.MethodGet, "/app/chunk-context?file_id=f1&chunk_index=2", nil)
	w := httptest.NewRecorder()
	a.ChunkContext(fakeSearcher{})(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"chunk":"chunk"`)
}

func TestParseIntOrZero(t *testing.T) {
	assert.Equal(t, 42, parseIntOrZero("42"))
	assert.Equal(t, 0, parseIntOrZero(""))
	assert.Equal(t, 0, parseIntOrZero("abc"))
}
