package adminweb

import (
	"context"
	"net/http"
)

// VectorSyncStatus reports the pipeline's current standing for the admin
// UI's "vector sync status" panel.
type VectorSyncStatus struct {
	Enabled       bool `json:"enabled"`
	QueueDepth    int  `json:"queue_depth"`
	QueueCapacity int  `json:"queue_capacity"`
	WorkerCount   int  `json:"worker_count"`
}

// VectorSyncReporter reports pipeline status to the admin UI; kept as an
// interface here so adminweb never imports internal/pipeline directly.
// No implementation is wired in this repository, so the status handler
// receives nil and reports the feature as disabled.
type VectorSyncReporter interface {
	Status() VectorSyncStatus
}

// VectorSearchResult is one hit returned by a vector-store similarity
// search, shown in the admin UI's vector-visualization pane.
type VectorSearchResult struct {
	FileID     string  `json:"file_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// VectorSearcher is the external collaborator (the vector store) that
// can answer similarity queries; distinct from pipeline.VectorStore,
// which only upserts.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]VectorSearchResult, error)
	ChunkContext(ctx context.Context, fileID string, chunkIndex int) (before, chunk, after string, err error)
}

// VectorSyncStatusHandler serves `GET /app/vector-sync/status`.
func (a *Web) VectorSyncStatusHandler(reporter VectorSyncReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if reporter == nil {
			writeJSON(w, http.StatusOK, VectorSyncStatus{Enabled: false})
			return
		}
		writeJSON(w, http.StatusOK, reporter.Status())
	}
}

// VectorVizSearch serves `GET /app/vector-viz/search?q=...`.
func (a *Web) VectorVizSearch(searcher VectorSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if searcher == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "vector store not configured"})
			return
		}
		query := r.URL.Query().Get("q")
		if query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		results, err := searcher.Search(r.Context(), query, 20)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

// ChunkContext serves `GET /app/chunk-context?file_id=...&chunk_index=...`,
// showing the chunk before/after the requested one for review.
func (a *Web) ChunkContext(searcher VectorSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if searcher == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "vector store not configured"})
			return
		}
		fileID := r.URL.Query().Get("file_id")
		if fileID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_id is required"})
			return
		}
		chunkIndex := parseIntOrZero(r.URL.Query().Get("chunk_index"))

		before, chunk, after, err := searcher.ChunkContext(r.Context(), fileID, chunkIndex)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"before": before, "chunk": chunk, "after": after})
	}
}

func parseIntOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
