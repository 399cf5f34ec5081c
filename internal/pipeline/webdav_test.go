package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFilterFilesResponse = `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns">
	<d:response>
		<d:href>/remote.php/dav/files/alice/Documents/report.pdf</d:href>
		<d:propstat>
			<d:prop>
				<d:getcontentlength>1024</d:getcontentlength>
				<d:getcontenttype>application/pdf</d:getcontenttype>
				<d:getlastmodified>Mon, 12 Jan 2026 10:00:00 GMT</d:getlastmodified>
				<d:getetag>"abc123"</d:getetag>
			</d:prop>
			<d:status>HTTP/1.1 200 OK</d:status>
		</d:propstat>
	</d:response>
	<d:response>
		<d:href>/remote.php/dav/files/alice/Documents/</d:href>
		<d:propstat>
			<d:prop>
				<d:getetag>"dir-etag"</d:getetag>
			</d:prop>
			<d:status>HTTP/1.1 200 OK</d:status>
		</d:propstat>
	</d:response>
</d:multistatus>`

func TestWebDAVScannerListTaggedFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "REPORT", r.Method)
		assert.Equal(t, "/remote.php/dav/files/alice/", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "<oc:systemtag>mcp-index</oc:systemtag>")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(sampleFilterFilesResponse))
	}))
	defer srv.Close()

	scanner := &WebDAVScanner{Client: srv.Client(), NextcloudHost: srv.URL, Tag: "mcp-index"}
	refs, err := scanner.ListTaggedFiles(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "alice", refs[0].UserID)
	assert.Equal(t, "Documents/report.pdf", refs[0].Path)
	assert.Equal(t, "application/pdf", refs[0].ContentType)
	assert.Equal(t, "abc123", refs[0].ETag)
	assert.Equal(t, int64(1024), refs[0].Size)
	assert.Equal(t, []string{"mcp-index"}, refs[0].Tags)
}

func TestWebDAVScannerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	scanner := &WebDAVScanner{Client: srv.Client(), NextcloudHost: srv.URL, Tag: "mcp-index"}
	_, err := scanner.ListTaggedFiles(context.Background(), "alice")
	assert.Error(t, err)
}

func TestWebDAVFetcherFetchContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("file bytes"))
	}))
	defer srv.Close()

	fetcher := &WebDAVFetcher{Client: srv.Client(), NextcloudHost: srv.URL}
	content, err := fetcher.FetchContent(context.Background(), DocumentRef{FileID: "/Documents/report.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "file bytes", string(content))
}

func TestWebDAVFetcherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := &WebDAVFetcher{Client: srv.Client(), NextcloudHost: srv.URL}
	_, err := fetcher.FetchContent(context.Background(), DocumentRef{FileID: "/missing.txt"})
	assert.Error(t, err)
}

func TestMemoryIndexStateSeenAndMarkSeen(t *testing.T) {
	idx := NewMemoryIndexState()
	ctx := context.Background()

	seen, err := idx.Seen(ctx, "alice", "f1", "etag-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, idx.MarkSeen(ctx, "alice", "f1", "etag-1"))

	seen, err = idx.Seen(ctx, "alice", "f1", "etag-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = idx.Seen(ctx, "alice", "f1", "etag-2")
	require.NoError(t, err)
	assert.False(t, seen, "a changed etag must not be reported as seen")
}

func TestUnconfiguredCollaboratorsFailClosed(t *testing.T) {
	ctx := context.Background()

	_, err := UnconfiguredProcessor{}.ExtractChunks(ctx, "text/plain", []byte("x"))
	assert.Error(t, err)

	_, err = UnconfiguredEmbedder{}.Embed(ctx, []string{"x"})
	assert.Error(t, err)

	err = UnconfiguredVectorStore{}.Upsert(ctx, "f1", 0, []float32{1}, "x")
	assert.Error(t, err)
}
