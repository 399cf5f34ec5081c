package pipeline

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
)

// webdavBasePath mirrors mcpserver's per-user WebDAV mount point.
func webdavBasePath(username string) string {
	return "/remote.php/dav/files/" + username
}

// filterFilesReportBody is Nextcloud's oc:filter-files REPORT, scoped to
// files carrying the given system tag. It is issued against the user's
// WebDAV root with Depth: infinity semantics handled server-side by
// Nextcloud's tag index, not by the client.
const filterFilesReportBody = `<?xml version="1.0"?>
<oc:filter-files xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns">
	<d:prop>
		<d:getcontentlength/>
		<d:getcontenttype/>
		<d:getlastmodified/>
		<d:getetag/>
	</d:prop>
	<oc:filter-rules>
		<oc:systemtag>%s</oc:systemtag>
	</oc:filter-rules>
</oc:filter-files>`

type filterFilesMultistatus struct {
	Responses []filterFilesResponse `xml:"response"`
}

type filterFilesResponse struct {
	Href string `xml:"href"`
	Prop struct {
		ContentLength string `xml:"prop>getcontentlength"`
		ContentType   string `xml:"prop>getcontenttype"`
		LastModified  string `xml:"prop>getlastmodified"`
		ETag          string `xml:"prop>getetag"`
	} `xml:"propstat"`
}

// WebDAVScanner implements Scanner by issuing a tag-filtered REPORT
// against the configured user's WebDAV root, grounded on the same
// PROPFIND/REPORT request shape internal/mcpserver's WebDAV tools use.
type WebDAVScanner struct {
	Client        *http.Client
	NextcloudHost string
	Tag           string
}

// ListTaggedFiles returns every file under userID's WebDAV root carrying
// the scanner's configured tag.
func (s *WebDAVScanner) ListTaggedFiles(ctx context.Context, userID string) ([]DocumentRef, error) {
	reportPath := fmt.Sprintf("%s%s/", s.NextcloudHost, webdavBasePath(userID))
	body := fmt.Sprintf(filterFilesReportBody, s.Tag)

	req, err := http.NewRequestWithContext(ctx, "REPORT", reportPath, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("OCS-APIRequest", "true")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("filter-files REPORT failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("filter-files REPORT returned HTTP %d", resp.StatusCode)
	}

	var multistatus filterFilesMultistatus
	if err := xml.Unmarshal(respBody, &multistatus); err != nil {
		return nil, fmt.Errorf("parsing filter-files response: %w", err)
	}

	basePath := webdavBasePath(userID)
	refs := make([]DocumentRef, 0, len(multistatus.Responses))
	for _, r := range multistatus.Responses {
		path := strings.TrimPrefix(strings.TrimPrefix(r.Href, basePath), "/")
		if path == "" || strings.HasSuffix(r.Href, "/") {
			continue
		}
		ref := DocumentRef{
			UserID:      userID,
			FileID:      r.Href,
			Path:        path,
			ContentType: r.Prop.ContentType,
			ETag:        strings.Trim(r.Prop.ETag, `"`),
			Tags:        []string{s.Tag},
		}
		if n, err := strconv.ParseInt(r.Prop.ContentLength, 10, 64); err == nil {
			ref.Size = n
		}
		if t, err := time.Parse(time.RFC1123, r.Prop.LastModified); err == nil {
			ref.LastModified = t
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// WebDAVFetcher implements ContentFetcher with a plain WebDAV GET,
// grounded on mcpserver.readFile's request shape. ref.FileID carries the
// WebDAV href (as ListTaggedFiles leaves it, e.g.
// "/remote.php/dav/files/alice/Documents/report.pdf"); NextcloudHost
// supplies the scheme and authority to make it fetchable.
type WebDAVFetcher struct {
	Client        *http.Client
	NextcloudHost string
}

// FetchContent downloads ref's raw bytes.
func (f *WebDAVFetcher) FetchContent(ctx context.Context, ref DocumentRef) ([]byte, error) {
	url := ref.FileID
	if strings.HasPrefix(url, "/") {
		url = f.NextcloudHost + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("OCS-APIRequest", "true")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webdav GET failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webdav GET returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// MemoryIndexState is a process-local IndexState: the pipeline's own
// consistency contract only promises the vector store reflects the
// latest observed (file_id, etag) after a completed cycle, not that the
// observation history survives a restart, so an in-memory map satisfies
// it without a dedicated persisted table.
type MemoryIndexState struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewMemoryIndexState returns an empty IndexState.
func NewMemoryIndexState() *MemoryIndexState {
	return &MemoryIndexState{seen: make(map[string]string)}
}

// Seen reports whether (userID, fileID) was last observed at etag.
func (s *MemoryIndexState) Seen(_ context.Context, userID, fileID, etag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[indexKey(userID, fileID)] == etag, nil
}

// MarkSeen records (userID, fileID) as last observed at etag.
func (s *MemoryIndexState) MarkSeen(_ context.Context, userID, fileID, etag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[indexKey(userID, fileID)] = etag
	return nil
}

func indexKey(userID, fileID string) string {
	return userID + "\x00" + fileID
}

// UnconfiguredProcessor, UnconfiguredEmbedder, and UnconfiguredVectorStore
// stand in for the three external collaborators this repo never ships a
// concrete client for (document-processor registry, embedding service,
// vector store). They let the scanner and fetcher halves of the pipeline
// run and be observed even when no backend has been wired, instead of
// requiring cmd/bridge to leave the whole pipeline dark: every document
// fails at the same step with a PipelineError, logged and non-fatal,
// until a real collaborator replaces them.
type UnconfiguredProcessor struct{}

// ExtractChunks always fails: no document-processor registry is wired.
func (UnconfiguredProcessor) ExtractChunks(context.Context, string, []byte) ([]string, error) {
	return nil, bridgeerrors.NewPipelineError("no document processor configured", nil)
}

// UnconfiguredEmbedder stands in for the embedding collaborator.
type UnconfiguredEmbedder struct{}

// Embed always fails: no embedding service is wired.
func (UnconfiguredEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, bridgeerrors.NewPipelineError("no embedding service configured", nil)
}

// UnconfiguredVectorStore stands in for the vector-store collaborator.
type UnconfiguredVectorStore struct{}

// Upsert always fails: no vector store is wired.
func (UnconfiguredVectorStore) Upsert(context.Context, string, int, []float32, string) error {
	return bridgeerrors.NewPipelineError("no vector store configured", nil)
}
