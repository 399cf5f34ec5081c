package mcpserver

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/authmode"
	"github.com/stacklok/nc-bridge/internal/scopes"
	"github.com/stacklok/nc-bridge/internal/tokenverifier"
)

func toolCall(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func TestListDirectory_ParsesPropfindResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PROPFIND", r.Method)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(propfindMultistatus{Responses: []propfindResponse{
			{Href: "/remote.php/dav/files/alice/docs/"},
			{Href: "/remote.php/dav/files/alice/docs/notes.txt"},
		}})
	}))
	defer upstream.Close()

	binding := &RequestBinding{Client: upstream.Client(), NextcloudHost: upstream.URL, Username: "alice"}
	result, err := listDirectory(context.Background(), binding, toolCall("list_directory", map[string]any{"path": "docs"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
}

func TestReadFile_NotFoundReturnsToolError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	binding := &RequestBinding{Client: upstream.Client(), NextcloudHost: upstream.URL, Username: "alice"}
	result, err := readFile(context.Background(), binding, toolCall("read_file", map[string]any{"path": "missing.txt"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestWriteFile_SendsPutRequest(t *testing.T) {
	var gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	binding := &RequestBinding{Client: upstream.Client(), NextcloudHost: upstream.URL, Username: "alice"}
	result, err := writeFile(context.Background(), binding, toolCall("write_file", map[string]any{"path": "a.txt", "content": "hello"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "hello", gotBody)
}

func TestCatalogue_RequireScope_DeniesMissingScope(t *testing.T) {
	registry := scopes.NewRegistry(map[string][]string{"delete_file": {"files:write"}})
	cat := New(registry, nil)

	ctx := WithRequestBinding(context.Background(), &RequestBinding{
		Client: http.DefaultClient,
		AuthCtx: &authmode.RequestAuthContext{
			Mode:          authmode.OAuthResourceServer,
			VerifiedToken: &tokenverifier.VerifiedAccessToken{Scopes: []string{"files:read"}},
		},
	})

	handler := cat.requireScope("delete_file", func(_ context.Context, _ *RequestBinding, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("should not run"), nil
	})

	result, err := handler(ctx, toolCall("delete_file", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCatalogue_ToolNames_IncludesSemanticSearchOnlyWhenConfigured(t *testing.T) {
	registry := scopes.NewRegistry(nil)

	withoutSearch := New(registry, nil)
	assert.NotContains(t, withoutSearch.ToolNames(), "semantic_search")

	withSearch := New(registry, fakeSearcher{})
	assert.Contains(t, withSearch.ToolNames(), "semantic_search")
}

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	return []SearchResult{{FileID: "f1", Text: "hit"}}, nil
}
