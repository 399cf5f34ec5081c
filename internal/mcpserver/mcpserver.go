// Package mcpserver builds the tool/resource catalogue served at `/mcp`:
// a set of Nextcloud-backed tools (WebDAV file access, Notes CRUD, and
// semantic search over the indexed vector store) wired through
// mark3labs/mcp-go's streamable HTTP transport.
//
// Per-request auth (the resolved RequestAuthContext and the already-
// authenticated upstream *http.Client) travels into each tool handler via
// context, injected by internal/server before the request reaches the
// streamable HTTP transport.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/nc-bridge/internal/authmode"
	"github.com/stacklok/nc-bridge/internal/scopes"
)

type contextKey struct{}

var requestKey = contextKey{}

// RequestBinding is the per-request collaborator bundle a tool handler
// needs: an upstream client already authenticated for this caller, the
// Nextcloud username to act as, and the caller's resolved auth context
// (for scope enforcement inside each handler).
type RequestBinding struct {
	Client        *http.Client
	NextcloudHost string
	Username      string
	AuthCtx       *authmode.RequestAuthContext
}

// WithRequestBinding attaches b to ctx for a tool handler to retrieve.
func WithRequestBinding(ctx context.Context, b *RequestBinding) context.Context {
	return context.WithValue(ctx, requestKey, b)
}

// BindingFromContext retrieves the RequestBinding attached by
// WithRequestBinding, for callers outside this package (tests, and
// internal/server's middleware) that need to inspect what was bound.
func BindingFromContext(ctx context.Context) (*RequestBinding, bool) {
	b, ok := ctx.Value(requestKey).(*RequestBinding)
	return b, ok
}

// Catalogue wires the Nextcloud-backed tool set onto an mcp-go server.
type Catalogue struct {
	scopes    *scopes.Registry
	searcher  VectorSearcher
	mcpServer *server.MCPServer
	handler   http.Handler
}

// New builds a Catalogue. searcher may be nil when semantic search isn't
// configured (vector_sync_enabled is false) — the corresponding tool is
// simply not registered.
func New(registry *scopes.Registry, searcher VectorSearcher) *Catalogue {
	c := &Catalogue{scopes: registry, searcher: searcher}

	mcpServer := server.NewMCPServer(
		"nc-bridge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithToolFilter(c.filterTools),
	)

	mcpServer.AddTool(mcp.Tool{
		Name:        "list_directory",
		Description: "List files and folders at a WebDAV path in the caller's Nextcloud account",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "WebDAV-relative path, e.g. \"Documents\""},
			},
			Required: []string{"path"},
		},
	}, c.requireScope("list_directory", listDirectory))

	mcpServer.AddTool(mcp.Tool{
		Name:        "read_file",
		Description: "Read a file's contents via WebDAV",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "WebDAV-relative file path"},
			},
			Required: []string{"path"},
		},
	}, c.requireScope("read_file", readFile))

	mcpServer.AddTool(mcp.Tool{
		Name:        "write_file",
		Description: "Create or overwrite a file's contents via WebDAV",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path":    map[string]interface{}{"type": "string", "description": "WebDAV-relative file path"},
				"content": map[string]interface{}{"type": "string", "description": "New file content"},
			},
			Required: []string{"path", "content"},
		},
	}, c.requireScope("write_file", writeFile))

	mcpServer.AddTool(mcp.Tool{
		Name:        "delete_file",
		Description: "Delete a file or folder via WebDAV",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "WebDAV-relative path to delete"},
			},
			Required: []string{"path"},
		},
	}, c.requireScope("delete_file", deleteFile))

	mcpServer.AddTool(mcp.Tool{
		Name:        "list_notes",
		Description: "List all notes from the Nextcloud Notes app",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, c.requireScope("list_notes", listNotes))

	mcpServer.AddTool(mcp.Tool{
		Name:        "get_note",
		Description: "Fetch a single note by id from the Nextcloud Notes app",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"note_id": map[string]interface{}{"type": "integer", "description": "Note id"},
			},
			Required: []string{"note_id"},
		},
	}, c.requireScope("get_note", getNote))

	mcpServer.AddTool(mcp.Tool{
		Name:        "create_note",
		Description: "Create a note in the Nextcloud Notes app",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title":   map[string]interface{}{"type": "string"},
				"content": map[string]interface{}{"type": "string"},
				"category": map[string]interface{}{"type": "string"},
			},
			Required: []string{"title"},
		},
	}, c.requireScope("create_note", createNote))

	if searcher != nil {
		mcpServer.AddTool(mcp.Tool{
			Name:        "semantic_search",
			Description: "Search the indexed document set by meaning rather than keyword",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
					"limit": map[string]interface{}{"type": "integer", "description": "Max results, default 10"},
				},
				Required: []string{"query"},
			},
		}, c.requireScope("semantic_search", c.semanticSearch))
	}

	c.mcpServer = mcpServer
	c.handler = server.NewStreamableHTTPServer(
		mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return r.Context()
		}),
	)
	return c
}

// Handler returns the http.Handler to mount at `/mcp`.
func (c *Catalogue) Handler() http.Handler { return c.handler }

// ToolNames lists every registered tool name, for callers outside this
// package that need the full catalogue (tests, Protected Resource
// Metadata). tools/list filtering itself runs inside filterTools,
// against the live []mcp.Tool the transport already tracks.
func (c *Catalogue) ToolNames() []string {
	names := []string{
		"list_directory", "read_file", "write_file", "delete_file",
		"list_notes", "get_note", "create_note",
	}
	if c.searcher != nil {
		names = append(names, "semantic_search")
	}
	return names
}

// filterTools projects the tools/list response down to the caller's
// authorized subset, per the same Registry consulted by requireScope —
// a tool absent here would still be enforced correctly on tools/call,
// but an un-filtered list leaks the names of tools the caller can't use.
func (c *Catalogue) filterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	binding, ok := BindingFromContext(ctx)
	if !ok || binding.AuthCtx == nil || !binding.AuthCtx.Filtering() {
		return tools
	}

	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	allowed := make(map[string]struct{})
	for _, name := range c.scopes.FilterToolNames(names, binding.AuthCtx.Scopes(), true) {
		allowed[name] = struct{}{}
	}

	out := make([]mcp.Tool, 0, len(allowed))
	for _, t := range tools {
		if _, ok := allowed[t.Name]; ok {
			out = append(out, t)
		}
	}
	return out
}

type toolHandlerFunc func(ctx context.Context, binding *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// requireScope adapts a toolHandlerFunc into the mcp-go handler
// signature, enforcing the tool's declared scope requirement (when the
// caller is in OAuth mode and filtering applies) before dispatch.
func (c *Catalogue) requireScope(name string, fn toolHandlerFunc) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		binding, ok := BindingFromContext(ctx)
		if !ok {
			return mcp.NewToolResultError("no upstream credentials bound to this request"), nil
		}
		if binding.AuthCtx != nil && binding.AuthCtx.Filtering() {
			if ok, missing := c.scopes.Authorize(name, binding.AuthCtx.Scopes()); !ok {
				return mcp.NewToolResultError("insufficient scope: missing " + joinScopes(missing)), nil
			}
		}
		return fn(ctx, binding, req)
	}
}

func joinScopes(scopeList []string) string {
	out := ""
	for i, s := range scopeList {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
