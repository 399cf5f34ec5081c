package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// SearchResult is one hit from a similarity query.
type SearchResult struct {
	FileID     string  `json:"file_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// VectorSearcher is the indexed vector store's read side. Kept local to
// this package (mirroring internal/adminweb's identical-shaped
// interface) so mcpserver never imports internal/pipeline or
// internal/adminweb directly.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

func (c *Catalogue) semanticSearch(ctx context.Context, _ *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}{Limit: 10}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}
	if args.Limit <= 0 {
		args.Limit = 10
	}

	results, err := c.searcher.Search(ctx, args.Query, args.Limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("semantic search failed: %v", err)), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"results": results}), nil
}
