package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// notesBasePath is the Nextcloud Notes app's REST API mount.
const notesBasePath = "/apps/notes/api/v1/notes"

type noteRecord struct {
	ID       int    `json:"id,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"`
	Category string `json:"category,omitempty"`
	Modified int64  `json:"modified,omitempty"`
}

func notesRequest(ctx context.Context, binding *RequestBinding, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, binding.NextcloudHost+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("OCS-APIRequest", "true")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return binding.Client.Do(req)
}

func listNotes(ctx context.Context, binding *RequestBinding, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := notesRequest(ctx, binding, http.MethodGet, notesBasePath, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("notes request failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return mcp.NewToolResultError(fmt.Sprintf("notes list failed: HTTP %d", resp.StatusCode)), nil
	}

	var notes []noteRecord
	if err := json.NewDecoder(resp.Body).Decode(&notes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse notes response: %v", err)), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"notes": notes}), nil
}

func getNote(ctx context.Context, binding *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		NoteID int `json:"note_id"`
	}{}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	resp, err := notesRequest(ctx, binding, http.MethodGet, fmt.Sprintf("%s/%d", notesBasePath, args.NoteID), nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("notes request failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return mcp.NewToolResultError("note not found"), nil
	}
	if resp.StatusCode >= 300 {
		return mcp.NewToolResultError(fmt.Sprintf("get note failed: HTTP %d", resp.StatusCode)), nil
	}

	var note noteRecord
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse note response: %v", err)), nil
	}
	return mcp.NewToolResultStructuredOnly(note), nil
}

func createNote(ctx context.Context, binding *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Category string `json:"category"`
	}{}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	payload, err := json.Marshal(noteRecord{Title: args.Title, Content: args.Content, Category: args.Category})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := notesRequest(ctx, binding, http.MethodPost, notesBasePath, strings.NewReader(string(payload)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("notes request failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return mcp.NewToolResultError(fmt.Sprintf("create note failed: HTTP %d", resp.StatusCode)), nil
	}

	var note noteRecord
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse note response: %v", err)), nil
	}
	return mcp.NewToolResultStructuredOnly(note), nil
}
