package mcpserver

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// webdavBasePath is the per-user WebDAV mount point Nextcloud exposes,
// mirrored from the original client's _get_webdav_base_path helper.
func webdavBasePath(username string) string {
	return "/remote.php/dav/files/" + username
}

type propfindMultistatus struct {
	Responses []propfindResponse `xml:"response"`
}

type propfindResponse struct {
	Href string `xml:"href"`
	Prop struct {
		DisplayName     string `xml:"prop>displayname"`
		ContentLength   string `xml:"prop>getcontentlength"`
		ContentType     string `xml:"prop>getcontenttype"`
		LastModified    string `xml:"prop>getlastmodified"`
		ResourceType    struct {
			Collection *struct{} `xml:"collection"`
		} `xml:"prop>resourcetype"`
	} `xml:"propstat"`
}

// DirectoryEntry is one item returned by list_directory.
type DirectoryEntry struct {
	Name          string `json:"name"`
	IsDirectory   bool   `json:"is_directory"`
	ContentLength int64  `json:"content_length,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	LastModified  string `json:"last_modified,omitempty"`
}

const propfindListBody = `<?xml version="1.0"?>
<d:propfind xmlns:d="DAV:">
	<d:prop>
		<d:displayname/>
		<d:getcontentlength/>
		<d:getcontenttype/>
		<d:getlastmodified/>
		<d:resourcetype/>
	</d:prop>
</d:propfind>`

func listDirectory(ctx context.Context, binding *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Path string `json:"path"`
	}{}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	path := strings.TrimPrefix(args.Path, "/")
	webdavPath := fmt.Sprintf("%s%s/%s/", binding.NextcloudHost, webdavBasePath(binding.Username), path)

	httpReq, err := http.NewRequestWithContext(ctx, "PROPFIND", webdavPath, strings.NewReader(propfindListBody))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	httpReq.Header.Set("Depth", "1")
	httpReq.Header.Set("Content-Type", "text/xml")
	httpReq.Header.Set("OCS-APIRequest", "true")

	resp, err := binding.Client.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("webdav request failed: %v", err)), nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if resp.StatusCode >= 300 {
		return mcp.NewToolResultError(fmt.Sprintf("webdav PROPFIND failed: HTTP %d", resp.StatusCode)), nil
	}

	var multistatus propfindMultistatus
	if err := xml.Unmarshal(body, &multistatus); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse PROPFIND response: %v", err)), nil
	}

	var entries []DirectoryEntry
	for i, r := range multistatus.Responses {
		if i == 0 {
			// The first response describes the directory itself.
			continue
		}
		name := strings.TrimSuffix(r.Href, "/")
		if idx := strings.LastIndex(name, "/"); idx != -1 {
			name = name[idx+1:]
		}
		if name == "" {
			continue
		}
		entry := DirectoryEntry{
			Name:         name,
			IsDirectory:  r.Prop.ResourceType.Collection != nil,
			ContentType:  r.Prop.ContentType,
			LastModified: r.Prop.LastModified,
		}
		if n, err := strconv.ParseInt(r.Prop.ContentLength, 10, 64); err == nil {
			entry.ContentLength = n
		}
		entries = append(entries, entry)
	}

	return mcp.NewToolResultStructuredOnly(map[string]any{"entries": entries}), nil
}

func readFile(ctx context.Context, binding *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Path string `json:"path"`
	}{}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	webdavPath := fmt.Sprintf("%s%s/%s", binding.NextcloudHost, webdavBasePath(binding.Username), strings.TrimPrefix(args.Path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, webdavPath, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	httpReq.Header.Set("OCS-APIRequest", "true")

	resp, err := binding.Client.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("webdav request failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return mcp.NewToolResultError("file not found"), nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if resp.StatusCode >= 300 {
		return mcp.NewToolResultError(fmt.Sprintf("webdav GET failed: HTTP %d", resp.StatusCode)), nil
	}

	return mcp.NewToolResultText(string(body)), nil
}

func writeFile(ctx context.Context, binding *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}{}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	webdavPath := fmt.Sprintf("%s%s/%s", binding.NextcloudHost, webdavBasePath(binding.Username), strings.TrimPrefix(args.Path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, webdavPath, strings.NewReader(args.Content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	httpReq.Header.Set("OCS-APIRequest", "true")

	resp, err := binding.Client.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("webdav request failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return mcp.NewToolResultError(fmt.Sprintf("webdav PUT failed: HTTP %d", resp.StatusCode)), nil
	}

	return mcp.NewToolResultStructuredOnly(map[string]any{"path": args.Path, "status": "written"}), nil
}

func deleteFile(ctx context.Context, binding *RequestBinding, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Path string `json:"path"`
	}{}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	webdavPath := fmt.Sprintf("%s%s/%s", binding.NextcloudHost, webdavBasePath(binding.Username), strings.TrimPrefix(args.Path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, webdavPath, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	httpReq.Header.Set("OCS-APIRequest", "true")

	resp, err := binding.Client.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("webdav request failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return mcp.NewToolResultStructuredOnly(map[string]any{"path": args.Path, "status": "not_found"}), nil
	}
	if resp.StatusCode >= 300 {
		return mcp.NewToolResultError(fmt.Sprintf("webdav DELETE failed: HTTP %d", resp.StatusCode)), nil
	}

	return mcp.NewToolResultStructuredOnly(map[string]any{"path": args.Path, "status": "deleted"}), nil
}
