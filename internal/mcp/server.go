// Package mcp exposes the corpus index to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/corpus"
)

var (
	mu  sync.RWMutex
	idx *corpus.Index

	lastRebuild time.Time
	rebuildMu   sync.Mutex

	// rebuildFn re-walks the corpus and builds a fresh index. Set by Serve;
	// nil disables the rebuild tool.
	rebuildFn func() (*corpus.Index, error)
)

const rebuildCooldown = 60 * time.Second

// Version is set by the caller (main) before calling Serve.
var Version = "dev"

// Serve starts the MCP server on stdio. The initial index is served as-is;
// the rebuild tool swaps in fresh ones built by rebuild.
func Serve(initial *corpus.Index, rebuild func() (*corpus.Index, error)) error {
	mu.Lock()
	idx = initial
	mu.Unlock()
	rebuildFn = rebuild
	sanitizeEnabled = config.SanitizeEnabled()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "snipdex",
		Version: Version,
	}, nil)

	registerTools(server)

	return server.Run(context.Background(), &mcp.StdioTransport{})
}

// currentIndex returns the live index. Nil until Serve or the first
// successful rebuild.
func currentIndex() *corpus.Index {
	mu.RLock()
	defer mu.RUnlock()
	return idx
}

func registerTools(server *mcp.Server) {
	// get_entry
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_entry",
		Description: "Fetch a single corpus entry by id, including its full body text. Use this after list_entries or find_by_tag when you need the complete content.\n\nArgs:\n  id: Entry id as shown by list_entries (front matter id, or 'path#segment' for entries without one)\n\nReturns the entry as JSON with metadata and body.",
	}, handleGetEntry)

	// find_by_tag
	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_by_tag",
		Description: "List corpus entries carrying a tag. Matching is case-insensitive and exact (no substring matching). Use this to narrow the corpus to a topic.\n\nArgs:\n  tag: Tag to match (e.g. 'git', 'networking')\n  limit: Number of entries (default 20, max 100)\n\nReturns matching entries in corpus order, metadata only.",
	}, handleFindByTag)

	// list_entries
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_entries",
		Description: "List indexed entries in build order. Use this to get an overview of what the corpus contains before fetching individual entries.\n\nArgs:\n  limit: Number of entries (default 50, max 100)\n\nReturns entries with id, description, tags, and source location, without body text.",
	}, handleListEntries)

	// corpus_stats
	mcp.AddTool(server, &mcp.Tool{
		Name:        "corpus_stats",
		Description: "Check the size and health of the corpus index. Use this to verify the index is populated or to report stats to the user.\n\nReturns file counts, record counts, duplicate counts, diagnostic counts, and the build timestamp.",
	}, handleCorpusStats)

	// corpus_diagnostics
	mcp.AddTool(server, &mcp.Tool{
		Name:        "corpus_diagnostics",
		Description: "List problems recorded during the last build: unreadable files, malformed metadata blocks, duplicate ids, discarded whitespace segments. Use this when expected entries seem to be missing.\n\nReturns the diagnostic list as JSON, or a note that the build was clean.",
	}, handleCorpusDiagnostics)

	// rebuild
	mcp.AddTool(server, &mcp.Tool{
		Name:        "rebuild",
		Description: "Re-scan the corpus root and rebuild the index from scratch. Use this if files have changed on disk and results seem stale. Rate-limited to once per minute.\n\nReturns build statistics for the fresh index.",
	}, handleRebuild)
}

// Tool input types

type getEntryInput struct {
	ID string `json:"id" jsonschema:"Entry id to look up"`
}

type findByTagInput struct {
	Tag   string `json:"tag" jsonschema:"Tag to match (case-insensitive)"`
	Limit int    `json:"limit" jsonschema:"Number of entries (default 20, max 100)"`
}

type listEntriesInput struct {
	Limit int `json:"limit" jsonschema:"Number of entries (default 50, max 100)"`
}

type emptyInput struct{}

// entrySummary is the body-less shape returned by list_entries and
// find_by_tag. Clients fetch full text with get_entry.
type entrySummary struct {
	ID           string   `json:"id"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	SourcePath   string   `json:"source_path"`
	SegmentIndex int      `json:"segment_index"`
}

func summarize(rec *corpus.DocumentRecord) entrySummary {
	return entrySummary{
		ID:           rec.ID,
		Description:  sanitizeContent(rec.Description),
		Tags:         rec.Tags,
		SourcePath:   rec.SourcePath,
		SegmentIndex: rec.SegmentIndex,
	}
}

// Tool handlers

func handleGetEntry(ctx context.Context, req *mcp.CallToolRequest, input getEntryInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.ID) == "" {
		return textResult("Error: id is required."), nil, nil
	}
	cur := currentIndex()
	if cur == nil {
		return textResult("Error: no index loaded."), nil, nil
	}

	rec := cur.Get(input.ID)
	if rec == nil {
		return textResult(fmt.Sprintf("No entry found with id %q. Use list_entries to see available ids.", input.ID)), nil, nil
	}

	// Shallow copy so sanitization never touches the shared record.
	out := *rec
	out.Description = sanitizeContent(out.Description)
	out.Body = sanitizeContent(out.Body)

	data, _ := json.MarshalIndent(out, "", "  ")
	return textResult(string(data)), nil, nil
}

func handleFindByTag(ctx context.Context, req *mcp.CallToolRequest, input findByTagInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Tag) == "" {
		return textResult("Error: tag is required."), nil, nil
	}
	cur := currentIndex()
	if cur == nil {
		return textResult("Error: no index loaded."), nil, nil
	}
	limit := clampLimit(input.Limit, 20)

	var entries []entrySummary
	for rec := range cur.FindByTag(input.Tag) {
		entries = append(entries, summarize(rec))
		if len(entries) >= limit {
			break
		}
	}
	if len(entries) == 0 {
		return textResult(fmt.Sprintf("No entries tagged %q.", input.Tag)), nil, nil
	}

	data, _ := json.MarshalIndent(entries, "", "  ")
	return textResult(string(data)), nil, nil
}

func handleListEntries(ctx context.Context, req *mcp.CallToolRequest, input listEntriesInput) (*mcp.CallToolResult, any, error) {
	cur := currentIndex()
	if cur == nil {
		return textResult("Error: no index loaded."), nil, nil
	}
	limit := clampLimit(input.Limit, 50)

	var entries []entrySummary
	for rec := range cur.All() {
		entries = append(entries, summarize(rec))
		if len(entries) >= limit {
			break
		}
	}
	if len(entries) == 0 {
		return textResult("The index is empty. If corpus files exist on disk, try rebuild()."), nil, nil
	}

	data, _ := json.MarshalIndent(entries, "", "  ")
	return textResult(string(data)), nil, nil
}

func handleCorpusStats(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	cur := currentIndex()
	if cur == nil {
		return textResult("Error: no index loaded."), nil, nil
	}

	stats := struct {
		corpus.Stats
		Root string `json:"root"`
	}{
		Stats: cur.Stats(),
		Root:  config.RootPath(),
	}
	data, _ := json.MarshalIndent(stats, "", "  ")
	return textResult(string(data)), nil, nil
}

func handleCorpusDiagnostics(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	cur := currentIndex()
	if cur == nil {
		return textResult("Error: no index loaded."), nil, nil
	}

	diags := cur.Diagnostics()
	if len(diags) == 0 {
		return textResult("No diagnostics. The last build was clean."), nil, nil
	}

	data, _ := json.MarshalIndent(diags, "", "  ")
	return textResult(string(data)), nil, nil
}

func handleRebuild(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	if rebuildFn == nil {
		return textResult("Error: rebuild is not available in this session."), nil, nil
	}

	rebuildMu.Lock()
	defer rebuildMu.Unlock()

	if time.Since(lastRebuild) < rebuildCooldown {
		remaining := int(rebuildCooldown.Seconds() - time.Since(lastRebuild).Seconds())
		data, _ := json.Marshal(map[string]string{
			"error": fmt.Sprintf("Rebuild cooldown active. Try again in %ds.", remaining),
		})
		return textResult(string(data)), nil, nil
	}
	lastRebuild = time.Now()

	next, err := rebuildFn()
	if err != nil {
		return textResult(fmt.Sprintf("Rebuild error: %v", err)), nil, nil
	}

	mu.Lock()
	idx = next
	mu.Unlock()

	data, _ := json.MarshalIndent(next.Stats(), "", "  ")
	return textResult(string(data)), nil, nil
}

// Helpers

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func clampLimit(limit, defaultVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > 100 {
		return 100
	}
	return limit
}
