// Package mcp provides a Model Context Protocol server for Distill.
//
// It exposes the extraction pipeline over stdio: chunk search, fact
// extraction, stored results, and corpus statistics, so MCP clients can
// query an ingested corpus without shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/distill/internal/extract"
	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/retrieve"
	"github.com/hurttlocker/distill/internal/store"
)

// ServerConfig holds the wiring for the MCP server.
type ServerConfig struct {
	Store        store.Store
	Retriever    *retrieve.Retriever
	Orchestrator *extract.Orchestrator // nil disables the extract tool
	Version      string
}

// dbMu serializes MCP tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines; SQLite
// supports only one writer at a time, and a global mutex keeps
// extractions ordered before the result reads that follow them.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all Distill tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Distill",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerSearchTool(s, cfg.Retriever)
	if cfg.Orchestrator != nil {
		registerExtractTool(s, cfg.Orchestrator, cfg.Store)
	}
	registerFactsTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)
	registerFactTypesResource(s)

	return s
}

func registerSearchTool(s *server.MCPServer, retriever *retrieve.Retriever) {
	tool := mcp.NewTool("distill_search",
		mcp.WithDescription("Search ingested chunks for a fact type within a domain or document scope. Returns ranked chunks with similarity, pattern boost, and combined score."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("fact_type",
			mcp.Required(),
			mcp.Description("Fact type to search for (e.g. office_locations, attorneys, contact_info)"),
		),
		mcp.WithString("domain",
			mcp.Description("Scope to one site domain (e.g. '137law.com'). Empty = all domains."),
		),
		mcp.WithString("document",
			mcp.Description("Scope to one document id. Empty = whole domain."),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of chunks to return (default: the fact type's configured k, max: 20)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		ftStr, err := req.RequireString("fact_type")
		if err != nil {
			return mcp.NewToolResultError("fact_type is required"), nil
		}
		ft := facttype.FactType(ftStr)
		if _, err := facttype.Lookup(ft); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown fact_type %q (available: %s)", ftStr, factTypeList())), nil
		}

		scope := retrieve.Scope{}
		if d, err := req.RequireString("domain"); err == nil && d != "" {
			scope.Domain = d
		}
		if d, err := req.RequireString("document"); err == nil && d != "" {
			scope.DocumentID = d
		}

		k := 0
		if kv, err := req.RequireFloat("k"); err == nil && kv > 0 {
			k = int(kv)
			if k > 20 {
				k = 20
			}
		}

		ranked, err := retriever.Retrieve(ctx, scope, ft, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		type hit struct {
			DocumentID string  `json:"document_id"`
			ChunkIndex int     `json:"chunk_index"`
			Similarity float64 `json:"similarity"`
			Boost      float64 `json:"boost"`
			Score      float64 `json:"score"`
			Text       string  `json:"text"`
		}
		hits := make([]hit, len(ranked))
		for i, r := range ranked {
			hits[i] = hit{
				DocumentID: r.Chunk.DocumentID,
				ChunkIndex: r.Chunk.Index,
				Similarity: r.Similarity,
				Boost:      r.Boost,
				Score:      r.Score,
				Text:       r.Chunk.Text,
			}
		}

		data, _ := json.MarshalIndent(hits, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerExtractTool(s *server.MCPServer, orch *extract.Orchestrator, st store.Store) {
	tool := mcp.NewTool("distill_extract",
		mcp.WithDescription("Extract a structured fact from an ingested domain or document. Retrieves candidate chunks, prompts the model with a JSON schema, validates, and persists the result."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("fact_type",
			mcp.Required(),
			mcp.Description("Fact type to extract (e.g. office_locations, year_founded)"),
		),
		mcp.WithString("domain",
			mcp.Description("Domain scope (e.g. '137law.com'). One of domain or document is required."),
		),
		mcp.WithString("document",
			mcp.Description("Document id scope. One of domain or document is required."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		ftStr, err := req.RequireString("fact_type")
		if err != nil {
			return mcp.NewToolResultError("fact_type is required"), nil
		}
		ft := facttype.FactType(ftStr)
		if _, err := facttype.Lookup(ft); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown fact_type %q (available: %s)", ftStr, factTypeList())), nil
		}

		scope := retrieve.Scope{}
		if d, err := req.RequireString("domain"); err == nil && d != "" {
			scope.Domain = d
		}
		if d, err := req.RequireString("document"); err == nil && d != "" {
			scope.DocumentID = d
		}
		if scope.Domain == "" && scope.DocumentID == "" {
			return mcp.NewToolResultError("domain or document is required"), nil
		}

		result, err := orch.ExtractFact(ctx, scope, ft)
		if err != nil {
			if errors.Is(err, extract.ErrInsufficientContext) {
				return mcp.NewToolResultError(fmt.Sprintf("no ingested chunks in scope for %s", ft)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("extract error: %v", err)), nil
		}

		if err := st.SaveResult(ctx, result); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saving result: %v", err)), nil
		}

		out := map[string]interface{}{
			"scope":     result.Scope,
			"fact_type": result.FactType,
			"payload":   json.RawMessage(result.Payload),
			"model":     result.Model,
			"attempts":  result.Attempts,
			"chunk_ids": result.ChunkIDs,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerFactsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("distill_facts",
		mcp.WithDescription("Read the latest stored extraction results for a scope. Returns one result per fact type where one exists."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("scope",
			mcp.Required(),
			mcp.Description("Domain or document id the facts were extracted for"),
		),
		mcp.WithString("fact_type",
			mcp.Description("Restrict to a single fact type. Empty = all."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		scope, err := req.RequireString("scope")
		if err != nil {
			return mcp.NewToolResultError("scope is required"), nil
		}

		types := facttype.All()
		if ftStr, err := req.RequireString("fact_type"); err == nil && ftStr != "" {
			ft := facttype.FactType(ftStr)
			if _, err := facttype.Lookup(ft); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("unknown fact_type %q", ftStr)), nil
			}
			types = []facttype.FactType{ft}
		}

		type fact struct {
			FactType    string          `json:"fact_type"`
			Payload     json.RawMessage `json:"payload"`
			Model       string          `json:"model"`
			Attempts    int             `json:"attempts"`
			ExtractedAt string          `json:"extracted_at"`
		}
		var facts []fact
		for _, ft := range types {
			r, err := st.LatestResult(ctx, scope, string(ft))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("reading results: %v", err)), nil
			}
			if r == nil {
				continue
			}
			facts = append(facts, fact{
				FactType:    r.FactType,
				Payload:     r.Payload,
				Model:       r.Model,
				Attempts:    r.Attempts,
				ExtractedAt: r.ExtractedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}

		if len(facts) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No extraction results stored for scope %q", scope)), nil
		}
		data, _ := json.MarshalIndent(facts, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("distill_stats",
		mcp.WithDescription("Corpus statistics for a domain: live document and chunk counts and pattern-flag coverage (addresses, contact info, money amounts)."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("domain",
			mcp.Required(),
			mcp.Description("Domain to report on (e.g. '137law.com')"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		domain, err := req.RequireString("domain")
		if err != nil {
			return mcp.NewToolResultError("domain is required"), nil
		}

		stats, err := st.Stats(ctx, domain)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}
		if stats == nil {
			return mcp.NewToolResultText(fmt.Sprintf("No ingested corpus for domain %q", domain)), nil
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerFactTypesResource(s *server.MCPServer) {
	resource := mcp.NewResource(
		"distill://fact-types",
		"Fact Types",
		mcp.WithResourceDescription("Every registered fact type with its retrieval query, chunk budget, and JSON schema."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type typeInfo struct {
			Type   string          `json:"type"`
			Query  string          `json:"query"`
			K      int             `json:"k"`
			Schema json.RawMessage `json:"schema"`
		}
		var infos []typeInfo
		for _, ft := range facttype.All() {
			spec, err := facttype.Lookup(ft)
			if err != nil {
				continue
			}
			infos = append(infos, typeInfo{
				Type:   string(spec.Type),
				Query:  spec.Query,
				K:      spec.K,
				Schema: spec.Schema,
			})
		}

		data, _ := json.MarshalIndent(infos, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func factTypeList() string {
	types := facttype.All()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
