// Package rpcapi is the Go contract layer for the methods an external
// transport exposes over the code graph: request/response types plus a
// Server that validates and executes them against the indexer, the impact
// orchestrator and the store. It does not listen on a socket or stdin —
// that belongs to a transport built on top, out of scope here the same way
// the teacher's StdioTransport sits above its Handler.
package rpcapi

import (
	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

// SeedRef identifies a symbol by either its numeric id or its qualname, the
// "id|qualname" argument shape every impact/subgraph/references method
// accepts. Exactly one field must be set.
type SeedRef struct {
	ID       *int64  `json:"id,omitempty"`
	Qualname *string `json:"qualname,omitempty"`
}

// ReindexRequest carries reindex()'s optional arguments.
type ReindexRequest struct {
	CommitSHA *string `json:"commit_sha,omitempty"`
	NoIgnore  bool    `json:"no_ignore,omitempty"`
}

// ChangedFilesRequest carries changed_files(languages?)'s arguments.
type ChangedFilesRequest struct {
	Languages []string `json:"languages,omitempty"`
}

// AnalyzeImpactRequest carries analyze_impact(...)'s arguments.
type AnalyzeImpactRequest struct {
	Seeds            []SeedRef `json:"seeds"`
	MaxDepth         int       `json:"max_depth,omitempty"`
	Direction        string    `json:"direction,omitempty"`
	Kinds            []string  `json:"kinds,omitempty"`
	IncludeTests     bool      `json:"include_tests,omitempty"`
	IncludePaths     bool      `json:"include_paths,omitempty"`
	Limit            int       `json:"limit,omitempty"`
	MinConfidence    float64   `json:"min_confidence,omitempty"`
	EnableDirect     *bool     `json:"enable_direct,omitempty"`
	EnableTest       *bool     `json:"enable_test,omitempty"`
	EnableHistorical *bool     `json:"enable_historical,omitempty"`
	Languages        []string  `json:"languages,omitempty"`
	GraphVersion     *int64    `json:"graph_version,omitempty"`
}

// ListGraphVersionsRequest carries list_graph_versions(limit, offset)'s arguments.
type ListGraphVersionsRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListGraphVersionsResponse is list_graph_versions' response.
type ListGraphVersionsResponse struct {
	Versions []models.GraphVersionRecord `json:"versions"`
}

// SubgraphRequest carries subgraph(start_ids, depth, max_nodes, ...)'s arguments.
type SubgraphRequest struct {
	StartRefs    []SeedRef `json:"start_refs"`
	Depth        int       `json:"depth"`
	MaxNodes     int       `json:"max_nodes"`
	Kinds        []string  `json:"kinds,omitempty"`
	ExcludeKinds []string  `json:"exclude_kinds,omitempty"`
	ResolvedOnly bool      `json:"resolved_only,omitempty"`
	Languages    []string  `json:"languages,omitempty"`
	GraphVersion *int64    `json:"graph_version,omitempty"`
}

// ReferencesRequest carries references(id|qualname, direction, kinds?, limit?, ...)'s arguments.
type ReferencesRequest struct {
	Ref          SeedRef  `json:"ref"`
	Direction    string   `json:"direction,omitempty"`
	Kinds        []string `json:"kinds,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Languages    []string `json:"languages,omitempty"`
	GraphVersion *int64   `json:"graph_version,omitempty"`
}

// ReferencesResponse is references' response: the resolved symbol plus every
// edge touching it, split by which endpoint it occupies.
type ReferencesResponse struct {
	Symbol    models.Symbol `json:"symbol"`
	Incoming  []models.Edge `json:"incoming"`
	Outgoing  []models.Edge `json:"outgoing"`
	Truncated bool          `json:"truncated"`
}

// SubgraphResponse is subgraph's response.
type SubgraphResponse struct {
	Nodes []models.Symbol `json:"nodes"`
	Edges []models.Edge   `json:"edges"`
}

func fromStoreSubgraph(sg *store.Subgraph) SubgraphResponse {
	return SubgraphResponse{Nodes: sg.Nodes, Edges: sg.Edges}
}
