package rpcapi

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lidxdev/lidx/internal/impact"
	"github.com/lidxdev/lidx/internal/indexer"
	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

// Server implements every method in the RPC surface against one repository's
// indexer, impact orchestrator and store. It is a plain Go value — wiring it
// to a wire transport (stdio, HTTP, whatever) is the caller's job.
type Server struct {
	store        *store.Store
	indexer      *indexer.Indexer
	orchestrator *impact.Orchestrator
	log          *logrus.Logger
}

// New builds a Server over an already-opened store, indexer and orchestrator.
func New(st *store.Store, ix *indexer.Indexer, orch *impact.Orchestrator, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{store: st, indexer: ix, orchestrator: orch, log: log}
}

// Reindex implements reindex().
func (s *Server) Reindex(ctx context.Context, req ReindexRequest) (models.IndexStats, error) {
	return s.indexer.Reindex(ctx, req.CommitSHA, req.NoIgnore)
}

// ChangedFiles implements changed_files(languages?).
func (s *Server) ChangedFiles(ctx context.Context, req ChangedFilesRequest) (models.ChangedFiles, error) {
	return s.indexer.ChangedFiles(ctx, req.Languages)
}

// AnalyzeImpact implements analyze_impact(...). Seeds that don't resolve are
// reported as skip reasons alongside whatever result comes back from the
// seeds that did; the call only returns an error for a validation failure
// (e.g. a seed naming neither id nor qualname) or a layer plumbing failure.
func (s *Server) AnalyzeImpact(ctx context.Context, req AnalyzeImpactRequest) (models.ImpactResult, []models.SkipReason, error) {
	graphVersion, err := s.resolveGraphVersion(ctx, req.GraphVersion)
	if err != nil {
		return models.ImpactResult{}, nil, err
	}

	ids, skips, err := s.resolveSeeds(ctx, req.Seeds, req.Languages, graphVersion)
	if err != nil {
		return models.ImpactResult{}, nil, err
	}
	if len(ids) == 0 {
		return models.ImpactResult{}, skips, nil
	}

	cfg := buildImpactConfig(req)
	result, err := s.orchestrator.Analyze(ctx, ids, cfg, graphVersion)
	if err != nil {
		return models.ImpactResult{}, skips, err
	}
	return result, skips, nil
}

func buildImpactConfig(req AnalyzeImpactRequest) impact.MultiLayerConfig {
	b := impact.NewConfigBuilder()
	if req.MaxDepth > 0 {
		b.MaxDepth(req.MaxDepth)
	}
	if req.Direction != "" {
		b.Direction(models.ParseTraversalDirection(req.Direction))
	}
	b.IncludeTests(req.IncludeTests)
	b.IncludePaths(req.IncludePaths)
	if req.MinConfidence > 0 {
		b.MinConfidence(req.MinConfidence)
	}
	if req.Limit > 0 {
		b.Limit(req.Limit)
	}
	if req.EnableTest != nil {
		b.EnableTestLayer(*req.EnableTest)
	}
	if req.EnableHistorical != nil {
		b.EnableHistoricalLayer(*req.EnableHistorical)
	}
	cfg := b.Build()
	if req.EnableDirect != nil {
		cfg.Direct.Enabled = *req.EnableDirect
	}
	if len(req.Kinds) > 0 {
		cfg.Direct.Kinds = toEdgeKinds(req.Kinds)
	}
	cfg.Direct.Languages = req.Languages
	return cfg
}

// ListGraphVersions implements list_graph_versions(limit, offset).
func (s *Server) ListGraphVersions(ctx context.Context, req ListGraphVersionsRequest) (ListGraphVersionsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.store.ListGraphVersions(ctx, limit, req.Offset)
	if err != nil {
		return ListGraphVersionsResponse{}, err
	}
	out := make([]models.GraphVersionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.GraphVersionRecord{
			ID:        r.ID,
			Created:   unixToTime(r.Created),
			CommitSHA: r.CommitSHA,
		})
	}
	return ListGraphVersionsResponse{Versions: out}, nil
}

// Subgraph implements subgraph(start_ids, depth, max_nodes, ...).
func (s *Server) Subgraph(ctx context.Context, req SubgraphRequest) (SubgraphResponse, []models.SkipReason, error) {
	graphVersion, err := s.resolveGraphVersion(ctx, req.GraphVersion)
	if err != nil {
		return SubgraphResponse{}, nil, err
	}

	ids, skips, err := s.resolveSeeds(ctx, req.StartRefs, req.Languages, graphVersion)
	if err != nil {
		return SubgraphResponse{}, nil, err
	}
	if len(ids) == 0 {
		return SubgraphResponse{}, skips, nil
	}

	depth := req.Depth
	if depth <= 0 {
		depth = 2
	}
	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = 200
	}

	filter := &store.SubgraphFilter{ResolvedOnly: req.ResolvedOnly}
	if len(req.Kinds) > 0 {
		filter.Include = toEdgeKindSet(req.Kinds)
	}
	if len(req.ExcludeKinds) > 0 {
		filter.Exclude = toEdgeKindSet(req.ExcludeKinds)
	}

	sg, err := s.store.Subgraph(ctx, ids, depth, maxNodes, req.Languages, graphVersion, filter)
	if err != nil {
		return SubgraphResponse{}, skips, err
	}
	return fromStoreSubgraph(sg), skips, nil
}

// References implements references(id|qualname, direction, kinds?, limit?, ...).
func (s *Server) References(ctx context.Context, req ReferencesRequest) (ReferencesResponse, *models.SkipReason, error) {
	graphVersion, err := s.resolveGraphVersion(ctx, req.GraphVersion)
	if err != nil {
		return ReferencesResponse{}, nil, err
	}

	id, sym, skip, err := s.resolveSeed(ctx, req.Ref, 0, req.Languages, graphVersion)
	if err != nil {
		return ReferencesResponse{}, nil, err
	}
	if skip != nil {
		return ReferencesResponse{}, skip, nil
	}

	neighborMap, err := s.store.EdgesForSymbols(ctx, []int64{id}, req.Languages, graphVersion)
	if err != nil {
		return ReferencesResponse{}, nil, err
	}
	edges := neighborMap[id]

	var kindSet map[models.EdgeKind]bool
	if len(req.Kinds) > 0 {
		kindSet = toEdgeKindSet(req.Kinds)
	}
	direction := models.ParseTraversalDirection(req.Direction)

	var incoming, outgoing []models.Edge
	for _, e := range edges {
		if kindSet != nil && !kindSet[e.Kind] {
			continue
		}
		if e.TargetSymbolID != nil && *e.TargetSymbolID == id && (direction == models.DirectionUpstream || direction == models.DirectionBoth) {
			incoming = append(incoming, e)
		}
		if e.SourceSymbolID != nil && *e.SourceSymbolID == id && (direction == models.DirectionDownstream || direction == models.DirectionBoth) {
			outgoing = append(outgoing, e)
		}
	}

	truncated := false
	if req.Limit > 0 {
		if len(incoming) > req.Limit {
			incoming = incoming[:req.Limit]
			truncated = true
		}
		if len(outgoing) > req.Limit {
			outgoing = outgoing[:req.Limit]
			truncated = true
		}
	}

	return ReferencesResponse{Symbol: *sym, Incoming: incoming, Outgoing: outgoing, Truncated: truncated}, nil, nil
}

func (s *Server) resolveGraphVersion(ctx context.Context, requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	return s.store.CurrentGraphVersion(ctx)
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func toEdgeKinds(kinds []string) []models.EdgeKind {
	out := make([]models.EdgeKind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, models.EdgeKind(k))
	}
	return out
}

func toEdgeKindSet(kinds []string) map[models.EdgeKind]bool {
	set := make(map[models.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		set[models.EdgeKind(k)] = true
	}
	return set
}
