package resolve

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

// bridgeKinds is the full set of edge kinds the literal-matching pass
// considers when bucketing by normalized key.
var bridgeKinds = []models.EdgeKind{
	models.EdgeChannelPublish, models.EdgeChannelSubscribe,
	models.EdgeRPCCall, models.EdgeRPCImpl,
	models.EdgeHTTPCall, models.EdgeHTTPRoute,
}

// unresolvedBatchSize bounds how many unresolved edges a single Link pass
// pulls per query round, so a repo with a huge unresolved backlog doesn't
// load it all into memory at once.
const unresolvedBatchSize = 2000

// Linker performs the post-write cross-language linking pass: resolving
// edges whose target is still a bare qualname, then synthesizing XREF edges
// between literal-matched publish/subscribe, call/impl and call/route pairs.
type Linker struct {
	store *store.Store
	log   *logrus.Logger
}

// New creates a Linker over st, logging via log (or a default logger if nil).
func New(st *store.Store, log *logrus.Logger) *Linker {
	if log == nil {
		log = logrus.New()
	}
	return &Linker{store: st, log: log}
}

// Stats summarizes one Link pass.
type Stats struct {
	QualnameResolved int
	XrefCreated      int
}

// Link runs both stages of cross-language linking at graphVersion, scoped to
// languages (nil/empty means all languages).
func (l *Linker) Link(ctx context.Context, graphVersion int64, languages []string) (Stats, error) {
	var stats Stats

	resolved, err := l.resolveUnresolvedTargets(ctx, graphVersion, languages)
	if err != nil {
		return stats, err
	}
	stats.QualnameResolved = resolved

	created, err := l.synthesizeXrefEdges(ctx, graphVersion)
	if err != nil {
		return stats, err
	}
	stats.XrefCreated = created

	return stats, nil
}

// resolveUnresolvedTargets repeatedly fetches edges whose target is still a
// bare qualname and tries lookup_symbol_id_fuzzy against it, until a round
// resolves nothing further.
func (l *Linker) resolveUnresolvedTargets(ctx context.Context, graphVersion int64, languages []string) (int, error) {
	total := 0
	for {
		edges, err := l.store.UnresolvedEdges(ctx, graphVersion, unresolvedBatchSize)
		if err != nil {
			return total, err
		}
		if len(edges) == 0 {
			return total, nil
		}

		resolvedThisRound := 0
		for _, e := range edges {
			if e.TargetQualname == nil {
				continue
			}
			id, ok, err := l.store.LookupSymbolIDFuzzy(ctx, *e.TargetQualname, languages, graphVersion)
			if err != nil {
				return total, err
			}
			if !ok {
				continue
			}
			if err := l.store.ResolveEdgeTarget(ctx, e.ID, id); err != nil {
				return total, err
			}
			resolvedThisRound++
		}
		total += resolvedThisRound

		if resolvedThisRound == 0 || len(edges) < unresolvedBatchSize {
			return total, nil
		}
	}
}

// synthesizeXrefEdges buckets the bridge-pair edge kinds by a normalized
// literal key read from each edge's detail blob, then links every publisher
// to every subscriber (and caller to every impl/route) sharing a key with an
// XREF edge, skipping pairs already linked in an earlier pass.
func (l *Linker) synthesizeXrefEdges(ctx context.Context, graphVersion int64) (int, error) {
	edges, err := l.store.EdgesByKinds(ctx, bridgeKinds, graphVersion)
	if err != nil {
		return 0, err
	}

	type bucketKey struct {
		kind models.EdgeKind
		key  string
	}
	buckets := map[bucketKey][]models.Edge{}
	for _, e := range edges {
		if e.SourceSymbolID == nil || e.Detail == nil {
			continue
		}
		key := literalKey(e)
		if key == "" {
			continue
		}
		buckets[bucketKey{kind: e.Kind, key: key}] = append(buckets[bucketKey{kind: e.Kind, key: key}], e)
	}

	created := 0
	seenPairs := map[[2]int64]bool{}
	for bk, group := range buckets {
		switch bk.kind {
		case models.EdgeChannelSubscribe, models.EdgeRPCImpl, models.EdgeHTTPRoute:
			continue // each pair is linked once, from its publisher/caller side
		}
		complements := BridgeComplement(bk.kind)
		if len(complements) == 0 {
			continue
		}
		for _, complementKind := range complements {
			others, ok := buckets[bucketKey{kind: complementKind, key: bk.key}]
			if !ok {
				continue
			}
			for _, a := range group {
				for _, b := range others {
					if a.ID == b.ID || a.SourceSymbolID == nil || b.SourceSymbolID == nil {
						continue
					}
					if *a.SourceSymbolID == *b.SourceSymbolID {
						continue
					}
					pair := [2]int64{*a.SourceSymbolID, *b.SourceSymbolID}
					if seenPairs[pair] {
						continue
					}
					seenPairs[pair] = true

					exists, err := l.store.EdgeExists(ctx, models.EdgeXref, *a.SourceSymbolID, *b.SourceSymbolID)
					if err != nil {
						return created, err
					}
					if exists {
						continue
					}

					if err := l.store.InsertResolvedEdge(ctx, a.FileID, models.EdgeXref, *a.SourceSymbolID, *b.SourceSymbolID, nil, graphVersion, a.CommitSHA); err != nil {
						return created, err
					}
					created++
				}
			}
		}
	}

	return created, nil
}

// literalKey extracts the normalized literal (channel, path, or route) an
// edge's detail blob carries, returning "" if none is present.
func literalKey(e models.Edge) string {
	if e.Detail == nil {
		return ""
	}
	fields := store.DecodeDetail(*e.Detail)
	switch e.Kind {
	case models.EdgeChannelPublish, models.EdgeChannelSubscribe:
		return fields["channel"]
	case models.EdgeHTTPCall, models.EdgeHTTPRoute:
		method := fields["method"]
		path := fields["path"]
		if path == "" {
			return ""
		}
		return method + " " + path
	case models.EdgeRPCCall, models.EdgeRPCImpl:
		return fields["path"]
	default:
		return ""
	}
}
