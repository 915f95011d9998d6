package rpcapi

import (
	"context"
	"encoding/json"

	"github.com/lidxdev/lidx/internal/models"
)

// Dispatch routes one named call to its typed method, marshaling params in
// and the result out, the same method-name switch shape the teacher's
// Handler.Handle uses for "initialize"/"tools/list"/"tools/call"/etc,
// generalized to this system's flat RPC method set. It exists so a future
// wire transport can sit on top of Server without knowing its Go types.
func (s *Server) Dispatch(ctx context.Context, method string, paramsJSON []byte) (json.RawMessage, *Error) {
	switch method {
	case "reindex":
		return dispatchTyped(paramsJSON, func(req ReindexRequest) (models.IndexStats, error) {
			return s.Reindex(ctx, req)
		})
	case "changed_files":
		return dispatchTyped(paramsJSON, func(req ChangedFilesRequest) (interface{}, error) {
			return s.ChangedFiles(ctx, req)
		})
	case "analyze_impact":
		return dispatchTyped(paramsJSON, func(req AnalyzeImpactRequest) (interface{}, error) {
			result, skips, err := s.AnalyzeImpact(ctx, req)
			if err != nil {
				return nil, err
			}
			return analyzeImpactResponse{Result: result, Skipped: skips}, nil
		})
	case "list_graph_versions":
		return dispatchTyped(paramsJSON, func(req ListGraphVersionsRequest) (interface{}, error) {
			return s.ListGraphVersions(ctx, req)
		})
	case "subgraph":
		return dispatchTyped(paramsJSON, func(req SubgraphRequest) (interface{}, error) {
			result, skips, err := s.Subgraph(ctx, req)
			if err != nil {
				return nil, err
			}
			return subgraphResponseEnvelope{SubgraphResponse: result, Skipped: skips}, nil
		})
	case "references":
		return dispatchTyped(paramsJSON, func(req ReferencesRequest) (interface{}, error) {
			result, skip, err := s.References(ctx, req)
			if err != nil {
				return nil, err
			}
			return referencesResponseEnvelope{ReferencesResponse: result, Skipped: skip}, nil
		})
	default:
		return nil, methodNotFoundError(method)
	}
}

type analyzeImpactResponse struct {
	Result  interface{} `json:"result"`
	Skipped interface{} `json:"skipped,omitempty"`
}

type subgraphResponseEnvelope struct {
	SubgraphResponse
	Skipped interface{} `json:"skipped,omitempty"`
}

type referencesResponseEnvelope struct {
	ReferencesResponse
	Skipped interface{} `json:"skipped,omitempty"`
}

func dispatchTyped[Req any, Resp any](paramsJSON []byte, call func(Req) (Resp, error)) (json.RawMessage, *Error) {
	var req Req
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &req); err != nil {
			return nil, parseError(err.Error())
		}
	}
	resp, err := call(req)
	if err != nil {
		if rpcErr, ok := err.(*Error); ok {
			return nil, rpcErr
		}
		return nil, internalError(err)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, internalError(err)
	}
	return out, nil
}
