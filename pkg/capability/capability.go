// Package capability defines the contract for the external search, fetch,
// and plan capability the orchestrator depends on, plus a web-backed
// implementation of it. The orchestrator only ever sees this interface; the
// backend is a black box that may fail or stall, so every call is bounded by
// a hard per-operation deadline.
package capability

import (
	"context"

	"github.com/spawn-mcp/researcher/pkg/schemas"
)

// SearchRequest carries the query plus the caller's domain constraints.
type SearchRequest struct {
	Query          string
	AllowedDomains []string
	BlockedDomains []string
}

// SearchResponse is free-form text. Well-behaved backends embed a JSON array
// of {url, title, snippet} records; the candidate extractor falls back to a
// raw URL scan when that block is absent.
type SearchResponse struct {
	Results string
}

// FetchResponse is the raw text of a fetched source.
type FetchResponse struct {
	Results string
}

// Quote is a single piece of evidence returned by the plan capability.
type Quote struct {
	Quote        string   `json:"quote"`
	ObjectiveIDs []string `json:"objective_ids"`
}

// PlanRequest asks the backend to mine quotes out of one source and suggest
// where to look next.
type PlanRequest struct {
	Content              string
	Objectives           []schemas.ResearchObjective
	SourceURL            string
	IncompleteObjectives []string
}

// PlanResponse is the backend's evidence for one source. NextQuery may be
// empty when the backend has no suggestion.
type PlanResponse struct {
	Quotes    []Quote `json:"quotes"`
	NextQuery string  `json:"next_query"`
}

// Client is the external capability consumed by the iteration controller.
// Implementations must honor context cancellation; callers assume nothing
// about latency beyond the deadline they attach.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Fetch(ctx context.Context, url string) (*FetchResponse, error)
	Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error)
}
