// Package research implements the objective-driven research orchestrator:
// the iteration controller and the pure functions it composes for candidate
// scoring, content extraction, failure classification, quote deduplication,
// and completion assessment.
package research

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spawn-mcp/researcher/pkg/blocklist"
	"github.com/spawn-mcp/researcher/pkg/capability"
	"github.com/spawn-mcp/researcher/pkg/events"
	"github.com/spawn-mcp/researcher/pkg/schemas"
)

const (
	// Candidates fetched per iteration, after blocklist filtering.
	maxCandidatesPerIteration = 3
	// Extracted bodies shorter than this are discarded as low-value.
	substantialityThreshold = 500
	// Independent deadline applied to each fetch.
	defaultFetchTimeout = 120 * time.Second
	// Deadline applied to each plan/quote-extraction call.
	defaultPlanTimeout = 120 * time.Second
	// Deadline applied to each search call.
	defaultSearchTimeout = 60 * time.Second
)

// Controller runs research sessions against the external capability. One
// Controller may run many sessions; each Run owns its session state
// exclusively.
type Controller struct {
	capability capability.Client
	registry   *blocklist.Registry
	publisher  events.Publisher
	logger     *zap.Logger

	fetchTimeout  time.Duration
	planTimeout   time.Duration
	searchTimeout time.Duration

	// stagnationLimit terminates a session with no_new_information after
	// this many consecutive iterations produced zero new quotes. Zero
	// disables the detector, which is the default.
	stagnationLimit int
}

// Option configures a Controller.
type Option func(*Controller)

// WithProgressPublisher sets the publisher for session progress events.
func WithProgressPublisher(p events.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithStagnationLimit enables the no_new_information terminal condition
// after n consecutive quote-less iterations.
func WithStagnationLimit(n int) Option {
	return func(c *Controller) { c.stagnationLimit = n }
}

// WithFetchTimeout overrides the per-fetch deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) { c.fetchTimeout = d }
}

// NewController creates a controller over the given capability and persisted
// block registry.
func NewController(client capability.Client, registry *blocklist.Registry, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		capability:    client,
		registry:      registry,
		publisher:     events.NopPublisher{},
		logger:        logger,
		fetchTimeout:  defaultFetchTimeout,
		planTimeout:   defaultPlanTimeout,
		searchTimeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one research session: up to MaxCalls iterations of search,
// fetch, analyze, and assess. It always returns a structured result unless
// the request itself is invalid; external-capability failures are absorbed
// into per-source or per-iteration skip logic.
func (c *Controller) Run(ctx context.Context, req schemas.SessionRequest) (*schemas.ResearchAgentResult, error) {
	if len(req.Objectives) == 0 {
		return nil, fmt.Errorf("at least one objective is required")
	}
	for _, q := range req.Objectives {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("objectives must be non-empty")
		}
	}
	if strings.TrimSpace(req.StartingQuery) == "" {
		return nil, fmt.Errorf("starting query is required")
	}

	sessionID := uuid.New().String()
	logger := c.logger.With(zap.String("session_id", sessionID))
	state := newResearchState(req.Objectives, req.StartingQuery, c.registry.Hostnames())

	logger.Info("starting research session",
		zap.Int("objectives", len(state.Objectives)),
		zap.Int("max_calls", req.MaxCalls),
		zap.String("starting_query", req.StartingQuery))

	terminationReason := schemas.TerminationMaxCallsReached
	stagnantIterations := 0

	for state.IterationCount < req.MaxCalls {
		state.IterationCount++
		c.notify(ctx, sessionID, schemas.EventIterationStarted, state.IterationCount,
			fmt.Sprintf("query: %s", state.LastQuery))

		newQuotes := c.runIteration(ctx, sessionID, state, req, logger)

		if AssessCompletion(state.ObjectiveStatus).AllComplete {
			terminationReason = schemas.TerminationAllObjectivesComplete
			break
		}

		if c.stagnationLimit > 0 {
			if newQuotes == 0 {
				stagnantIterations++
				if stagnantIterations >= c.stagnationLimit {
					terminationReason = schemas.TerminationNoNewInformation
					break
				}
			} else {
				stagnantIterations = 0
			}
		}
	}

	state.AccumulatedQuotes = DeduplicateQuotes(state.AccumulatedQuotes)

	result := &schemas.ResearchAgentResult{
		SessionID:           sessionID,
		CompletedObjectives: state.ObjectiveStatus,
		AllQuotes:           state.AccumulatedQuotes,
		IterationCount:      state.IterationCount,
		TerminationReason:   terminationReason,
		FinalSummary:        buildFinalSummary(state, terminationReason),
	}

	c.notify(ctx, sessionID, schemas.EventSessionComplete, state.IterationCount, terminationReason)
	logger.Info("research session finished",
		zap.String("termination_reason", terminationReason),
		zap.Int("iterations", state.IterationCount),
		zap.Int("quotes", len(state.AccumulatedQuotes)))

	return result, nil
}

// runIteration executes one search/fetch/analyze pass and returns the number
// of quotes merged. A search failure skips the whole iteration without
// mutating state.
func (c *Controller) runIteration(ctx context.Context, sessionID string, state *ResearchState, req schemas.SessionRequest, logger *zap.Logger) int {
	blocked := c.combinedBlocklist(state, req.BlockedDomains)

	searchCtx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	searchResp, err := c.capability.Search(searchCtx, capability.SearchRequest{
		Query:          state.LastQuery,
		AllowedDomains: req.AllowedDomains,
		BlockedDomains: blocked,
	})
	cancel()
	if err != nil {
		logger.Warn("search failed, skipping iteration",
			zap.Int("iteration", state.IterationCount), zap.Error(err))
		return 0
	}

	candidates := ExtractCandidates(searchResp.Results, state.LastQuery)
	if len(candidates) > maxCandidatesPerIteration {
		candidates = candidates[:maxCandidatesPerIteration]
	}
	if len(candidates) == 0 {
		logger.Info("no candidate sources in search output",
			zap.Int("iteration", state.IterationCount))
		return 0
	}

	var toFetch []Candidate
	blockedSet := make(map[string]bool, len(blocked))
	for _, b := range blocked {
		blockedSet[b] = true
	}
	for _, cand := range candidates {
		if state.SourceTracker[cand.URL] {
			continue
		}
		if hostBlocked(hostnameOf(cand.URL), blockedSet) {
			continue
		}
		toFetch = append(toFetch, cand)
	}

	outcomes := c.fetchAll(ctx, toFetch)

	var queued []analysisInput
	for _, out := range outcomes {
		if out.err != nil {
			c.recordFetchFailure(ctx, state, out, logger)
			continue
		}
		if strings.TrimSpace(out.text) == "" {
			logger.Info("fetch returned no text", zap.String("url", out.candidate.URL))
			continue
		}

		extracted, err := Extract(out.text, out.candidate.URL)
		if err != nil {
			// Extract only fails on empty input, which the checks above
			// rule out; reaching this is a bug in the controller.
			logger.DPanic("content extraction contract violation",
				zap.String("url", out.candidate.URL), zap.Error(err))
			continue
		}
		if len(extracted.Content) < substantialityThreshold {
			logger.Info("discarding low-value source",
				zap.String("url", out.candidate.URL),
				zap.Int("content_length", len(extracted.Content)))
			continue
		}

		state.SourceTracker[out.candidate.URL] = true
		queued = append(queued, analysisInput{url: out.candidate.URL, content: extracted})
		c.notify(ctx, sessionID, schemas.EventSourceFetched, state.IterationCount, out.candidate.URL)
	}

	if len(queued) == 0 {
		return 0
	}

	planResults := c.analyzeAll(ctx, queued, state, logger)

	merged := 0
	completedBefore := AssessCompletion(state.ObjectiveStatus).CompletedCount
	nextQuery := ""
	for i, plan := range planResults {
		if plan == nil {
			continue
		}
		for _, q := range plan.Quotes {
			if strings.TrimSpace(q.Quote) == "" {
				continue
			}
			state.mergeQuote(quoteFromCapability(q.Quote, q.ObjectiveIDs, queued[i].url))
			merged++
		}
		if nextQuery == "" && strings.TrimSpace(plan.NextQuery) != "" {
			nextQuery = strings.TrimSpace(plan.NextQuery)
		}
	}
	if nextQuery != "" {
		state.LastQuery = nextQuery
	}

	if completedAfter := AssessCompletion(state.ObjectiveStatus).CompletedCount; completedAfter > completedBefore {
		c.notify(ctx, sessionID, schemas.EventObjectiveComplete, state.IterationCount,
			fmt.Sprintf("%d/%d objectives complete", completedAfter, len(state.ObjectiveStatus)))
	}
	return merged
}

// fetchOutcome is the immutable result of one concurrent fetch.
type fetchOutcome struct {
	candidate Candidate
	text      string
	err       error
}

// fetchAll fans out one goroutine per candidate, each with an independent
// deadline. All fetches are joined before returning; one failure never
// cancels its siblings. Outcomes preserve candidate order.
func (c *Controller) fetchAll(ctx context.Context, candidates []Candidate) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(candidates))
	var wg sync.WaitGroup

	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand Candidate) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()

			resp, err := c.capability.Fetch(fetchCtx, cand.URL)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("individual fetch timeout after %s: %w", c.fetchTimeout, err)
				}
				outcomes[i] = fetchOutcome{candidate: cand, err: err}
				return
			}
			outcomes[i] = fetchOutcome{candidate: cand, text: resp.Results}
		}(i, cand)
	}

	wg.Wait()
	return outcomes
}

// analysisInput pairs a tracked source with its extracted content.
type analysisInput struct {
	url     string
	content *ExtractedContent
}

// analyzeAll fans out plan calls for every queued extraction. A failed call
// yields a nil entry for that source only.
func (c *Controller) analyzeAll(ctx context.Context, queued []analysisInput, state *ResearchState, logger *zap.Logger) []*capability.PlanResponse {
	results := make([]*capability.PlanResponse, len(queued))
	incomplete := state.incompleteObjectives()
	objectives := make([]schemas.ResearchObjective, len(state.Objectives))
	copy(objectives, state.Objectives)

	var wg sync.WaitGroup
	for i, item := range queued {
		wg.Add(1)
		go func(i int, item analysisInput) {
			defer wg.Done()

			planCtx, cancel := context.WithTimeout(ctx, c.planTimeout)
			defer cancel()

			resp, err := c.capability.Plan(planCtx, capability.PlanRequest{
				Content:              item.content.Content,
				Objectives:           objectives,
				SourceURL:            item.url,
				IncompleteObjectives: incomplete,
			})
			if err != nil {
				logger.Warn("analysis failed for source",
					zap.String("url", item.url), zap.Error(err))
				return
			}
			results[i] = resp
		}(i, item)
	}

	wg.Wait()
	return results
}

// recordFetchFailure classifies the error and applies the block side effect:
// permanent blocks are written through to the persisted registry, session
// blocks only mark the in-memory failed set, and non-blocking errors skip the
// source for this attempt.
func (c *Controller) recordFetchFailure(ctx context.Context, state *ResearchState, out fetchOutcome, logger *zap.Logger) {
	cls := Classify(out.err)
	host := hostnameOf(out.candidate.URL)

	logger.Warn("fetch failed",
		zap.String("url", out.candidate.URL),
		zap.String("classification", cls.Type),
		zap.String("reason", cls.Reason),
		zap.Error(out.err))

	switch cls.Type {
	case ClassPermanentBlock:
		c.registry.Block(ctx, host, cls.Reason)
		state.FailedDomains[host] = true
	case ClassSessionBlock:
		state.FailedDomains[host] = true
	}
}

// combinedBlocklist unions the caller's blocked domains, the session's
// failed domains, and the persisted registry.
func (c *Controller) combinedBlocklist(state *ResearchState, callerBlocked []string) []string {
	set := make(map[string]bool)
	for _, d := range callerBlocked {
		set[strings.ToLower(d)] = true
	}
	for d := range state.FailedDomains {
		set[strings.ToLower(d)] = true
	}
	for _, d := range c.registry.Hostnames() {
		set[strings.ToLower(d)] = true
	}

	blocked := make([]string, 0, len(set))
	for d := range set {
		blocked = append(blocked, d)
	}
	sort.Strings(blocked)
	return blocked
}

// hostBlocked matches a hostname against blocked entries either exactly or
// as a parent domain (blocking example.com also blocks www.example.com).
func hostBlocked(host string, blocked map[string]bool) bool {
	host = strings.ToLower(host)
	if blocked[host] {
		return true
	}
	for b := range blocked {
		if strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

func (c *Controller) notify(ctx context.Context, sessionID, eventType string, iteration int, detail string) {
	event := schemas.ProgressEvent{
		SessionID: sessionID,
		Type:      eventType,
		Iteration: iteration,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Debug("failed to publish progress event", zap.Error(err))
	}
}

// buildFinalSummary renders a short human-readable account of the session.
func buildFinalSummary(state *ResearchState, reason string) string {
	assessment := AssessCompletion(state.ObjectiveStatus)

	var b strings.Builder
	fmt.Fprintf(&b, "Research session finished after %d iteration(s): %d of %d objectives completed (%.0f%%), %d supporting quote(s) collected from %d source(s).",
		state.IterationCount,
		assessment.CompletedCount,
		assessment.TotalCount,
		assessment.CompletionRate*100,
		len(state.AccumulatedQuotes),
		len(state.SourceTracker))

	switch reason {
	case schemas.TerminationAllObjectivesComplete:
		b.WriteString(" All objectives were answered with sufficient evidence.")
	case schemas.TerminationMaxCallsReached:
		b.WriteString(" The call budget was exhausted before all objectives completed.")
	case schemas.TerminationNoNewInformation:
		b.WriteString(" The session stopped after repeated iterations yielded no new evidence.")
	}

	for _, st := range state.ObjectiveStatus {
		if !st.Completed {
			fmt.Fprintf(&b, "\nObjective %s remains open with %d quote(s).", st.ObjectiveID, len(st.SupportingQuotes))
		}
	}
	return b.String()
}
