package schemas

import "time"

// Termination reasons reported in ResearchAgentResult.
const (
	TerminationAllObjectivesComplete = "all_objectives_complete"
	TerminationMaxCallsReached       = "max_calls_reached"
	TerminationNoNewInformation      = "no_new_information"
)

// ResearchObjective represents a single research question the session must
// answer with supporting evidence. Completed is mutated only by the
// iteration controller.
type ResearchObjective struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Completed bool   `json:"completed"`
}

// ExtractedQuote is a span of text cited as evidence for one or more
// objectives. Quotes are immutable once created and may be shared by
// multiple objective statuses.
type ExtractedQuote struct {
	Quote        string    `json:"quote"`
	SourceURL    string    `json:"source_url"`
	ObjectiveIDs []string  `json:"objective_ids"`
	Timestamp    time.Time `json:"timestamp"`
}

// ObjectiveStatus tracks the evidence collected for one objective.
// An objective is completed once it has at least two supporting quotes.
type ObjectiveStatus struct {
	ObjectiveID      string           `json:"objective_id"`
	Completed        bool             `json:"completed"`
	SupportingQuotes []ExtractedQuote `json:"supporting_quotes"`
}

// SessionRequest represents the caller-supplied inputs for one research
// session.
type SessionRequest struct {
	Objectives     []string `json:"objectives"`
	StartingQuery  string   `json:"starting_query"`
	MaxCalls       int      `json:"max_calls"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
	BlockedDomains []string `json:"blocked_domains,omitempty"`
}

// ResearchAgentResult is the structured result returned to the caller of the
// orchestrator. CompletedObjectives carries the status of every objective in
// session order; callers filter on the Completed flag. AllQuotes is
// deduplicated.
type ResearchAgentResult struct {
	SessionID           string            `json:"session_id"`
	CompletedObjectives []ObjectiveStatus `json:"completed_objectives"`
	AllQuotes           []ExtractedQuote  `json:"all_quotes"`
	IterationCount      int               `json:"iteration_count"`
	TerminationReason   string            `json:"termination_reason"`
	FinalSummary        string            `json:"final_summary"`
}

// ProgressEvent describes a notable moment inside a running session. Events
// are advisory; dropping them never affects the session outcome.
type ProgressEvent struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Iteration int       `json:"iteration"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress event types emitted by the controller.
const (
	EventIterationStarted  = "iteration_started"
	EventSourceFetched     = "source_fetched"
	EventObjectiveComplete = "objective_complete"
	EventSessionComplete   = "session_complete"
)
