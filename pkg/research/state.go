package research

import (
	"fmt"
	"time"

	"github.com/spawn-mcp/researcher/pkg/schemas"
)

// ResearchState is the mutable state of one session. It is owned exclusively
// by the controller goroutine: concurrent fetch and analysis tasks return
// immutable values that the controller merges serially, so no lock is needed.
type ResearchState struct {
	Objectives        []schemas.ResearchObjective
	AccumulatedQuotes []schemas.ExtractedQuote
	ObjectiveStatus   []schemas.ObjectiveStatus
	IterationCount    int
	SourceTracker     map[string]bool
	FailedDomains     map[string]bool
	LastQuery         string
}

// newResearchState builds the session state from the caller's question list.
// Objective IDs are 1-based ordinals. The session inherits every persisted
// block into FailedDomains and never removes them.
func newResearchState(questions []string, startingQuery string, persistedBlocks []string) *ResearchState {
	state := &ResearchState{
		SourceTracker: make(map[string]bool),
		FailedDomains: make(map[string]bool),
		LastQuery:     startingQuery,
	}

	for i, q := range questions {
		id := fmt.Sprintf("%d", i+1)
		state.Objectives = append(state.Objectives, schemas.ResearchObjective{
			ID:       id,
			Question: q,
		})
		state.ObjectiveStatus = append(state.ObjectiveStatus, schemas.ObjectiveStatus{
			ObjectiveID: id,
		})
	}

	for _, host := range persistedBlocks {
		state.FailedDomains[host] = true
	}
	return state
}

// mergeQuote appends the quote to the accumulated list and to every
// referenced objective's supporting quotes, then recomputes the completion
// flag for those objectives.
func (s *ResearchState) mergeQuote(q schemas.ExtractedQuote) {
	s.AccumulatedQuotes = append(s.AccumulatedQuotes, q)

	referenced := make(map[string]bool, len(q.ObjectiveIDs))
	for _, id := range q.ObjectiveIDs {
		referenced[id] = true
	}

	for i := range s.ObjectiveStatus {
		st := &s.ObjectiveStatus[i]
		if !referenced[st.ObjectiveID] {
			continue
		}
		st.SupportingQuotes = append(st.SupportingQuotes, q)
		st.Completed = len(st.SupportingQuotes) >= MinSupportingQuotes
		s.Objectives[i].Completed = st.Completed
	}
}

// incompleteObjectives returns the IDs of objectives still missing evidence.
func (s *ResearchState) incompleteObjectives() []string {
	var ids []string
	for _, st := range s.ObjectiveStatus {
		if !st.Completed {
			ids = append(ids, st.ObjectiveID)
		}
	}
	return ids
}

// quoteFromCapability converts a capability quote into the session's
// immutable record form.
func quoteFromCapability(q string, objectiveIDs []string, sourceURL string) schemas.ExtractedQuote {
	ids := make([]string, len(objectiveIDs))
	copy(ids, objectiveIDs)
	return schemas.ExtractedQuote{
		Quote:        q,
		SourceURL:    sourceURL,
		ObjectiveIDs: ids,
		Timestamp:    time.Now(),
	}
}
