package research

import "github.com/spawn-mcp/researcher/pkg/schemas"

// DeduplicateQuotes drops later quotes whose key (first 100 characters of the
// quote text plus source URL) matches an earlier one. First occurrence wins;
// order is otherwise preserved. The operation is idempotent.
func DeduplicateQuotes(quotes []schemas.ExtractedQuote) []schemas.ExtractedQuote {
	seen := make(map[string]bool, len(quotes))
	deduped := make([]schemas.ExtractedQuote, 0, len(quotes))

	for _, q := range quotes {
		key := dedupKey(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, q)
	}
	return deduped
}

func dedupKey(q schemas.ExtractedQuote) string {
	text := q.Quote
	if len(text) > 100 {
		text = text[:100]
	}
	return text + "|" + q.SourceURL
}

// CompletionAssessment summarizes how far along the session is.
type CompletionAssessment struct {
	CompletedCount int     `json:"completed_count"`
	TotalCount     int     `json:"total_count"`
	CompletionRate float64 `json:"completion_rate"`
	AllComplete    bool    `json:"all_complete"`
}

// MinSupportingQuotes is the evidence threshold for marking an objective
// completed.
const MinSupportingQuotes = 2

// AssessCompletion evaluates the completion rule over all objective statuses.
func AssessCompletion(statuses []schemas.ObjectiveStatus) CompletionAssessment {
	assessment := CompletionAssessment{TotalCount: len(statuses)}

	for _, st := range statuses {
		if len(st.SupportingQuotes) >= MinSupportingQuotes {
			assessment.CompletedCount++
		}
	}
	if assessment.TotalCount > 0 {
		assessment.CompletionRate = float64(assessment.CompletedCount) / float64(assessment.TotalCount)
		assessment.AllComplete = assessment.CompletedCount == assessment.TotalCount
	}
	return assessment
}
