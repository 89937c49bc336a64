package capability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanResponse(t *testing.T) {
	content := `{"quotes": [{"quote": "coral cover fell by 40%", "objective_ids": ["1", "2"]}], "next_query": "reef recovery rates"}`

	plan, err := parsePlanResponse(content)
	require.NoError(t, err)
	require.Len(t, plan.Quotes, 1)
	assert.Equal(t, "coral cover fell by 40%", plan.Quotes[0].Quote)
	assert.Equal(t, []string{"1", "2"}, plan.Quotes[0].ObjectiveIDs)
	assert.Equal(t, "reef recovery rates", plan.NextQuery)
}

func TestParsePlanResponseToleratesProse(t *testing.T) {
	content := "Here is the extraction you asked for:\n```json\n" +
		`{"quotes": [], "next_query": "follow-up"}` +
		"\n```\nLet me know if you need anything else."

	plan, err := parsePlanResponse(content)
	require.NoError(t, err)
	assert.Empty(t, plan.Quotes)
	assert.Equal(t, "follow-up", plan.NextQuery)
}

func TestParsePlanResponseNoJSON(t *testing.T) {
	_, err := parsePlanResponse("I could not find any relevant quotes.")
	assert.Error(t, err)
}

func TestParsePlanResponseMalformedJSON(t *testing.T) {
	_, err := parsePlanResponse(`{"quotes": [oops]}`)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))

	cut := truncate("abcdefghij", 4)
	assert.True(t, strings.HasPrefix(cut, "abcd"))
	assert.Contains(t, cut, "[truncated]")
}
