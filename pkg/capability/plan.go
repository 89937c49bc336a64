package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const maxPlanContentChars = 12000

const planSystemPrompt = `You extract evidence from source documents for a research agent.
Given a document and a list of research objectives, return a JSON object:
{"quotes": [{"quote": "<verbatim span from the document>", "objective_ids": ["<id>", ...]}], "next_query": "<search query that would best advance the incomplete objectives, or empty>"}
Only quote text that actually appears in the document. Only reference objective ids from the list. Return valid JSON and nothing else.`

// Plan asks the LLM backend to mine quotes out of one source and suggest the
// next search query.
func (c *WebClient) Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("plan content is required")
	}

	var prompt strings.Builder
	prompt.WriteString("Research objectives:\n")
	for _, obj := range req.Objectives {
		fmt.Fprintf(&prompt, "- id %s: %s\n", obj.ID, obj.Question)
	}
	if len(req.IncompleteObjectives) > 0 {
		fmt.Fprintf(&prompt, "\nObjectives still lacking evidence: %s\n",
			strings.Join(req.IncompleteObjectives, ", "))
	}
	fmt.Fprintf(&prompt, "\nSource URL: %s\n\nDocument:\n%s\n",
		req.SourceURL, truncate(req.Content, maxPlanContentChars))

	resp, err := c.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: planSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("plan completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("plan completion returned no choices")
	}

	plan, err := parsePlanResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("plan completed",
		zap.String("source_url", req.SourceURL),
		zap.Int("quotes", len(plan.Quotes)),
		zap.String("next_query", plan.NextQuery))
	return plan, nil
}

// parsePlanResponse decodes the model output, tolerating surrounding prose
// by locating the outermost JSON object.
func parsePlanResponse(content string) (*PlanResponse, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("plan response contains no JSON object")
	}

	var plan PlanResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan response: %w", err)
	}
	return &plan, nil
}
