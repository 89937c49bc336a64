package research

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Content quality tiers.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// ErrEmptyInput reports a contract violation: Extract must never be called
// with empty text or an empty source URL. This is a programmer error, not a
// recoverable network condition.
var ErrEmptyInput = errors.New("extract: raw text and source URL must be non-empty")

// ExtractedContent is the normalized record produced from one fetched source.
type ExtractedContent struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Quality   string   `json:"quality"`
	WordCount int      `json:"word_count"`
	KeyPoints []string `json:"key_points"`
}

var (
	markupPattern      = regexp.MustCompile(`[#*_>\x60~|]+`)
	boilerplatePattern = regexp.MustCompile(`(?i)(navigation|nav menu|advertisement|sponsored|cookie|subscribe|sign up|log in|copyright|all rights reserved|privacy policy|terms of (use|service))`)
	numberedPattern    = regexp.MustCompile(`^\d+[.)]\s`)
	bulletPattern      = regexp.MustCompile(`^[-*•]\s`)
)

var keyPointIndicators = []string{
	"because", "however", "therefore", "significantly",
	"found that", "shows that", "according to",
}

// Extract turns raw fetched text into a normalized content record using a
// heuristic line-based pipeline: title from the first lines, boilerplate
// filtered out, notable lines collected as key points, quality derived from
// word count and key-point density.
func Extract(rawText, sourceURL string) (*ExtractedContent, error) {
	if strings.TrimSpace(rawText) == "" || strings.TrimSpace(sourceURL) == "" {
		return nil, ErrEmptyInput
	}

	lines := strings.Split(rawText, "\n")
	title := findTitle(lines)

	var contentLines []string
	var keyPoints []string
	for _, line := range lines {
		line = strings.TrimSpace(stripMarkup(line))
		if len(line) < 10 {
			continue
		}
		if boilerplatePattern.MatchString(line) {
			continue
		}
		contentLines = append(contentLines, line)
		if isKeyPoint(line) {
			keyPoints = append(keyPoints, line)
		}
	}

	content := strings.Join(contentLines, "\n")
	wordCount := len(strings.Fields(content))

	quality := QualityLow
	switch {
	case wordCount > 500 && len(keyPoints) > 5:
		quality = QualityHigh
	case wordCount > 200 && len(keyPoints) > 2:
		quality = QualityMedium
	}

	return &ExtractedContent{
		Title:     title,
		Content:   content,
		Quality:   quality,
		WordCount: wordCount,
		KeyPoints: keyPoints,
	}, nil
}

// findTitle scans the first 10 lines for a markup heading or a short
// capitalized sentence.
func findTitle(lines []string) string {
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}

	// Markup headings win over plain lines.
	for i := 0; i < limit; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "=") {
			if title := strings.TrimSpace(stripMarkup(trimmed)); title != "" {
				return title
			}
		}
	}

	for i := 0; i < limit; i++ {
		trimmed := strings.TrimSpace(stripMarkup(lines[i]))
		if len(trimmed) < 10 || len(trimmed) > 120 {
			continue
		}
		runes := []rune(trimmed)
		if unicode.IsUpper(runes[0]) && !strings.HasSuffix(trimmed, ".") {
			return trimmed
		}
	}
	return ""
}

func stripMarkup(line string) string {
	return strings.TrimSpace(markupPattern.ReplaceAllString(line, " "))
}

// isKeyPoint flags lines between 50 and 300 characters containing indicator
// words or list markers.
func isKeyPoint(line string) bool {
	if len(line) < 50 || len(line) > 300 {
		return false
	}
	lower := strings.ToLower(line)
	for _, ind := range keyPointIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return numberedPattern.MatchString(line) || bulletPattern.MatchString(line)
}
