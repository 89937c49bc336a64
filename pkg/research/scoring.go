package research

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Candidate is a scored URL extracted from search output.
type Candidate struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Hostnames containing any of these markers get a credibility bonus.
var reputableHostMarkers = []string{
	"wikipedia",
	".gov",
	".edu",
	"arxiv.org",
	"britannica.com",
}

var lowQualityTitleMarkers = []string{"buy now", "click here"}

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\\)\]]+`)

// Score rates how promising a search result is for the current query. The
// result is always in [0, 1]. Position is the 0-based rank of the result
// within the search output; earlier results score higher.
func Score(rawURL, title, query string, position int) float64 {
	score := 0.0

	positionTerm := float64(10-position) / 10.0
	if positionTerm < 0 {
		positionTerm = 0
	}
	score += positionTerm * 0.3

	if len(title) >= 20 && len(title) <= 80 {
		score += 0.2
	}

	score += queryCoverage(title, query) * 0.3

	host := strings.ToLower(hostnameOf(rawURL))
	for _, marker := range reputableHostMarkers {
		if strings.Contains(host, marker) {
			score += 0.15
			break
		}
	}

	lowerTitle := strings.ToLower(title)
	for _, marker := range lowQualityTitleMarkers {
		if strings.Contains(lowerTitle, marker) {
			score -= 0.2
			break
		}
	}
	if strings.Contains(host, "ads") {
		score -= 0.2
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// queryCoverage returns the fraction of distinct query terms present as
// substrings of the lower-cased title.
func queryCoverage(title, query string) float64 {
	terms := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[t] = true
	}
	if len(terms) == 0 {
		return 0
	}

	lowerTitle := strings.ToLower(title)
	matched := 0
	for t := range terms {
		if strings.Contains(lowerTitle, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// ExtractCandidates pulls candidate URLs out of raw search output. It first
// looks for the embedded JSON array of {url, title, snippet} records that the
// search capability documents; when no structured block parses, it falls back
// to a raw URL scan that yields default-ranked candidates in original order.
// The returned list is sorted by score descending, stable on ties.
func ExtractCandidates(searchOutput, query string) []Candidate {
	candidates := parseStructuredResults(searchOutput)
	if candidates != nil {
		for i := range candidates {
			candidates[i].Score = Score(candidates[i].URL, candidates[i].Title, query, i)
		}
	} else {
		seen := make(map[string]bool)
		for _, raw := range urlPattern.FindAllString(searchOutput, -1) {
			raw = strings.TrimRight(raw, ".,;")
			if seen[raw] {
				continue
			}
			seen[raw] = true
			candidates = append(candidates, Candidate{URL: raw})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// parseStructuredResults attempts to decode a JSON array of result records
// starting at each '[' in the text. Returns nil when no array parses.
func parseStructuredResults(text string) []Candidate {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}

		var records []struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&records); err != nil {
			continue
		}

		candidates := make([]Candidate, 0, len(records))
		for _, rec := range records {
			if rec.URL == "" {
				continue
			}
			candidates = append(candidates, Candidate{
				URL:     rec.URL,
				Title:   rec.Title,
				Snippet: rec.Snippet,
			})
		}
		if len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

// hostnameOf returns the hostname portion of a URL, or the input itself when
// it does not parse.
func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
