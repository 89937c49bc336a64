package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// searchResult is one parsed search hit. The JSON shape is the documented
// output contract consumed by the candidate extractor.
type searchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const maxSearchResults = 10

// Search queries the DuckDuckGo HTML endpoint and returns a text report that
// embeds the structured result array. Domain constraints are applied to the
// parsed results before they are reported.
func (c *WebClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("search query is required")
	}

	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(req.Query))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	results, err := parseSearchResults(string(body), maxSearchResults)
	if err != nil {
		return nil, err
	}
	results = filterResults(results, req.AllowedDomains, req.BlockedDomains)

	c.logger.Debug("search completed",
		zap.String("query", req.Query), zap.Int("results", len(results)))

	return &SearchResponse{Results: formatSearchReport(req.Query, results)}, nil
}

// formatSearchReport renders results as readable text with the structured
// JSON array embedded for downstream extraction.
func formatSearchReport(query string, results []searchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for: %s\n\n", query)
	data, err := json.Marshal(results)
	if err == nil {
		sb.Write(data)
		sb.WriteString("\n")
	}
	return sb.String()
}

// filterResults applies allowed/blocked hostname constraints.
func filterResults(results []searchResult, allowed, blocked []string) []searchResult {
	var kept []searchResult
	for _, r := range results {
		host := strings.ToLower(hostOf(r.URL))
		if host == "" {
			continue
		}
		if hostMatchesAny(host, blocked) {
			continue
		}
		if len(allowed) > 0 && !hostMatchesAny(host, allowed) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func hostMatchesAny(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// parseSearchResults extracts result records from DuckDuckGo's HTML, which
// marks each hit with class "result" inside "results_links" containers.
func parseSearchResults(htmlContent string, maxResults int) ([]searchResult, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search HTML: %w", err)
	}

	var results []searchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			cls := attrValue(n, "class")
			if strings.Contains(cls, "result") && strings.Contains(cls, "results_links") {
				if r := extractSearchResult(n); r.URL != "" && r.Title != "" {
					results = append(results, r)
				}
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return results, nil
}

func extractSearchResult(n *html.Node) searchResult {
	var result searchResult
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" {
			cls := attrValue(node, "class")
			if strings.Contains(cls, "result__a") {
				result.URL = cleanRedirectURL(attrValue(node, "href"))
				result.Title = textContent(node)
			} else if strings.Contains(cls, "result__snippet") {
				result.Snippet = textContent(node)
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return result
}

// cleanRedirectURL unwraps DuckDuckGo's redirect links.
func cleanRedirectURL(raw string) string {
	const redirectPrefix = "//duckduckgo.com/l/?uddg="
	if !strings.HasPrefix(raw, redirectPrefix) {
		return raw
	}
	decoded, err := url.QueryUnescape(strings.TrimPrefix(raw, redirectPrefix))
	if err != nil {
		return raw
	}
	if idx := strings.Index(decoded, "&"); idx > 0 {
		decoded = decoded[:idx]
	}
	return decoded
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(node.Data))
			sb.WriteString(" ")
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
