package capability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const (
	maxFetchBytes   = 2 << 20
	maxFetchedChars = 50000
)

// Fetch retrieves one URL and returns readable text. HTML responses go
// through main-content extraction and markdown normalization; plain text is
// returned as-is. HTTP error statuses are reported in the error message so
// the failure classifier can act on them.
func (c *WebClient) Fetch(ctx context.Context, rawURL string) (*FetchResponse, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("fetch url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; objective-research/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read fetch response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") || strings.Contains(contentType, "text/markdown") {
		return &FetchResponse{Results: truncate(string(body), maxFetchedChars)}, nil
	}

	text, err := c.readableText(string(body), rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract readable content: %w", err)
	}
	return &FetchResponse{Results: truncate(text, maxFetchedChars)}, nil
}

// readableText runs readability main-content extraction over the page and
// converts the readable fragment to markdown. When readability finds nothing
// usable the whole document is converted instead.
func (c *WebClient) readableText(htmlContent, rawURL string) (string, error) {
	converter := md.NewConverter("", true, nil)

	pageURL, err := url.Parse(rawURL)
	if err == nil {
		article, rerr := readability.FromReader(strings.NewReader(htmlContent), pageURL)
		if rerr == nil && strings.TrimSpace(article.Content) != "" {
			markdown, cerr := converter.ConvertString(article.Content)
			if cerr == nil {
				if article.Title != "" {
					markdown = "# " + article.Title + "\n\n" + markdown
				}
				return markdown, nil
			}
			c.logger.Debug("markdown conversion of readable fragment failed",
				zap.String("url", rawURL), zap.Error(cerr))
		}
	}

	markdown, err := converter.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}
	return markdown, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n\n[truncated]"
}
