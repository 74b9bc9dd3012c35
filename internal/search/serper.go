// Package search provides the auxiliary web-search capability the model can
// request during the tool-call loop. It is an external collaborator: when no
// API key is configured the client degrades to an explicit "search
// unavailable" result instead of failing the pipeline.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tasklens/tasklens/internal/domain"
)

const (
	defaultBaseURL = "https://google.serper.dev/search"
	defaultTimeout = 10 * time.Second
)

// ClientOption configures the search client.
type ClientOption func(*Client)

// WithBaseURL sets a custom search endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client looks up technical documentation through the Serper search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a search client. An empty apiKey is allowed; Search then
// reports the capability as unavailable.
func NewClient(apiKey string, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
	GL    string `json:"gl"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Search executes a web search and returns the best organic result. Search
// failures are carried in the result's Err field, never as a Go error: the
// tool-call loop hands them back to the model rather than aborting.
func (c *Client) Search(ctx context.Context, query string) domain.SearchResult {
	if c.apiKey == "" {
		c.logger.Warn("search requested but no API key configured")
		return domain.SearchResult{Err: "search functionality not available - API key not configured"}
	}

	c.logger.Info("web search requested", slog.String("query", query))

	body, err := json.Marshal(searchRequest{Query: query, Num: 3, GL: "us"})
	if err != nil {
		return domain.SearchResult{Err: fmt.Sprintf("search failed: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.SearchResult{Err: fmt.Sprintf("search failed: %v", err)}
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("search API error", slog.String("error", err.Error()))
		return domain.SearchResult{Err: fmt.Sprintf("search API error: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SearchResult{Err: fmt.Sprintf("search API error: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("search API error", slog.Int("status", resp.StatusCode))
		return domain.SearchResult{Err: fmt.Sprintf("search API error: status %d", resp.StatusCode)}
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.SearchResult{Err: fmt.Sprintf("search failed: %v", err)}
	}

	if len(parsed.Organic) == 0 {
		c.logger.Warn("no search results found", slog.String("query", query))
		return domain.SearchResult{Err: "no results found"}
	}

	best := parsed.Organic[0]
	c.logger.Info("search successful", slog.String("title", best.Title))
	return domain.SearchResult{
		URL:     best.Link,
		Title:   best.Title,
		Snippet: best.Snippet,
	}
}
