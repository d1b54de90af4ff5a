// Package search calls the semantic search backend over HTTP and normalizes
// its responses into a stable shape. The backend's payloads vary by
// deployment, so decoding is tolerant: known field aliases are accepted and
// unrecognized entries are skipped rather than failing the whole call.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const (
	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 5 * time.Second

	// MaxResponseSize is the maximum response body size (5MB)
	MaxResponseSize = 5 * 1024 * 1024

	// DefaultLimit caps results when the caller does not set one
	DefaultLimit = 10
)

// Config holds search backend configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client queries the semantic search backend
type Client struct {
	client  *http.Client
	logger  ectologger.Logger
	baseURL string
	apiKey  string
}

// NewClient creates a new search client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    25,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: timeout,
		},
		logger:  logger,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Kind  string `json:"kind,omitempty"`
	Limit int    `json:"limit"`
}

// rawResult accepts the field aliases the backend has used across versions.
type rawResult struct {
	ID       string  `json:"id"`
	DocID    string  `json:"doc_id"`
	Title    string  `json:"title"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance"`
	Kind     string  `json:"kind"`
	Type     string  `json:"type"`
}

type searchResponse struct {
	Results []rawResult `json:"results"`
	Items   []rawResult `json:"items"`
}

// Search runs a semantic query scoped to a single result kind. The returned
// slice is ordered as the backend returned it and never exceeds limit.
func (c *Client) Search(ctx context.Context, tenantID, query, kind string, limit int) ([]models.SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Client.Search")
	defer span.End()

	if limit <= 0 {
		limit = DefaultLimit
	}

	payload, err := json.Marshal(searchRequest{
		Query: query,
		Kind:  kind,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	url := c.baseURL + "/v1/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", tenantID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if traceParent := tracing.GetTraceParent(ctx); traceParent != "" {
		req.Header.Set("traceparent", traceParent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("Search request failed: %s", url)
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"status_code": resp.StatusCode,
			"kind":        kind,
		}).Warn("Search backend returned non-200")
		return nil, fmt.Errorf("search backend returned %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	raw := decoded.Results
	if len(raw) == 0 {
		raw = decoded.Items
	}

	results := make([]models.SearchResult, 0, len(raw))
	for _, r := range raw {
		normalized, ok := normalizeResult(r, kind)
		if !ok {
			continue
		}
		results = append(results, normalized)
		if len(results) >= limit {
			break
		}
	}

	// Query text is message content and must stay out of logs.
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"kind":         kind,
		"query_len":    len(query),
		"result_count": len(results),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Debug("Search completed")

	return results, nil
}

// normalizeResult collapses the alias fields into the canonical shape. A
// record with no usable ID is dropped.
func normalizeResult(r rawResult, fallbackKind string) (models.SearchResult, bool) {
	id := r.ID
	if id == "" {
		id = r.DocID
	}
	if id == "" {
		return models.SearchResult{}, false
	}

	title := r.Title
	if title == "" {
		title = r.Name
	}

	score := r.Score
	if score == 0 && r.Distance > 0 {
		// Some deployments report cosine distance instead of similarity.
		score = 1 - r.Distance
		if score < 0 {
			score = 0
		}
	}

	kind := r.Kind
	if kind == "" {
		kind = r.Type
	}
	if kind == "" {
		kind = fallbackKind
	}

	return models.SearchResult{
		ID:    id,
		Title: title,
		Score: score,
		Kind:  kind,
	}, true
}
