// Package serper wraps the Serper web search API, used to ground drug
// insight answers in recent clinical sources.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Client talks to the Serper search endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     logging.Logger
}

// New constructs a Client from the endpoint configuration.
func New(cfg config.APIEndpointConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.Named("serper"),
	}
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// Search runs a web search and returns up to num organic results. An empty
// API key fails fast so callers can fall back to model-internal knowledge
// without waiting on a doomed request.
func (c *Client) Search(ctx context.Context, query string, num int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, errors.New(errors.ErrCodeSourceAuthFailed, "serper api key is not configured")
	}

	body, err := json.Marshal(searchRequest{Query: query, Num: num})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "encode serper request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "build serper request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "call serper")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.New(errors.ErrCodeSourceAuthFailed, "serper rejected the api key")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.New(errors.ErrCodeSourceRateLimited, "serper rate limit exceeded")
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Newf(errors.ErrCodeSourceUnavailable, "serper returned status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "decode serper response")
	}

	c.log.Debug("serper search done",
		logging.String("query", query),
		logging.Int("hits", len(out.Organic)),
	)
	return out.Organic, nil
}
