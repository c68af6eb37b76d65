// Package arxiv queries the arXiv Atom feed for scholarly articles that
// mention a drug, supplementing web search hits in insight answers.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// Article is one feed entry with a usable summary and link.
type Article struct {
	Title   string
	Summary string
	Link    string
}

// Client talks to the arXiv query API.
type Client struct {
	baseURL string
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
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.Named("arxiv"),
	}
}

// feed mirrors the subset of the Atom document the search consumes. Entries
// carry several <link> elements; the alternate one points at the abstract
// page.
type feed struct {
	Entries []struct {
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
		Links   []struct {
			Rel  string `xml:"rel,attr"`
			Href string `xml:"href,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

// Search returns up to maxResults articles matching the term across all
// arXiv fields. Entries without a summary or link are dropped.
func (c *Client) Search(ctx context.Context, term string, maxResults int) ([]Article, error) {
	u := fmt.Sprintf("%s?search_query=all:%s&start=0&max_results=%d",
		c.baseURL, url.QueryEscape(term), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "build arxiv request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "call arxiv")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeSourceUnavailable, "arxiv returned status %d", resp.StatusCode)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "decode arxiv feed")
	}

	articles := make([]Article, 0, len(f.Entries))
	for _, e := range f.Entries {
		summary := strings.TrimSpace(e.Summary)
		link := pickLink(e.Links)
		if summary == "" || link == "" {
			continue
		}
		articles = append(articles, Article{
			Title:   strings.TrimSpace(e.Title),
			Summary: summary,
			Link:    link,
		})
	}

	c.log.Debug("arxiv search done",
		logging.String("term", term),
		logging.Int("articles", len(articles)),
	)
	return articles, nil
}

// pickLink prefers the alternate (abstract page) link, falling back to the
// first link present.
func pickLink(links []struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}) string {
	for _, l := range links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href
		}
	}
	for _, l := range links {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}
