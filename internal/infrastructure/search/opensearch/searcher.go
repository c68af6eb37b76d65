package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Hit is one search result: the document ID is the lowercased drug name, so
// hits can be hydrated through the drug repository.
type Hit struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// DrugSearcher queries the drug index.
type DrugSearcher struct {
	client *Client
	index  string
	log    logging.Logger
}

// NewDrugSearcher creates a DrugSearcher over the client's configured prefix.
func NewDrugSearcher(client *Client, log logging.Logger) *DrugSearcher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DrugSearcher{
		client: client,
		index:  client.cfg.IndexPrefix + drugIndexSuffix,
		log:    log.Named("drug-searcher"),
	}
}

// SearchByName finds drugs matching query against name and synonyms, with
// typo tolerance. Exact name matches rank first.
func (s *DrugSearcher) SearchByName(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeValidation, "search query is empty")
	}

	body := map[string]any{
		"size": clampSearchLimit(limit),
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"term": map[string]any{
						"name.keyword": map[string]any{"value": query, "boost": 10},
					}},
					map[string]any{"match": map[string]any{
						"name": map[string]any{"query": query, "fuzziness": "AUTO", "boost": 3},
					}},
					map[string]any{"match": map[string]any{
						"synonyms": map[string]any{"query": query, "fuzziness": "AUTO"},
					}},
					map[string]any{"match_phrase_prefix": map[string]any{
						"name": map[string]any{"query": query},
					}},
				},
				"minimum_should_match": 1,
			},
		},
	}
	return s.run(ctx, body)
}

// FreeText runs a relevance-ranked query across all text fields, for
// questions like "drugs for hypertension".
func (s *DrugSearcher) FreeText(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeValidation, "search query is empty")
	}

	body := map[string]any{
		"size": clampSearchLimit(limit),
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name^3", "synonyms^2", "indication", "mechanism", "target"},
				"type":   "best_fields",
			},
		},
	}
	return s.run(ctx, body)
}

// Suggest returns up to limit drug names starting with prefix.
func (s *DrugSearcher) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New(errors.ErrCodeValidation, "suggestion prefix is empty")
	}

	body := map[string]any{
		"size": clampSearchLimit(limit),
		"query": map[string]any{
			"match_phrase_prefix": map[string]any{
				"name": map[string]any{"query": prefix},
			},
		},
	}
	hits, err := s.run(ctx, body)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.Name)
	}
	return names, nil
}

func (s *DrugSearcher) run(ctx context.Context, body map[string]any) ([]Hit, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}

	resp, err := s.client.api.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.index},
		Body:    bytes.NewReader(payload),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "search request failed")
	}

	hits := make([]Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var doc drugDocument
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			s.log.Warn("skipping unreadable hit", logging.String("id", h.ID), logging.Err(err))
			continue
		}
		hits = append(hits, Hit{ID: h.ID, Name: doc.Name, Score: float64(h.Score)})
	}

	s.log.Debug("search executed",
		logging.String("index", s.index),
		logging.Int("hits", len(hits)))
	return hits, nil
}

func clampSearchLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}
