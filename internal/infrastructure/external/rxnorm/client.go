// Package rxnorm implements the RxNorm name-normalization client.  RxNorm
// resolves brand names, international synonyms, and misspellings to a
// canonical drug name (paracetamol -> acetaminophen).
package rxnorm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// Client queries the RxNav REST API.
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
		log:     log.Named("rxnorm"),
	}
}

type approximateTermResponse struct {
	ApproximateGroup struct {
		Candidate []struct {
			RxCUI string `json:"rxcui"`
			Name  string `json:"name"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

type spellingSuggestionsResponse struct {
	SuggestionGroup struct {
		SuggestionList struct {
			Suggestion []string `json:"suggestion"`
		} `json:"suggestionList"`
	} `json:"suggestionGroup"`
}

// Normalize resolves name to its canonical RxNorm form and concept ID.  The
// approximate-term match is tried first, then spelling suggestions.  When
// neither produces a candidate, the input name comes back unchanged with an
// empty RxCUI and no error; callers treat normalization as best-effort.
func (c *Client) Normalize(ctx context.Context, name string) (normalized, rxcui string, err error) {
	u := fmt.Sprintf("%s/approximateTerm.json?term=%s&maxEntries=1", c.baseURL, url.QueryEscape(name))
	var approx approximateTermResponse
	if err := c.getJSON(ctx, u, &approx); err != nil {
		return name, "", err
	}
	if cands := approx.ApproximateGroup.Candidate; len(cands) > 0 && cands[0].Name != "" {
		c.log.Debug("normalized drug name",
			logging.String("input", name),
			logging.String("normalized", cands[0].Name),
			logging.String("rxcui", cands[0].RxCUI))
		return cands[0].Name, cands[0].RxCUI, nil
	}

	u = fmt.Sprintf("%s/spellingsuggestions.json?name=%s", c.baseURL, url.QueryEscape(name))
	var spelling spellingSuggestionsResponse
	if err := c.getJSON(ctx, u, &spelling); err != nil {
		return name, "", err
	}
	if sugg := spelling.SuggestionGroup.SuggestionList.Suggestion; len(sugg) > 0 {
		c.log.Debug("spelling suggestion for drug name",
			logging.String("input", name),
			logging.String("suggestion", sugg[0]))
		return sugg[0], "", nil
	}

	return name, "", nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "rxnorm: building request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "rxnorm: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeSourceUnavailable, "rxnorm: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceParseError, "rxnorm: decoding response")
	}
	return nil
}
