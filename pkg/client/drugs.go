package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// DrugsClient covers drug search, lookup, and comparison.
type DrugsClient struct {
	client *Client
}

// Names returns every known drug name for autocompletion.
func (d *DrugsClient) Names(ctx context.Context) ([]string, error) {
	var resp drugtypes.NamesResponse
	if err := d.client.get(ctx, "/api/v1/drugs", &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// Get returns the full record for one drug.
func (d *DrugsClient) Get(ctx context.Context, name string) (*drugtypes.DrugDTO, error) {
	if name == "" {
		return nil, fmt.Errorf("medimatch: drug name is required")
	}
	var dto drugtypes.DrugDTO
	if err := d.client.get(ctx, "/api/v1/drugs/"+url.PathEscape(name), &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Search finds drugs whose name matches the query, with fuzzy correction.
// A non-positive limit uses the server default.
func (d *DrugsClient) Search(ctx context.Context, query string, limit int) (*drugtypes.SearchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("medimatch: search query is required")
	}
	params := url.Values{"query": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp drugtypes.SearchResponse
	if err := d.client.get(ctx, "/api/v1/drugs/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Compare returns a property-by-property comparison of two drugs.
func (d *DrugsClient) Compare(ctx context.Context, drug1, drug2 string) (*drugtypes.CompareResponse, error) {
	if drug1 == "" || drug2 == "" {
		return nil, fmt.Errorf("medimatch: both drug names are required")
	}
	params := url.Values{"drug1": {drug1}, "drug2": {drug2}}

	var resp drugtypes.CompareResponse
	if err := d.client.get(ctx, "/api/v1/drugs/compare?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
