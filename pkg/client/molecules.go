package client

import (
	"context"
	"fmt"

	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// MoleculesClient covers structure rendering and target prediction.
type MoleculesClient struct {
	client *Client
}

// MolBlock renders a V2000 MOL block for a SMILES string or a drug name.
func (m *MoleculesClient) MolBlock(ctx context.Context, req *drugtypes.MolBlockRequest) (*drugtypes.MolBlockResponse, error) {
	if req == nil || (req.SMILES == "" && req.Name == "") {
		return nil, fmt.Errorf("medimatch: either smiles or name is required")
	}
	var resp drugtypes.MolBlockResponse
	if err := m.client.post(ctx, "/api/v1/molecules/molblock", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PredictTargets ranks similar drugs and aggregates their targets for the
// query, which may be a drug name or a raw SMILES string.
func (m *MoleculesClient) PredictTargets(ctx context.Context, query string, topK int) (*drugtypes.PredictResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("medimatch: query is required")
	}
	req := &drugtypes.PredictRequest{Query: query, TopK: topK}

	var resp drugtypes.PredictResponse
	if err := m.client.post(ctx, "/api/v1/predict/targets", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
