package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// AssistantClient covers the LLM assistant and knowledge-graph endpoints.
type AssistantClient struct {
	client *Client
}

// Copilot answers a question with the conversational style.
func (a *AssistantClient) Copilot(ctx context.Context, question string, humanize bool) (*drugtypes.AssistantResponse, error) {
	return a.ask(ctx, "/api/v1/copilot", question, humanize)
}

// Chatbot answers a question briefly.
func (a *AssistantClient) Chatbot(ctx context.Context, question string) (*drugtypes.AssistantResponse, error) {
	return a.ask(ctx, "/api/v1/chatbot", question, false)
}

func (a *AssistantClient) ask(ctx context.Context, path, question string, humanize bool) (*drugtypes.AssistantResponse, error) {
	if question == "" {
		return nil, fmt.Errorf("medimatch: question is required")
	}
	req := &drugtypes.AssistantRequest{Question: question, Humanize: humanize}

	var resp drugtypes.AssistantResponse
	if err := a.client.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Insight generates a structured clinical summary for one drug.
func (a *AssistantClient) Insight(ctx context.Context, drugName string) (*drugtypes.InsightResponse, error) {
	if drugName == "" {
		return nil, fmt.Errorf("medimatch: drug name is required")
	}
	req := &drugtypes.InsightRequest{DrugName: drugName}

	var resp drugtypes.InsightResponse
	if err := a.client.post(ctx, "/api/v1/insights", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Graph returns the knowledge-graph neighbourhood of one drug. A non-positive
// maxNodes uses the server default.
func (a *AssistantClient) Graph(ctx context.Context, drugName string, maxNodes int) (*drugtypes.GraphResponse, error) {
	if drugName == "" {
		return nil, fmt.Errorf("medimatch: drug name is required")
	}
	path := "/api/v1/kg/" + url.PathEscape(drugName)
	if maxNodes > 0 {
		path += "?max_nodes=" + strconv.Itoa(maxNodes)
	}

	var resp drugtypes.GraphResponse
	if err := a.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
