package opensearch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type capturedRequest struct {
	Method string
	Path   string
	Body   string
}

// scriptedTransport replays one canned response per request and records what
// was sent.
type scriptedTransport struct {
	responses []*http.Response
	requests  []capturedRequest
}

func (s *scriptedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	body := ""
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}
	s.requests = append(s.requests, capturedRequest{Method: r.Method, Path: r.URL.Path, Body: body})

	if len(s.responses) == 0 {
		return jsonResponse(200, "{}"), nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, transport http.RoundTripper) *Client {
	t.Helper()
	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:    []string{"http://opensearch.test:9200"},
			Transport:    transport,
			DisableRetry: true,
		},
	})
	require.NoError(t, err)

	cfg := config.OpenSearchConfig{IndexPrefix: "medimatch_", BulkBatchSize: 2}
	return newClientWithAPI(api, cfg, logging.NewNopLogger())
}

func TestNewClient_NoAddresses(t *testing.T) {
	_, err := NewClient(config.OpenSearchConfig{}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPing_HealthyFlag(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(200, "{}"),
		jsonResponse(500, `{"error":"boom"}`),
	}}
	c := newTestClient(t, transport)

	require.NoError(t, c.Ping(context.Background()))
	assert.True(t, c.IsHealthy())

	require.Error(t, c.Ping(context.Background()))
	assert.False(t, c.IsHealthy())
}
