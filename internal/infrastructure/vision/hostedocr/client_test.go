package hostedocr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.OCRConfig{Endpoint: srv.URL, APIKey: "tok-1", Timeout: 2 * time.Second}, nil)
}

func TestExtract(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "aW1hZ2U=", req["image_base64"])

		fmt.Fprint(w, `{"response": "**Amoxicillin**\n500 mg\ntwice daily\n7 days\n"}`)
	})

	text, err := c.Extract(context.Background(), "aW1hZ2U=")
	require.NoError(t, err)
	assert.Equal(t, "**Amoxicillin**\n500 mg\ntwice daily\n7 days", text)
}

func TestExtract_NotConfigured(t *testing.T) {
	c := New(config.OCRConfig{}, nil)
	assert.False(t, c.Configured())

	_, err := c.Extract(context.Background(), "aW1hZ2U=")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeOCRExtractionFailed))
}

func TestExtract_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Extract(context.Background(), "aW1hZ2U=")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeOCRExtractionFailed))
}

func TestExtract_EmptyText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response": "   "}`)
	})

	_, err := c.Extract(context.Background(), "aW1hZ2U=")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeOCRResponseUnparsable))
}
