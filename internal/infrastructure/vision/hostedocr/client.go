// Package hostedocr talks to the managed handwriting-OCR endpoint. It is
// the primary prescription engine; its output is formatted text that the
// pipeline parses into line items.
package hostedocr

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// Client talks to the hosted OCR service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      logging.Logger
}

// New constructs a Client from the OCR configuration.
func New(cfg config.OCRConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		log:      log.Named("hostedocr"),
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool { return c.endpoint != "" }

type extractRequest struct {
	ImageBase64 string `json:"image_base64"`
}

type extractResponse struct {
	Response string `json:"response"`
}

// Extract submits a base64-encoded prescription image and returns the
// service's formatted text. Any non-200 response is an extraction failure
// so the pipeline can fall back to the vision model.
func (c *Client) Extract(ctx context.Context, imageBase64 string) (string, error) {
	if !c.Configured() {
		return "", errors.New(errors.ErrCodeOCRExtractionFailed, "hosted ocr endpoint is not configured")
	}

	body, err := json.Marshal(extractRequest{ImageBase64: imageBase64})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeOCRExtractionFailed, "encode ocr request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeOCRExtractionFailed, "build ocr request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeOCRExtractionFailed, "call hosted ocr")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ErrCodeOCRExtractionFailed, "hosted ocr returned status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeOCRResponseUnparsable, "decode ocr response")
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", errors.New(errors.ErrCodeOCRResponseUnparsable, "hosted ocr returned empty text")
	}

	c.log.Debug("hosted ocr extraction done", logging.Int("text_chars", len(text)))
	return text, nil
}
