// Package gemini wraps the Gemini generateContent API for image
// understanding. The prescription pipeline uses it as the fallback engine
// when the hosted OCR service is unavailable.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// Client talks to the Gemini REST API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     logging.Logger
}

// New constructs a Client from the LLM configuration.
func New(cfg config.LLMConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	timeout := cfg.GeminiTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.GeminiBaseURL,
		apiKey:  cfg.GeminiAPIKey,
		model:   cfg.GeminiModel,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("gemini"),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeImage sends a prompt plus a base64-encoded image and returns the
// model's text output. The caller owns prompt construction and any parsing
// of the returned text.
func (c *Client) AnalyzeImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error) {
	if !c.Configured() {
		return "", errors.New(errors.ErrCodeLLMNotConfigured, "gemini api key is not configured")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: imageBase64}},
			},
		}},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeVisionRequestFailed, "encode gemini request")
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeVisionRequestFailed, "build gemini request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeVisionRequestFailed, "call gemini")
	}
	defer resp.Body.Close()

	var out generateResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&out); decErr != nil && resp.StatusCode == http.StatusOK {
		return "", errors.Wrap(decErr, errors.ErrCodeLLMResponseInvalid, "decode gemini response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := "gemini request failed"
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", errors.Newf(errors.ErrCodeVisionRequestFailed, "%s (status %d)", msg, resp.StatusCode)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New(errors.ErrCodeLLMResponseInvalid, "gemini returned no candidates")
	}

	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	c.log.Debug("gemini vision done",
		logging.String("model", c.model),
		logging.Int("response_chars", len(text)),
	)
	return text, nil
}
