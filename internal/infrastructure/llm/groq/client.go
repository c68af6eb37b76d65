// Package groq wraps the Groq chat-completions API (OpenAI wire format).
// It powers insight synthesis, the copilot, and the chatbot answer paths.
package groq

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

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion call. JSONMode asks the model to emit a
// single JSON object, which Groq enforces server side.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Client talks to a Groq-compatible chat completion endpoint.
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
	timeout := cfg.GroqTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.GroqBaseURL,
		apiKey:  cfg.GroqAPIKey,
		model:   cfg.GroqModel,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("groq"),
	}
}

// Configured reports whether an API key is present. Callers use this to
// short-circuit LLM features instead of surfacing auth errors.
func (c *Client) Configured() bool { return c.apiKey != "" }

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the conversation and returns the first choice's content,
// trimmed. A missing API key yields LLM_001 so feature layers can degrade.
func (c *Client) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if !c.Configured() {
		return "", errors.New(errors.ErrCodeLLMNotConfigured, "groq api key is not configured")
	}

	reqBody := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeLLMRequestFailed, "encode groq request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeLLMRequestFailed, "build groq request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeLLMRequestFailed, "call groq")
	}
	defer resp.Body.Close()

	var out completionResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&out); decErr != nil && resp.StatusCode == http.StatusOK {
		return "", errors.Wrap(decErr, errors.ErrCodeLLMResponseInvalid, "decode groq response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := "groq request failed"
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", errors.Newf(errors.ErrCodeLLMRequestFailed, "%s (status %d)", msg, resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New(errors.ErrCodeLLMResponseInvalid, "groq returned no choices")
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	c.log.Debug("groq completion done",
		logging.String("model", c.model),
		logging.Int("messages", len(messages)),
		logging.Int("response_chars", len(content)),
	)
	return content, nil
}
