// Package ai wraps the Gemini generateContent REST endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/metrics"
)

// Operation names, used for metrics and errors.
const (
	OpGenerate  = "generate"
	OpSentiment = "sentiment"
)

var errMissingAPIKey = stderrors.New("gemini api key is not configured")

// Doer sends upstream requests. *platforms.Client implements it.
type Doer interface {
	Do(req *http.Request, platform, operation string) (*http.Response, error)
}

// Recorder receives one outcome per call.
type Recorder interface {
	RecordAI(operation, outcome string)
}

// Client calls Gemini. A Client without an API key fails every call with
// ErrGeneration and never touches the network.
type Client struct {
	cfg      config.GeminiConfig
	doer     Doer
	logger   *logging.Logger
	recorder Recorder
}

type Option func(*Client)

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

func NewClient(cfg config.GeminiConfig, doer Doer, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{cfg: cfg, doer: doer, logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// GenerateText returns the model's text for prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, OpGenerate, prompt)
}

// ClassifySentiment asks the model to label text as positive, negative or
// neutral and returns its answer verbatim, explanation included.
func (c *Client) ClassifySentiment(ctx context.Context, text string) (string, error) {
	return c.generate(ctx, OpSentiment, SentimentPrompt(text))
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *Client) generate(ctx context.Context, op, prompt string) (string, error) {
	if c == nil {
		return "", &errors.ErrGeneration{Operation: op, Err: errMissingAPIKey}
	}
	text, err := c.call(ctx, op, prompt)
	if c.recorder != nil {
		c.recorder.RecordAI(op, metrics.Outcome(err))
	}
	if err != nil {
		c.logger.ErrorWithContext(ctx, "gemini request failed", "operation", op, "error", err)
		return "", &errors.ErrGeneration{Operation: op, Err: err}
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, op, prompt string) (string, error) {
	if !c.Configured() {
		return "", errMissingAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, url.PathEscape(c.cfg.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.doer.Do(req, "gemini", op)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &errors.ErrUpstreamStatus{Endpoint: "gemini " + op, StatusCode: resp.StatusCode}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", stderrors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", stderrors.New("gemini returned empty text")
	}
	return sb.String(), nil
}
