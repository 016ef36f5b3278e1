// Package summary turns meeting transcripts into minutes with an Azure OpenAI
// chat completion.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/goodtune/meetingstt/internal/metrics"
	"github.com/rs/zerolog"
)

// EmptyTranscriptSummary is returned without calling the model when there is
// nothing to summarize.
const EmptyTranscriptSummary = "There was no recognized speech to summarize."

const (
	DefaultAPIVersion = "2024-05-01-preview"
	DefaultTimeout    = 60 * time.Second
)

// DefaultSystemPrompt is used when no prompt file is configured or readable.
const DefaultSystemPrompt = `You are an assistant that writes meeting minutes.
Given the full transcript of a meeting, produce a concise summary in this format:

- Overview (one or two sentences)
- Key decisions (bullets)
- Action items (include owner and due date when mentioned)
`

// Config holds Azure OpenAI settings
type Config struct {
	Endpoint         string
	APIKey           string
	Deployment       string
	APIVersion       string
	SystemPromptPath string
	Timeout          time.Duration
	Temperature      float64
	TopP             float64
	MaxTokens        int
}

// Client calls the chat completions API. It is safe for concurrent use.
type Client struct {
	config Config
	logger zerolog.Logger

	clientOnce sync.Once
	httpClient *http.Client

	promptOnce sync.Once
	prompt     string
}

// NewClient creates a summarization client
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		config: config,
		logger: logger.With().Str("component", "summary").Logger(),
	}
}

// Configured reports whether endpoint, key and deployment are all set
func (c *Client) Configured() bool {
	return c.config.Endpoint != "" && c.config.APIKey != "" && c.config.Deployment != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize returns trimmed minutes for transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		metrics.SummaryRequestsTotal.WithLabelValues("skipped").Inc()
		return EmptyTranscriptSummary, nil
	}

	if !c.Configured() {
		metrics.SummaryRequestsTotal.WithLabelValues("unavailable").Inc()
		return "", apperr.New(apperr.SummaryUnavailable, "azure openai endpoint, key and deployment are required").
			WithStatus(http.StatusServiceUnavailable)
	}

	summary, err := c.complete(ctx, transcript)
	if err != nil {
		metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		c.logger.Error().Err(err).Msg("Summarization failed")
		return "", err
	}

	metrics.SummaryRequestsTotal.WithLabelValues("success").Inc()
	return summary, nil
}

func (c *Client) complete(ctx context.Context, transcript string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt()},
			{Role: "user", Content: transcript},
		},
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("api-key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.SummaryUnavailable, err, "azure openai request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.SummaryUnavailable, err, "failed to read azure openai response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Upstream(apperr.SummaryUnavailable, resp.StatusCode,
			"azure openai request failed: %d %s", resp.StatusCode, apperr.Truncate(string(body), 500))
	}

	var data chatResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", apperr.Wrap(apperr.SummaryUnavailable, err, "malformed azure openai response")
	}
	if len(data.Choices) == 0 || data.Choices[0].Message == nil || data.Choices[0].Message.Content == nil {
		return "", apperr.Upstream(apperr.SummaryUnavailable, resp.StatusCode, "azure openai response has no completion choice")
	}

	summary := strings.TrimSpace(*data.Choices[0].Message.Content)
	if summary == "" {
		return "", apperr.Upstream(apperr.SummaryUnavailable, resp.StatusCode, "azure openai returned an empty summary")
	}

	return summary, nil
}

func (c *Client) url() string {
	query := url.Values{}
	query.Set("api-version", c.config.APIVersion)

	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s",
		strings.TrimRight(c.config.Endpoint, "/"),
		url.PathEscape(c.config.Deployment),
		query.Encode())
}

func (c *Client) client() *http.Client {
	c.clientOnce.Do(func() {
		c.httpClient = &http.Client{Timeout: c.config.Timeout}
	})
	return c.httpClient
}

// systemPrompt reads the prompt file once. Missing, unreadable or blank files
// fall back to DefaultSystemPrompt.
func (c *Client) systemPrompt() string {
	c.promptOnce.Do(func() {
		c.prompt = DefaultSystemPrompt

		if c.config.SystemPromptPath == "" {
			return
		}

		data, err := os.ReadFile(c.config.SystemPromptPath)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", c.config.SystemPromptPath).Msg("Using default system prompt")
			return
		}

		if text := strings.TrimSpace(string(data)); text != "" {
			c.prompt = text
		}
	})
	return c.prompt
}
