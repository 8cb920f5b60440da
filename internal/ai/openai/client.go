// Package openai talks to OpenAI-compatible chat completion endpoints. The
// same client serves OpenAI itself and Moonshot.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/ai"
	"github.com/spigell/lead-scorer/internal/logger"
	"github.com/spigell/lead-scorer/internal/utils"
)

const (
	OpenAIBaseURL   = "https://api.openai.com/v1"
	OpenAIModel     = "gpt-3.5-turbo"
	MoonshotBaseURL = "https://api.moonshot.ai/v1"
	MoonshotModel   = "kimi-k2-turbo-preview"

	contentType         = "application/json"
	defaultTimeout      = 30 * time.Second
	defaultMaxLogLength = 200
	quotaCode           = "insufficient_quota"
)

// Config holds the chat completion client settings. Name selects the
// defaults for BaseURL and Model.
type Config struct {
	Name         string
	BaseURL      string
	Model        string
	Options      ai.GenerationOptions
	Timeout      time.Duration
	MaxLogLength int
}

// Client adapts a chat completion API to the ai.Provider capability.
type Client struct {
	HTTPClient *http.Client

	name        string
	baseURL     string
	model       string
	opts        ai.GenerationOptions
	credentials ai.CredentialFunc
	logger      *zap.Logger
	maxLogLen   int
}

// APIError is a non-2xx response from the completion endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("bad status %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, msg)
}

// Quota reports whether the provider rejected the call for quota or rate
// limit reasons.
func (e *APIError) Quota() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == quotaCode || e.Type == quotaCode
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int32     `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// New creates a chat completion client. credentials is consulted on every call.
func New(cfg Config, credentials ai.CredentialFunc, log *zap.Logger) *Client {
	name := ai.NormalizeProvider(cfg.Name)
	if name == ai.ProviderNone {
		name = ai.ProviderOpenAI
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	model := strings.TrimSpace(cfg.Model)
	switch name {
	case ai.ProviderMoonshot:
		if baseURL == "" {
			baseURL = MoonshotBaseURL
		}
		if model == "" {
			model = MoonshotModel
		}
	default:
		if baseURL == "" {
			baseURL = OpenAIBaseURL
		}
		if model == "" {
			model = OpenAIModel
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		name:        name,
		baseURL:     baseURL,
		model:       model,
		opts:        cfg.Options.WithDefaults(),
		credentials: credentials,
		logger:      logger.WithCommonFields(log, name, model),
		maxLogLen:   maxLogLen,
	}
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Configured() bool {
	return c != nil && ai.HasCredentials(c.credentials)
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) ai.Result {
	if c == nil || c.credentials == nil {
		return ai.Fail(ai.ErrNotConfigured)
	}

	apiKey, err := c.credentials()
	if err != nil {
		return ai.Fail(fmt.Errorf("%w: %v", ai.ErrNotConfigured, err))
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ai.Fail(ai.ErrNotConfigured)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ai.Fail(errors.New("prompt must not be empty"))
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return ai.Fail(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ai.Fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("chat completion request",
		zap.String("url", req.URL.String()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	output, err := c.do(req)
	if err != nil {
		return ai.Fail(err)
	}

	c.logger.Debug("chat completion response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, c.maxLogLen)),
	)

	return ai.Ok(output)
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed completionResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Error != nil {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
			apiErr.Type = parsed.Error.Type
			if parsed.Error.Code != nil {
				apiErr.Code = fmt.Sprint(parsed.Error.Code)
			}
		}
		if apiErr.Quota() {
			return "", fmt.Errorf("chat completion: %w: %w", ai.ErrQuotaExceeded, apiErr)
		}
		return "", fmt.Errorf("chat completion: %w", apiErr)
	}

	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}

	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	output := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("chat completion returned empty content")
	}

	return output, nil
}
