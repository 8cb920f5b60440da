package gemini

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/lead-scorer/internal/ai"
	"github.com/spigell/lead-scorer/internal/logger"
	"github.com/spigell/lead-scorer/internal/utils"
)

const (
	DefaultModel = "gemini-2.5-flash"

	defaultMaxLogLength = 200
)

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type modelsFactory func(ctx context.Context, apiKey string) (contentModels, error)

// Generator adapts the Google GenAI client to the ai.Provider capability.
type Generator struct {
	credentials ai.CredentialFunc
	modelName   string
	opts        ai.GenerationOptions
	logger      *zap.Logger
	maxLogLen   int
	newModels   modelsFactory

	cacheMu sync.RWMutex
	clients map[string]contentModels
}

// Config holds the Gemini adapter settings.
type Config struct {
	Model        string
	Options      ai.GenerationOptions
	MaxLogLength int
}

// NewGenerator creates a Generator. The API key is resolved through
// credentials on every call and a GenAI client is created once per distinct key.
func NewGenerator(cfg Config, credentials ai.CredentialFunc, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		credentials: credentials,
		modelName:   model,
		opts:        cfg.Options.WithDefaults(),
		logger:      logger.WithCommonFields(log, ai.ProviderGemini, model),
		maxLogLen:   maxLogLen,
		newModels:   newGenAIModels,
		clients:     make(map[string]contentModels),
	}
}

func newGenAIModels(ctx context.Context, apiKey string) (contentModels, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client.Models, nil
}

func (g *Generator) Name() string {
	return ai.ProviderGemini
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func (g *Generator) Configured() bool {
	return g != nil && ai.HasCredentials(g.credentials)
}

// Generate sends the prompt to Gemini and returns the concatenated text parts.
func (g *Generator) Generate(ctx context.Context, prompt string) ai.Result {
	if g == nil || g.credentials == nil {
		return ai.Fail(ai.ErrNotConfigured)
	}

	apiKey, err := g.credentials()
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

	models, err := g.modelsFor(ctx, apiKey)
	if err != nil {
		return ai.Fail(err)
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.opts.Temperature),
		MaxOutputTokens: g.opts.MaxTokens,
	}

	resp, err := models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return ai.Fail(classifyErr(err))
	}

	output := responseText(resp)
	if output == "" {
		return ai.Fail(errors.New("gemini api returned empty response"))
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return ai.Ok(output)
}

func (g *Generator) modelsFor(ctx context.Context, apiKey string) (contentModels, error) {
	hashBytes := sha256.Sum256([]byte(apiKey))
	hash := fmt.Sprintf("%x", hashBytes[:])

	g.cacheMu.RLock()
	if existing, ok := g.clients[hash]; ok {
		g.cacheMu.RUnlock()
		return existing, nil
	}
	g.cacheMu.RUnlock()

	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	if existing, ok := g.clients[hash]; ok {
		return existing, nil
	}

	models, err := g.newModels(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if g.clients == nil {
		g.clients = make(map[string]contentModels)
	}
	g.clients[hash] = models

	return models, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("generate content: %w: %w", ai.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("generate content: %w", err)
}
