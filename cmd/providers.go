package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/ai"
	"github.com/spigell/lead-scorer/internal/ai/gemini"
	"github.com/spigell/lead-scorer/internal/ai/openai"
	"github.com/spigell/lead-scorer/internal/scoring"
	"github.com/spigell/lead-scorer/internal/secrets"
	"github.com/spigell/lead-scorer/internal/service"
	"github.com/spigell/lead-scorer/internal/worker"
)

var apiKeyEnvs = map[string]string{
	ai.ProviderOpenAI:   "OPENAI_API_KEY",
	ai.ProviderGemini:   "GEMINI_API_KEY",
	ai.ProviderMoonshot: "MOONSHOT_API_KEY",
}

// newProvider builds the configured AI provider. It returns nil for "none".
// Credentials are resolved on every call, so a provider without a key is
// still built and simply reports itself as unconfigured.
func newProvider(cfg *AIConfig, logger *zap.Logger) (ai.Provider, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	name := ai.NormalizeProvider(cfg.Provider)

	var pc *ProviderConfig
	switch name {
	case ai.ProviderNone:
		return nil, nil
	case ai.ProviderOpenAI:
		pc = cfg.OpenAI
	case ai.ProviderGemini:
		pc = cfg.Gemini
	case ai.ProviderMoonshot:
		pc = cfg.Moonshot
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if pc == nil {
		pc = &ProviderConfig{}
	}

	creds := ai.CredentialFunc(secrets.Loader(secrets.Source{
		Name:  name + " api key",
		Value: pc.APIKey,
		File:  pc.APIKeyFile,
		Env:   apiKeyEnvs[name],
	}))

	opts := ai.GenerationOptions{
		MaxTokens:   pc.MaxTokens,
		Temperature: pc.Temperature,
	}

	if name == ai.ProviderGemini {
		return gemini.NewGenerator(gemini.Config{
			Model:        pc.Model,
			Options:      opts,
			MaxLogLength: cfg.MaxLogLength,
		}, creds, logger), nil
	}

	return openai.New(openai.Config{
		Name:         name,
		BaseURL:      pc.BaseURL,
		Model:        pc.Model,
		Options:      opts,
		MaxLogLength: cfg.MaxLogLength,
	}, creds, logger), nil
}

// newService wires the scoring pipeline and service from config.
func newService(config *Config, logger *zap.Logger) (*service.Service, error) {
	provider, err := newProvider(config.AI, logger.Named("ai"))
	if err != nil {
		return nil, err
	}

	if provider == nil {
		logger.Warn("ai provider disabled", zap.String("hint", "every lead gets the default Medium intent"))
	} else if !provider.Configured() {
		logger.Warn("ai provider has no credentials",
			zap.String("provider", provider.Name()),
			zap.String("hint", fmt.Sprintf("set %s or ai.%s.api-key-file", apiKeyEnvs[provider.Name()], provider.Name())),
		)
	}

	intent := scoring.NewIntentScorer(provider, scoring.IntentConfig{
		MaxReasoningLength: config.AI.MaxReasoningLength,
		MaxLogLength:       config.AI.MaxLogLength,
	}, logger.Named("intent"))

	pipeline := scoring.NewPipeline(
		scoring.NewCombiner(scoring.NewRuleScorer(), intent),
		worker.Options{
			Workers:        config.Scoring.Workers,
			RateLimitRPS:   config.Scoring.RateLimitRPS,
			RequestTimeout: config.Scoring.RequestTimeout,
		},
		logger.Named("scoring"),
	)

	return service.New(pipeline, logger.Named("service")), nil
}
