// Package ai defines the text-generation capability the intent scorer relies
// on. Concrete adapters live in the gemini and openai subpackages.
package ai

import (
	"context"
	"errors"
	"strings"
)

// Provider names accepted in configuration.
const (
	ProviderNone     = "none"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
	ProviderMoonshot = "moonshot"
)

var (
	// ErrNotConfigured reports a provider without usable credentials.
	ErrNotConfigured = errors.New("ai provider is not configured")
	// ErrQuotaExceeded reports a quota or rate-limit rejection from the provider.
	ErrQuotaExceeded = errors.New("You exceeded your current quota")
)

// Result is the outcome of a single generation call. Exactly one of Text and
// Err is meaningful.
type Result struct {
	Text string
	Err  error
}

// Ok wraps generated text.
func Ok(text string) Result {
	return Result{Text: text}
}

// Fail wraps a generation failure.
func Fail(err error) Result {
	if err == nil {
		err = errors.New("unknown generation failure")
	}
	return Result{Err: err}
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

// Provider generates text for a prompt. Generate never panics or returns a
// transport error directly: failures are carried in Result.Err.
type Provider interface {
	Name() string
	Model() string
	// Configured reports whether credentials are currently available. It is
	// evaluated on every call so rotated or removed keys take effect.
	Configured() bool
	Generate(ctx context.Context, prompt string) Result
}

// CredentialFunc resolves the API key for a provider.
type CredentialFunc func() (string, error)

// GenerationOptions are the sampling parameters sent with every prompt.
type GenerationOptions struct {
	MaxTokens   int32
	Temperature float32
}

// DefaultGenerationOptions mirrors the short, low-temperature completions the
// intent prompt asks for.
var DefaultGenerationOptions = GenerationOptions{
	MaxTokens:   150,
	Temperature: 0.3,
}

// WithDefaults fills unset options.
func (o GenerationOptions) WithDefaults() GenerationOptions {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultGenerationOptions.MaxTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = DefaultGenerationOptions.Temperature
	}
	return o
}

// HasCredentials reports whether fn resolves to a non-empty key.
func HasCredentials(fn CredentialFunc) bool {
	if fn == nil {
		return false
	}
	key, err := fn()
	return err == nil && strings.TrimSpace(key) != ""
}

// NormalizeProvider lowercases and trims a provider name, defaulting to none.
func NormalizeProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderNone
	}
	return name
}
