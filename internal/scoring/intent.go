package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/ai"
	"github.com/spigell/lead-scorer/internal/leads"
	"github.com/spigell/lead-scorer/internal/logger"
	"github.com/spigell/lead-scorer/internal/utils"
)

// AI score points per intent.
const (
	HighIntentPoints     = 50
	MediumIntentPoints   = 30
	LowIntentPoints      = 10
	FallbackIntentPoints = 25

	reasoningMarker = "REASONING:"
	unknownValue    = "Unknown"

	defaultMaxReasoningLength = 400
)

//go:embed prompt.md
var promptTemplate string

// AIScore is the AI part of a lead score. Fallback is set when the provider
// was skipped or failed; Err carries the failure in the latter case.
type AIScore struct {
	Points    int
	Intent    leads.Intent
	Reasoning string
	Fallback  bool
	Err       error
}

// IntentConfig tunes the intent scorer.
type IntentConfig struct {
	// MaxReasoningLength caps the reasoning taken from the model, in runes.
	MaxReasoningLength int
	MaxLogLength       int
}

// IntentScorer asks an ai.Provider to classify a lead's buying intent.
type IntentScorer struct {
	provider     ai.Provider
	logger       *zap.Logger
	maxReasoning int
	maxLogLen    int
}

// NewIntentScorer builds a scorer over provider. A nil provider always
// produces the fallback score.
func NewIntentScorer(provider ai.Provider, cfg IntentConfig, log *zap.Logger) *IntentScorer {
	maxReasoning := cfg.MaxReasoningLength
	if maxReasoning <= 0 {
		maxReasoning = defaultMaxReasoningLength
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = 200
	}

	if provider != nil {
		log = logger.WithCommonFields(log, provider.Name(), provider.Model())
	}

	return &IntentScorer{
		provider:     provider,
		logger:       logger.WithFields(log),
		maxReasoning: maxReasoning,
		maxLogLen:    maxLogLen,
	}
}

// Score classifies lead against offer. It never fails: an unconfigured
// provider is not called and any provider error yields the fallback score.
func (s *IntentScorer) Score(ctx context.Context, lead leads.Lead, offer leads.Offer) AIScore {
	if s.provider == nil || !s.provider.Configured() {
		return fallback(ai.ErrNotConfigured, s.maxReasoning)
	}

	prompt := BuildPrompt(lead, offer)

	res := s.provider.Generate(ctx, prompt)
	if !res.OK() {
		if errors.Is(res.Err, ai.ErrNotConfigured) {
			return fallback(ai.ErrNotConfigured, s.maxReasoning)
		}
		score := fallback(res.Err, s.maxReasoning)
		score.Err = res.Err
		return score
	}

	s.logger.Debug("intent classified",
		zap.String(logger.FieldLead, leads.TextOr(lead.Name, unknownValue)),
		zap.Int("response_length", utf8.RuneCountInString(res.Text)),
		zap.String("response_preview", utils.TruncateForLog(res.Text, s.maxLogLen)),
	)

	return ParseIntent(res.Text, s.maxReasoning)
}

// BuildPrompt renders the intent prompt. Absent lead fields read "Unknown".
func BuildPrompt(lead leads.Lead, offer leads.Offer) string {
	r := strings.NewReplacer(
		"{{OFFER_NAME}}", offer.Name,
		"{{VALUE_PROPS}}", strings.Join(offer.ValueProps, ", "),
		"{{IDEAL_USE_CASES}}", strings.Join(offer.IdealUseCases, ", "),
		"{{LEAD_NAME}}", leads.TextOr(lead.Name, unknownValue),
		"{{LEAD_ROLE}}", leads.TextOr(lead.Role, unknownValue),
		"{{LEAD_COMPANY}}", leads.TextOr(lead.Company, unknownValue),
		"{{LEAD_INDUSTRY}}", leads.TextOr(lead.Industry, unknownValue),
		"{{LEAD_BIO}}", leads.TextOr(lead.LinkedInBio, unknownValue),
	)
	return strings.TrimSpace(r.Replace(promptTemplate))
}

// ParseIntent maps a model response to an AI score. "High" is checked before
// "Medium" and the match is case-sensitive; anything else is Low. The
// reasoning is the text after "REASONING:" or the whole response.
func ParseIntent(text string, maxReasoning int) AIScore {
	text = strings.TrimSpace(text)

	var score AIScore
	switch {
	case strings.Contains(text, string(leads.IntentHigh)):
		score.Points, score.Intent = HighIntentPoints, leads.IntentHigh
	case strings.Contains(text, string(leads.IntentMedium)):
		score.Points, score.Intent = MediumIntentPoints, leads.IntentMedium
	default:
		score.Points, score.Intent = LowIntentPoints, leads.IntentLow
	}

	reasoning := text
	if _, after, found := strings.Cut(text, reasoningMarker); found {
		reasoning = after
	}
	score.Reasoning = utils.TruncateForLog(utils.SingleLine(reasoning), maxReasoning)

	return score
}

func fallback(err error, maxReasoning int) AIScore {
	return AIScore{
		Points:    FallbackIntentPoints,
		Intent:    leads.IntentMedium,
		Reasoning: FallbackReasoning(err, maxReasoning),
		Fallback:  true,
	}
}

// FallbackReasoning explains why the default Medium intent was used.
func FallbackReasoning(err error, maxReasoning int) string {
	cause := "unknown error"
	if err != nil {
		cause = utils.TruncateForLog(utils.SingleLine(err.Error()), maxReasoning)
	}
	return fmt.Sprintf("AI analysis unavailable; %s ;Using default Medium intent and %d score", cause, FallbackIntentPoints)
}
