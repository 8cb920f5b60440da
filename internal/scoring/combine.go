package scoring

import (
	"context"
	"fmt"

	"github.com/spigell/lead-scorer/internal/leads"
)

// Final intent thresholds over the combined score.
const (
	HighIntentThreshold   = 70
	MediumIntentThreshold = 40
)

// Combiner merges the rule and AI scores of a lead.
type Combiner struct {
	Rules  *RuleScorer
	Intent *IntentScorer
}

func NewCombiner(rules *RuleScorer, intent *IntentScorer) *Combiner {
	return &Combiner{Rules: rules, Intent: intent}
}

// Scored is a combined score plus the parts it was built from.
type Scored struct {
	Lead leads.ScoredLead
	Rule RuleScore
	AI   AIScore
}

// Combine scores lead and renders the result row. The final intent is derived
// from the combined score; the AI's own intent label is not used.
func (c *Combiner) Combine(ctx context.Context, lead leads.Lead, offer leads.Offer, validated bool, missing int) (leads.ScoredLead, error) {
	scored, err := c.CombineDetailed(ctx, lead, offer, validated, missing)
	if err != nil {
		return leads.ScoredLead{}, err
	}
	return scored.Lead, nil
}

// CombineDetailed is Combine that also returns the component scores.
func (c *Combiner) CombineDetailed(ctx context.Context, lead leads.Lead, offer leads.Offer, validated bool, missing int) (Scored, error) {
	rule, err := c.Rules.Score(lead, validated, missing)
	if err != nil {
		return Scored{}, err
	}

	aiScore := c.Intent.Score(ctx, lead, offer)

	final := rule.Points + aiScore.Points

	completeness := leads.Incomplete
	if validated {
		completeness = leads.Complete
	}

	return Scored{
		Lead: leads.ScoredLead{
			Name:             leads.TextOr(lead.Name, unknownValue),
			Role:             lead.Role,
			Company:          lead.Company,
			Industry:         lead.Industry,
			Intent:           FinalIntent(final),
			Score:            final,
			Reasoning:        fmt.Sprintf("Rules: %s | AI: %s", rule.Reasoning(), aiScore.Reasoning),
			DataCompleteness: completeness,
		},
		Rule: rule,
		AI:   aiScore,
	}, nil
}

// FinalIntent buckets a combined score.
func FinalIntent(score int) leads.Intent {
	switch {
	case score >= HighIntentThreshold:
		return leads.IntentHigh
	case score >= MediumIntentThreshold:
		return leads.IntentMedium
	default:
		return leads.IntentLow
	}
}
