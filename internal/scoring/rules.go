// Package scoring turns leads into scored, ranked results: a deterministic
// rule score, an AI intent score and their combination.
package scoring

import (
	"fmt"
	"strings"

	"github.com/spigell/lead-scorer/internal/apperr"
	"github.com/spigell/lead-scorer/internal/leads"
)

const (
	// MaxRuleScore is the highest score the rule scorer can award.
	MaxRuleScore = 50

	completenessPoints = 10
)

// Tier is a keyword category. A tier matches when the lowercased value
// contains any of its keywords.
type Tier struct {
	Points   int
	Reason   string
	Keywords []string
}

func (t Tier) matches(value string) bool {
	for _, kw := range t.Keywords {
		if strings.Contains(value, kw) {
			return true
		}
	}
	return false
}

// Signal scores one lead field against tiers checked in order. The first
// matching tier wins; Fallback applies when none match.
type Signal struct {
	Tiers    []Tier
	Fallback string
}

func (s Signal) score(value *string) (int, string) {
	v := strings.ToLower(leads.Text(value))
	for _, tier := range s.Tiers {
		if tier.matches(v) {
			return tier.Points, tier.Reason
		}
	}
	return 0, s.Fallback
}

// RoleSignal rewards decision makers over influencers.
var RoleSignal = Signal{
	Tiers: []Tier{
		{
			Points:   20,
			Reason:   "Decision maker role detected (+20)",
			Keywords: []string{"ceo", "cto", "cfo", "founder", "head", "director", "vp", "chief", "president"},
		},
		{
			Points:   10,
			Reason:   "Influencer role detected (+10)",
			Keywords: []string{"manager", "lead", "senior", "coordinator", "specialist", "analyst", "developer", "engineer"},
		},
	},
	Fallback: "Role not relevant +0",
}

// IndustrySignal rewards the ideal customer profile over adjacent industries.
var IndustrySignal = Signal{
	Tiers: []Tier{
		{
			Points:   20,
			Reason:   "Exact ICP match (+20)",
			Keywords: []string{"software", "saas", "technology", "tech", "b2b", "startup"},
		},
		{
			Points:   10,
			Reason:   "Adjacent industry (+10)",
			Keywords: []string{"marketing", "sales", "consulting", "services"},
		},
	},
	Fallback: "Non-target industry (+0)",
}

// RuleScore is the deterministic part of a lead score.
type RuleScore struct {
	Points       int
	Role         int
	Industry     int
	Completeness int
	Reasons      []string
}

// Reasoning joins the reasons for display.
func (r RuleScore) Reasoning() string {
	return strings.Join(r.Reasons, " | ")
}

// RuleScorer computes rule scores. The zero value is not usable; use
// NewRuleScorer.
type RuleScorer struct {
	Role     Signal
	Industry Signal
}

func NewRuleScorer() *RuleScorer {
	return &RuleScorer{
		Role:     RoleSignal,
		Industry: IndustrySignal,
	}
}

// Score rates lead by role, industry and data completeness. Validated leads
// get the full completeness points. Defective leads get
// floor((6-missing)/6*10) points and no completeness reason. missing must be
// within [0,6].
func (s *RuleScorer) Score(lead leads.Lead, validated bool, missing int) (RuleScore, error) {
	total := len(leads.RequiredFields)
	if missing < 0 || missing > total {
		return RuleScore{}, apperr.InvalidInput(
			fmt.Sprintf("missing value count %d is outside [0,%d]", missing, total),
		).WithOp("rule score")
	}

	var res RuleScore

	points, reason := s.Role.score(lead.Role)
	res.Role = points
	res.Reasons = append(res.Reasons, reason)

	points, reason = s.Industry.score(lead.Industry)
	res.Industry = points
	res.Reasons = append(res.Reasons, reason)

	if validated {
		res.Completeness = completenessPoints
		res.Reasons = append(res.Reasons, fmt.Sprintf("Complete profile (+%d)", completenessPoints))
	} else {
		res.Completeness = (total - missing) * completenessPoints / total
	}

	res.Points = res.Role + res.Industry + res.Completeness
	return res, nil
}
