// Package escalation classifies decisions into oversight tiers. The
// classifier is the authoritative gate; Assess provides a secondary advisory
// view over the same context.
package escalation

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/policy"
)

// Tier is an oversight level. Ordered: AGENT_ONLY < JUNIOR_SPECIALIST <
// SENIOR_PARTNER.
type Tier string

const (
	TierAgentOnly        Tier = "AGENT_ONLY"
	TierJuniorSpecialist Tier = "JUNIOR_SPECIALIST"
	TierSeniorPartner    Tier = "SENIOR_PARTNER"
)

func rank(t Tier) int {
	switch t {
	case TierAgentOnly:
		return 0
	case TierJuniorSpecialist:
		return 1
	case TierSeniorPartner:
		return 2
	default:
		return 2
	}
}

// Raise returns the next stricter tier, capped at SENIOR_PARTNER.
func Raise(t Tier) Tier {
	switch t {
	case TierAgentOnly:
		return TierJuniorSpecialist
	case TierJuniorSpecialist:
		return TierSeniorPartner
	default:
		return TierSeniorPartner
	}
}

// Result is one classification outcome. Immutable once returned.
type Result struct {
	Tier              Tier     `json:"tier"`
	EscalationNeeded  bool     `json:"escalation_needed"`
	OverallConfidence float64  `json:"overall_confidence"`
	RequiredExpertise []string `json:"required_expertise,omitempty"`
	Reasoning         string   `json:"reasoning"`
}

// Classifier applies the tier thresholds and context modifiers.
type Classifier struct {
	cfg policy.Escalation
}

func NewClassifier(cfg policy.Escalation) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify determines the oversight tier for a decision. Modifiers only ever
// raise the tier: critical business impact forces at least junior review,
// critical impact at very_high complexity forces senior review, and two or
// more high/critical risk factors raise the result one level. The reasoning
// string enumerates exactly which rules fired, in a fixed order.
func (c *Classifier) Classify(overall float64, ctx decision.Context) (Result, error) {
	if overall < 0.0 || overall > 1.0 {
		return Result{}, &decision.ValidationError{
			Field:  "overall_confidence",
			Reason: fmt.Sprintf("%g outside [0,1]", overall),
		}
	}
	if err := ctx.Validate(); err != nil {
		return Result{}, err
	}

	var reasons []string
	tier := c.baseTier(overall)
	switch tier {
	case TierAgentOnly:
		reasons = append(reasons, fmt.Sprintf("confidence %.2f at or above %.2f: agent-only execution", overall, c.cfg.AgentOnlyThreshold))
	case TierJuniorSpecialist:
		reasons = append(reasons, fmt.Sprintf("confidence %.2f in [%.2f, %.2f): junior specialist review", overall, c.cfg.JuniorThreshold, c.cfg.AgentOnlyThreshold))
	default:
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below %.2f: senior partner oversight", overall, c.cfg.JuniorThreshold))
	}

	if ctx.BusinessImpact == decision.ImpactCritical {
		if ctx.Complexity == decision.ComplexityVeryHigh {
			tier = TierSeniorPartner
			reasons = append(reasons, "critical business impact at very_high complexity: senior partner required")
		} else if rank(tier) < rank(TierJuniorSpecialist) {
			tier = TierJuniorSpecialist
			reasons = append(reasons, "critical business impact: junior specialist minimum")
		} else {
			reasons = append(reasons, "critical business impact noted, tier already at or above junior specialist")
		}
	}

	if n := ctx.HighRiskCount(); n >= c.cfg.HighRiskFactorLimit {
		raised := Raise(tier)
		if raised != tier {
			tier = raised
			reasons = append(reasons, fmt.Sprintf("%d high/critical risk factors: tier raised one level", n))
		} else {
			reasons = append(reasons, fmt.Sprintf("%d high/critical risk factors noted, already at senior partner", n))
		}
	}

	return Result{
		Tier:              tier,
		EscalationNeeded:  tier != TierAgentOnly,
		OverallConfidence: overall,
		RequiredExpertise: requiredExpertise(tier, ctx),
		Reasoning:         strings.Join(reasons, "; "),
	}, nil
}

func (c *Classifier) baseTier(overall float64) Tier {
	switch {
	case overall >= c.cfg.AgentOnlyThreshold:
		return TierAgentOnly
	case overall >= c.cfg.JuniorThreshold:
		return TierJuniorSpecialist
	default:
		return TierSeniorPartner
	}
}

// requiredExpertise derives the expertise domains a human reviewer needs,
// from the decision type keywords, compliance load and final tier. Empty for
// agent-only decisions.
func requiredExpertise(tier Tier, ctx decision.Context) []string {
	if tier == TierAgentOnly {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(domain string) {
		if !seen[domain] {
			seen[domain] = true
			out = append(out, domain)
		}
	}

	dt := strings.ToLower(ctx.DecisionType)
	switch {
	case strings.Contains(dt, "code") || strings.Contains(dt, "technical") || strings.Contains(dt, "implementation"):
		add(decision.DomainPythonDevelopment)
	case strings.Contains(dt, "architecture") || strings.Contains(dt, "design"):
		add(decision.DomainSystemArchitecture)
	case strings.Contains(dt, "business") || strings.Contains(dt, "requirement"):
		add(decision.DomainBusinessAnalysis)
	case strings.Contains(dt, "security"):
		add(decision.DomainSecurityCompliance)
	case strings.Contains(dt, "strateg"):
		add(decision.DomainStrategicPlanning)
	}

	if len(ctx.ComplianceRequirements) > 0 {
		add(decision.DomainSecurityCompliance)
	}
	if tier == TierSeniorPartner {
		add(decision.DomainStrategicPlanning)
	}
	if len(out) == 0 {
		add(decision.DomainBusinessAnalysis)
	}
	return out
}
