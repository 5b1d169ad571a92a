// Package policy holds the tunable weights and thresholds for the decision
// pipeline. Defaults match production policy; a YAML file can override any
// value so boundary changes do not require code changes.
package policy

import (
	"fmt"
	"math"
)

type Policy struct {
	Confidence Confidence `yaml:"confidence"`
	Escalation Escalation `yaml:"escalation"`
	Routing    Routing    `yaml:"routing"`
	Persona    Persona    `yaml:"persona"`
	Consensus  Consensus  `yaml:"consensus"`
}

// Confidence controls the aggregation disagreement penalty.
type Confidence struct {
	// VarianceThreshold is the population variance above which the
	// disagreement penalty applies.
	VarianceThreshold float64 `yaml:"variance_threshold"`
	// PenaltyFactor multiplies the mean confidence when the threshold is
	// exceeded.
	PenaltyFactor float64 `yaml:"penalty_factor"`
}

// Escalation holds the tier thresholds and modifier limits.
type Escalation struct {
	// AgentOnlyThreshold: confidence at or above this classifies AGENT_ONLY.
	AgentOnlyThreshold float64 `yaml:"agent_only_threshold"`
	// JuniorThreshold: confidence at or above this (but below AgentOnly)
	// classifies JUNIOR_SPECIALIST; below it, SENIOR_PARTNER.
	JuniorThreshold float64 `yaml:"junior_threshold"`
	// HighRiskFactorLimit: this many high/critical risk factors raise the
	// decision one tier.
	HighRiskFactorLimit int `yaml:"high_risk_factor_limit"`
}

// Routing holds the candidate scoring weights.
type Routing struct {
	DomainWeight      float64 `yaml:"domain_weight"`
	StakeholderWeight float64 `yaml:"stakeholder_weight"`
	ComplexityWeight  float64 `yaml:"complexity_weight"`

	// Stakeholder alignment component values.
	PreferredStakeholderScore float64 `yaml:"preferred_stakeholder_score"`
	BaseStakeholderScore      float64 `yaml:"base_stakeholder_score"`

	// Complexity fit component values.
	PreferredComplexityScore float64 `yaml:"preferred_complexity_score"`
	BaseComplexityScore      float64 `yaml:"base_complexity_score"`

	// Supporting experts must score above this floor.
	SupportingScoreFloor float64 `yaml:"supporting_score_floor"`
	MaxSupportingExperts int     `yaml:"max_supporting_experts"`
}

// Persona bounds the state manager's in-memory history.
type Persona struct {
	TransitionLogCap int `yaml:"transition_log_cap"`
}

// Consensus controls split resolution.
type Consensus struct {
	// DefaultDomainThreshold is the standing threshold assumed for a persona
	// with no catalog entry for the dominant domain.
	DefaultDomainThreshold float64 `yaml:"default_domain_threshold"`
}

// Default returns the production policy.
func Default() Policy {
	return Policy{
		Confidence: Confidence{
			VarianceThreshold: 0.1,
			PenaltyFactor:     0.85,
		},
		Escalation: Escalation{
			AgentOnlyThreshold:  0.90,
			JuniorThreshold:     0.70,
			HighRiskFactorLimit: 2,
		},
		Routing: Routing{
			DomainWeight:              0.4,
			StakeholderWeight:         0.3,
			ComplexityWeight:          0.3,
			PreferredStakeholderScore: 0.8,
			BaseStakeholderScore:      0.3,
			PreferredComplexityScore:  0.8,
			BaseComplexityScore:       0.4,
			SupportingScoreFloor:      0.5,
			MaxSupportingExperts:      3,
		},
		Persona: Persona{
			TransitionLogCap: 256,
		},
		Consensus: Consensus{
			DefaultDomainThreshold: 0.5,
		},
	}
}

// Validate rejects policies that would break the tier and scoring invariants.
func (p Policy) Validate() error {
	if p.Confidence.VarianceThreshold < 0 {
		return fmt.Errorf("confidence.variance_threshold must be >= 0, got %g", p.Confidence.VarianceThreshold)
	}
	if p.Confidence.PenaltyFactor <= 0 || p.Confidence.PenaltyFactor > 1 {
		return fmt.Errorf("confidence.penalty_factor must be in (0,1], got %g", p.Confidence.PenaltyFactor)
	}
	if p.Escalation.AgentOnlyThreshold <= 0 || p.Escalation.AgentOnlyThreshold > 1 {
		return fmt.Errorf("escalation.agent_only_threshold must be in (0,1], got %g", p.Escalation.AgentOnlyThreshold)
	}
	if p.Escalation.JuniorThreshold <= 0 || p.Escalation.JuniorThreshold >= p.Escalation.AgentOnlyThreshold {
		return fmt.Errorf("escalation.junior_threshold must be in (0, agent_only_threshold), got %g", p.Escalation.JuniorThreshold)
	}
	if p.Escalation.HighRiskFactorLimit < 1 {
		return fmt.Errorf("escalation.high_risk_factor_limit must be >= 1, got %d", p.Escalation.HighRiskFactorLimit)
	}
	weightSum := p.Routing.DomainWeight + p.Routing.StakeholderWeight + p.Routing.ComplexityWeight
	if math.Abs(weightSum-1.0) > 0.001 {
		return fmt.Errorf("routing weights must sum to 1.0, got %g", weightSum)
	}
	if p.Routing.SupportingScoreFloor < 0 || p.Routing.SupportingScoreFloor > 1 {
		return fmt.Errorf("routing.supporting_score_floor must be in [0,1], got %g", p.Routing.SupportingScoreFloor)
	}
	if p.Routing.MaxSupportingExperts < 0 {
		return fmt.Errorf("routing.max_supporting_experts must be >= 0, got %d", p.Routing.MaxSupportingExperts)
	}
	if p.Persona.TransitionLogCap < 1 {
		return fmt.Errorf("persona.transition_log_cap must be >= 1, got %d", p.Persona.TransitionLogCap)
	}
	if p.Consensus.DefaultDomainThreshold < 0 || p.Consensus.DefaultDomainThreshold > 1 {
		return fmt.Errorf("consensus.default_domain_threshold must be in [0,1], got %g", p.Consensus.DefaultDomainThreshold)
	}
	return nil
}
