package decision

import (
	"fmt"
	"strings"
)

// Complexity is the assessed difficulty of a decision.
type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityVeryHigh Complexity = "very_high"
)

// Impact is the business impact level of a decision.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// Urgency is the timeline pressure on a decision.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyNormal    Urgency = "normal"
	UrgencyFlexible  Urgency = "flexible"
)

// StakeholderType identifies a class of stakeholder with requirements on a decision.
type StakeholderType string

const (
	StakeholderTechnicalTeam        StakeholderType = "technical_team"
	StakeholderBusinessStakeholders StakeholderType = "business_stakeholders"
	StakeholderExecutiveLeadership  StakeholderType = "executive_leadership"
	StakeholderExternalClients      StakeholderType = "external_clients"
	StakeholderRegulatoryBodies     StakeholderType = "regulatory_bodies"
	StakeholderEndUsers             StakeholderType = "end_users"
)

// Expertise domains recognized across routing, escalation and consensus.
const (
	DomainPythonDevelopment       = "python_development"
	DomainSystemArchitecture      = "system_architecture"
	DomainBusinessAnalysis        = "business_analysis"
	DomainSecurityCompliance      = "security_compliance"
	DomainStrategicPlanning       = "strategic_planning"
	DomainPerformanceOptimization = "performance_optimization"
	DomainStakeholderManagement   = "stakeholder_management"
)

// Recommendation is a single automated recommendation for a decision.
// Immutable once received.
type Recommendation struct {
	SourceID   string   `json:"source_id"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale,omitempty"`
	DomainTags []string `json:"domain_tags,omitempty"`
}

// Context describes one decision request. Created once per request,
// read-only thereafter.
type Context struct {
	DecisionID              string                       `json:"decision_id"`
	DecisionType            string                       `json:"decision_type"`
	Complexity              Complexity                   `json:"complexity"`
	BusinessImpact          Impact                       `json:"business_impact"`
	StakeholderRequirements map[StakeholderType][]string `json:"stakeholder_requirements,omitempty"`
	DomainRequirements      []string                     `json:"domain_requirements,omitempty"`
	RiskFactors             []string                     `json:"risk_factors,omitempty"`
	TimelineUrgency         Urgency                      `json:"timeline_urgency,omitempty"`
	ComplianceRequirements  []string                     `json:"compliance_requirements,omitempty"`
	MultiExpertNeeded       bool                         `json:"multi_expert_needed,omitempty"`
}

// Validate checks the required fields. Missing or unknown values are fatal
// to the decision — business_impact and complexity are never defaulted.
func (c Context) Validate() error {
	if c.DecisionID == "" {
		return &ValidationError{Field: "decision_id", Reason: "required"}
	}
	if c.DecisionType == "" {
		return &ValidationError{Field: "decision_type", Reason: "required"}
	}
	switch c.Complexity {
	case ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityVeryHigh:
	case "":
		return &ValidationError{Field: "complexity", Reason: "required"}
	default:
		return &ValidationError{Field: "complexity", Reason: fmt.Sprintf("unknown value %q", c.Complexity)}
	}
	switch c.BusinessImpact {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical:
	case "":
		return &ValidationError{Field: "business_impact", Reason: "required"}
	default:
		return &ValidationError{Field: "business_impact", Reason: fmt.Sprintf("unknown value %q", c.BusinessImpact)}
	}
	switch c.TimelineUrgency {
	case UrgencyImmediate, UrgencyUrgent, UrgencyNormal, UrgencyFlexible, "":
	default:
		return &ValidationError{Field: "timeline_urgency", Reason: fmt.Sprintf("unknown value %q", c.TimelineUrgency)}
	}
	return nil
}

// DominantDomain returns the first domain requirement, the decision's primary
// domain by convention. Empty when no domain requirements were supplied.
func (c Context) DominantDomain() string {
	if len(c.DomainRequirements) == 0 {
		return ""
	}
	return c.DomainRequirements[0]
}

// HighRiskCount counts risk factors tagged high or critical.
func (c Context) HighRiskCount() int {
	n := 0
	for _, r := range c.RiskFactors {
		if isHighRisk(r) {
			n++
		}
	}
	return n
}

func isHighRisk(factor string) bool {
	f := strings.ToLower(factor)
	return strings.Contains(f, "high") || strings.Contains(f, "critical")
}
