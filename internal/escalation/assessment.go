package escalation

import (
	"github.com/MikeSquared-Agency/themis/internal/confidence"
	"github.com/MikeSquared-Agency/themis/internal/decision"
)

// RiskLevel bands the overall risk score.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Agreement bands the confidence variance across sources.
type Agreement string

const (
	AgreementStrong   Agreement = "strong"
	AgreementModerate Agreement = "moderate"
	AgreementLow      Agreement = "low"
)

// Assessment is the advisory multi-factor view of a decision. It never
// overrides the classifier; it is attached to the evaluation for reviewers
// who want to see what drives the escalation pressure.
type Assessment struct {
	CompositeScore     float64            `json:"composite_score"`
	ComplexityScore    float64            `json:"complexity_score"`
	ComplexityLevel    string             `json:"complexity_level"`
	ComplexityFactors  map[string]float64 `json:"complexity_factors"`
	TechnicalRisk      float64            `json:"technical_risk"`
	ImplementationRisk float64            `json:"implementation_risk"`
	TimelineRisk       float64            `json:"timeline_risk"`
	RiskScore          float64            `json:"risk_score"`
	RiskLevel          RiskLevel          `json:"risk_level"`
	Agreement          Agreement          `json:"agreement"`
	AdvisoryTier       Tier               `json:"advisory_tier"`
	PrimaryDrivers     []string           `json:"primary_drivers"`
}

// Composite score component weights.
const (
	weightConfidence = 0.35
	weightComplexity = 0.25
	weightRisk       = 0.25
	weightConsensus  = 0.15
)

// AgreementFor bands a confidence variance.
func AgreementFor(variance float64) Agreement {
	switch {
	case variance < 0.05:
		return AgreementStrong
	case variance < 0.15:
		return AgreementModerate
	default:
		return AgreementLow
	}
}

// AgreementQuality maps source agreement to a consensus-quality estimate,
// used before any explicit consensus round has run.
func AgreementQuality(variance float64) float64 {
	switch AgreementFor(variance) {
	case AgreementStrong:
		return 0.9
	case AgreementModerate:
		return 0.7
	default:
		return 0.3
	}
}

// Assess computes the advisory multi-factor assessment: weighted complexity
// across six factors, risk across three components, and a composite
// escalation-pressure score combining inverted confidence, complexity, risk
// and inverted consensus quality. The advisory tier derives from the
// composite with risk bumps, mirroring the classifier's direction: risk can
// only push the advisory tier up.
func Assess(ctx decision.Context, agg confidence.Result, consensusQuality float64) Assessment {
	factors := map[string]float64{
		"technical_complexity":    severityScore(string(ctx.Complexity)),
		"business_impact":         severityScore(string(ctx.BusinessImpact)),
		"stakeholder_complexity":  capAt1(float64(len(ctx.StakeholderRequirements)) * 0.2),
		"timeline_pressure":       timelinePressure(ctx.TimelineUrgency),
		"integration_complexity":  capAt1(float64(len(ctx.DomainRequirements)) * 0.15),
		"regulatory_requirements": regulatoryScore(ctx.ComplianceRequirements),
	}

	complexityScore := factors["technical_complexity"]*0.25 +
		factors["stakeholder_complexity"]*0.20 +
		factors["business_impact"]*0.30 +
		factors["timeline_pressure"]*0.10 +
		factors["integration_complexity"]*0.10 +
		factors["regulatory_requirements"]*0.05

	techRisk := technicalRisk(ctx, agg.Variance)
	implRisk := implementationRisk(ctx)
	tlRisk := timelineRisk(ctx.TimelineUrgency)
	riskScore := (techRisk + implRisk + tlRisk) / 3.0
	riskLevel := riskLevelFor(riskScore)

	composite := (1.0-agg.Overall)*weightConfidence +
		complexityScore*weightComplexity +
		riskScore*weightRisk +
		(1.0-consensusQuality)*weightConsensus

	tier := advisoryTier(composite, riskLevel)

	return Assessment{
		CompositeScore:     composite,
		ComplexityScore:    complexityScore,
		ComplexityLevel:    complexityLevelFor(complexityScore),
		ComplexityFactors:  factors,
		TechnicalRisk:      techRisk,
		ImplementationRisk: implRisk,
		TimelineRisk:       tlRisk,
		RiskScore:          riskScore,
		RiskLevel:          riskLevel,
		Agreement:          AgreementFor(agg.Variance),
		AdvisoryTier:       tier,
		PrimaryDrivers: primaryDrivers(
			1.0-agg.Overall, complexityScore, riskScore, 1.0-consensusQuality,
		),
	}
}

func severityScore(level string) float64 {
	switch level {
	case "very_low":
		return 0.1
	case "low":
		return 0.3
	case "medium":
		return 0.5
	case "medium_high":
		return 0.7
	case "high":
		return 0.8
	case "very_high", "critical":
		return 0.9
	default:
		return 0.5
	}
}

func timelinePressure(u decision.Urgency) float64 {
	switch u {
	case decision.UrgencyImmediate:
		return 0.9
	case decision.UrgencyUrgent:
		return 0.7
	case decision.UrgencyFlexible:
		return 0.2
	default:
		return 0.4
	}
}

func regulatoryScore(compliance []string) float64 {
	if len(compliance) > 0 {
		return 0.8
	}
	return 0.1
}

func technicalRisk(ctx decision.Context, variance float64) float64 {
	risk := 0.3
	switch ctx.Complexity {
	case decision.ComplexityHigh:
		risk += 0.3
	case decision.ComplexityVeryHigh:
		risk += 0.5
	}
	if variance > 0.15 {
		risk += 0.2
	}
	return capAt1(risk)
}

func implementationRisk(ctx decision.Context) float64 {
	risk := 0.2 + float64(len(ctx.RiskFactors))*0.1
	if len(ctx.ComplianceRequirements) > 0 {
		risk += 0.3
	}
	return capAt1(risk)
}

func timelineRisk(u decision.Urgency) float64 {
	switch u {
	case decision.UrgencyImmediate:
		return 0.8
	case decision.UrgencyUrgent:
		return 0.6
	case decision.UrgencyFlexible:
		return 0.1
	default:
		return 0.3
	}
}

func riskLevelFor(score float64) RiskLevel {
	switch {
	case score < 0.2:
		return RiskVeryLow
	case score < 0.4:
		return RiskLow
	case score < 0.6:
		return RiskMedium
	case score < 0.8:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func complexityLevelFor(score float64) string {
	switch {
	case score < 0.3:
		return "low"
	case score < 0.6:
		return "medium"
	default:
		return "high"
	}
}

func advisoryTier(composite float64, risk RiskLevel) Tier {
	var tier Tier
	switch {
	case composite < 0.3:
		tier = TierAgentOnly
	case composite < 0.6:
		tier = TierJuniorSpecialist
	default:
		tier = TierSeniorPartner
	}

	if (risk == RiskHigh || risk == RiskCritical) && tier == TierAgentOnly {
		tier = TierJuniorSpecialist
	} else if risk == RiskCritical && tier == TierJuniorSpecialist {
		tier = TierSeniorPartner
	}
	return tier
}

func primaryDrivers(confidenceGap, complexity, risk, consensusGap float64) []string {
	var drivers []string
	if confidenceGap > 0.6 {
		drivers = append(drivers, "low_confidence")
	}
	if complexity > 0.6 {
		drivers = append(drivers, "high_complexity")
	}
	if risk > 0.6 {
		drivers = append(drivers, "high_risk")
	}
	if consensusGap > 0.6 {
		drivers = append(drivers, "poor_consensus")
	}
	if len(drivers) == 0 {
		drivers = []string{"moderate_factors"}
	}
	return drivers
}

func capAt1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
