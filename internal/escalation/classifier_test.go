package escalation

import (
	"errors"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/policy"
)

func baseContext() decision.Context {
	return decision.Context{
		DecisionID:     "dec-1",
		DecisionType:   "code_implementation",
		Complexity:     decision.ComplexityMedium,
		BusinessImpact: decision.ImpactMedium,
	}
}

func TestClassifyTiers(t *testing.T) {
	tests := []struct {
		name       string
		overall    float64
		mutate     func(*decision.Context)
		wantTier   Tier
		wantNeeded bool
	}{
		{
			name:       "high confidence low impact is agent only",
			overall:    0.94,
			mutate:     func(c *decision.Context) { c.BusinessImpact = decision.ImpactLow },
			wantTier:   TierAgentOnly,
			wantNeeded: false,
		},
		{
			name:       "boundary 0.90 is agent only",
			overall:    0.90,
			mutate:     func(c *decision.Context) { c.BusinessImpact = decision.ImpactLow },
			wantTier:   TierAgentOnly,
			wantNeeded: false,
		},
		{
			name:       "medium confidence needs junior specialist",
			overall:    0.78,
			wantTier:   TierJuniorSpecialist,
			wantNeeded: true,
		},
		{
			name:       "boundary 0.70 is junior specialist",
			overall:    0.70,
			wantTier:   TierJuniorSpecialist,
			wantNeeded: true,
		},
		{
			name:       "low confidence needs senior partner",
			overall:    0.55,
			mutate:     func(c *decision.Context) { c.BusinessImpact = decision.ImpactHigh },
			wantTier:   TierSeniorPartner,
			wantNeeded: true,
		},
		{
			name:       "just below 0.70 is senior partner",
			overall:    0.699,
			wantTier:   TierSeniorPartner,
			wantNeeded: true,
		},
		{
			name:       "critical impact blocks agent only",
			overall:    0.99,
			mutate:     func(c *decision.Context) { c.BusinessImpact = decision.ImpactCritical },
			wantTier:   TierJuniorSpecialist,
			wantNeeded: true,
		},
		{
			name:    "critical impact at very high complexity forces senior partner",
			overall: 0.99,
			mutate: func(c *decision.Context) {
				c.BusinessImpact = decision.ImpactCritical
				c.Complexity = decision.ComplexityVeryHigh
			},
			wantTier:   TierSeniorPartner,
			wantNeeded: true,
		},
		{
			name:    "two high risk factors raise one tier",
			overall: 0.94,
			mutate: func(c *decision.Context) {
				c.BusinessImpact = decision.ImpactLow
				c.RiskFactors = []string{"high_regulatory", "critical_dependency"}
			},
			wantTier:   TierJuniorSpecialist,
			wantNeeded: true,
		},
		{
			name:    "single high risk factor does not raise",
			overall: 0.94,
			mutate: func(c *decision.Context) {
				c.BusinessImpact = decision.ImpactLow
				c.RiskFactors = []string{"high_regulatory", "minor_cosmetic"}
			},
			wantTier:   TierAgentOnly,
			wantNeeded: false,
		},
		{
			name:    "risk raise stacks on critical impact floor",
			overall: 0.95,
			mutate: func(c *decision.Context) {
				c.BusinessImpact = decision.ImpactCritical
				c.RiskFactors = []string{"high_availability", "critical_path"}
			},
			wantTier:   TierSeniorPartner,
			wantNeeded: true,
		},
		{
			name:    "risk raise caps at senior partner",
			overall: 0.40,
			mutate: func(c *decision.Context) {
				c.BusinessImpact = decision.ImpactHigh
				c.RiskFactors = []string{"high_one", "high_two", "critical_three"}
			},
			wantTier:   TierSeniorPartner,
			wantNeeded: true,
		},
	}

	cls := NewClassifier(policy.Default().Escalation)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := baseContext()
			if tt.mutate != nil {
				tt.mutate(&ctx)
			}
			got, err := cls.Classify(tt.overall, ctx)
			if err != nil {
				t.Fatalf("Classify() error: %v", err)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %s, want %s", got.Tier, tt.wantTier)
			}
			if got.EscalationNeeded != tt.wantNeeded {
				t.Errorf("EscalationNeeded = %v, want %v", got.EscalationNeeded, tt.wantNeeded)
			}
			if got.Reasoning == "" {
				t.Error("Reasoning is empty")
			}
		})
	}
}

func TestClassifyCriticalNeverAgentOnly(t *testing.T) {
	cls := NewClassifier(policy.Default().Escalation)
	ctx := baseContext()
	ctx.BusinessImpact = decision.ImpactCritical

	for conf := 0.0; conf <= 1.0; conf += 0.05 {
		got, err := cls.Classify(conf, ctx)
		if err != nil {
			t.Fatalf("Classify(%g) error: %v", conf, err)
		}
		if got.Tier == TierAgentOnly {
			t.Errorf("confidence %g with critical impact classified AGENT_ONLY", conf)
		}
	}
}

func TestClassifyMonotonicInConfidence(t *testing.T) {
	cls := NewClassifier(policy.Default().Escalation)
	contexts := []decision.Context{
		baseContext(),
		func() decision.Context {
			c := baseContext()
			c.BusinessImpact = decision.ImpactCritical
			return c
		}(),
		func() decision.Context {
			c := baseContext()
			c.RiskFactors = []string{"high_one", "critical_two"}
			return c
		}(),
	}

	for _, ctx := range contexts {
		prevRank := -1
		for conf := 1.0; conf >= 0.0; conf -= 0.01 {
			got, err := cls.Classify(conf, ctx)
			if err != nil {
				t.Fatalf("Classify(%g) error: %v", conf, err)
			}
			if r := rank(got.Tier); r < prevRank {
				t.Fatalf("tier strictness dropped from %d to %d as confidence fell to %g", prevRank, r, conf)
			} else {
				prevRank = r
			}
		}
	}
}

func TestClassifyReasoningDeterministic(t *testing.T) {
	cls := NewClassifier(policy.Default().Escalation)
	ctx := baseContext()
	ctx.BusinessImpact = decision.ImpactCritical
	ctx.RiskFactors = []string{"high_regulatory", "critical_dependency"}

	first, err := cls.Classify(0.82, ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cls.Classify(0.82, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Reasoning != second.Reasoning {
		t.Errorf("reasoning not deterministic:\n%s\n%s", first.Reasoning, second.Reasoning)
	}
	if !strings.Contains(first.Reasoning, "critical business impact") {
		t.Errorf("reasoning missing impact modifier: %s", first.Reasoning)
	}
	if !strings.Contains(first.Reasoning, "risk factors") {
		t.Errorf("reasoning missing risk modifier: %s", first.Reasoning)
	}
}

func TestClassifyRequiredExpertise(t *testing.T) {
	cls := NewClassifier(policy.Default().Escalation)

	tests := []struct {
		name    string
		overall float64
		mutate  func(*decision.Context)
		want    []string
	}{
		{
			name:    "agent only has no required expertise",
			overall: 0.95,
			mutate:  func(c *decision.Context) { c.BusinessImpact = decision.ImpactLow },
			want:    nil,
		},
		{
			name:    "code decision needs python expertise",
			overall: 0.80,
			want:    []string{decision.DomainPythonDevelopment},
		},
		{
			name:    "security decision needs security expertise",
			overall: 0.80,
			mutate:  func(c *decision.Context) { c.DecisionType = "security_review" },
			want:    []string{decision.DomainSecurityCompliance},
		},
		{
			name:    "compliance requirements add security expertise",
			overall: 0.80,
			mutate: func(c *decision.Context) {
				c.DecisionType = "architecture_design"
				c.ComplianceRequirements = []string{"gdpr"}
			},
			want: []string{decision.DomainSystemArchitecture, decision.DomainSecurityCompliance},
		},
		{
			name:    "senior tier adds strategic planning",
			overall: 0.50,
			mutate:  func(c *decision.Context) { c.DecisionType = "business_requirements" },
			want:    []string{decision.DomainBusinessAnalysis, decision.DomainStrategicPlanning},
		},
		{
			name:    "unmatched type falls back to business analysis",
			overall: 0.80,
			mutate:  func(c *decision.Context) { c.DecisionType = "vendor_selection" },
			want:    []string{decision.DomainBusinessAnalysis},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := baseContext()
			if tt.mutate != nil {
				tt.mutate(&ctx)
			}
			got, err := cls.Classify(tt.overall, ctx)
			if err != nil {
				t.Fatalf("Classify() error: %v", err)
			}
			if len(got.RequiredExpertise) != len(tt.want) {
				t.Fatalf("RequiredExpertise = %v, want %v", got.RequiredExpertise, tt.want)
			}
			for i, w := range tt.want {
				if got.RequiredExpertise[i] != w {
					t.Errorf("RequiredExpertise[%d] = %s, want %s", i, got.RequiredExpertise[i], w)
				}
			}
		})
	}
}

func TestClassifyValidation(t *testing.T) {
	cls := NewClassifier(policy.Default().Escalation)

	tests := []struct {
		name    string
		overall float64
		mutate  func(*decision.Context)
	}{
		{"confidence above one", 1.1, nil},
		{"negative confidence", -0.2, nil},
		{"missing business impact", 0.8, func(c *decision.Context) { c.BusinessImpact = "" }},
		{"unknown complexity", 0.8, func(c *decision.Context) { c.Complexity = "labyrinthine" }},
		{"missing decision id", 0.8, func(c *decision.Context) { c.DecisionID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := baseContext()
			if tt.mutate != nil {
				tt.mutate(&ctx)
			}
			_, err := cls.Classify(tt.overall, ctx)
			var verr *decision.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Classify() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestRaise(t *testing.T) {
	if got := Raise(TierAgentOnly); got != TierJuniorSpecialist {
		t.Errorf("Raise(AGENT_ONLY) = %s", got)
	}
	if got := Raise(TierJuniorSpecialist); got != TierSeniorPartner {
		t.Errorf("Raise(JUNIOR_SPECIALIST) = %s", got)
	}
	if got := Raise(TierSeniorPartner); got != TierSeniorPartner {
		t.Errorf("Raise(SENIOR_PARTNER) = %s", got)
	}
}
