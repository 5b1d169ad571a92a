package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/themis/internal/consensus"
	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/escalation"
	"github.com/MikeSquared-Agency/themis/internal/hermes"
	"github.com/MikeSquared-Agency/themis/internal/persona"
	"github.com/MikeSquared-Agency/themis/internal/policy"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	catalog := persona.NewCatalog()
	personas := persona.NewStateManager(catalog, 256)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(policy.Default(), catalog, personas, nil, nil, logger)
}

func recs(confidences ...float64) []decision.Recommendation {
	out := make([]decision.Recommendation, len(confidences))
	for i, c := range confidences {
		out[i] = decision.Recommendation{SourceID: "agent", Text: "do the thing", Confidence: c}
	}
	return out
}

func codeContext(id string) decision.Context {
	return decision.Context{
		DecisionID:     id,
		DecisionType:   "code_implementation",
		Complexity:     decision.ComplexityLow,
		BusinessImpact: decision.ImpactLow,
	}
}

func TestEvaluateAgentOnly(t *testing.T) {
	e := newTestEngine(t)

	eval, err := e.Evaluate(context.Background(), recs(0.95, 0.92, 0.94), codeContext("dec-1"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if eval.Escalation.Tier != escalation.TierAgentOnly {
		t.Errorf("Tier = %s, want %s", eval.Escalation.Tier, escalation.TierAgentOnly)
	}
	if eval.Escalation.EscalationNeeded {
		t.Error("EscalationNeeded = true, want false")
	}
	if math.Abs(eval.Confidence.Overall-0.9366) > 0.001 {
		t.Errorf("Overall = %g, want 0.9366", eval.Confidence.Overall)
	}
	if eval.Routing.PrimaryExpert != persona.PythonGuru {
		t.Errorf("PrimaryExpert = %s, want %s", eval.Routing.PrimaryExpert, persona.PythonGuru)
	}
	if eval.ActivePersona != persona.PythonGuru {
		t.Errorf("ActivePersona = %s, want %s", eval.ActivePersona, persona.PythonGuru)
	}
	if eval.EvaluatedAt.IsZero() {
		t.Error("EvaluatedAt not set")
	}
}

func TestEvaluateJuniorEscalation(t *testing.T) {
	e := newTestEngine(t)
	ctx := codeContext("dec-2")
	ctx.Complexity = decision.ComplexityMedium
	ctx.BusinessImpact = decision.ImpactMedium

	eval, err := e.Evaluate(context.Background(), recs(0.80, 0.75, 0.78), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if eval.Escalation.Tier != escalation.TierJuniorSpecialist {
		t.Errorf("Tier = %s, want %s", eval.Escalation.Tier, escalation.TierJuniorSpecialist)
	}
	if !eval.Escalation.EscalationNeeded {
		t.Error("EscalationNeeded = false, want true")
	}
	if math.Abs(eval.Confidence.Overall-0.7766) > 0.001 {
		t.Errorf("Overall = %g, want 0.7766", eval.Confidence.Overall)
	}
}

func TestEvaluateSeniorWithExpertise(t *testing.T) {
	e := newTestEngine(t)
	ctx := decision.Context{
		DecisionID:             "dec-3",
		DecisionType:           "security_review",
		Complexity:             decision.ComplexityHigh,
		BusinessImpact:         decision.ImpactHigh,
		DomainRequirements:     []string{decision.DomainSecurityCompliance},
		RiskFactors:            []string{"high_regulatory_impact"},
		ComplianceRequirements: []string{"gdpr"},
	}

	eval, err := e.Evaluate(context.Background(), recs(0.60, 0.55, 0.50), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if eval.Escalation.Tier != escalation.TierSeniorPartner {
		t.Errorf("Tier = %s, want %s", eval.Escalation.Tier, escalation.TierSeniorPartner)
	}
	if eval.Routing.PrimaryExpert != persona.SecuritySpecialist {
		t.Errorf("PrimaryExpert = %s, want %s", eval.Routing.PrimaryExpert, persona.SecuritySpecialist)
	}
	if len(eval.Routing.SupportingExperts) == 0 {
		t.Error("expected supporting experts at high complexity")
	}
	want := []string{decision.DomainSecurityCompliance, decision.DomainStrategicPlanning}
	if len(eval.Escalation.RequiredExpertise) != len(want) {
		t.Fatalf("RequiredExpertise = %v, want %v", eval.Escalation.RequiredExpertise, want)
	}
	for i, d := range want {
		if eval.Escalation.RequiredExpertise[i] != d {
			t.Errorf("RequiredExpertise[%d] = %s, want %s", i, eval.Escalation.RequiredExpertise[i], d)
		}
	}
}

func TestEvaluateAssignsDecisionID(t *testing.T) {
	e := newTestEngine(t)
	ctx := codeContext("")

	eval, err := e.Evaluate(context.Background(), recs(0.9), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if eval.DecisionID == "" {
		t.Fatal("DecisionID not assigned")
	}
	if _, err := uuid.Parse(eval.DecisionID); err != nil {
		t.Errorf("DecisionID %q is not a UUID: %v", eval.DecisionID, err)
	}
	if eval.Context.DecisionID != eval.DecisionID {
		t.Errorf("Context.DecisionID = %s, want %s", eval.Context.DecisionID, eval.DecisionID)
	}
}

func TestEvaluateValidation(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Evaluate(context.Background(), nil, codeContext("dec-v"))
	var verr *decision.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Evaluate() with no recommendations = %v, want ValidationError", err)
	}

	bad := codeContext("dec-v2")
	bad.Complexity = "extreme"
	_, err = e.Evaluate(context.Background(), recs(0.9), bad)
	if !errors.As(err, &verr) {
		t.Fatalf("Evaluate() with bad context = %v, want ValidationError", err)
	}
}

func TestResolveUnanimous(t *testing.T) {
	e := newTestEngine(t)
	ctx := codeContext("dec-res")
	ctx.DomainRequirements = []string{decision.DomainPythonDevelopment}

	if _, err := e.Evaluate(context.Background(), recs(0.8, 0.82), ctx); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	for _, c := range []consensus.Contribution{
		{Persona: persona.PythonGuru, Recommendation: "Refactor the loop.", Confidence: 0.9},
		{Persona: persona.SystemArchitectExpert, Recommendation: "refactor the loop", Confidence: 0.8},
	} {
		if err := e.SubmitContribution("dec-res", c); err != nil {
			t.Fatalf("SubmitContribution() error: %v", err)
		}
	}

	res, err := e.Resolve(context.Background(), "dec-res", nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Consensus.Agreement != consensus.LevelUnanimous {
		t.Errorf("Agreement = %s, want %s", res.Consensus.Agreement, consensus.LevelUnanimous)
	}
	if res.Consensus.FinalRecommendation != "Refactor the loop." {
		t.Errorf("FinalRecommendation = %q", res.Consensus.FinalRecommendation)
	}
	if res.EscalatedTier != "" {
		t.Errorf("EscalatedTier = %s, want empty", res.EscalatedTier)
	}

	// The decision is settled; a second resolve has nothing to work on.
	_, err = e.Resolve(context.Background(), "dec-res", nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("second Resolve() = %v, want NotFoundError", err)
	}
}

func TestResolveLatestContributionWins(t *testing.T) {
	e := newTestEngine(t)
	ctx := codeContext("dec-rev")
	ctx.DomainRequirements = []string{decision.DomainPythonDevelopment}

	if _, err := e.Evaluate(context.Background(), recs(0.8), ctx); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if err := e.SubmitContribution("dec-rev", consensus.Contribution{
		Persona: persona.PythonGuru, Recommendation: "First draft.", Confidence: 0.6,
	}); err != nil {
		t.Fatalf("SubmitContribution() error: %v", err)
	}

	res, err := e.Resolve(context.Background(), "dec-rev", []consensus.Contribution{
		{Persona: persona.PythonGuru, Recommendation: "Revised answer.", Confidence: 0.9},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Consensus.FinalRecommendation != "Revised answer." {
		t.Errorf("FinalRecommendation = %q, want the revision", res.Consensus.FinalRecommendation)
	}
	if res.Consensus.Agreement != consensus.LevelUnanimous {
		t.Errorf("Agreement = %s, want %s after revision collapse", res.Consensus.Agreement, consensus.LevelUnanimous)
	}
}

func TestResolveUnresolvedRaisesTier(t *testing.T) {
	e := newTestEngine(t)
	ctx := codeContext("dec-unres")
	ctx.Complexity = decision.ComplexityMedium
	ctx.BusinessImpact = decision.ImpactMedium
	// No domain requirements: a split cannot defer to a domain authority.

	eval, err := e.Evaluate(context.Background(), recs(0.80, 0.75, 0.78), ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if eval.Escalation.Tier != escalation.TierJuniorSpecialist {
		t.Fatalf("Tier = %s, want %s", eval.Escalation.Tier, escalation.TierJuniorSpecialist)
	}

	res, err := e.Resolve(context.Background(), "dec-unres", []consensus.Contribution{
		{Persona: persona.PythonGuru, Recommendation: "Option A.", Confidence: 0.8},
		{Persona: persona.SystemArchitectExpert, Recommendation: "Option B.", Confidence: 0.8},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Consensus.Agreement != consensus.LevelUnresolved {
		t.Fatalf("Agreement = %s, want %s", res.Consensus.Agreement, consensus.LevelUnresolved)
	}
	if res.EscalatedTier != escalation.TierSeniorPartner {
		t.Errorf("EscalatedTier = %s, want %s", res.EscalatedTier, escalation.TierSeniorPartner)
	}
}

func TestResolveUnknownDecision(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Resolve(context.Background(), "dec-missing", nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Resolve() = %v, want NotFoundError", err)
	}
	if nf.DecisionID != "dec-missing" {
		t.Errorf("NotFoundError.DecisionID = %s", nf.DecisionID)
	}
}

func TestHandleContribution(t *testing.T) {
	e := newTestEngine(t)
	ctx := codeContext("dec-nats")
	ctx.DomainRequirements = []string{decision.DomainPythonDevelopment}

	if _, err := e.Evaluate(context.Background(), recs(0.8), ctx); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	evt := hermes.ContributionSubmitted{
		DecisionID:     "dec-nats",
		Persona:        string(persona.PythonGuru),
		Recommendation: "Ship it.",
		Confidence:     0.9,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	e.HandleContribution(hermes.SubjectContributionSubmitted, data)

	res, err := e.Resolve(context.Background(), "dec-nats", nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Consensus.FinalRecommendation != "Ship it." {
		t.Errorf("FinalRecommendation = %q, want bus contribution", res.Consensus.FinalRecommendation)
	}
}

func TestHandleContributionDropsBadInput(t *testing.T) {
	e := newTestEngine(t)

	// Malformed JSON and unknown decisions are dropped without panicking.
	e.HandleContribution(hermes.SubjectContributionSubmitted, []byte("{not json"))
	e.HandleContribution(hermes.SubjectContributionSubmitted, []byte(`{"decision_id":"ghost","persona":"python_guru","recommendation":"x","confidence":0.5}`))

	if got := e.Stats().PendingDecisions; got != 0 {
		t.Errorf("PendingDecisions = %d, want 0", got)
	}
}

func TestSubmitContributionValidation(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Evaluate(context.Background(), recs(0.8), codeContext("dec-val")); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	tests := []struct {
		name string
		id   string
		c    consensus.Contribution
	}{
		{"missing decision id", "", consensus.Contribution{Persona: persona.PythonGuru, Recommendation: "x", Confidence: 0.5}},
		{"missing persona", "dec-val", consensus.Contribution{Recommendation: "x", Confidence: 0.5}},
		{"blank recommendation", "dec-val", consensus.Contribution{Persona: persona.PythonGuru, Recommendation: " ", Confidence: 0.5}},
		{"confidence out of range", "dec-val", consensus.Contribution{Persona: persona.PythonGuru, Recommendation: "x", Confidence: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.SubmitContribution(tt.id, tt.c)
			var verr *decision.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("SubmitContribution() = %v, want ValidationError", err)
			}
		})
	}
}

func TestStats(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Evaluate(context.Background(), recs(0.95, 0.92, 0.94), codeContext("dec-s1")); err != nil {
		t.Fatal(err)
	}
	ctx := codeContext("dec-s2")
	ctx.Complexity = decision.ComplexityMedium
	ctx.BusinessImpact = decision.ImpactMedium
	if _, err := e.Evaluate(context.Background(), recs(0.80, 0.75, 0.78), ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.SubmitContribution("dec-s2", consensus.Contribution{
		Persona: persona.PythonGuru, Recommendation: "Go ahead.", Confidence: 0.8,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Resolve(context.Background(), "dec-s2", nil); err != nil {
		t.Fatal(err)
	}

	s := e.Stats()
	if s.TotalEvaluations != 2 {
		t.Errorf("TotalEvaluations = %d, want 2", s.TotalEvaluations)
	}
	if s.TotalResolutions != 1 {
		t.Errorf("TotalResolutions = %d, want 1", s.TotalResolutions)
	}
	if s.PendingDecisions != 1 {
		t.Errorf("PendingDecisions = %d, want 1", s.PendingDecisions)
	}
	if math.Abs(s.EscalationRate-0.5) > 0.001 {
		t.Errorf("EscalationRate = %g, want 0.5", s.EscalationRate)
	}
	if s.TierDistribution[string(escalation.TierAgentOnly)] != 1 {
		t.Errorf("TierDistribution = %v", s.TierDistribution)
	}
	if s.TierDistribution[string(escalation.TierJuniorSpecialist)] != 1 {
		t.Errorf("TierDistribution = %v", s.TierDistribution)
	}
	if got := s.AvgConfidenceByTier[string(escalation.TierAgentOnly)]; math.Abs(got-0.9366) > 0.001 {
		t.Errorf("AvgConfidenceByTier[AGENT_ONLY] = %g, want 0.9366", got)
	}
	if s.AgreementDistribution[string(consensus.LevelUnanimous)] != 1 {
		t.Errorf("AgreementDistribution = %v", s.AgreementDistribution)
	}
	if s.PersonaUtilization[string(persona.PythonGuru)] == 0 {
		t.Errorf("PersonaUtilization = %v, want python_guru used", s.PersonaUtilization)
	}
}

func TestPendingEvaluation(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Evaluate(context.Background(), recs(0.9), codeContext("dec-p")); err != nil {
		t.Fatal(err)
	}

	eval, ok := e.PendingEvaluation("dec-p")
	if !ok {
		t.Fatal("PendingEvaluation() not found")
	}
	if eval.DecisionID != "dec-p" {
		t.Errorf("DecisionID = %s", eval.DecisionID)
	}
	if _, ok := e.PendingEvaluation("dec-ghost"); ok {
		t.Error("PendingEvaluation() found a ghost decision")
	}
}
