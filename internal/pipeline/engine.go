// Package pipeline orchestrates the decision flow: aggregate recommendation
// confidence, classify the escalation tier, route to an expert persona,
// collect expert contributions and resolve consensus.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/themis/internal/confidence"
	"github.com/MikeSquared-Agency/themis/internal/consensus"
	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/escalation"
	"github.com/MikeSquared-Agency/themis/internal/hermes"
	"github.com/MikeSquared-Agency/themis/internal/persona"
	"github.com/MikeSquared-Agency/themis/internal/policy"
	"github.com/MikeSquared-Agency/themis/internal/routing"
	"github.com/MikeSquared-Agency/themis/internal/store"
)

// NotFoundError reports a decision id with no pending evaluation.
type NotFoundError struct {
	DecisionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no pending evaluation for decision %s", e.DecisionID)
}

// Evaluation is the complete outcome of evaluating one decision.
type Evaluation struct {
	DecisionID    string                `json:"decision_id"`
	Context       decision.Context      `json:"context"`
	Confidence    confidence.Result     `json:"confidence"`
	Escalation    escalation.Result     `json:"escalation"`
	Assessment    escalation.Assessment `json:"assessment"`
	Routing       routing.Result        `json:"routing"`
	ActivePersona persona.ID            `json:"active_persona"`
	EvaluatedAt   time.Time             `json:"evaluated_at"`
}

// Resolution is the consensus outcome for a decision. EscalatedTier is set
// only when the contributions could not be resolved and the decision moved
// up one tier.
type Resolution struct {
	DecisionID    string           `json:"decision_id"`
	Consensus     consensus.Result `json:"consensus"`
	EscalatedTier escalation.Tier  `json:"escalated_tier,omitempty"`
	ResolvedAt    time.Time        `json:"resolved_at"`
}

// pendingDecision tracks an evaluated decision awaiting expert contributions.
type pendingDecision struct {
	eval     *Evaluation
	contribs []consensus.Contribution
}

// Engine runs the decision pipeline. Store and bus may be nil; evaluation
// then proceeds without persistence or events.
type Engine struct {
	aggregator *confidence.Aggregator
	classifier *escalation.Classifier
	router     *routing.Router
	consensus  *consensus.Engine
	personas   *persona.StateManager
	store      *store.Store
	hermes     *hermes.Client
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingDecision
	stats   counters
}

func New(pol policy.Policy, catalog *persona.Catalog, personas *persona.StateManager, db *store.Store, bus *hermes.Client, logger *slog.Logger) *Engine {
	return &Engine{
		aggregator: confidence.NewAggregator(pol.Confidence),
		classifier: escalation.NewClassifier(pol.Escalation),
		router:     routing.NewRouter(catalog, pol.Routing),
		consensus:  consensus.NewEngine(catalog, pol.Consensus),
		personas:   personas,
		store:      db,
		hermes:     bus,
		logger:     logger,
		pending:    make(map[string]*pendingDecision),
		stats:      newCounters(),
	}
}

// Evaluate runs the full evaluation for one decision: confidence aggregation,
// tier classification, advisory assessment, expert routing and the persona
// switch. A missing decision id is assigned; everything else must validate.
func (e *Engine) Evaluate(ctx context.Context, recs []decision.Recommendation, dctx decision.Context) (*Evaluation, error) {
	if dctx.DecisionID == "" {
		dctx.DecisionID = uuid.New().String()
	}
	if err := dctx.Validate(); err != nil {
		return nil, err
	}

	agg, err := e.aggregator.Aggregate(recs)
	if err != nil {
		return nil, err
	}

	esc, err := e.classifier.Classify(agg.Overall, dctx)
	if err != nil {
		return nil, err
	}

	assessment := escalation.Assess(dctx, agg, escalation.AgreementQuality(agg.Variance))

	route, err := e.router.Route(dctx)
	if err != nil {
		return nil, err
	}

	sw, err := e.switchPersona(route, esc, dctx)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{
		DecisionID:    dctx.DecisionID,
		Context:       dctx,
		Confidence:    agg,
		Escalation:    esc,
		Assessment:    assessment,
		Routing:       route,
		ActivePersona: sw.To,
		EvaluatedAt:   time.Now().UTC(),
	}

	if e.store != nil {
		if _, err := e.store.WriteEvaluation(ctx, evaluationRecord(eval)); err != nil {
			return nil, fmt.Errorf("persist evaluation: %w", err)
		}
		if _, err := e.store.WriteTransition(ctx, transitionRecord(sw)); err != nil {
			e.logger.Error("failed to persist transition", "decision_id", dctx.DecisionID, "error", err)
		}
	}

	if e.hermes != nil {
		evt := hermes.DecisionEvaluated{
			DecisionID:        eval.DecisionID,
			DecisionType:      dctx.DecisionType,
			Tier:              string(esc.Tier),
			EscalationNeeded:  esc.EscalationNeeded,
			OverallConfidence: esc.OverallConfidence,
			PrimaryExpert:     string(route.PrimaryExpert),
			ActivePersona:     string(sw.To),
			RequiredExpertise: esc.RequiredExpertise,
		}
		if err := e.hermes.Publish(hermes.SubjectDecisionEvaluated, evt); err != nil {
			e.logger.Warn("failed to publish evaluation", "decision_id", eval.DecisionID, "error", err)
		}
	}

	e.mu.Lock()
	e.pending[eval.DecisionID] = &pendingDecision{eval: eval}
	e.stats.recordEvaluation(esc)
	e.mu.Unlock()

	e.logger.Info("decision evaluated",
		"decision_id", eval.DecisionID,
		"tier", string(esc.Tier),
		"escalation_needed", esc.EscalationNeeded,
		"overall_confidence", esc.OverallConfidence,
		"primary_expert", string(route.PrimaryExpert),
	)

	return eval, nil
}

// switchPersona moves the active persona to the routed primary expert. An
// escalated decision records the escalation trigger; otherwise the move is
// attributed to the decision type.
func (e *Engine) switchPersona(route routing.Result, esc escalation.Result, dctx decision.Context) (persona.SwitchContext, error) {
	trigger := persona.TriggerDecisionTypeChange
	rationale := fmt.Sprintf("decision type %s routed to %s", dctx.DecisionType, route.PrimaryExpert)
	if esc.EscalationNeeded {
		trigger = persona.TriggerEscalation
		rationale = fmt.Sprintf("decision %s escalated to %s", dctx.DecisionID, esc.Tier)
	}
	return e.personas.Switch(route.PrimaryExpert, trigger, rationale, route.RoutingConfidence)
}

// Resolve builds consensus for a pending decision from its accumulated and
// supplied contributions. An unresolved outcome raises the stored tier one
// level and reports it as EscalatedTier.
func (e *Engine) Resolve(ctx context.Context, decisionID string, contribs []consensus.Contribution) (*Resolution, error) {
	e.mu.Lock()
	pd, ok := e.pending[decisionID]
	if !ok {
		e.mu.Unlock()
		return nil, &NotFoundError{DecisionID: decisionID}
	}
	merged := mergeContributions(pd.contribs, contribs)
	eval := pd.eval
	e.mu.Unlock()

	res, err := e.consensus.Build(merged, eval.Context.DominantDomain())
	if err != nil {
		return nil, err
	}

	resolution := &Resolution{
		DecisionID: decisionID,
		Consensus:  res,
		ResolvedAt: time.Now().UTC(),
	}

	if res.Agreement == consensus.LevelUnresolved {
		resolution.EscalatedTier = escalation.Raise(eval.Escalation.Tier)
		if e.store != nil {
			needed := resolution.EscalatedTier != escalation.TierAgentOnly
			if err := e.store.UpdateEvaluationTier(ctx, decisionID, string(resolution.EscalatedTier), needed); err != nil {
				e.logger.Error("failed to update tier", "decision_id", decisionID, "error", err)
			}
		}
	}

	if e.store != nil {
		for _, c := range merged {
			if _, err := e.store.WriteContribution(ctx, contributionRecord(decisionID, c)); err != nil {
				e.logger.Error("failed to persist contribution", "decision_id", decisionID, "error", err)
			}
		}
		if _, err := e.store.WriteResolution(ctx, resolutionRecord(resolution)); err != nil {
			return nil, fmt.Errorf("persist resolution: %w", err)
		}
	}

	if e.hermes != nil {
		evt := hermes.ConsensusResolved{
			DecisionID:          decisionID,
			FinalRecommendation: res.FinalRecommendation,
			Confidence:          res.Confidence,
			Agreement:           string(res.Agreement),
			OverrideApplied:     res.OverrideApplied,
			ContributingExperts: personaStrings(res.ContributingExperts),
			EscalatedTier:       string(resolution.EscalatedTier),
		}
		if err := e.hermes.Publish(hermes.SubjectConsensusResolved, evt); err != nil {
			e.logger.Warn("failed to publish resolution", "decision_id", decisionID, "error", err)
		}
	}

	e.mu.Lock()
	delete(e.pending, decisionID)
	e.stats.recordResolution(res)
	e.mu.Unlock()

	e.logger.Info("consensus resolved",
		"decision_id", decisionID,
		"agreement", string(res.Agreement),
		"override_applied", res.OverrideApplied,
		"escalated_tier", string(resolution.EscalatedTier),
	)

	return resolution, nil
}

// SubmitContribution queues one expert contribution for a pending decision.
// The latest contribution from a persona replaces its earlier one.
func (e *Engine) SubmitContribution(decisionID string, c consensus.Contribution) error {
	if decisionID == "" {
		return &decision.ValidationError{Field: "decision_id", Reason: "required"}
	}
	if c.Persona == "" {
		return &decision.ValidationError{Field: "persona", Reason: "required"}
	}
	if strings.TrimSpace(c.Recommendation) == "" {
		return &decision.ValidationError{Field: "recommendation", Reason: "required"}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return &decision.ValidationError{Field: "confidence", Reason: fmt.Sprintf("%g outside [0, 1]", c.Confidence)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	pd, ok := e.pending[decisionID]
	if !ok {
		return &NotFoundError{DecisionID: decisionID}
	}
	pd.contribs = mergeContributions(pd.contribs, []consensus.Contribution{c})
	return nil
}

// HandleContribution is the NATS handler for contribution events. Malformed
// events and unknown decisions are logged and dropped; the bus is not a
// validation surface.
func (e *Engine) HandleContribution(subject string, data []byte) {
	var evt hermes.ContributionSubmitted
	if err := json.Unmarshal(data, &evt); err != nil {
		e.logger.Error("failed to parse contribution event", "subject", subject, "error", err)
		return
	}

	err := e.SubmitContribution(evt.DecisionID, consensus.Contribution{
		Persona:        persona.ID(evt.Persona),
		Recommendation: evt.Recommendation,
		Confidence:     evt.Confidence,
	})
	if err != nil {
		e.logger.Warn("dropping contribution",
			"decision_id", evt.DecisionID,
			"persona", evt.Persona,
			"error", err,
		)
		return
	}

	e.logger.Info("contribution received",
		"decision_id", evt.DecisionID,
		"persona", evt.Persona,
		"confidence", evt.Confidence,
	)
}

// PendingEvaluation returns the evaluation for a decision still awaiting
// resolution.
func (e *Engine) PendingEvaluation(decisionID string) (*Evaluation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pd, ok := e.pending[decisionID]
	if !ok {
		return nil, false
	}
	return pd.eval, true
}

// mergeContributions overlays later contributions onto earlier ones, keeping
// one contribution per persona with the newest winning. Order of first
// appearance is preserved.
func mergeContributions(base, extra []consensus.Contribution) []consensus.Contribution {
	out := make([]consensus.Contribution, 0, len(base)+len(extra))
	index := make(map[persona.ID]int)
	for _, c := range append(append([]consensus.Contribution{}, base...), extra...) {
		if i, ok := index[c.Persona]; ok {
			out[i] = c
			continue
		}
		index[c.Persona] = len(out)
		out = append(out, c)
	}
	return out
}

func personaStrings(ids []persona.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func evaluationRecord(eval *Evaluation) store.EvaluationRecord {
	return store.EvaluationRecord{
		DecisionID:         eval.DecisionID,
		DecisionType:       eval.Context.DecisionType,
		Complexity:         string(eval.Context.Complexity),
		BusinessImpact:     string(eval.Context.BusinessImpact),
		OverallConfidence:  eval.Confidence.Overall,
		MeanConfidence:     eval.Confidence.Mean,
		ConfidenceVariance: eval.Confidence.Variance,
		VariancePenalized:  eval.Confidence.Penalized,
		Tier:               string(eval.Escalation.Tier),
		EscalationNeeded:   eval.Escalation.EscalationNeeded,
		Reasoning:          eval.Escalation.Reasoning,
		RequiredExpertise:  eval.Escalation.RequiredExpertise,
		PrimaryExpert:      string(eval.Routing.PrimaryExpert),
		MatchScore:         eval.Routing.MatchScore,
		RoutingConfidence:  eval.Routing.RoutingConfidence,
		SupportingExperts:  supportStrings(eval.Routing.SupportingExperts),
		RoutingRationale:   eval.Routing.Rationale,
		CompositeScore:     eval.Assessment.CompositeScore,
		RiskLevel:          string(eval.Assessment.RiskLevel),
		AdvisoryTier:       string(eval.Assessment.AdvisoryTier),
		ActivePersona:      string(eval.ActivePersona),
	}
}

func supportStrings(supports []routing.Support) []string {
	out := make([]string, len(supports))
	for i, s := range supports {
		out[i] = string(s.Persona)
	}
	return out
}

func transitionRecord(sw persona.SwitchContext) store.TransitionRecord {
	return store.TransitionRecord{
		FromPersona: string(sw.From),
		ToPersona:   string(sw.To),
		Trigger:     string(sw.Trigger),
		Rationale:   sw.Rationale,
		Confidence:  sw.Confidence,
		SwitchedAt:  sw.SwitchedAt,
	}
}

func contributionRecord(decisionID string, c consensus.Contribution) store.ContributionRecord {
	return store.ContributionRecord{
		DecisionID:     decisionID,
		Persona:        string(c.Persona),
		Recommendation: c.Recommendation,
		Confidence:     c.Confidence,
	}
}

func resolutionRecord(r *Resolution) store.ResolutionRecord {
	return store.ResolutionRecord{
		DecisionID:          r.DecisionID,
		FinalRecommendation: r.Consensus.FinalRecommendation,
		Confidence:          r.Consensus.Confidence,
		Agreement:           string(r.Consensus.Agreement),
		OverrideApplied:     r.Consensus.OverrideApplied,
		ContributingExperts: personaStrings(r.Consensus.ContributingExperts),
		EscalatedTier:       string(r.EscalatedTier),
	}
}
