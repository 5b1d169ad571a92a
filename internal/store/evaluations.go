package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EvaluationRecord is the persisted form of one decision evaluation.
type EvaluationRecord struct {
	ID                 uuid.UUID
	DecisionID         string
	DecisionType       string
	Complexity         string
	BusinessImpact     string
	OverallConfidence  float64
	MeanConfidence     float64
	ConfidenceVariance float64
	VariancePenalized  bool
	Tier               string
	EscalationNeeded   bool
	Reasoning          string
	RequiredExpertise  []string
	PrimaryExpert      string
	MatchScore         float64
	RoutingConfidence  float64
	SupportingExperts  []string
	RoutingRationale   string
	CompositeScore     float64
	RiskLevel          string
	AdvisoryTier       string
	ActivePersona      string
	CreatedAt          time.Time
}

// WriteEvaluation persists an evaluation. The decision_id is unique; writing
// the same decision twice is a caller bug and surfaces as a constraint error.
func (s *Store) WriteEvaluation(ctx context.Context, rec EvaluationRecord) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO evaluations (
			id, decision_id, decision_type, complexity, business_impact,
			overall_confidence, mean_confidence, confidence_variance, variance_penalized,
			tier, escalation_needed, reasoning, required_expertise,
			primary_expert, match_score, routing_confidence, supporting_experts, routing_rationale,
			composite_score, risk_level, advisory_tier, active_persona, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, now())`,
		id, rec.DecisionID, rec.DecisionType, rec.Complexity, rec.BusinessImpact,
		rec.OverallConfidence, rec.MeanConfidence, rec.ConfidenceVariance, rec.VariancePenalized,
		rec.Tier, rec.EscalationNeeded, rec.Reasoning, rec.RequiredExpertise,
		rec.PrimaryExpert, rec.MatchScore, rec.RoutingConfidence, rec.SupportingExperts, rec.RoutingRationale,
		rec.CompositeScore, rec.RiskLevel, rec.AdvisoryTier, rec.ActivePersona,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert evaluation: %w", err)
	}
	return id, nil
}

// GetEvaluation fetches an evaluation by decision id.
func (s *Store) GetEvaluation(ctx context.Context, decisionID string) (*EvaluationRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, decision_id, decision_type, complexity, business_impact,
			overall_confidence, mean_confidence, confidence_variance, variance_penalized,
			tier, escalation_needed, reasoning, required_expertise,
			primary_expert, match_score, routing_confidence, supporting_experts, routing_rationale,
			composite_score, risk_level, advisory_tier, active_persona, created_at
		FROM evaluations
		WHERE decision_id = $1`, decisionID)

	var rec EvaluationRecord
	err := row.Scan(
		&rec.ID, &rec.DecisionID, &rec.DecisionType, &rec.Complexity, &rec.BusinessImpact,
		&rec.OverallConfidence, &rec.MeanConfidence, &rec.ConfidenceVariance, &rec.VariancePenalized,
		&rec.Tier, &rec.EscalationNeeded, &rec.Reasoning, &rec.RequiredExpertise,
		&rec.PrimaryExpert, &rec.MatchScore, &rec.RoutingConfidence, &rec.SupportingExperts, &rec.RoutingRationale,
		&rec.CompositeScore, &rec.RiskLevel, &rec.AdvisoryTier, &rec.ActivePersona, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateEvaluationTier rewrites the stored tier after a consensus escalation.
func (s *Store) UpdateEvaluationTier(ctx context.Context, decisionID, tier string, escalationNeeded bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE evaluations SET tier = $1, escalation_needed = $2
		WHERE decision_id = $3`,
		tier, escalationNeeded, decisionID,
	)
	if err != nil {
		return fmt.Errorf("update evaluation tier: %w", err)
	}
	return nil
}

// RecentEvaluations lists the newest evaluations, newest first.
func (s *Store) RecentEvaluations(ctx context.Context, limit int) ([]EvaluationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, decision_id, decision_type, complexity, business_impact,
			overall_confidence, mean_confidence, confidence_variance, variance_penalized,
			tier, escalation_needed, reasoning, required_expertise,
			primary_expert, match_score, routing_confidence, supporting_experts, routing_rationale,
			composite_score, risk_level, advisory_tier, active_persona, created_at
		FROM evaluations
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []EvaluationRecord
	for rows.Next() {
		var rec EvaluationRecord
		err := rows.Scan(
			&rec.ID, &rec.DecisionID, &rec.DecisionType, &rec.Complexity, &rec.BusinessImpact,
			&rec.OverallConfidence, &rec.MeanConfidence, &rec.ConfidenceVariance, &rec.VariancePenalized,
			&rec.Tier, &rec.EscalationNeeded, &rec.Reasoning, &rec.RequiredExpertise,
			&rec.PrimaryExpert, &rec.MatchScore, &rec.RoutingConfidence, &rec.SupportingExperts, &rec.RoutingRationale,
			&rec.CompositeScore, &rec.RiskLevel, &rec.AdvisoryTier, &rec.ActivePersona, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
