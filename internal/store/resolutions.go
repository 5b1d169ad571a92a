package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContributionRecord is one expert contribution as persisted.
type ContributionRecord struct {
	ID             uuid.UUID
	DecisionID     string
	Persona        string
	Recommendation string
	Confidence     float64
	CreatedAt      time.Time
}

func (s *Store) WriteContribution(ctx context.Context, rec ContributionRecord) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contributions (id, decision_id, persona, recommendation, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		id, rec.DecisionID, rec.Persona, rec.Recommendation, rec.Confidence,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert contribution: %w", err)
	}
	return id, nil
}

// ContributionsForDecision lists contributions for one decision in arrival order.
func (s *Store) ContributionsForDecision(ctx context.Context, decisionID string) ([]ContributionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, decision_id, persona, recommendation, confidence, created_at
		FROM contributions
		WHERE decision_id = $1
		ORDER BY created_at ASC`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("query contributions: %w", err)
	}
	defer rows.Close()

	var out []ContributionRecord
	for rows.Next() {
		var rec ContributionRecord
		if err := rows.Scan(&rec.ID, &rec.DecisionID, &rec.Persona, &rec.Recommendation, &rec.Confidence, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ResolutionRecord is a persisted consensus outcome for one decision.
type ResolutionRecord struct {
	ID                  uuid.UUID
	DecisionID          string
	FinalRecommendation string
	Confidence          float64
	Agreement           string
	OverrideApplied     bool
	ContributingExperts []string
	EscalatedTier       string
	CreatedAt           time.Time
}

func (s *Store) WriteResolution(ctx context.Context, rec ResolutionRecord) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO resolutions (id, decision_id, final_recommendation, confidence, agreement, override_applied, contributing_experts, escalated_tier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		id, rec.DecisionID, rec.FinalRecommendation, rec.Confidence, rec.Agreement, rec.OverrideApplied, rec.ContributingExperts, rec.EscalatedTier,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert resolution: %w", err)
	}
	return id, nil
}
