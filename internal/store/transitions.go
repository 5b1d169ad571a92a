package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransitionRecord is one persona switch as persisted. FromPersona is empty
// for the first switch of a session.
type TransitionRecord struct {
	ID          uuid.UUID
	FromPersona string
	ToPersona   string
	Trigger     string
	Rationale   string
	Confidence  float64
	SwitchedAt  time.Time
}

func (s *Store) WriteTransition(ctx context.Context, rec TransitionRecord) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO persona_transitions (id, from_persona, to_persona, trigger_type, rationale, confidence, switched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, rec.FromPersona, rec.ToPersona, rec.Trigger, rec.Rationale, rec.Confidence, rec.SwitchedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert transition: %w", err)
	}
	return id, nil
}

// RecentTransitions lists the newest persona switches, newest first.
func (s *Store) RecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, from_persona, to_persona, trigger_type, rationale, confidence, switched_at
		FROM persona_transitions
		ORDER BY switched_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		if err := rows.Scan(&rec.ID, &rec.FromPersona, &rec.ToPersona, &rec.Trigger, &rec.Rationale, &rec.Confidence, &rec.SwitchedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
