package pipeline

import (
	"github.com/MikeSquared-Agency/themis/internal/consensus"
	"github.com/MikeSquared-Agency/themis/internal/escalation"
)

// Stats is a point-in-time snapshot of pipeline activity.
type Stats struct {
	TotalEvaluations      int                `json:"total_evaluations"`
	TotalResolutions      int                `json:"total_resolutions"`
	PendingDecisions      int                `json:"pending_decisions"`
	EscalationRate        float64            `json:"escalation_rate"`
	TierDistribution      map[string]int     `json:"tier_distribution"`
	AvgConfidenceByTier   map[string]float64 `json:"avg_confidence_by_tier"`
	AgreementDistribution map[string]int     `json:"agreement_distribution"`
	OverridesApplied      int                `json:"overrides_applied"`
	PersonaUtilization    map[string]int     `json:"persona_utilization"`
}

// counters accumulates under the engine mutex.
type counters struct {
	evaluations     int
	escalations     int
	resolutions     int
	overrides       int
	tierCounts      map[escalation.Tier]int
	tierConfidence  map[escalation.Tier]float64
	agreementCounts map[consensus.Level]int
}

func newCounters() counters {
	return counters{
		tierCounts:      make(map[escalation.Tier]int),
		tierConfidence:  make(map[escalation.Tier]float64),
		agreementCounts: make(map[consensus.Level]int),
	}
}

func (c *counters) recordEvaluation(esc escalation.Result) {
	c.evaluations++
	c.tierCounts[esc.Tier]++
	c.tierConfidence[esc.Tier] += esc.OverallConfidence
	if esc.EscalationNeeded {
		c.escalations++
	}
}

func (c *counters) recordResolution(res consensus.Result) {
	c.resolutions++
	c.agreementCounts[res.Agreement]++
	if res.OverrideApplied {
		c.overrides++
	}
}

// Stats snapshots the pipeline counters and persona utilization.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		TotalEvaluations:      e.stats.evaluations,
		TotalResolutions:      e.stats.resolutions,
		PendingDecisions:      len(e.pending),
		TierDistribution:      make(map[string]int, len(e.stats.tierCounts)),
		AvgConfidenceByTier:   make(map[string]float64, len(e.stats.tierCounts)),
		AgreementDistribution: make(map[string]int, len(e.stats.agreementCounts)),
		OverridesApplied:      e.stats.overrides,
		PersonaUtilization:    make(map[string]int),
	}
	if e.stats.evaluations > 0 {
		s.EscalationRate = float64(e.stats.escalations) / float64(e.stats.evaluations)
	}
	for tier, n := range e.stats.tierCounts {
		s.TierDistribution[string(tier)] = n
		s.AvgConfidenceByTier[string(tier)] = e.stats.tierConfidence[tier] / float64(n)
	}
	for level, n := range e.stats.agreementCounts {
		s.AgreementDistribution[string(level)] = n
	}
	for id, n := range e.personas.Counters() {
		s.PersonaUtilization[string(id)] = n
	}
	return s
}
