// Package consensus resolves multiple expert contributions on one decision
// into a single recommendation, with the agreement level made explicit.
package consensus

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/persona"
	"github.com/MikeSquared-Agency/themis/internal/policy"
)

// Level classifies how strongly the contributing experts agreed.
type Level string

const (
	LevelUnanimous  Level = "unanimous"
	LevelMajority   Level = "majority"
	LevelSplit      Level = "split"
	LevelUnresolved Level = "unresolved"
)

// Contribution is one expert's recommendation for a decision.
type Contribution struct {
	Persona        persona.ID `json:"persona"`
	Recommendation string     `json:"recommendation"`
	Confidence     float64    `json:"confidence"`
}

// Result is the consensus outcome. An unresolved result carries no
// recommendation; the caller escalates instead.
type Result struct {
	FinalRecommendation string       `json:"final_recommendation,omitempty"`
	Confidence          float64      `json:"confidence"`
	Agreement           Level        `json:"agreement"`
	ContributingExperts []persona.ID `json:"contributing_experts"`
	OverrideApplied     bool         `json:"override_applied"`
}

// Engine builds consensus results from expert contributions.
type Engine struct {
	catalog *persona.Catalog
	cfg     policy.Consensus
}

func NewEngine(catalog *persona.Catalog, cfg policy.Consensus) *Engine {
	return &Engine{catalog: catalog, cfg: cfg}
}

// group is a set of contributions sharing one normalized recommendation.
type group struct {
	text    string
	members []Contribution
}

// Build resolves contributions into a consensus result. Identical
// recommendations (after normalization) form groups; one group taking a
// strict majority wins at its members' lowest confidence. Without a
// majority the contributor holding the highest confidence threshold for
// dominantDomain overrides. A threshold tie across differing
// recommendations, or a split with no dominant domain, is unresolved.
func (e *Engine) Build(contribs []Contribution, dominantDomain string) (Result, error) {
	if len(contribs) == 0 {
		return Result{}, &decision.ValidationError{Field: "contributions", Reason: "at least one required"}
	}
	for i, c := range contribs {
		if c.Persona == "" {
			return Result{}, &decision.ValidationError{Field: "persona", Reason: fmt.Sprintf("contribution %d: required", i)}
		}
		if strings.TrimSpace(c.Recommendation) == "" {
			return Result{}, &decision.ValidationError{Field: "recommendation", Reason: fmt.Sprintf("contribution %d: required", i)}
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return Result{}, &decision.ValidationError{Field: "confidence", Reason: fmt.Sprintf("contribution %d: %g outside [0, 1]", i, c.Confidence)}
		}
	}

	groups := groupByRecommendation(contribs)

	if len(groups) == 1 {
		g := groups[0]
		return Result{
			FinalRecommendation: g.members[0].Recommendation,
			Confidence:          minConfidence(g.members),
			Agreement:           LevelUnanimous,
			ContributingExperts: personas(g.members),
		}, nil
	}

	if g, ok := strictMajority(groups, len(contribs)); ok {
		return Result{
			FinalRecommendation: g.members[0].Recommendation,
			Confidence:          minConfidence(g.members),
			Agreement:           LevelMajority,
			ContributingExperts: personas(g.members),
		}, nil
	}

	if dominantDomain == "" {
		return e.unresolved(contribs), nil
	}

	winner, ok := e.thresholdOverride(groups, dominantDomain)
	if !ok {
		return e.unresolved(contribs), nil
	}
	return Result{
		FinalRecommendation: winner.lead.Recommendation,
		Confidence:          winner.lead.Confidence,
		Agreement:           LevelSplit,
		ContributingExperts: personas(winner.grp.members),
		OverrideApplied:     true,
	}, nil
}

func (e *Engine) unresolved(contribs []Contribution) Result {
	return Result{
		Agreement:           LevelUnresolved,
		ContributingExperts: personas(contribs),
	}
}

type override struct {
	lead Contribution
	grp  group
}

// thresholdOverride picks the contributor with the highest domain threshold.
// Equal thresholds backing different recommendations cannot be decided.
func (e *Engine) thresholdOverride(groups []group, domain string) (override, bool) {
	var best override
	bestThreshold := -1.0
	tied := false

	for _, g := range groups {
		for _, m := range g.members {
			th := e.threshold(m.Persona, domain)
			switch {
			case th > bestThreshold:
				bestThreshold = th
				best = override{lead: m, grp: g}
				tied = false
			case th == bestThreshold && g.text != best.grp.text:
				tied = true
			}
		}
	}
	if tied {
		return override{}, false
	}
	return best, true
}

func (e *Engine) threshold(id persona.ID, domain string) float64 {
	if th, ok := e.catalog.Threshold(id, domain); ok {
		return th
	}
	return e.cfg.DefaultDomainThreshold
}

// groupByRecommendation buckets contributions by normalized text, preserving
// first-seen order.
func groupByRecommendation(contribs []Contribution) []group {
	index := make(map[string]int)
	var groups []group
	for _, c := range contribs {
		key := normalize(c.Recommendation)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{text: key})
		}
		groups[i].members = append(groups[i].members, c)
	}
	return groups
}

func strictMajority(groups []group, total int) (group, bool) {
	for _, g := range groups {
		if len(g.members)*2 > total {
			return g, true
		}
	}
	return group{}, false
}

// normalize lowercases, collapses whitespace and strips trailing punctuation
// so cosmetic differences do not split a consensus group.
func normalize(text string) string {
	s := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return strings.TrimRight(s, ".!?")
}

func minConfidence(members []Contribution) float64 {
	lowest := members[0].Confidence
	for _, m := range members[1:] {
		if m.Confidence < lowest {
			lowest = m.Confidence
		}
	}
	return lowest
}

func personas(members []Contribution) []persona.ID {
	out := make([]persona.ID, len(members))
	for i, m := range members {
		out[i] = m.Persona
	}
	return out
}
