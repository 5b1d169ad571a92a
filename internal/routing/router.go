// Package routing selects the expert persona best matched to a decision
// context by scoring candidates on domain coverage, stakeholder alignment
// and complexity fit.
package routing

import (
	"fmt"
	"sort"

	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/persona"
	"github.com/MikeSquared-Agency/themis/internal/policy"
)

// RoleDomainSpecialist is the role assigned to supporting experts.
const RoleDomainSpecialist = "domain_specialist"

// Support is one supporting expert attached to a routing result.
type Support struct {
	Persona persona.ID `json:"persona"`
	Role    string     `json:"role"`
	Score   float64    `json:"score"`
}

// Result is the routing outcome. PrimaryExpert is always a catalog persona.
type Result struct {
	PrimaryExpert     persona.ID `json:"primary_expert"`
	MatchScore        float64    `json:"match_score"`
	RoutingConfidence float64    `json:"routing_confidence"`
	SupportingExperts []Support  `json:"supporting_experts,omitempty"`
	Rationale         string     `json:"rationale"`
}

// Router scores catalog personas against decision contexts.
type Router struct {
	catalog *persona.Catalog
	cfg     policy.Routing
}

func NewRouter(catalog *persona.Catalog, cfg policy.Routing) *Router {
	return &Router{catalog: catalog, cfg: cfg}
}

type candidate struct {
	id          persona.ID
	coverage    float64
	stakeholder float64
	complexity  float64
	score       float64
}

// Route selects the primary expert for a decision. Candidates come from the
// expertise matrix, the persona's own domain list, the static decision-type
// assignment, and the top-tier persona at the most severe complexity. When
// nothing qualifies the top-tier persona is routed as a fallback so the
// result is never empty. Ties break on catalog seniority.
func (r *Router) Route(ctx decision.Context) (Result, error) {
	if err := ctx.Validate(); err != nil {
		return Result{}, err
	}

	ids := r.candidates(ctx)
	fallback := len(ids) == 0
	if fallback {
		ids = []persona.ID{persona.TopTier}
	}

	scored := make([]candidate, 0, len(ids))
	for _, id := range ids {
		scored = append(scored, r.score(id, ctx))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	primary := scored[0]
	res := Result{
		PrimaryExpert:     primary.id,
		MatchScore:        primary.score,
		RoutingConfidence: capAt1(primary.score),
		Rationale:         rationale(primary, fallback),
	}

	if ctx.MultiExpertNeeded || ctx.Complexity == decision.ComplexityHigh || ctx.Complexity == decision.ComplexityVeryHigh {
		for _, c := range scored[1:] {
			if len(res.SupportingExperts) >= r.cfg.MaxSupportingExperts {
				break
			}
			if c.score <= r.cfg.SupportingScoreFloor {
				continue
			}
			res.SupportingExperts = append(res.SupportingExperts, Support{
				Persona: c.id,
				Role:    RoleDomainSpecialist,
				Score:   c.score,
			})
		}
	}

	return res, nil
}

// candidates returns qualifying personas in catalog priority order.
func (r *Router) candidates(ctx decision.Context) []persona.ID {
	typeMatch, hasTypeMatch := r.catalog.DecisionTypePersona(ctx.DecisionType)

	var out []persona.ID
	for _, id := range r.catalog.Priority() {
		switch {
		case r.matrixMatch(id, ctx.DomainRequirements):
			out = append(out, id)
		case r.profileMatch(id, ctx.DomainRequirements):
			out = append(out, id)
		case hasTypeMatch && id == typeMatch:
			out = append(out, id)
		case ctx.Complexity == decision.ComplexityVeryHigh && id == persona.TopTier:
			out = append(out, id)
		}
	}
	return out
}

func (r *Router) matrixMatch(id persona.ID, domains []string) bool {
	for _, d := range domains {
		if r.catalog.DomainScore(d, id) > 0 {
			return true
		}
	}
	return false
}

func (r *Router) profileMatch(id persona.ID, domains []string) bool {
	profile, ok := r.catalog.Get(id)
	if !ok {
		return false
	}
	for _, d := range domains {
		for _, have := range profile.ExpertiseDomains {
			if d == have {
				return true
			}
		}
	}
	return false
}

func (r *Router) score(id persona.ID, ctx decision.Context) candidate {
	c := candidate{
		id:          id,
		coverage:    r.domainCoverage(id, ctx.DomainRequirements),
		stakeholder: r.stakeholderAlignment(id, ctx.StakeholderRequirements),
		complexity:  r.complexityFit(id, ctx.Complexity),
	}
	c.score = c.coverage*r.cfg.DomainWeight +
		c.stakeholder*r.cfg.StakeholderWeight +
		c.complexity*r.cfg.ComplexityWeight
	return c
}

// domainCoverage is the mean matrix score over the requested domains the
// matrix knows. Unknown domains are excluded; no known domains means zero
// coverage.
func (r *Router) domainCoverage(id persona.ID, domains []string) float64 {
	var sum float64
	known := 0
	for _, d := range domains {
		if !r.catalog.KnownDomain(d) {
			continue
		}
		sum += r.catalog.DomainScore(d, id)
		known++
	}
	if known == 0 {
		return 0
	}
	return sum / float64(known)
}

func (r *Router) stakeholderAlignment(id persona.ID, reqs map[decision.StakeholderType][]string) float64 {
	for st := range reqs {
		if r.catalog.PreferredForStakeholder(id, st) {
			return r.cfg.PreferredStakeholderScore
		}
	}
	return r.cfg.BaseStakeholderScore
}

func (r *Router) complexityFit(id persona.ID, cx decision.Complexity) float64 {
	if r.catalog.PreferredForComplexity(id, cx) {
		return r.cfg.PreferredComplexityScore
	}
	return r.cfg.BaseComplexityScore
}

func rationale(c candidate, fallback bool) string {
	if fallback {
		return fmt.Sprintf("no candidate matched the decision context; defaulting to %s (score %.2f)", c.id, c.score)
	}
	return fmt.Sprintf("%s scored %.2f: domain coverage %.2f, stakeholder alignment %.2f, complexity fit %.2f",
		c.id, c.score, c.coverage, c.stakeholder, c.complexity)
}

func capAt1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
