// Package persona defines the expert persona catalog and the state manager
// that tracks which persona is active. The catalog is built once at startup
// and never mutated; all runtime state lives in the StateManager.
package persona

import (
	"github.com/MikeSquared-Agency/themis/internal/decision"
)

// ID identifies an expert persona in the catalog.
type ID string

const (
	PythonGuru            ID = "python_guru"
	SystemArchitectExpert ID = "system_architect_expert"
	BusinessAnalystExpert ID = "business_analyst_expert"
	SecuritySpecialist    ID = "security_specialist"
	SeniorPartner         ID = "senior_partner"
)

// TopTier is the routing fallback and the persona pulled in at the most
// severe complexity level.
const TopTier = SeniorPartner

// InteractionStyle describes how a persona communicates during review.
type InteractionStyle struct {
	CommunicationTone  string `json:"communication_tone"`
	DecisionApproach   string `json:"decision_approach"`
	DetailLevel        string `json:"detail_level"`
	ExamplePreference  string `json:"example_preference"`
	DocumentationStyle string `json:"documentation_style"`
}

// Guidance carries the persona-specific validation and decision support
// returned with the active interface.
type Guidance struct {
	ValidationMethods      []string `json:"validation_methods"`
	ValidationCriteria     []string `json:"validation_criteria"`
	DecisionTree           string   `json:"decision_tree"`
	RiskAssessment         string   `json:"risk_assessment"`
	OptimizationPriorities []string `json:"optimization_priorities"`
}

// Profile is one catalog entry. ConfidenceThresholds is keyed by expertise
// domain: the confidence a persona expects of itself before signing off on a
// decision in that domain. Higher threshold means stronger standing authority.
type Profile struct {
	ID                   ID                 `json:"id"`
	DisplayName          string             `json:"display_name"`
	ExpertiseDomains     []string           `json:"expertise_domains"`
	DecisionFrameworks   []string           `json:"decision_frameworks"`
	InteractionStyle     InteractionStyle   `json:"interaction_style"`
	ConfidenceThresholds map[string]float64 `json:"confidence_thresholds"`
	PreferredContexts    []string           `json:"preferred_contexts"`
	Guidance             Guidance           `json:"guidance"`
}

// Catalog is the immutable persona registry plus the routing tables: the
// domain expertise matrix, decision-type assignments, stakeholder preferences
// and complexity preferences.
type Catalog struct {
	profiles map[ID]Profile
	priority []ID

	domainMatrix         map[string]map[ID]float64
	decisionTypes        map[string]ID
	stakeholderPreferred map[decision.StakeholderType][]ID
	complexityPreferred  map[decision.Complexity][]ID
}

// NewCatalog builds the built-in catalog. Callers share one instance; it is
// safe for concurrent reads.
func NewCatalog() *Catalog {
	return &Catalog{
		profiles: map[ID]Profile{
			PythonGuru: {
				ID:          PythonGuru,
				DisplayName: "Senior Python Development Expert",
				ExpertiseDomains: []string{
					"python_best_practices", "performance_optimization", "code_quality",
					"testing_strategies", "framework_selection", "library_evaluation",
				},
				DecisionFrameworks: []string{
					"pythonic_patterns", "performance_analysis", "maintainability_assessment",
					"security_review", "testing_pyramid",
				},
				InteractionStyle: InteractionStyle{
					CommunicationTone:  "technical_detailed",
					DecisionApproach:   "evidence_based_analytical",
					DetailLevel:        "high_technical_detail",
					ExamplePreference:  "code_examples_required",
					DocumentationStyle: "comprehensive_technical",
				},
				ConfidenceThresholds: map[string]float64{
					decision.DomainPythonDevelopment:        0.90,
					decision.DomainPerformanceOptimization:  0.85,
					decision.DomainSystemArchitecture:       0.70,
					decision.DomainSecurityCompliance:       0.65,
					decision.DomainStrategicPlanning:        0.60,
					decision.DomainBusinessAnalysis:         0.55,
					decision.DomainStakeholderManagement:    0.55,
				},
				PreferredContexts: []string{
					"code_implementation", "performance_issues", "python_specific",
					"technical_architecture", "development_practices",
				},
				Guidance: Guidance{
					ValidationMethods:      []string{"code_review", "performance_testing"},
					ValidationCriteria:     []string{"performance", "code_quality"},
					DecisionTree:           "systematic_technical_analysis",
					RiskAssessment:         "technical_risk_evaluation",
					OptimizationPriorities: []string{"performance", "maintainability"},
				},
			},
			SystemArchitectExpert: {
				ID:          SystemArchitectExpert,
				DisplayName: "Principal System Architecture Specialist",
				ExpertiseDomains: []string{
					"system_design", "scalability_architecture", "integration_patterns",
					"cloud_architecture", "microservices_design", "data_architecture",
				},
				DecisionFrameworks: []string{
					"architectural_patterns", "scalability_analysis", "integration_strategy",
					"technology_selection", "system_design_principles",
				},
				InteractionStyle: InteractionStyle{
					CommunicationTone:  "strategic_technical",
					DecisionApproach:   "holistic_systems_thinking",
					DetailLevel:        "architectural_overview_with_details",
					ExamplePreference:  "architecture_diagrams_preferred",
					DocumentationStyle: "strategic_with_implementation_guidance",
				},
				ConfidenceThresholds: map[string]float64{
					decision.DomainSystemArchitecture:       0.90,
					decision.DomainPerformanceOptimization:  0.80,
					decision.DomainPythonDevelopment:        0.75,
					decision.DomainSecurityCompliance:       0.75,
					decision.DomainStrategicPlanning:        0.70,
					decision.DomainBusinessAnalysis:         0.65,
					decision.DomainStakeholderManagement:    0.65,
				},
				PreferredContexts: []string{
					"system_design", "architecture_decisions", "scalability_planning",
					"integration_challenges", "technology_strategy",
				},
				Guidance: Guidance{
					ValidationMethods:      []string{"architecture_review", "scalability_analysis"},
					ValidationCriteria:     []string{"scalability", "integration"},
					DecisionTree:           "architectural_design_process",
					RiskAssessment:         "system_integration_risks",
					OptimizationPriorities: []string{"scalability", "reliability"},
				},
			},
			BusinessAnalystExpert: {
				ID:          BusinessAnalystExpert,
				DisplayName: "Strategic Business Analysis Consultant",
				ExpertiseDomains: []string{
					"requirements_analysis", "stakeholder_management", "business_process_optimization",
					"roi_analysis", "change_management", "compliance_requirements",
				},
				DecisionFrameworks: []string{
					"business_value_analysis", "stakeholder_impact_assessment", "risk_benefit_analysis",
					"process_optimization", "compliance_framework",
				},
				InteractionStyle: InteractionStyle{
					CommunicationTone:  "business_focused_strategic",
					DecisionApproach:   "stakeholder_value_optimization",
					DetailLevel:        "business_impact_with_technical_context",
					ExamplePreference:  "business_case_examples",
					DocumentationStyle: "executive_summary_with_details",
				},
				ConfidenceThresholds: map[string]float64{
					decision.DomainBusinessAnalysis:         0.90,
					decision.DomainStakeholderManagement:    0.85,
					decision.DomainStrategicPlanning:        0.75,
					decision.DomainSecurityCompliance:       0.70,
					decision.DomainSystemArchitecture:       0.60,
					decision.DomainPythonDevelopment:        0.55,
					decision.DomainPerformanceOptimization:  0.55,
				},
				PreferredContexts: []string{
					"business_requirements", "stakeholder_decisions", "process_improvements",
					"compliance_issues", "strategic_planning",
				},
				Guidance: Guidance{
					ValidationMethods:      []string{"stakeholder_review", "business_case_analysis"},
					ValidationCriteria:     []string{"business_value", "stakeholder_alignment"},
					DecisionTree:           "business_requirements_analysis",
					RiskAssessment:         "business_impact_assessment",
					OptimizationPriorities: []string{"value_delivery", "stakeholder_satisfaction"},
				},
			},
			SecuritySpecialist: {
				ID:          SecuritySpecialist,
				DisplayName: "Cybersecurity and Compliance Expert",
				ExpertiseDomains: []string{
					"security_architecture", "vulnerability_assessment", "compliance_frameworks",
					"incident_response", "risk_assessment", "security_protocols",
				},
				DecisionFrameworks: []string{
					"security_risk_assessment", "compliance_validation", "threat_modeling",
					"security_architecture_review", "incident_response_planning",
				},
				InteractionStyle: InteractionStyle{
					CommunicationTone:  "security_focused_precise",
					DecisionApproach:   "risk_mitigation_priority",
					DetailLevel:        "security_implementation_specific",
					ExamplePreference:  "security_patterns_and_examples",
					DocumentationStyle: "security_policy_comprehensive",
				},
				ConfidenceThresholds: map[string]float64{
					decision.DomainSecurityCompliance:       0.90,
					decision.DomainSystemArchitecture:       0.80,
					decision.DomainStrategicPlanning:        0.65,
					decision.DomainPythonDevelopment:        0.65,
					decision.DomainPerformanceOptimization:  0.65,
					decision.DomainBusinessAnalysis:         0.60,
					decision.DomainStakeholderManagement:    0.60,
				},
				PreferredContexts: []string{
					"security_decisions", "compliance_requirements", "vulnerability_issues",
					"incident_response", "risk_management",
				},
				Guidance: Guidance{
					ValidationMethods:      []string{"security_review", "compliance_check"},
					ValidationCriteria:     []string{"security", "compliance"},
					DecisionTree:           "security_threat_analysis",
					RiskAssessment:         "comprehensive_security_evaluation",
					OptimizationPriorities: []string{"security", "compliance"},
				},
			},
			SeniorPartner: {
				ID:          SeniorPartner,
				DisplayName: "Senior Partner - Strategic Oversight",
				ExpertiseDomains: []string{
					"strategic_leadership", "executive_decision_making", "organizational_transformation",
					"high_stakes_negotiations", "crisis_management", "strategic_partnerships",
				},
				DecisionFrameworks: []string{
					"strategic_impact_analysis", "executive_decision_framework", "organizational_change_management",
					"stakeholder_alignment", "strategic_risk_management",
				},
				InteractionStyle: InteractionStyle{
					CommunicationTone:  "executive_strategic",
					DecisionApproach:   "strategic_value_optimization",
					DetailLevel:        "executive_summary_with_strategic_context",
					ExamplePreference:  "strategic_case_studies",
					DocumentationStyle: "executive_briefing_comprehensive",
				},
				ConfidenceThresholds: map[string]float64{
					decision.DomainStrategicPlanning:        0.90,
					decision.DomainBusinessAnalysis:         0.85,
					decision.DomainSecurityCompliance:       0.80,
					decision.DomainStakeholderManagement:    0.80,
					decision.DomainSystemArchitecture:       0.75,
					decision.DomainPythonDevelopment:        0.60,
					decision.DomainPerformanceOptimization:  0.60,
				},
				PreferredContexts: []string{
					"strategic_decisions", "executive_oversight", "organizational_transformation",
					"crisis_situations", "high_stakes_decisions",
				},
				Guidance: Guidance{
					ValidationMethods:      []string{"executive_review", "strategic_alignment"},
					ValidationCriteria:     []string{"strategic_value", "organizational_impact"},
					DecisionTree:           "strategic_decision_framework",
					RiskAssessment:         "organizational_risk_analysis",
					OptimizationPriorities: []string{"strategic_alignment", "organizational_value"},
				},
			},
		},
		priority: []ID{
			SeniorPartner,
			SystemArchitectExpert,
			BusinessAnalystExpert,
			SecuritySpecialist,
			PythonGuru,
		},
		domainMatrix: map[string]map[ID]float64{
			decision.DomainPythonDevelopment: {
				PythonGuru:            1.0,
				SystemArchitectExpert: 0.7,
				SecuritySpecialist:    0.6,
				BusinessAnalystExpert: 0.3,
				SeniorPartner:         0.4,
			},
			decision.DomainSystemArchitecture: {
				SystemArchitectExpert: 1.0,
				PythonGuru:            0.6,
				SecuritySpecialist:    0.8,
				BusinessAnalystExpert: 0.4,
				SeniorPartner:         0.7,
			},
			decision.DomainBusinessAnalysis: {
				BusinessAnalystExpert: 1.0,
				SeniorPartner:         0.9,
				SystemArchitectExpert: 0.5,
				SecuritySpecialist:    0.4,
				PythonGuru:            0.3,
			},
			decision.DomainSecurityCompliance: {
				SecuritySpecialist:    1.0,
				SystemArchitectExpert: 0.7,
				BusinessAnalystExpert: 0.6,
				SeniorPartner:         0.8,
				PythonGuru:            0.5,
			},
			decision.DomainStrategicPlanning: {
				SeniorPartner:         1.0,
				BusinessAnalystExpert: 0.7,
				SystemArchitectExpert: 0.6,
				SecuritySpecialist:    0.5,
				PythonGuru:            0.3,
			},
			decision.DomainPerformanceOptimization: {
				PythonGuru:            1.0,
				SystemArchitectExpert: 0.9,
				SecuritySpecialist:    0.6,
				BusinessAnalystExpert: 0.3,
				SeniorPartner:         0.4,
			},
			decision.DomainStakeholderManagement: {
				BusinessAnalystExpert: 1.0,
				SeniorPartner:         0.9,
				SystemArchitectExpert: 0.5,
				SecuritySpecialist:    0.4,
				PythonGuru:            0.3,
			},
		},
		decisionTypes: map[string]ID{
			"code_implementation":   PythonGuru,
			"architecture_design":   SystemArchitectExpert,
			"business_requirements": BusinessAnalystExpert,
			"security_review":       SecuritySpecialist,
			"strategic_planning":    SeniorPartner,
		},
		stakeholderPreferred: map[decision.StakeholderType][]ID{
			decision.StakeholderTechnicalTeam:        {PythonGuru, SystemArchitectExpert, SecuritySpecialist},
			decision.StakeholderBusinessStakeholders: {BusinessAnalystExpert, SeniorPartner},
			decision.StakeholderExecutiveLeadership:  {SeniorPartner, BusinessAnalystExpert},
			decision.StakeholderExternalClients:      {SeniorPartner, BusinessAnalystExpert},
			decision.StakeholderRegulatoryBodies:     {SecuritySpecialist, BusinessAnalystExpert},
			decision.StakeholderEndUsers:             {BusinessAnalystExpert, SystemArchitectExpert},
		},
		complexityPreferred: map[decision.Complexity][]ID{
			decision.ComplexityLow:      {PythonGuru, BusinessAnalystExpert},
			decision.ComplexityMedium:   {SystemArchitectExpert, BusinessAnalystExpert, SecuritySpecialist},
			decision.ComplexityHigh:     {SystemArchitectExpert, SeniorPartner, SecuritySpecialist},
			decision.ComplexityVeryHigh: {SeniorPartner, SystemArchitectExpert},
		},
	}
}

// Get returns the profile for id.
func (c *Catalog) Get(id ID) (Profile, bool) {
	p, ok := c.profiles[id]
	return p, ok
}

// All returns every profile in priority order.
func (c *Catalog) All() []Profile {
	out := make([]Profile, 0, len(c.priority))
	for _, id := range c.priority {
		out = append(out, c.profiles[id])
	}
	return out
}

// Priority returns the fixed persona ordering used for deterministic
// tie-breaks: most senior first.
func (c *Catalog) Priority() []ID {
	out := make([]ID, len(c.priority))
	copy(out, c.priority)
	return out
}

// KnownDomain reports whether the expertise matrix covers domain.
func (c *Catalog) KnownDomain(domain string) bool {
	_, ok := c.domainMatrix[domain]
	return ok
}

// DomainScore returns the matrix entry for a persona in a domain, 0 when the
// domain or persona is not covered.
func (c *Catalog) DomainScore(domain string, id ID) float64 {
	return c.domainMatrix[domain][id]
}

// DecisionTypePersona returns the persona statically assigned to a decision
// type, if any.
func (c *Catalog) DecisionTypePersona(decisionType string) (ID, bool) {
	id, ok := c.decisionTypes[decisionType]
	return id, ok
}

// PreferredForStakeholder reports whether a persona is in the preferred list
// for a stakeholder type.
func (c *Catalog) PreferredForStakeholder(id ID, st decision.StakeholderType) bool {
	for _, p := range c.stakeholderPreferred[st] {
		if p == id {
			return true
		}
	}
	return false
}

// PreferredForComplexity reports whether a persona is in the preferred set
// for a complexity level.
func (c *Catalog) PreferredForComplexity(id ID, cx decision.Complexity) bool {
	for _, p := range c.complexityPreferred[cx] {
		if p == id {
			return true
		}
	}
	return false
}

// Threshold returns a persona's standing confidence threshold for a domain.
// The second return is false when the persona has no entry for the domain.
func (c *Catalog) Threshold(id ID, domain string) (float64, bool) {
	p, ok := c.profiles[id]
	if !ok {
		return 0, false
	}
	t, ok := p.ConfidenceThresholds[domain]
	return t, ok
}

// seniority returns the index of id in the priority order; unknown personas
// sort last.
func (c *Catalog) seniority(id ID) int {
	for i, p := range c.priority {
		if p == id {
			return i
		}
	}
	return len(c.priority)
}

// MoreSenior reports whether a outranks b in the fixed priority order.
func (c *Catalog) MoreSenior(a, b ID) bool {
	return c.seniority(a) < c.seniority(b)
}
