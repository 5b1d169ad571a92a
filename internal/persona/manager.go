package persona

import (
	"sync"
	"time"

	"github.com/MikeSquared-Agency/themis/internal/decision"
)

// Trigger is the reason a persona switch happened.
type Trigger string

const (
	TriggerInitial            Trigger = "initial"
	TriggerDecisionTypeChange Trigger = "decision_type_change"
	TriggerEscalation         Trigger = "escalation"
	TriggerExplicitRequest    Trigger = "explicit_request"
	TriggerContextEvolution   Trigger = "context_evolution"
)

// SwitchContext is one entry in the transition log.
type SwitchContext struct {
	From       ID        `json:"from_persona,omitempty"`
	To         ID        `json:"to_persona"`
	Trigger    Trigger   `json:"trigger"`
	Rationale  string    `json:"rationale"`
	Confidence float64   `json:"confidence"`
	SwitchedAt time.Time `json:"switched_at"`
}

// InterfaceConfig is the active persona's guidance surface: what the expert
// brings to the decision and how they expect to interact.
type InterfaceConfig struct {
	Persona              ID                 `json:"persona"`
	DisplayName          string             `json:"display_name"`
	ExpertiseDomains     []string           `json:"expertise_domains"`
	DecisionFrameworks   []string           `json:"decision_frameworks"`
	InteractionStyle     InteractionStyle   `json:"interaction_style"`
	ConfidenceThresholds map[string]float64 `json:"confidence_thresholds"`
	Guidance             Guidance           `json:"guidance"`
}

// NoActivePersonaError is returned by ActiveInterface before the first
// switch. Recoverable: route a decision and switch.
type NoActivePersonaError struct{}

func (e *NoActivePersonaError) Error() string {
	return "no active persona: no switch has occurred yet"
}

// StateManager owns the only mutable persona state: the active persona, the
// bounded transition log and the per-persona activation counters. One mutex
// guards all three so a switch is observed atomically.
type StateManager struct {
	catalog *Catalog

	mu          sync.Mutex
	current     ID
	active      bool
	iface       InterfaceConfig
	transitions []SwitchContext
	logCap      int
	counters    map[ID]int
}

// NewStateManager builds a manager over the catalog. logCap bounds the
// transition log; entries past the cap evict oldest-first.
func NewStateManager(catalog *Catalog, logCap int) *StateManager {
	if logCap < 1 {
		logCap = 1
	}
	return &StateManager{
		catalog:  catalog,
		logCap:   logCap,
		counters: make(map[ID]int),
	}
}

// Switch activates target and records the transition. The first switch uses
// trigger initial regardless of the supplied trigger; a switch to the already
// active persona is a no-op on the current state but still logs one
// context_evolution entry. Unknown targets are rejected before any state
// changes.
func (m *StateManager) Switch(target ID, trigger Trigger, rationale string, confidence float64) (SwitchContext, error) {
	profile, ok := m.catalog.Get(target)
	if !ok {
		return SwitchContext{}, &decision.ValidationError{Field: "persona", Reason: "unknown persona " + string(target)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sc := SwitchContext{
		To:         target,
		Trigger:    trigger,
		Rationale:  rationale,
		Confidence: confidence,
		SwitchedAt: time.Now().UTC(),
	}

	switch {
	case !m.active:
		sc.Trigger = TriggerInitial
	case m.current == target:
		sc.From = m.current
		sc.Trigger = TriggerContextEvolution
	default:
		sc.From = m.current
	}

	// Current persona and its interface config change together.
	if !m.active || m.current != target {
		m.current = target
		m.active = true
		m.iface = interfaceConfig(profile)
		m.counters[target]++
	}

	m.appendTransition(sc)
	return sc, nil
}

// Active returns the current persona ID, or false before the first switch.
func (m *StateManager) Active() (ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.active
}

// ActiveInterface returns the active persona's interface configuration.
func (m *StateManager) ActiveInterface() (InterfaceConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return InterfaceConfig{}, &NoActivePersonaError{}
	}
	return m.iface, nil
}

// Transitions returns a copy of the transition log, oldest first.
func (m *StateManager) Transitions() []SwitchContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SwitchContext, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// Counters returns a copy of the per-persona activation counts.
func (m *StateManager) Counters() map[ID]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ID]int, len(m.counters))
	for id, n := range m.counters {
		out[id] = n
	}
	return out
}

// appendTransition assumes m.mu is held.
func (m *StateManager) appendTransition(sc SwitchContext) {
	if len(m.transitions) >= m.logCap {
		m.transitions = m.transitions[1:]
	}
	m.transitions = append(m.transitions, sc)
}

func interfaceConfig(p Profile) InterfaceConfig {
	return InterfaceConfig{
		Persona:              p.ID,
		DisplayName:          p.DisplayName,
		ExpertiseDomains:     p.ExpertiseDomains,
		DecisionFrameworks:   p.DecisionFrameworks,
		InteractionStyle:     p.InteractionStyle,
		ConfidenceThresholds: p.ConfidenceThresholds,
		Guidance:             p.Guidance,
	}
}
