package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects themis publishes on or subscribes to.
const (
	// SubjectDecisionEvaluated carries the outcome of each decision evaluation.
	SubjectDecisionEvaluated = "swarm.themis.decision.evaluated"
	// SubjectConsensusResolved carries the consensus outcome for a decision.
	SubjectConsensusResolved = "swarm.themis.consensus.resolved"
	// SubjectContributionSubmitted is how experts submit recommendations
	// toward consensus over the bus.
	SubjectContributionSubmitted = "swarm.themis.contribution.submitted"
	// SubjectAgentRegistered announces themis to the swarm at startup.
	SubjectAgentRegistered = "swarm.agent.themis.registered"
)

// DecisionEvaluated is emitted after a decision has been classified and
// routed, so downstream agents can act on the tier without polling.
type DecisionEvaluated struct {
	DecisionID        string   `json:"decision_id"`
	DecisionType      string   `json:"decision_type"`
	Tier              string   `json:"tier"`
	EscalationNeeded  bool     `json:"escalation_needed"`
	OverallConfidence float64  `json:"overall_confidence"`
	PrimaryExpert     string   `json:"primary_expert"`
	ActivePersona     string   `json:"active_persona"`
	RequiredExpertise []string `json:"required_expertise,omitempty"`
}

// ConsensusResolved is emitted once expert contributions for a decision have
// been resolved. An unresolved agreement carries the escalated tier instead
// of a recommendation.
type ConsensusResolved struct {
	DecisionID          string   `json:"decision_id"`
	FinalRecommendation string   `json:"final_recommendation,omitempty"`
	Confidence          float64  `json:"confidence"`
	Agreement           string   `json:"agreement"`
	OverrideApplied     bool     `json:"override_applied"`
	ContributingExperts []string `json:"contributing_experts"`
	EscalatedTier       string   `json:"escalated_tier,omitempty"`
}

// ContributionSubmitted is one expert recommendation for a pending decision.
type ContributionSubmitted struct {
	DecisionID     string  `json:"decision_id"`
	Persona        string  `json:"persona"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
