package port

import (
	"context"

	"minecomply/internal/domain"
)

// CategoryAgent is a domain-scoped compliance evaluator (Strategy Pattern).
// Implementations must be pure: Analyze never mutates its input mappings and
// is idempotent, so identical input always yields identical output.
type CategoryAgent interface {
	// Name returns the unique agent name (e.g. "safety_agent").
	Name() string

	// Description returns a human-readable description of what this agent evaluates.
	Description() string

	// Category returns the clause category this agent is scoped to.
	Category() domain.Category

	// Analyze scores the in-scope mappings and returns one finding.
	Analyze(ctx context.Context, mappings []domain.ComplianceMapping) (*domain.AgentFinding, error)
}

// AgentRegistry holds the closed set of category agents, dispatched
// statically by category rather than by runtime attribute lookup.
type AgentRegistry struct {
	agents map[domain.Category]CategoryAgent
	order  []domain.Category
}

// NewAgentRegistry creates a registry from the given agents. Registration
// order is preserved for deterministic iteration.
func NewAgentRegistry(agents ...CategoryAgent) *AgentRegistry {
	m := make(map[domain.Category]CategoryAgent, len(agents))
	order := make([]domain.Category, 0, len(agents))
	for _, a := range agents {
		if _, dup := m[a.Category()]; !dup {
			order = append(order, a.Category())
		}
		m[a.Category()] = a
	}
	return &AgentRegistry{agents: m, order: order}
}

// Get returns the agent registered for a category.
func (r *AgentRegistry) Get(category domain.Category) (CategoryAgent, error) {
	a, ok := r.agents[category]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return a, nil
}

// Categories returns the registered categories in registration order.
func (r *AgentRegistry) Categories() []domain.Category {
	out := make([]domain.Category, len(r.order))
	copy(out, r.order)
	return out
}

// Agents returns all registered agents in registration order.
func (r *AgentRegistry) Agents() []CategoryAgent {
	out := make([]CategoryAgent, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, r.agents[c])
	}
	return out
}
