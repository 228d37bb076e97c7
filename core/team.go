package core

import "time"

// AgentTeam groups agents for broadcast fan-out and shared context
// bookkeeping. Members always contains Lead; the lead cannot be removed.
type AgentTeam struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Lead             string    `json:"lead_agent_id"`
	Members          []string  `json:"member_agent_ids"`
	SharedContextIDs []string  `json:"shared_context_ids,omitempty"`
	Workflows        []string  `json:"workflows,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasMember reports whether agentID belongs to the team.
func (t *AgentTeam) HasMember(agentID string) bool {
	for _, id := range t.Members {
		if id == agentID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe for handing to callers.
func (t *AgentTeam) Clone() *AgentTeam {
	clone := *t
	clone.Members = append([]string(nil), t.Members...)
	clone.SharedContextIDs = append([]string(nil), t.SharedContextIDs...)
	clone.Workflows = append([]string(nil), t.Workflows...)
	return &clone
}
