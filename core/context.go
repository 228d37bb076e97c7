package core

import "time"

// SharedContext is a versioned key/value document collaboratively readable
// and writable by the agents listed in SharedWith.
//
// Contract:
//   - SharedWith always contains CreatedBy and only ever grows
//   - Version starts at 1 and increases by exactly one per accepted mutation
//   - Only members of SharedWith may read or mutate the document
type SharedContext struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Data        map[string]any `json:"data"`
	CreatedBy   string         `json:"created_by"`
	SharedWith  []string       `json:"shared_with"`
	Version     int            `json:"version"`
	LastUpdated time.Time      `json:"last_updated"`
}

// IsSharedWith reports whether agentID may access the context.
func (c *SharedContext) IsSharedWith(agentID string) bool {
	for _, id := range c.SharedWith {
		if id == agentID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe for handing to callers.
func (c *SharedContext) Clone() *SharedContext {
	clone := *c
	clone.Data = make(map[string]any, len(c.Data))
	for k, v := range c.Data {
		clone.Data[k] = v
	}
	clone.SharedWith = append([]string(nil), c.SharedWith...)
	return &clone
}
