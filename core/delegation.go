package core

import "time"

// DelegationStatus is the lifecycle state of a DelegationRequest.
type DelegationStatus string

const (
	// DelegationPending is the initial state: the delegatee has not responded.
	DelegationPending DelegationStatus = "pending"
	// DelegationAccepted means the delegatee agreed to perform the task.
	DelegationAccepted DelegationStatus = "accepted"
	// DelegationRejected is terminal: the delegatee declined.
	DelegationRejected DelegationStatus = "rejected"
	// DelegationCompleted is terminal: the delegatee finished and attached a result.
	DelegationCompleted DelegationStatus = "completed"
)

// delegationTransitions is the full set of legal status edges. Anything not
// listed here is an invalid operation.
var delegationTransitions = map[DelegationStatus][]DelegationStatus{
	DelegationPending:  {DelegationAccepted, DelegationRejected},
	DelegationAccepted: {DelegationCompleted},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s DelegationStatus) CanTransition(next DelegationStatus) bool {
	for _, t := range delegationTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing edges.
func (s DelegationStatus) Terminal() bool {
	return len(delegationTransitions[s]) == 0
}

// DelegationRequest is a task handoff from one agent to another. Status
// transitions are owned exclusively by the delegatee (To); Deadline is
// carried as data and is not enforced by any core operation.
type DelegationRequest struct {
	ID          string           `json:"id"`
	From        string           `json:"from_agent_id"`
	To          string           `json:"to_agent_id"`
	TaskType    string           `json:"task_type"`
	TaskInput   any              `json:"task_input"`
	Reason      string           `json:"reason"`
	Priority    Priority         `json:"priority"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
	Status      DelegationStatus `json:"status"`
	Result      any              `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Clone returns a copy with its own time pointers. TaskInput and Result are
// opaque payloads shared between copies.
func (d *DelegationRequest) Clone() *DelegationRequest {
	clone := *d
	if d.Deadline != nil {
		t := *d.Deadline
		clone.Deadline = &t
	}
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		clone.CompletedAt = &t
	}
	return &clone
}
