package core

import "time"

// MessageType classifies the intent of an AgentMessage. The bus itself does
// not interpret types beyond filtering; they are a contract between agents.
type MessageType string

const (
	// MessageTypeRequest asks the recipient to act or answer.
	MessageTypeRequest MessageType = "request"
	// MessageTypeResponse answers an earlier request or completes a delegation.
	MessageTypeResponse MessageType = "response"
	// MessageTypeDelegate carries a task handoff to the delegatee.
	MessageTypeDelegate MessageType = "delegate"
	// MessageTypeNotify carries informational state changes (context updates,
	// membership changes).
	MessageTypeNotify MessageType = "notify"
	// MessageTypeBroadcast is a team-wide fan-out message.
	MessageTypeBroadcast MessageType = "broadcast"
	// MessageTypeStatus reports a lifecycle transition (delegation accepted,
	// rejected, expired).
	MessageTypeStatus MessageType = "status"
	// MessageTypeError reports a failure back to a requester.
	MessageTypeError MessageType = "error"
)

// Valid reports whether t is one of the defined message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeRequest, MessageTypeResponse, MessageTypeDelegate,
		MessageTypeNotify, MessageTypeBroadcast, MessageTypeStatus, MessageTypeError:
		return true
	}
	return false
}

// Priority orders messages and delegations by urgency. The bus preserves
// insertion order regardless of priority; the field is advisory for agents.
type Priority string

const (
	// PriorityLow marks background work.
	PriorityLow Priority = "low"
	// PriorityNormal is the default.
	PriorityNormal Priority = "normal"
	// PriorityHigh marks time-sensitive work.
	PriorityHigh Priority = "high"
	// PriorityUrgent marks work that should preempt everything else.
	PriorityUrgent Priority = "urgent"
)

// Recipient addresses an outgoing message. It is a tagged variant: either a
// single named agent (To) or a broadcast to every teammate of the sender
// (Everyone). Broadcasts are resolved at send time into one unicast copy per
// recipient; a stored AgentMessage always carries a concrete agent id.
type Recipient struct {
	agentID   string
	broadcast bool
}

// To addresses a single agent by id.
func To(agentID string) Recipient { return Recipient{agentID: agentID} }

// Everyone addresses all other members of every team the sender belongs to.
func Everyone() Recipient { return Recipient{broadcast: true} }

// AgentID returns the unicast target and true, or ("", false) for a broadcast.
func (r Recipient) AgentID() (string, bool) { return r.agentID, !r.broadcast }

// IsBroadcast reports whether the recipient is the broadcast variant.
func (r Recipient) IsBroadcast() bool { return r.broadcast }

// AgentMessage is a single message owned by the recipient's mailbox until
// acknowledged. Messages are immutable once enqueued; the bus returns
// defensive copies so callers cannot mutate mailbox state.
type AgentMessage struct {
	ID              string         `json:"id"`
	Type            MessageType    `json:"type"`
	From            string         `json:"from_agent_id"`
	To              string         `json:"to_agent_id"`
	Subject         string         `json:"subject"`
	Content         any            `json:"content"`
	SharedContextID string         `json:"shared_context_id,omitempty"`
	ReplyTo         string         `json:"reply_to,omitempty"`
	Priority        Priority       `json:"priority"`
	Timestamp       time.Time      `json:"timestamp"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Clone returns a copy of the message with its own metadata map. Content is
// treated as opaque and shared; agents must not mutate payloads they receive.
func (m *AgentMessage) Clone() *AgentMessage {
	clone := *m
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		clone.ExpiresAt = &t
	}
	if m.Metadata != nil {
		clone.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
