package testutil

import (
	"time"

	"github.com/agentforge-io/agentcoord/core"
)

// MessageBuilder provides a fluent helper for constructing messages in
// tests. Example:
//
//	msg := NewMessageBuilder().From("alice").Type(core.MessageTypeRequest).Subject("hi").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	msg core.AgentMessage
}

// NewMessageBuilder creates a builder defaulting to a normal-priority notify.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{msg: core.AgentMessage{
		Type:     core.MessageTypeNotify,
		Priority: core.PriorityNormal,
	}}
}

// ID overrides the message id; use where determinism matters (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.msg.ID = id; return b }

// Type sets the message type (chainable).
func (b *MessageBuilder) Type(t core.MessageType) *MessageBuilder { b.msg.Type = t; return b }

// From sets the sender (chainable).
func (b *MessageBuilder) From(agentID string) *MessageBuilder { b.msg.From = agentID; return b }

// To sets a concrete recipient on the built message (chainable).
func (b *MessageBuilder) To(agentID string) *MessageBuilder { b.msg.To = agentID; return b }

// Subject sets the subject line (chainable).
func (b *MessageBuilder) Subject(s string) *MessageBuilder { b.msg.Subject = s; return b }

// Content sets the opaque payload (chainable).
func (b *MessageBuilder) Content(v any) *MessageBuilder { b.msg.Content = v; return b }

// Priority sets the priority (chainable).
func (b *MessageBuilder) Priority(p core.Priority) *MessageBuilder { b.msg.Priority = p; return b }

// Context sets the shared context reference (chainable).
func (b *MessageBuilder) Context(contextID string) *MessageBuilder {
	b.msg.SharedContextID = contextID
	return b
}

// ExpiresAt sets the expiry timestamp (chainable).
func (b *MessageBuilder) ExpiresAt(t time.Time) *MessageBuilder { b.msg.ExpiresAt = &t; return b }

// Meta adds one metadata entry (chainable).
func (b *MessageBuilder) Meta(key string, value any) *MessageBuilder {
	if b.msg.Metadata == nil {
		b.msg.Metadata = map[string]any{}
	}
	b.msg.Metadata[key] = value
	return b
}

// Build returns a copy of the constructed message.
func (b *MessageBuilder) Build() *core.AgentMessage { return b.msg.Clone() }
