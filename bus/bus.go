package bus

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/agentforge-io/agentcoord/core"
	"github.com/agentforge-io/agentcoord/logging"
)

// Compile-time assertion: the bus is the canonical MessageSender.
var _ core.MessageSender = (*Bus)(nil)

// Options configures a Bus instance.
type Options struct {
	// Directory resolves broadcast recipients. A nil directory makes
	// broadcasts deliver to nobody, which is the correct behavior for a
	// sender that belongs to no team.
	Directory core.TeamDirectory

	// Store mirrors deliveries and acknowledgments to a durable backend.
	// Defaults to NopStore.
	Store core.Store

	// Clock supplies message timestamps. Defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Bus routes messages between agent mailboxes. Each mailbox carries its own
// mutex so traffic for one agent never contends with traffic for another;
// the bus-level lock only guards the mailbox map itself.
type Bus struct {
	opts      Options
	mu        sync.RWMutex
	mailboxes map[string]*mailbox
}

// mailbox is one agent's ordered pending-message queue.
type mailbox struct {
	mu       sync.Mutex
	messages []*core.AgentMessage
}

// New constructs a Bus with optional overrides.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		Store:  core.NopStore{},
		Clock:  clock.New(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{opts: opts, mailboxes: make(map[string]*mailbox)}
}

// SetDirectory wires the broadcast resolver after construction. The team
// registry needs the bus for its own notifications, so the coordinator wires
// the two together once both exist.
func (b *Bus) SetDirectory(d core.TeamDirectory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.Directory = d
}

// Send delivers msg according to the recipient variant. It assigns id and
// timestamp, defaults an empty priority to normal, and returns the delivered
// copies. A broadcast expands into one rewritten unicast copy per teammate
// of the sender; each copy gets its own id. Sending to an unknown agent id
// is not an error; the mailbox is created lazily.
func (b *Bus) Send(to core.Recipient, msg *core.AgentMessage) ([]*core.AgentMessage, error) {
	if msg.Priority == "" {
		msg.Priority = core.PriorityNormal
	}
	now := b.opts.Clock.Now()

	if agentID, ok := to.AgentID(); ok {
		m := msg.Clone()
		m.ID = uuid.NewString()
		m.To = agentID
		m.Timestamp = now
		b.deliver(m)
		b.logDelivery(m, false)
		return []*core.AgentMessage{m}, nil
	}

	var recipients []string
	if b.directory() != nil {
		recipients = b.directory().Teammates(msg.From)
	}
	delivered := make([]*core.AgentMessage, 0, len(recipients))
	for _, agentID := range recipients {
		m := msg.Clone()
		m.ID = uuid.NewString()
		m.To = agentID
		m.Timestamp = now
		b.deliver(m)
		b.logDelivery(m, true)
		delivered = append(delivered, m)
	}
	return delivered, nil
}

func (b *Bus) directory() core.TeamDirectory {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.opts.Directory
}

func (b *Bus) logDelivery(m *core.AgentMessage, broadcast bool) {
	b.opts.Logger.Debug("message delivered",
		"type", string(m.Type), "from", m.From, "to", m.To, "broadcast", broadcast)
}

// deliver appends a copy to the recipient's mailbox and mirrors it to the store.
func (b *Bus) deliver(m *core.AgentMessage) {
	mb := b.mailbox(m.To)
	mb.mu.Lock()
	mb.messages = append(mb.messages, m)
	mb.mu.Unlock()

	if err := b.opts.Store.SaveMessage(m); err != nil {
		b.opts.Logger.Warn("store save message failed", "message_id", m.ID, "error", err)
	}
}

// mailbox returns the agent's mailbox, creating it lazily.
func (b *Bus) mailbox(agentID string) *mailbox {
	b.mu.RLock()
	mb, ok := b.mailboxes[agentID]
	b.mu.RUnlock()
	if ok {
		return mb
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if mb, ok := b.mailboxes[agentID]; ok {
		return mb
	}
	mb = &mailbox{}
	b.mailboxes[agentID] = mb
	return mb
}

// ReceiveOptions filters a Receive call. A zero value returns everything.
type ReceiveOptions struct {
	// Type restricts results to one message type when non-empty.
	Type core.MessageType
	// Limit truncates results when positive.
	Limit int
}

// Receive returns the agent's pending messages in insertion order without
// removing them. Returned messages are defensive copies.
func (b *Bus) Receive(agentID string, opts ReceiveOptions) []*core.AgentMessage {
	mb := b.mailbox(agentID)
	mb.mu.Lock()
	defer mb.mu.Unlock()

	result := make([]*core.AgentMessage, 0, len(mb.messages))
	for _, m := range mb.messages {
		if opts.Type != "" && m.Type != opts.Type {
			continue
		}
		result = append(result, m.Clone())
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result
}

// Acknowledge removes the named messages from the agent's mailbox and
// returns how many were removed. Unknown ids are ignored silently.
func (b *Bus) Acknowledge(agentID string, ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	mb := b.mailbox(agentID)
	mb.mu.Lock()
	kept := mb.messages[:0]
	var removed []string
	for _, m := range mb.messages {
		if drop[m.ID] {
			removed = append(removed, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	mb.messages = kept
	mb.mu.Unlock()

	for _, id := range removed {
		if err := b.opts.Store.DeleteMessage(agentID, id); err != nil {
			b.opts.Logger.Warn("store delete message failed", "message_id", id, "error", err)
		}
	}
	return len(removed)
}

// Reply builds and sends a response from the recipient of original back to
// its sender. The new message carries ReplyTo, a "Re: " subject prefix, and
// copies the priority and shared-context reference from the original. An
// empty msgType defaults to response.
func (b *Bus) Reply(original *core.AgentMessage, content any, msgType core.MessageType) (*core.AgentMessage, error) {
	if msgType == "" {
		msgType = core.MessageTypeResponse
	}
	delivered, err := b.Send(core.To(original.From), &core.AgentMessage{
		Type:            msgType,
		From:            original.To,
		Subject:         "Re: " + original.Subject,
		Content:         content,
		SharedContextID: original.SharedContextID,
		ReplyTo:         original.ID,
		Priority:        original.Priority,
	})
	if err != nil {
		return nil, err
	}
	return delivered[0], nil
}

// PendingCount reports how many messages are waiting for the agent.
func (b *Bus) PendingCount(agentID string) int {
	mb := b.mailbox(agentID)
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.messages)
}

// Restore replaces all mailbox contents from a snapshot. Intended for
// rehydration at startup, before the bus is shared with callers.
func (b *Bus) Restore(mailboxes map[string][]*core.AgentMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mailboxes = make(map[string]*mailbox, len(mailboxes))
	for agentID, messages := range mailboxes {
		mb := &mailbox{messages: make([]*core.AgentMessage, 0, len(messages))}
		for _, m := range messages {
			mb.messages = append(mb.messages, m.Clone())
		}
		b.mailboxes[agentID] = mb
	}
}
