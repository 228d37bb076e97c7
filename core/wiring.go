package core

// MessageSender enqueues messages into recipient mailboxes. The bus is the
// canonical implementation; the context store, delegation manager and team
// registry depend on this interface for their notification fan-out so the
// packages stay cycle-free.
//
// Send assigns the message id and timestamp, resolves the recipient (a
// broadcast expands into one rewritten unicast copy per resolved agent) and
// returns the delivered copies. Sending to an unknown agent id is not an
// error; the mailbox is created lazily.
type MessageSender interface {
	Send(to Recipient, msg *AgentMessage) ([]*AgentMessage, error)
}

// TeamDirectory resolves broadcast recipients. Teammates returns the union
// of all other members across every team the agent belongs to, without the
// agent itself and without duplicates.
type TeamDirectory interface {
	Teammates(agentID string) []string
}
