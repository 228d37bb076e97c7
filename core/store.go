package core

// Store persists coordination state as a write-through side channel. The
// in-memory collections remain the source of truth for every read and every
// invariant check; implementations only need to keep a durable mirror that
// can be snapshotted back at startup.
//
// Implementations should be safe for concurrent use.
type Store interface {
	SaveMessage(m *AgentMessage) error
	DeleteMessage(agentID, messageID string) error
	SaveContext(c *SharedContext) error
	SaveDelegation(d *DelegationRequest) error
	SaveTeam(t *AgentTeam) error
	SaveLock(l *ResourceLock) error
	DeleteLock(resourceID string) error
}

// NopStore discards all writes. It is the default when no durable backend is
// configured.
type NopStore struct{}

// SaveMessage discards the message.
func (NopStore) SaveMessage(*AgentMessage) error { return nil }

// DeleteMessage is a no-op.
func (NopStore) DeleteMessage(string, string) error { return nil }

// SaveContext discards the context.
func (NopStore) SaveContext(*SharedContext) error { return nil }

// SaveDelegation discards the delegation.
func (NopStore) SaveDelegation(*DelegationRequest) error { return nil }

// SaveTeam discards the team.
func (NopStore) SaveTeam(*AgentTeam) error { return nil }

// SaveLock discards the lock.
func (NopStore) SaveLock(*ResourceLock) error { return nil }

// DeleteLock is a no-op.
func (NopStore) DeleteLock(string) error { return nil }

// Snapshot is a full dump of coordination state used to rehydrate a
// coordinator from a durable Store after a restart. Mailboxes preserve
// insertion order per agent.
type Snapshot struct {
	Mailboxes   map[string][]*AgentMessage
	Contexts    []*SharedContext
	Delegations []*DelegationRequest
	Teams       []*AgentTeam
	Locks       []*ResourceLock
}
