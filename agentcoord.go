// Package agentcoord provides a high-level façade over the multi-agent
// coordination subsystems: the message bus, shared context store, delegation
// manager, team registry and resource lock manager. Most applications
// interact with this package by:
//  1. Creating a Coordinator via New() (optionally overriding the clock,
//     logger, template catalog or durable store)
//  2. Calling the coordination operations synchronously from agent runtime
//     code, identified by caller-supplied opaque agent ids
//
// The façade wires the subsystems together: the team registry resolves bus
// broadcasts, and context/delegation/team mutations fan notifications out
// through the bus, while every collection stays independently locked.
// All defaults are safe for local development and testing; production
// deployments typically supply a durable store (see Open) and a structured
// logger.
package agentcoord

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/agentforge-io/agentcoord/bus"
	"github.com/agentforge-io/agentcoord/core"
	"github.com/agentforge-io/agentcoord/delegation"
	"github.com/agentforge-io/agentcoord/lock"
	"github.com/agentforge-io/agentcoord/logging"
	"github.com/agentforge-io/agentcoord/sharedctx"
	"github.com/agentforge-io/agentcoord/sqlite"
	"github.com/agentforge-io/agentcoord/team"
)

// Options configures the Coordinator instance.
type Options struct {
	// Store mirrors state changes to a durable backend. Defaults to NopStore;
	// see Open for the SQLite-backed path.
	Store core.Store

	// Clock supplies every timestamp and expiry check. Defaults to the wall
	// clock; tests inject a mock to simulate time.
	Clock clock.Clock

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Catalog supplies team templates. Defaults to the built-in catalog.
	Catalog *team.Catalog
}

// Coordinator is the façade aggregating the five coordination subsystems.
// Construct one instance and pass it by reference to every call site;
// separate instances are fully isolated, which is what tests rely on.
type Coordinator struct {
	opts        Options
	bus         *bus.Bus
	contexts    *sharedctx.Store
	delegations *delegation.Manager
	teams       *team.Registry
	locks       *lock.Manager
}

// New creates a Coordinator with optional overrides. Any unset dependency is
// initialized with its in-process default.
func New(optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Store:  core.NopStore{},
		Clock:  clock.New(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	b := bus.New(func(o *bus.Options) {
		o.Store = opts.Store
		o.Clock = opts.Clock
		o.Logger = opts.Logger
	})
	teams := team.New(func(o *team.Options) {
		o.Sender = b
		o.Store = opts.Store
		o.Catalog = opts.Catalog
		o.Clock = opts.Clock
		o.Logger = opts.Logger
	})
	// Bus broadcasts resolve through the registry; wired after both exist.
	b.SetDirectory(teams)

	contexts := sharedctx.New(func(o *sharedctx.Options) {
		o.Sender = b
		o.Store = opts.Store
		o.Clock = opts.Clock
		o.Logger = opts.Logger
	})
	delegations := delegation.New(func(o *delegation.Options) {
		o.Sender = b
		o.Store = opts.Store
		o.Clock = opts.Clock
		o.Logger = opts.Logger
	})
	locks := lock.New(func(o *lock.Options) {
		o.Store = opts.Store
		o.Clock = opts.Clock
		o.Logger = opts.Logger
	})

	return &Coordinator{
		opts:        opts,
		bus:         b,
		contexts:    contexts,
		delegations: delegations,
		teams:       teams,
		locks:       locks,
	}
}

// Open creates a Coordinator backed by a SQLite database at path, restoring
// any previously mirrored state. The returned store is owned by the
// coordinator's lifetime; callers that need to close it explicitly can keep
// the second return value.
func Open(path string, optFns ...func(o *Options)) (*Coordinator, *sqlite.Store, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}
	snap, err := store.Snapshot()
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("restore coordination state: %w", err)
	}

	c := New(append([]func(o *Options){func(o *Options) { o.Store = store }}, optFns...)...)
	c.Restore(snap)
	return c, store, nil
}

// Restore replaces all in-memory state from a snapshot. Intended for
// startup, before the coordinator is shared with callers.
func (c *Coordinator) Restore(snap *core.Snapshot) {
	c.bus.Restore(snap.Mailboxes)
	c.contexts.Restore(snap.Contexts)
	c.delegations.Restore(snap.Delegations)
	c.teams.Restore(snap.Teams)
	c.locks.Restore(snap.Locks)
}

// Bus returns the underlying message bus.
func (c *Coordinator) Bus() *bus.Bus { return c.bus }

// Delegations returns the underlying delegation manager, exposing the
// opt-in deadline sweep.
func (c *Coordinator) Delegations() *delegation.Manager { return c.delegations }

// ---- Message Bus ----

// SendMessage delivers a message to a single agent or to all teammates of
// the sender (core.Everyone()) and returns the delivered copies.
func (c *Coordinator) SendMessage(to core.Recipient, msg *core.AgentMessage) ([]*core.AgentMessage, error) {
	return c.bus.Send(to, msg)
}

// Messages returns the agent's pending messages without removing them.
func (c *Coordinator) Messages(agentID string, opts bus.ReceiveOptions) []*core.AgentMessage {
	return c.bus.Receive(agentID, opts)
}

// AcknowledgeMessages removes the named messages from the agent's mailbox
// and returns how many were removed. Unknown ids are ignored.
func (c *Coordinator) AcknowledgeMessages(agentID string, ids ...string) int {
	return c.bus.Acknowledge(agentID, ids...)
}

// ReplyToMessage builds and sends a reply from the recipient of original
// back to its sender.
func (c *Coordinator) ReplyToMessage(original *core.AgentMessage, content any, msgType core.MessageType) (*core.AgentMessage, error) {
	return c.bus.Reply(original, content, msgType)
}

// ---- Shared Context ----

// CreateSharedContext registers a new versioned document owned by createdBy.
func (c *Coordinator) CreateSharedContext(name, createdBy string, initialData map[string]any, sharedWith ...string) *core.SharedContext {
	return c.contexts.Create(name, createdBy, initialData, sharedWith...)
}

// SharedContext reads a context on behalf of agentID.
func (c *Coordinator) SharedContext(contextID, agentID string) (*core.SharedContext, error) {
	return c.contexts.Get(contextID, agentID)
}

// UpdateSharedContext shallow-merges patch into the document, bumping the
// version and notifying the other members.
func (c *Coordinator) UpdateSharedContext(contextID, agentID string, patch map[string]any) (*core.SharedContext, error) {
	return c.contexts.Update(contextID, agentID, patch)
}

// ShareContext adds agents to the context's share list; creator only.
func (c *Coordinator) ShareContext(contextID, ownerAgentID string, newAgentIDs ...string) (*core.SharedContext, error) {
	return c.contexts.ShareWith(contextID, ownerAgentID, newAgentIDs...)
}

// ShareContextWithTeam shares a context with every member of a team and
// records the context id on the team. Creator only; membership is read at
// call time, so agents joining later still need an explicit share.
func (c *Coordinator) ShareContextWithTeam(contextID, ownerAgentID, teamID string) (*core.SharedContext, error) {
	t, err := c.teams.Get(teamID)
	if err != nil {
		return nil, err
	}
	ctx, err := c.contexts.ShareWith(contextID, ownerAgentID, t.Members...)
	if err != nil {
		return nil, err
	}
	if _, err := c.teams.AttachContext(teamID, contextID); err != nil {
		return nil, err
	}
	return ctx, nil
}

// ---- Delegation ----

// DelegateTask creates a pending delegation and notifies the delegatee.
func (c *Coordinator) DelegateTask(from, to, taskType string, input any, reason string, optFns ...func(o *delegation.DelegateOptions)) (*core.DelegationRequest, error) {
	return c.delegations.Delegate(from, to, taskType, input, reason, optFns...)
}

// AcceptDelegation moves a pending delegation to accepted; delegatee only.
func (c *Coordinator) AcceptDelegation(delegationID, agentID string) (*core.DelegationRequest, error) {
	return c.delegations.Accept(delegationID, agentID)
}

// RejectDelegation moves a pending delegation to rejected; delegatee only.
func (c *Coordinator) RejectDelegation(delegationID, agentID, reason string) (*core.DelegationRequest, error) {
	return c.delegations.Reject(delegationID, agentID, reason)
}

// CompleteDelegation moves an accepted delegation to completed with a
// result; delegatee only.
func (c *Coordinator) CompleteDelegation(delegationID, agentID string, result any) (*core.DelegationRequest, error) {
	return c.delegations.Complete(delegationID, agentID, result)
}

// AgentDelegations returns the agent's delegations filtered by direction.
func (c *Coordinator) AgentDelegations(agentID string, direction delegation.Direction) []*core.DelegationRequest {
	return c.delegations.Delegations(agentID, direction)
}

// ---- Team Registry ----

// CreateTeam registers a team led by lead; every other member is notified.
func (c *Coordinator) CreateTeam(name, description, lead string, members ...string) *core.AgentTeam {
	return c.teams.Create(name, description, lead, members...)
}

// CreateTeamFromTemplate builds a team from a catalog template, mapping
// template roles to agent ids.
func (c *Coordinator) CreateTeamFromTemplate(templateID, name, lead string, assignments map[string]string) (*core.AgentTeam, error) {
	return c.teams.FromTemplate(templateID, name, lead, assignments)
}

// Team returns a team by id.
func (c *Coordinator) Team(teamID string) (*core.AgentTeam, error) {
	return c.teams.Get(teamID)
}

// AddToTeam puts an agent on the team; idempotent.
func (c *Coordinator) AddToTeam(teamID, agentID, addedBy string) (*core.AgentTeam, error) {
	return c.teams.Add(teamID, agentID, addedBy)
}

// RemoveFromTeam takes an agent off the team. The lead cannot be removed.
func (c *Coordinator) RemoveFromTeam(teamID, agentID, removedBy string) (*core.AgentTeam, error) {
	return c.teams.Remove(teamID, agentID, removedBy)
}

// BroadcastToTeam sends a broadcast to every other member of one team;
// members only.
func (c *Coordinator) BroadcastToTeam(teamID, from, subject string, content any) ([]*core.AgentMessage, error) {
	return c.teams.Broadcast(teamID, from, subject, content)
}

// AgentTeams returns every team the agent belongs to.
func (c *Coordinator) AgentTeams(agentID string) []*core.AgentTeam {
	return c.teams.AgentTeams(agentID)
}

// TeamTemplates lists the catalog's templates.
func (c *Coordinator) TeamTemplates() []*core.TeamTemplate {
	return c.teams.Templates()
}

// ---- Resource Locks ----

// AcquireLock takes a TTL lease on a resource. It returns nil when the
// resource is held by a different agent; the current holder renews.
func (c *Coordinator) AcquireLock(resourceID, resourceType, agentID string, ttl time.Duration, reason string) *core.ResourceLock {
	return c.locks.Acquire(resourceID, resourceType, agentID, ttl, reason)
}

// ReleaseLock releases a lease held by agentID and reports whether anything
// was released.
func (c *Coordinator) ReleaseLock(resourceID, agentID string) bool {
	return c.locks.Release(resourceID, agentID)
}

// ReleaseAllLocks releases every lease held by the agent.
func (c *Coordinator) ReleaseAllLocks(agentID string) []string {
	return c.locks.ReleaseAll(agentID)
}

// HeldLock returns the unexpired lease on a resource, or nil when unlocked.
func (c *Coordinator) HeldLock(resourceID string) *core.ResourceLock {
	return c.locks.HeldLock(resourceID)
}

// IsLocked reports whether an unexpired lease exists on the resource.
func (c *Coordinator) IsLocked(resourceID string) bool {
	return c.locks.IsLocked(resourceID)
}
