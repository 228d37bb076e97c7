// Package sharedctx implements the shared context store: versioned,
// access-controlled documents that teams of agents read and mutate
// collaboratively. Mutations notify the other members through the message
// bus, best-effort and not transactional with the mutation itself.
package sharedctx

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/agentforge-io/agentcoord/core"
	"github.com/agentforge-io/agentcoord/logging"
)

// Options configures a Store instance.
type Options struct {
	// Sender delivers update/share notifications. A nil sender disables
	// notifications entirely.
	Sender core.MessageSender

	// Store mirrors mutations to a durable backend. Defaults to NopStore.
	Store core.Store

	// Clock supplies LastUpdated timestamps. Defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Store holds all shared contexts. Each context carries its own mutex so
// concurrent updates to different documents never contend; the store-level
// lock only guards the context map.
type Store struct {
	opts     Options
	mu       sync.RWMutex
	contexts map[string]*entry
}

type entry struct {
	mu  sync.Mutex
	ctx *core.SharedContext
}

// New constructs a Store with optional overrides.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{
		Store:  core.NopStore{},
		Clock:  clock.New(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{opts: opts, contexts: make(map[string]*entry)}
}

// Create registers a new context owned by createdBy. The share list always
// includes the creator, with duplicates removed; the version starts at 1.
func (s *Store) Create(name, createdBy string, initialData map[string]any, sharedWith ...string) *core.SharedContext {
	data := make(map[string]any, len(initialData))
	for k, v := range initialData {
		data[k] = v
	}
	members := []string{createdBy}
	seen := map[string]bool{createdBy: true}
	for _, id := range sharedWith {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	ctx := &core.SharedContext{
		ID:          uuid.NewString(),
		Name:        name,
		Data:        data,
		CreatedBy:   createdBy,
		SharedWith:  members,
		Version:     1,
		LastUpdated: s.opts.Clock.Now(),
	}

	s.mu.Lock()
	s.contexts[ctx.ID] = &entry{ctx: ctx}
	s.mu.Unlock()

	s.persist(ctx)
	return ctx.Clone()
}

// Get returns the context for an agent on the share list. It fails with
// ErrNotFound for an unknown id and ErrAccessDenied for a non-member.
func (s *Store) Get(contextID, agentID string) (*core.SharedContext, error) {
	e, err := s.entry(contextID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ctx.IsSharedWith(agentID) {
		return nil, fmt.Errorf("%w: agent %q is not shared on context %q", core.ErrAccessDenied, agentID, contextID)
	}
	return e.ctx.Clone(), nil
}

// Update shallow-merges patch into the document, bumps the version by one
// and notifies every other member. The notification is best-effort: it
// happens after the mutation and its failure never rolls the mutation back.
func (s *Store) Update(contextID, agentID string, patch map[string]any) (*core.SharedContext, error) {
	e, err := s.entry(contextID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if !e.ctx.IsSharedWith(agentID) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: agent %q is not shared on context %q", core.ErrAccessDenied, agentID, contextID)
	}
	for k, v := range patch {
		e.ctx.Data[k] = v
	}
	e.ctx.Version++
	e.ctx.LastUpdated = s.opts.Clock.Now()
	updated := e.ctx.Clone()
	e.mu.Unlock()

	s.persist(updated)

	for _, member := range updated.SharedWith {
		if member == agentID {
			continue
		}
		s.notify(member, agentID, updated, &core.AgentMessage{
			Subject: fmt.Sprintf("Shared context updated: %s", updated.Name),
			Content: map[string]any{"patch": patch, "version": updated.Version},
		})
	}
	return updated, nil
}

// ShareWith adds agents to the share list. Only the creator may share; the
// list is additive and never revokes. Each newly added agent is notified.
func (s *Store) ShareWith(contextID, ownerAgentID string, newAgentIDs ...string) (*core.SharedContext, error) {
	e, err := s.entry(contextID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.ctx.CreatedBy != ownerAgentID {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: only creator %q may share context %q", core.ErrAccessDenied, e.ctx.CreatedBy, contextID)
	}
	var added []string
	for _, id := range newAgentIDs {
		if !e.ctx.IsSharedWith(id) {
			e.ctx.SharedWith = append(e.ctx.SharedWith, id)
			added = append(added, id)
		}
	}
	updated := e.ctx.Clone()
	e.mu.Unlock()

	s.persist(updated)

	for _, member := range added {
		s.notify(member, ownerAgentID, updated, &core.AgentMessage{
			Subject: fmt.Sprintf("Shared context shared with you: %s", updated.Name),
			Content: map[string]any{"context_name": updated.Name, "shared_by": ownerAgentID},
		})
	}
	return updated, nil
}

// Restore replaces all contexts from a snapshot. Intended for rehydration at
// startup, before the store is shared with callers.
func (s *Store) Restore(contexts []*core.SharedContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts = make(map[string]*entry, len(contexts))
	for _, c := range contexts {
		s.contexts[c.ID] = &entry{ctx: c.Clone()}
	}
}

func (s *Store) entry(contextID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.contexts[contextID]
	if !ok {
		return nil, fmt.Errorf("%w: shared context %q", core.ErrNotFound, contextID)
	}
	return e, nil
}

func (s *Store) persist(ctx *core.SharedContext) {
	if err := s.opts.Store.SaveContext(ctx); err != nil {
		s.opts.Logger.Warn("store save context failed", "context_id", ctx.ID, "error", err)
	}
}

func (s *Store) notify(to, from string, ctx *core.SharedContext, msg *core.AgentMessage) {
	if s.opts.Sender == nil {
		return
	}
	msg.Type = core.MessageTypeNotify
	msg.From = from
	msg.SharedContextID = ctx.ID
	if _, err := s.opts.Sender.Send(core.To(to), msg); err != nil {
		s.opts.Logger.Warn("context notification failed", "context_id", ctx.ID, "to", to, "error", err)
	}
}
