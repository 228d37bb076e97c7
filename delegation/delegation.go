// Package delegation implements the task-handoff state machine. A
// delegation starts pending, is accepted or rejected by the delegatee, and
// an accepted delegation is completed with a result. Every transition is
// owned by the delegatee and reported back to the delegator through the
// message bus.
package delegation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/agentforge-io/agentcoord/core"
	"github.com/agentforge-io/agentcoord/logging"
)

// Direction selects which side of a delegation an agent query matches.
type Direction string

const (
	// DirectionIncoming matches delegations addressed to the agent.
	DirectionIncoming Direction = "incoming"
	// DirectionOutgoing matches delegations created by the agent.
	DirectionOutgoing Direction = "outgoing"
	// DirectionBoth matches either side.
	DirectionBoth Direction = "both"
)

// Options configures a Manager instance.
type Options struct {
	// Sender delivers delegate/status/response messages. A nil sender
	// disables notifications.
	Sender core.MessageSender

	// Store mirrors transitions to a durable backend. Defaults to NopStore.
	Store core.Store

	// Clock supplies timestamps and drives the optional deadline sweep.
	// Defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Manager holds all delegation requests. Each delegation carries its own
// mutex so transitions on different delegations never contend.
type Manager struct {
	opts        Options
	mu          sync.RWMutex
	delegations map[string]*entry

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}
}

type entry struct {
	mu sync.Mutex
	d  *core.DelegationRequest
}

// New constructs a Manager with optional overrides.
func New(optFns ...func(o *Options)) *Manager {
	opts := Options{
		Store:  core.NopStore{},
		Clock:  clock.New(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{opts: opts, delegations: make(map[string]*entry)}
}

// DelegateOptions carries the optional fields of a new delegation.
type DelegateOptions struct {
	// Priority defaults to normal.
	Priority core.Priority
	// Deadline is stored as data; no core operation enforces it. The
	// opt-in deadline sweep (StartDeadlineSweep) is the only consumer.
	Deadline *time.Time
}

// Delegate creates a pending request from one agent to another and sends a
// delegate message to the delegatee.
func (m *Manager) Delegate(from, to, taskType string, input any, reason string, optFns ...func(o *DelegateOptions)) (*core.DelegationRequest, error) {
	dopts := DelegateOptions{Priority: core.PriorityNormal}
	for _, fn := range optFns {
		fn(&dopts)
	}
	if dopts.Priority == "" {
		dopts.Priority = core.PriorityNormal
	}

	d := &core.DelegationRequest{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		TaskType:  taskType,
		TaskInput: input,
		Reason:    reason,
		Priority:  dopts.Priority,
		Deadline:  dopts.Deadline,
		Status:    core.DelegationPending,
		CreatedAt: m.opts.Clock.Now(),
	}

	m.mu.Lock()
	m.delegations[d.ID] = &entry{d: d}
	m.mu.Unlock()

	m.persist(d)
	m.opts.Logger.Info("delegation created", "delegation_id", d.ID, "from", from, "to", to, "task_type", taskType)

	m.send(to, from, d.Priority, &core.AgentMessage{
		Type:    core.MessageTypeDelegate,
		Subject: fmt.Sprintf("Task delegation: %s", taskType),
		Content: map[string]any{
			"delegation_id": d.ID,
			"task_type":     taskType,
			"task_input":    input,
			"reason":        reason,
		},
	})
	return d.Clone(), nil
}

// Accept moves a pending delegation to accepted. Only the delegatee may
// accept; the delegator receives a status message.
func (m *Manager) Accept(delegationID, agentID string) (*core.DelegationRequest, error) {
	return m.transition(delegationID, agentID, core.DelegationAccepted, nil)
}

// Reject moves a pending delegation to rejected. Only the delegatee may
// reject; the reason travels in the status message to the delegator.
func (m *Manager) Reject(delegationID, agentID, reason string) (*core.DelegationRequest, error) {
	return m.transition(delegationID, agentID, core.DelegationRejected, map[string]any{"reason": reason})
}

// Complete moves an accepted delegation to completed, storing the result and
// completion time. Only the delegatee may complete, and only from accepted:
// a pending or rejected delegation cannot be completed. The delegator
// receives a response message carrying the result.
func (m *Manager) Complete(delegationID, agentID string, result any) (*core.DelegationRequest, error) {
	e, err := m.entry(delegationID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	d := e.d
	if d.To != agentID {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: agent %q is not the delegatee of %q", core.ErrAccessDenied, agentID, delegationID)
	}
	if !d.Status.CanTransition(core.DelegationCompleted) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: delegation %q is %s, not accepted", core.ErrInvalidOperation, delegationID, d.Status)
	}
	now := m.opts.Clock.Now()
	d.Status = core.DelegationCompleted
	d.Result = result
	d.CompletedAt = &now
	updated := d.Clone()
	e.mu.Unlock()

	m.persist(updated)
	m.opts.Logger.Info("delegation completed", "delegation_id", updated.ID, "by", agentID)

	m.send(updated.From, updated.To, updated.Priority, &core.AgentMessage{
		Type:    core.MessageTypeResponse,
		Subject: fmt.Sprintf("Task completed: %s", updated.TaskType),
		Content: map[string]any{"delegation_id": updated.ID, "result": result},
	})
	return updated, nil
}

// Delegations returns the agent's delegations filtered by direction, oldest
// first. Returned requests are defensive copies.
func (m *Manager) Delegations(agentID string, direction Direction) []*core.DelegationRequest {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.delegations))
	for _, e := range m.delegations {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var result []*core.DelegationRequest
	for _, e := range entries {
		e.mu.Lock()
		d := e.d
		match := false
		switch direction {
		case DirectionIncoming:
			match = d.To == agentID
		case DirectionOutgoing:
			match = d.From == agentID
		default:
			match = d.To == agentID || d.From == agentID
		}
		if match {
			result = append(result, d.Clone())
		}
		e.mu.Unlock()
	}

	sortByCreatedAt(result)
	return result
}

// Get returns a single delegation by id.
func (m *Manager) Get(delegationID string) (*core.DelegationRequest, error) {
	e, err := m.entry(delegationID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.d.Clone(), nil
}

// Restore replaces all delegations from a snapshot. Intended for rehydration
// at startup, before the manager is shared with callers.
func (m *Manager) Restore(delegations []*core.DelegationRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegations = make(map[string]*entry, len(delegations))
	for _, d := range delegations {
		m.delegations[d.ID] = &entry{d: d.Clone()}
	}
}

// transition applies a delegatee-owned status change and sends the status
// message back to the delegator, merging extra into the message content.
func (m *Manager) transition(delegationID, agentID string, next core.DelegationStatus, extra map[string]any) (*core.DelegationRequest, error) {
	e, err := m.entry(delegationID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	d := e.d
	if d.To != agentID {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: agent %q is not the delegatee of %q", core.ErrAccessDenied, agentID, delegationID)
	}
	if !d.Status.CanTransition(next) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: delegation %q cannot move from %s to %s", core.ErrInvalidOperation, delegationID, d.Status, next)
	}
	d.Status = next
	updated := d.Clone()
	e.mu.Unlock()

	m.persist(updated)
	m.opts.Logger.Info("delegation "+string(next), "delegation_id", updated.ID, "by", agentID)

	content := map[string]any{"delegation_id": updated.ID, "status": string(next)}
	for k, v := range extra {
		content[k] = v
	}
	m.send(updated.From, updated.To, updated.Priority, &core.AgentMessage{
		Type:    core.MessageTypeStatus,
		Subject: fmt.Sprintf("Delegation %s: %s", next, updated.TaskType),
		Content: content,
	})
	return updated, nil
}

func (m *Manager) entry(delegationID string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.delegations[delegationID]
	if !ok {
		return nil, fmt.Errorf("%w: delegation %q", core.ErrNotFound, delegationID)
	}
	return e, nil
}

func (m *Manager) persist(d *core.DelegationRequest) {
	if err := m.opts.Store.SaveDelegation(d); err != nil {
		m.opts.Logger.Warn("store save delegation failed", "delegation_id", d.ID, "error", err)
	}
}

func (m *Manager) send(to, from string, priority core.Priority, msg *core.AgentMessage) {
	if m.opts.Sender == nil {
		return
	}
	msg.From = from
	msg.Priority = priority
	if _, err := m.opts.Sender.Send(core.To(to), msg); err != nil {
		m.opts.Logger.Warn("delegation notification failed", "to", to, "error", err)
	}
}

func sortByCreatedAt(ds []*core.DelegationRequest) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].CreatedAt.Before(ds[j].CreatedAt) })
}
