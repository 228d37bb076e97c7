// Package lock implements TTL-lease mutual exclusion over shared resources.
// Acquire is an atomic check-and-install: a fresh lease is written only if
// no unexpired lease held by another agent exists. Expiry is lazy: leases
// are reaped on access, never by a background sweep, so a lapsed lease can
// never produce a false "still locked" result.
package lock

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/agentforge-io/agentcoord/core"
	"github.com/agentforge-io/agentcoord/logging"
)

// Options configures a Manager instance.
type Options struct {
	// Store mirrors lease changes to a durable backend. Defaults to NopStore.
	Store core.Store

	// Clock supplies lease timestamps and expiry checks. Defaults to the
	// wall clock.
	Clock clock.Clock

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Manager arbitrates exclusive access to resources. A single mutex guards
// the lease table; every check-and-install happens inside one critical
// section so two racing acquirers can never both observe "unlocked".
type Manager struct {
	opts  Options
	mu    sync.Mutex
	locks map[string]*core.ResourceLock
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
	return &Manager{opts: opts, locks: make(map[string]*core.ResourceLock)}
}

// Acquire attempts to take a lease on the resource for ttl. It returns nil
// when an unexpired lease held by a different agent exists; that is an
// expected outcome, not an error, and retry policy belongs to the caller. The
// current holder always succeeds: re-acquisition renews the lease from this call's
// time, replacing the previous expiry rather than extending it.
func (m *Manager) Acquire(resourceID, resourceType, agentID string, ttl time.Duration, reason string) *core.ResourceLock {
	now := m.opts.Clock.Now()

	m.mu.Lock()
	if existing, ok := m.locks[resourceID]; ok && !existing.Expired(now) && existing.LockedBy != agentID {
		m.mu.Unlock()
		m.opts.Logger.Debug("lease contended",
			"resource_id", resourceID, "requested_by", agentID, "held_by", existing.LockedBy)
		return nil
	}
	lease := &core.ResourceLock{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		LockedBy:     agentID,
		LockedAt:     now,
		ExpiresAt:    now.Add(ttl),
		Reason:       reason,
	}
	m.locks[resourceID] = lease
	m.mu.Unlock()

	m.persistSave(lease)
	m.opts.Logger.Debug("lease acquired",
		"resource_id", resourceID, "agent_id", agentID, "expires_at", lease.ExpiresAt)
	return lease.Clone()
}

// Release removes the lease if it is currently held by agentID and reports
// whether anything was released.
func (m *Manager) Release(resourceID, agentID string) bool {
	m.mu.Lock()
	existing, ok := m.locks[resourceID]
	if !ok || existing.LockedBy != agentID {
		m.mu.Unlock()
		return false
	}
	delete(m.locks, resourceID)
	m.mu.Unlock()

	m.persistDelete(resourceID)
	m.opts.Logger.Debug("lease released", "resource_id", resourceID, "agent_id", agentID)
	return true
}

// ReleaseAll removes every lease held by the agent and returns the released
// resource ids. Useful when an agent shuts down or is evicted.
func (m *Manager) ReleaseAll(agentID string) []string {
	m.mu.Lock()
	var released []string
	for resourceID, lease := range m.locks {
		if lease.LockedBy == agentID {
			delete(m.locks, resourceID)
			released = append(released, resourceID)
		}
	}
	m.mu.Unlock()

	for _, resourceID := range released {
		m.persistDelete(resourceID)
	}
	return released
}

// HeldLock returns the current unexpired lease on the resource, or nil when
// the resource is unlocked. A lapsed lease found here is deleted on the spot:
// lazy read-time expiry is the source of truth.
func (m *Manager) HeldLock(resourceID string) *core.ResourceLock {
	now := m.opts.Clock.Now()

	m.mu.Lock()
	existing, ok := m.locks[resourceID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if existing.Expired(now) {
		delete(m.locks, resourceID)
		m.mu.Unlock()
		m.persistDelete(resourceID)
		m.opts.Logger.Debug("lease expired", "resource_id", resourceID, "held_by", existing.LockedBy)
		return nil
	}
	lease := existing.Clone()
	m.mu.Unlock()
	return lease
}

// IsLocked reports whether an unexpired lease exists on the resource.
func (m *Manager) IsLocked(resourceID string) bool {
	return m.HeldLock(resourceID) != nil
}

// Restore replaces all leases from a snapshot. Intended for rehydration at
// startup, before the manager is shared with callers. Expired leases in the
// snapshot are dropped on their next read.
func (m *Manager) Restore(locks []*core.ResourceLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = make(map[string]*core.ResourceLock, len(locks))
	for _, l := range locks {
		m.locks[l.ResourceID] = l.Clone()
	}
}

func (m *Manager) persistSave(lease *core.ResourceLock) {
	if err := m.opts.Store.SaveLock(lease); err != nil {
		m.opts.Logger.Warn("store save lock failed", "resource_id", lease.ResourceID, "error", err)
	}
}

func (m *Manager) persistDelete(resourceID string) {
	if err := m.opts.Store.DeleteLock(resourceID); err != nil {
		m.opts.Logger.Warn("store delete lock failed", "resource_id", resourceID, "error", err)
	}
}
