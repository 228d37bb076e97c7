package delegation

import (
	"fmt"
	"time"

	"github.com/agentforge-io/agentcoord/core"
)

// ExpireOverdue rejects every pending delegation whose deadline has passed
// and notifies the delegator with a status message. It returns the expired
// delegations. Deadlines are otherwise pure data: no core operation consults
// them, and nothing runs this unless the caller opts in here or via
// StartDeadlineSweep.
func (m *Manager) ExpireOverdue() []*core.DelegationRequest {
	now := m.opts.Clock.Now()

	m.mu.RLock()
	entries := make([]*entry, 0, len(m.delegations))
	for _, e := range m.delegations {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var expired []*core.DelegationRequest
	for _, e := range entries {
		e.mu.Lock()
		d := e.d
		if d.Status != core.DelegationPending || d.Deadline == nil || now.Before(*d.Deadline) {
			e.mu.Unlock()
			continue
		}
		d.Status = core.DelegationRejected
		updated := d.Clone()
		e.mu.Unlock()

		m.persist(updated)
		m.opts.Logger.Info("delegation expired", "delegation_id", updated.ID, "deadline", updated.Deadline)

		m.send(updated.From, updated.To, updated.Priority, &core.AgentMessage{
			Type:    core.MessageTypeStatus,
			Subject: fmt.Sprintf("Delegation rejected: %s", updated.TaskType),
			Content: map[string]any{
				"delegation_id": updated.ID,
				"status":        string(core.DelegationRejected),
				"reason":        "deadline passed",
			},
		})
		expired = append(expired, updated)
	}
	return expired
}

// StartDeadlineSweep runs ExpireOverdue every interval until
// StopDeadlineSweep is called. Starting an already running sweep is a no-op.
func (m *Manager) StartDeadlineSweep(interval time.Duration) {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	if m.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	m.sweepStop = stop
	m.sweepDone = done

	ticker := m.opts.Clock.Ticker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.ExpireOverdue()
			case <-stop:
				return
			}
		}
	}()
}

// StopDeadlineSweep halts the sweep goroutine and waits for it to exit.
// Stopping a sweep that was never started is a no-op.
func (m *Manager) StopDeadlineSweep() {
	m.sweepMu.Lock()
	stop, done := m.sweepStop, m.sweepDone
	m.sweepStop, m.sweepDone = nil, nil
	m.sweepMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
