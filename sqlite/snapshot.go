package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/agentforge-io/agentcoord/core"
)

// Snapshot reads the full mirrored state back for rehydration. Mailboxes
// come back in their original insertion order.
func (s *Store) Snapshot() (*core.Snapshot, error) {
	snap := &core.Snapshot{Mailboxes: map[string][]*core.AgentMessage{}}

	if err := s.loadMessages(snap); err != nil {
		return nil, err
	}
	if err := s.loadContexts(snap); err != nil {
		return nil, err
	}
	if err := s.loadDelegations(snap); err != nil {
		return nil, err
	}
	if err := s.loadTeams(snap); err != nil {
		return nil, err
	}
	if err := s.loadLocks(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadMessages(snap *core.Snapshot) error {
	rows, err := s.db.Query(`
		SELECT id, agent_id, type, from_agent, to_agent, subject, content, shared_context_id, reply_to, priority, timestamp, expires_at, metadata
		FROM messages ORDER BY seq
	`)
	if err != nil {
		return fmt.Errorf("coord store: load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m                          core.AgentMessage
			agentID, msgType, priority string
			content, metadata, ts      string
			expiresAt                  *string
		)
		if err := rows.Scan(&m.ID, &agentID, &msgType, &m.From, &m.To, &m.Subject,
			&content, &m.SharedContextID, &m.ReplyTo, &priority, &ts, &expiresAt, &metadata); err != nil {
			return fmt.Errorf("coord store: scan message: %w", err)
		}
		m.Type = core.MessageType(msgType)
		m.Priority = core.Priority(priority)
		if m.Timestamp, err = parseTime(ts); err != nil {
			return fmt.Errorf("coord store: message %q timestamp: %w", m.ID, err)
		}
		if m.ExpiresAt, err = parseTimePtr(expiresAt); err != nil {
			return fmt.Errorf("coord store: message %q expires_at: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
			return fmt.Errorf("coord store: message %q content: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
			return fmt.Errorf("coord store: message %q metadata: %w", m.ID, err)
		}
		snap.Mailboxes[agentID] = append(snap.Mailboxes[agentID], &m)
	}
	return rows.Err()
}

func (s *Store) loadContexts(snap *core.Snapshot) error {
	rows, err := s.db.Query(`SELECT id, name, data, created_by, shared_with, version, last_updated FROM contexts`)
	if err != nil {
		return fmt.Errorf("coord store: load contexts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                    core.SharedContext
			data, sharedWith, ts string
		)
		if err := rows.Scan(&c.ID, &c.Name, &data, &c.CreatedBy, &sharedWith, &c.Version, &ts); err != nil {
			return fmt.Errorf("coord store: scan context: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &c.Data); err != nil {
			return fmt.Errorf("coord store: context %q data: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(sharedWith), &c.SharedWith); err != nil {
			return fmt.Errorf("coord store: context %q shared_with: %w", c.ID, err)
		}
		if c.LastUpdated, err = parseTime(ts); err != nil {
			return fmt.Errorf("coord store: context %q last_updated: %w", c.ID, err)
		}
		snap.Contexts = append(snap.Contexts, &c)
	}
	return rows.Err()
}

func (s *Store) loadDelegations(snap *core.Snapshot) error {
	rows, err := s.db.Query(`
		SELECT id, from_agent, to_agent, task_type, task_input, reason, priority, deadline, status, result, created_at, completed_at
		FROM delegations
	`)
	if err != nil {
		return fmt.Errorf("coord store: load delegations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d                           core.DelegationRequest
			taskInput, result, priority string
			status, createdAt           string
			deadline, completedAt       *string
		)
		if err := rows.Scan(&d.ID, &d.From, &d.To, &d.TaskType, &taskInput, &d.Reason,
			&priority, &deadline, &status, &result, &createdAt, &completedAt); err != nil {
			return fmt.Errorf("coord store: scan delegation: %w", err)
		}
		d.Priority = core.Priority(priority)
		d.Status = core.DelegationStatus(status)
		if err := json.Unmarshal([]byte(taskInput), &d.TaskInput); err != nil {
			return fmt.Errorf("coord store: delegation %q task_input: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(result), &d.Result); err != nil {
			return fmt.Errorf("coord store: delegation %q result: %w", d.ID, err)
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("coord store: delegation %q created_at: %w", d.ID, err)
		}
		if d.Deadline, err = parseTimePtr(deadline); err != nil {
			return fmt.Errorf("coord store: delegation %q deadline: %w", d.ID, err)
		}
		if d.CompletedAt, err = parseTimePtr(completedAt); err != nil {
			return fmt.Errorf("coord store: delegation %q completed_at: %w", d.ID, err)
		}
		snap.Delegations = append(snap.Delegations, &d)
	}
	return rows.Err()
}

func (s *Store) loadTeams(snap *core.Snapshot) error {
	rows, err := s.db.Query(`SELECT id, name, description, lead, members, shared_context_ids, workflows, created_at, updated_at FROM teams`)
	if err != nil {
		return fmt.Errorf("coord store: load teams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                              core.AgentTeam
			members, contextIDs, workflows string
			createdAt, updatedAt           string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Lead, &members,
			&contextIDs, &workflows, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("coord store: scan team: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &t.Members); err != nil {
			return fmt.Errorf("coord store: team %q members: %w", t.ID, err)
		}
		if err := json.Unmarshal([]byte(contextIDs), &t.SharedContextIDs); err != nil {
			return fmt.Errorf("coord store: team %q shared_context_ids: %w", t.ID, err)
		}
		if err := json.Unmarshal([]byte(workflows), &t.Workflows); err != nil {
			return fmt.Errorf("coord store: team %q workflows: %w", t.ID, err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("coord store: team %q created_at: %w", t.ID, err)
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return fmt.Errorf("coord store: team %q updated_at: %w", t.ID, err)
		}
		snap.Teams = append(snap.Teams, &t)
	}
	return rows.Err()
}

func (s *Store) loadLocks(snap *core.Snapshot) error {
	rows, err := s.db.Query(`SELECT resource_id, resource_type, locked_by, locked_at, expires_at, reason FROM locks`)
	if err != nil {
		return fmt.Errorf("coord store: load locks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l                   core.ResourceLock
			lockedAt, expiresAt string
		)
		if err := rows.Scan(&l.ResourceID, &l.ResourceType, &l.LockedBy, &lockedAt, &expiresAt, &l.Reason); err != nil {
			return fmt.Errorf("coord store: scan lock: %w", err)
		}
		if l.LockedAt, err = parseTime(lockedAt); err != nil {
			return fmt.Errorf("coord store: lock %q locked_at: %w", l.ResourceID, err)
		}
		if l.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return fmt.Errorf("coord store: lock %q expires_at: %w", l.ResourceID, err)
		}
		snap.Locks = append(snap.Locks, &l)
	}
	return rows.Err()
}
