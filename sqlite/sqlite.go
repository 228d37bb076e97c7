// Package sqlite provides a durable core.Store backend. The in-memory
// managers stay the source of truth; this store keeps a write-through mirror
// of coordination state and can snapshot it back for rehydration after a
// restart.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentforge-io/agentcoord/core"
)

// Compile-time assertion.
var _ core.Store = (*Store)(nil)

// Store implements core.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database and runs migrations. Use
// ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("coord store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("coord store: wal: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			seq               INTEGER PRIMARY KEY AUTOINCREMENT,
			id                TEXT NOT NULL UNIQUE,
			agent_id          TEXT NOT NULL,
			type              TEXT NOT NULL,
			from_agent        TEXT NOT NULL,
			to_agent          TEXT NOT NULL,
			subject           TEXT NOT NULL DEFAULT '',
			content           TEXT NOT NULL DEFAULT 'null',
			shared_context_id TEXT NOT NULL DEFAULT '',
			reply_to          TEXT NOT NULL DEFAULT '',
			priority          TEXT NOT NULL DEFAULT 'normal',
			timestamp         TEXT NOT NULL,
			expires_at        TEXT,
			metadata          TEXT NOT NULL DEFAULT 'null'
		);

		CREATE TABLE IF NOT EXISTS contexts (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			data         TEXT NOT NULL DEFAULT '{}',
			created_by   TEXT NOT NULL,
			shared_with  TEXT NOT NULL DEFAULT '[]',
			version      INTEGER NOT NULL,
			last_updated TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS delegations (
			id           TEXT PRIMARY KEY,
			from_agent   TEXT NOT NULL,
			to_agent     TEXT NOT NULL,
			task_type    TEXT NOT NULL,
			task_input   TEXT NOT NULL DEFAULT 'null',
			reason       TEXT NOT NULL DEFAULT '',
			priority     TEXT NOT NULL DEFAULT 'normal',
			deadline     TEXT,
			status       TEXT NOT NULL,
			result       TEXT NOT NULL DEFAULT 'null',
			created_at   TEXT NOT NULL,
			completed_at TEXT
		);

		CREATE TABLE IF NOT EXISTS teams (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			lead               TEXT NOT NULL,
			members            TEXT NOT NULL DEFAULT '[]',
			shared_context_ids TEXT NOT NULL DEFAULT '[]',
			workflows          TEXT NOT NULL DEFAULT '[]',
			created_at         TEXT NOT NULL,
			updated_at         TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS locks (
			resource_id   TEXT PRIMARY KEY,
			resource_type TEXT NOT NULL,
			locked_by     TEXT NOT NULL,
			locked_at     TEXT NOT NULL,
			expires_at    TEXT NOT NULL,
			reason        TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_messages_agent ON messages(agent_id);
		CREATE INDEX IF NOT EXISTS idx_delegations_from ON delegations(from_agent);
		CREATE INDEX IF NOT EXISTS idx_delegations_to ON delegations(to_agent);
	`)
	if err != nil {
		return fmt.Errorf("coord store: migrate: %w", err)
	}
	return nil
}

// SaveMessage mirrors a delivered message. An unencodable payload fails here
// rather than writing a row Snapshot could never read back.
func (s *Store) SaveMessage(m *core.AgentMessage) error {
	content, err := encodeJSON(m.Content)
	if err != nil {
		return fmt.Errorf("coord store: message %q content: %w", m.ID, err)
	}
	metadata, err := encodeJSON(m.Metadata)
	if err != nil {
		return fmt.Errorf("coord store: message %q metadata: %w", m.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO messages (id, agent_id, type, from_agent, to_agent, subject, content, shared_context_id, reply_to, priority, timestamp, expires_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, m.ID, m.To, string(m.Type), m.From, m.To, m.Subject, content,
		m.SharedContextID, m.ReplyTo, string(m.Priority), formatTime(m.Timestamp),
		formatTimePtr(m.ExpiresAt), metadata)
	if err != nil {
		return fmt.Errorf("coord store: save message: %w", err)
	}
	return nil
}

// DeleteMessage removes an acknowledged message.
func (s *Store) DeleteMessage(agentID, messageID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE agent_id = ? AND id = ?`, agentID, messageID)
	if err != nil {
		return fmt.Errorf("coord store: delete message: %w", err)
	}
	return nil
}

// SaveContext mirrors a shared context.
func (s *Store) SaveContext(c *core.SharedContext) error {
	data, err := encodeJSON(c.Data)
	if err != nil {
		return fmt.Errorf("coord store: context %q data: %w", c.ID, err)
	}
	sharedWith, err := encodeJSON(c.SharedWith)
	if err != nil {
		return fmt.Errorf("coord store: context %q shared_with: %w", c.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO contexts (id, name, data, created_by, shared_with, version, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, data=excluded.data, shared_with=excluded.shared_with,
			version=excluded.version, last_updated=excluded.last_updated
	`, c.ID, c.Name, data, c.CreatedBy, sharedWith, c.Version, formatTime(c.LastUpdated))
	if err != nil {
		return fmt.Errorf("coord store: save context: %w", err)
	}
	return nil
}

// SaveDelegation mirrors a delegation request.
func (s *Store) SaveDelegation(d *core.DelegationRequest) error {
	taskInput, err := encodeJSON(d.TaskInput)
	if err != nil {
		return fmt.Errorf("coord store: delegation %q task_input: %w", d.ID, err)
	}
	result, err := encodeJSON(d.Result)
	if err != nil {
		return fmt.Errorf("coord store: delegation %q result: %w", d.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO delegations (id, from_agent, to_agent, task_type, task_input, reason, priority, deadline, status, result, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, result=excluded.result, completed_at=excluded.completed_at
	`, d.ID, d.From, d.To, d.TaskType, taskInput, d.Reason, string(d.Priority),
		formatTimePtr(d.Deadline), string(d.Status), result,
		formatTime(d.CreatedAt), formatTimePtr(d.CompletedAt))
	if err != nil {
		return fmt.Errorf("coord store: save delegation: %w", err)
	}
	return nil
}

// SaveTeam mirrors a team.
func (s *Store) SaveTeam(t *core.AgentTeam) error {
	members, err := encodeJSON(t.Members)
	if err != nil {
		return fmt.Errorf("coord store: team %q members: %w", t.ID, err)
	}
	contextIDs, err := encodeJSON(t.SharedContextIDs)
	if err != nil {
		return fmt.Errorf("coord store: team %q shared_context_ids: %w", t.ID, err)
	}
	workflows, err := encodeJSON(t.Workflows)
	if err != nil {
		return fmt.Errorf("coord store: team %q workflows: %w", t.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO teams (id, name, description, lead, members, shared_context_ids, workflows, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description, members=excluded.members,
			shared_context_ids=excluded.shared_context_ids, workflows=excluded.workflows,
			updated_at=excluded.updated_at
	`, t.ID, t.Name, t.Description, t.Lead, members, contextIDs,
		workflows, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("coord store: save team: %w", err)
	}
	return nil
}

// SaveLock mirrors a lease.
func (s *Store) SaveLock(l *core.ResourceLock) error {
	_, err := s.db.Exec(`
		INSERT INTO locks (resource_id, resource_type, locked_by, locked_at, expires_at, reason)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(resource_id) DO UPDATE SET
			resource_type=excluded.resource_type, locked_by=excluded.locked_by,
			locked_at=excluded.locked_at, expires_at=excluded.expires_at, reason=excluded.reason
	`, l.ResourceID, l.ResourceType, l.LockedBy, formatTime(l.LockedAt), formatTime(l.ExpiresAt), l.Reason)
	if err != nil {
		return fmt.Errorf("coord store: save lock: %w", err)
	}
	return nil
}

// DeleteLock removes a released or expired lease.
func (s *Store) DeleteLock(resourceID string) error {
	_, err := s.db.Exec(`DELETE FROM locks WHERE resource_id = ?`, resourceID)
	if err != nil {
		return fmt.Errorf("coord store: delete lock: %w", err)
	}
	return nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339Nano)
	return &v
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func parseTimePtr(v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := parseTime(*v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
