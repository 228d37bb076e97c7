package core

import "time"

// ResourceLock is a TTL lease granting one agent exclusive access to a
// resource. Expiry is enforced lazily: a lock past ExpiresAt is treated as
// absent by every read and may be reclaimed by any agent.
type ResourceLock struct {
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	LockedBy     string    `json:"locked_by"`
	LockedAt     time.Time `json:"locked_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Reason       string    `json:"reason,omitempty"`
}

// Expired reports whether the lease has lapsed at the given instant.
func (l *ResourceLock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Clone returns a copy of the lock.
func (l *ResourceLock) Clone() *ResourceLock {
	clone := *l
	return &clone
}
