// Package core provides the foundational domain types and interfaces shared
// by the coordination subsystems. It defines:
//
//   - AgentMessage and the Recipient variant (unicast vs broadcast addressing)
//   - SharedContext (versioned, access-controlled collaborative documents)
//   - DelegationRequest and its status transition table
//   - AgentTeam and TeamTemplate (membership groups and static role templates)
//   - ResourceLock (TTL leases for exclusive resource access)
//   - Pluggable persistence (Store) and cross-subsystem wiring interfaces
//     (MessageSender, TeamDirectory)
//
// The package intentionally keeps implementation concerns (mailbox storage,
// lock arbitration, durable backends) out of scope, exposing small interfaces
// so the subsystem packages can be wired together without import cycles.
package core
