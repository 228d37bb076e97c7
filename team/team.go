// Package team implements the team registry: membership groups used for
// broadcast fan-out and delegation/context convenience flows, plus the
// static template catalog for constructing teams from predefined role sets.
package team

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/agentforge-io/agentcoord/core"
	"github.com/agentforge-io/agentcoord/logging"
)

// Compile-time assertion: the registry resolves bus broadcasts.
var _ core.TeamDirectory = (*Registry)(nil)

// Options configures a Registry instance.
type Options struct {
	// Sender delivers membership and broadcast messages. A nil sender
	// disables notifications.
	Sender core.MessageSender

	// Store mirrors team changes to a durable backend. Defaults to NopStore.
	Store core.Store

	// Catalog supplies templates for FromTemplate. Defaults to the built-in
	// catalog.
	Catalog *Catalog

	// Clock supplies timestamps. Defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Registry holds all teams. Each team carries its own mutex so membership
// changes on different teams never contend.
type Registry struct {
	opts  Options
	mu    sync.RWMutex
	teams map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	team *core.AgentTeam
}

// New constructs a Registry with optional overrides.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Store:  core.NopStore{},
		Clock:  clock.New(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Catalog == nil {
		opts.Catalog = BuiltinCatalog()
	}
	return &Registry{opts: opts, teams: make(map[string]*entry)}
}

// Create registers a new team. The member set is the lead plus members with
// duplicates removed; every non-lead member is notified.
func (r *Registry) Create(name, description, lead string, members ...string) *core.AgentTeam {
	now := r.opts.Clock.Now()
	set := []string{lead}
	seen := map[string]bool{lead: true}
	for _, id := range members {
		if !seen[id] {
			seen[id] = true
			set = append(set, id)
		}
	}

	team := &core.AgentTeam{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Lead:        lead,
		Members:     set,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.teams[team.ID] = &entry{team: team}
	r.mu.Unlock()

	r.persist(team)
	r.opts.Logger.Info("team created", "team_id", team.ID, "name", name, "lead", lead, "members", len(set))

	for _, member := range set {
		if member == lead {
			continue
		}
		r.notify(member, lead, team, fmt.Sprintf("Added to team: %s", name),
			map[string]any{"team_name": name, "lead": lead})
	}
	return team.Clone()
}

// FromTemplate builds a team from a catalog template, mapping each template
// role to a concrete agent id. Roles without an assignment are skipped; role
// names are not validated against any schema. The template's workflows carry
// over to the team.
func (r *Registry) FromTemplate(templateID, name, lead string, assignments map[string]string) (*core.AgentTeam, error) {
	tpl, err := r.opts.Catalog.Get(templateID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = tpl.Name
	}

	var members []string
	for _, role := range tpl.Roles {
		if agentID, ok := assignments[role.Role]; ok {
			members = append(members, agentID)
		}
	}

	team := r.Create(name, tpl.Description, lead, members...)

	e, err := r.entry(team.ID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.team.Workflows = append([]string(nil), tpl.Workflows...)
	updated := e.team.Clone()
	e.mu.Unlock()

	r.persist(updated)
	return updated, nil
}

// Get returns a team by id.
func (r *Registry) Get(teamID string) (*core.AgentTeam, error) {
	e, err := r.entry(teamID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.team.Clone(), nil
}

// Add puts an agent on the team. Adding an existing member is a no-op; a new
// member is notified.
func (r *Registry) Add(teamID, agentID, addedBy string) (*core.AgentTeam, error) {
	e, err := r.entry(teamID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.team.HasMember(agentID) {
		team := e.team.Clone()
		e.mu.Unlock()
		return team, nil
	}
	e.team.Members = append(e.team.Members, agentID)
	e.team.UpdatedAt = r.opts.Clock.Now()
	updated := e.team.Clone()
	e.mu.Unlock()

	r.persist(updated)
	r.notify(agentID, addedBy, updated, fmt.Sprintf("Added to team: %s", updated.Name),
		map[string]any{"team_name": updated.Name, "added_by": addedBy})
	return updated, nil
}

// Remove takes an agent off the team and notifies it. The lead can never be
// removed; removing a non-member is a no-op. Team deletion is not part of
// this subsystem.
func (r *Registry) Remove(teamID, agentID, removedBy string) (*core.AgentTeam, error) {
	e, err := r.entry(teamID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if agentID == e.team.Lead {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot remove lead %q from team %q", core.ErrInvalidOperation, agentID, teamID)
	}
	if !e.team.HasMember(agentID) {
		team := e.team.Clone()
		e.mu.Unlock()
		return team, nil
	}
	members := e.team.Members[:0]
	for _, id := range e.team.Members {
		if id != agentID {
			members = append(members, id)
		}
	}
	e.team.Members = members
	e.team.UpdatedAt = r.opts.Clock.Now()
	updated := e.team.Clone()
	e.mu.Unlock()

	r.persist(updated)
	r.notify(agentID, removedBy, updated, fmt.Sprintf("Removed from team: %s", updated.Name),
		map[string]any{"team_name": updated.Name, "removed_by": removedBy})
	return updated, nil
}

// Broadcast sends a broadcast message to every team member except the
// sender. Only members may broadcast. The delivered copies carry the team id
// in metadata; this path is scoped to one team, unlike the bus's Everyone()
// recipient which unions across all of the sender's teams.
func (r *Registry) Broadcast(teamID, from, subject string, content any) ([]*core.AgentMessage, error) {
	e, err := r.entry(teamID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if !e.team.HasMember(from) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: agent %q is not a member of team %q", core.ErrAccessDenied, from, teamID)
	}
	team := e.team.Clone()
	e.mu.Unlock()

	if r.opts.Sender == nil {
		return nil, nil
	}
	var delivered []*core.AgentMessage
	for _, member := range team.Members {
		if member == from {
			continue
		}
		sent, err := r.opts.Sender.Send(core.To(member), &core.AgentMessage{
			Type:     core.MessageTypeBroadcast,
			From:     from,
			Subject:  subject,
			Content:  content,
			Metadata: map[string]any{"team_id": team.ID},
		})
		if err != nil {
			r.opts.Logger.Warn("team broadcast delivery failed", "team_id", team.ID, "to", member, "error", err)
			continue
		}
		delivered = append(delivered, sent...)
	}
	return delivered, nil
}

// AgentTeams returns every team the agent belongs to.
func (r *Registry) AgentTeams(agentID string) []*core.AgentTeam {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.teams))
	for _, e := range r.teams {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var result []*core.AgentTeam
	for _, e := range entries {
		e.mu.Lock()
		if e.team.HasMember(agentID) {
			result = append(result, e.team.Clone())
		}
		e.mu.Unlock()
	}
	return result
}

// Teammates implements core.TeamDirectory: the union of all other members
// across every team the agent belongs to, deduplicated.
func (r *Registry) Teammates(agentID string) []string {
	var result []string
	seen := map[string]bool{agentID: true}
	for _, team := range r.AgentTeams(agentID) {
		for _, member := range team.Members {
			if !seen[member] {
				seen[member] = true
				result = append(result, member)
			}
		}
	}
	return result
}

// Templates lists the registry's catalog.
func (r *Registry) Templates() []*core.TeamTemplate {
	return r.opts.Catalog.List()
}

// AttachContext records a shared context id on the team.
func (r *Registry) AttachContext(teamID, contextID string) (*core.AgentTeam, error) {
	e, err := r.entry(teamID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	for _, id := range e.team.SharedContextIDs {
		if id == contextID {
			team := e.team.Clone()
			e.mu.Unlock()
			return team, nil
		}
	}
	e.team.SharedContextIDs = append(e.team.SharedContextIDs, contextID)
	e.team.UpdatedAt = r.opts.Clock.Now()
	updated := e.team.Clone()
	e.mu.Unlock()

	r.persist(updated)
	return updated, nil
}

// Restore replaces all teams from a snapshot. Intended for rehydration at
// startup, before the registry is shared with callers.
func (r *Registry) Restore(teams []*core.AgentTeam) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams = make(map[string]*entry, len(teams))
	for _, t := range teams {
		r.teams[t.ID] = &entry{team: t.Clone()}
	}
}

func (r *Registry) entry(teamID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("%w: team %q", core.ErrNotFound, teamID)
	}
	return e, nil
}

func (r *Registry) persist(team *core.AgentTeam) {
	if err := r.opts.Store.SaveTeam(team); err != nil {
		r.opts.Logger.Warn("store save team failed", "team_id", team.ID, "error", err)
	}
}

func (r *Registry) notify(to, from string, team *core.AgentTeam, subject string, content map[string]any) {
	if r.opts.Sender == nil {
		return
	}
	_, err := r.opts.Sender.Send(core.To(to), &core.AgentMessage{
		Type:     core.MessageTypeNotify,
		From:     from,
		Subject:  subject,
		Content:  content,
		Metadata: map[string]any{"team_id": team.ID},
	})
	if err != nil {
		r.opts.Logger.Warn("team notification failed", "team_id", team.ID, "to", to, "error", err)
	}
}
