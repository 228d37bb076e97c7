package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge-io/agentcoord/bus"
	"github.com/agentforge-io/agentcoord/core"
)

func newRegistryWithBus() (*Registry, *bus.Bus) {
	b := bus.New()
	r := New(func(o *Options) { o.Sender = b })
	b.SetDirectory(r)
	return r, b
}

func TestCreate(t *testing.T) {
	r, b := newRegistryWithBus()

	team := r.Create("desk", "trading desk", "lead", "m1", "m2", "lead", "m1")
	assert.NotEmpty(t, team.ID)
	assert.Equal(t, "lead", team.Lead)
	assert.Equal(t, []string{"lead", "m1", "m2"}, team.Members, "lead first, duplicates removed")

	// Non-lead members are notified, the lead is not.
	assert.Equal(t, 1, b.PendingCount("m1"))
	assert.Equal(t, 1, b.PendingCount("m2"))
	assert.Equal(t, 0, b.PendingCount("lead"))
}

func TestAdd_Idempotent(t *testing.T) {
	r, b := newRegistryWithBus()
	team := r.Create("desk", "", "lead")

	updated, err := r.Add(team.ID, "m1", "lead")
	require.NoError(t, err)
	assert.True(t, updated.HasMember("m1"))
	assert.Equal(t, 1, b.PendingCount("m1"))

	// Adding again changes nothing and sends nothing.
	updated, err = r.Add(team.ID, "m1", "lead")
	require.NoError(t, err)
	assert.Len(t, updated.Members, 2)
	assert.Equal(t, 1, b.PendingCount("m1"))

	_, err = r.Add("missing", "m1", "lead")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRemove_LeadProtectedScenario(t *testing.T) {
	r, b := newRegistryWithBus()
	team := r.Create("desk", "", "L", "M1", "M2")

	// The lead can never be removed, not even by itself.
	_, err := r.Remove(team.ID, "L", "L")
	assert.ErrorIs(t, err, core.ErrInvalidOperation)

	updated, err := r.Remove(team.ID, "M1", "L")
	require.NoError(t, err)
	assert.False(t, updated.HasMember("M1"))

	assert.Empty(t, r.AgentTeams("M1"))
	require.Len(t, r.AgentTeams("M2"), 1)
	assert.Equal(t, team.ID, r.AgentTeams("M2")[0].ID)

	// The removed member is told.
	inbox := b.Receive("M1", bus.ReceiveOptions{Type: core.MessageTypeNotify})
	var sawRemoval bool
	for _, m := range inbox {
		if m.Subject == "Removed from team: desk" {
			sawRemoval = true
		}
	}
	assert.True(t, sawRemoval)
}

func TestRemove_NonMemberIsNoOp(t *testing.T) {
	r, b := newRegistryWithBus()
	team := r.Create("desk", "", "L", "M1")

	updated, err := r.Remove(team.ID, "stranger", "L")
	require.NoError(t, err)
	assert.Equal(t, []string{"L", "M1"}, updated.Members, "membership unchanged")
	assert.True(t, team.UpdatedAt.Equal(updated.UpdatedAt))

	// A non-member never hears about a removal that did not happen.
	assert.Equal(t, 0, b.PendingCount("stranger"))
}

func TestBroadcast(t *testing.T) {
	r, b := newRegistryWithBus()
	team := r.Create("desk", "", "lead", "m1", "m2")
	r.Create("other", "", "x1", "x2")

	delivered, err := r.Broadcast(team.ID, "m1", "heads up", "rotation change")
	require.NoError(t, err)
	require.Len(t, delivered, 2)

	seen := map[string]bool{}
	for _, m := range delivered {
		seen[m.To] = true
		assert.Equal(t, core.MessageTypeBroadcast, m.Type)
		assert.Equal(t, team.ID, m.Metadata["team_id"])
	}
	assert.Equal(t, map[string]bool{"lead": true, "m2": true}, seen)
	assert.Empty(t, b.Receive("m1", bus.ReceiveOptions{Type: core.MessageTypeBroadcast}), "sender excluded")
	assert.Empty(t, b.Receive("x2", bus.ReceiveOptions{Type: core.MessageTypeBroadcast}), "non-members never receive")

	_, err = r.Broadcast(team.ID, "x1", "s", nil)
	assert.ErrorIs(t, err, core.ErrAccessDenied)
	_, err = r.Broadcast("missing", "m1", "s", nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTeammates_UnionAcrossTeams(t *testing.T) {
	r, _ := newRegistryWithBus()
	r.Create("alpha", "", "alice", "bob", "carol")
	r.Create("beta", "", "dave", "alice", "carol")
	r.Create("gamma", "", "eve", "frank")

	mates := r.Teammates("alice")
	assert.ElementsMatch(t, []string{"bob", "carol", "dave"}, mates)
	assert.Empty(t, r.Teammates("nobody"))
}

func TestBusEveryoneUsesRegistry(t *testing.T) {
	r, b := newRegistryWithBus()
	r.Create("alpha", "", "alice", "bob")
	r.Create("beta", "", "carol", "alice")

	delivered, err := b.Send(core.Everyone(), &core.AgentMessage{
		Type: core.MessageTypeBroadcast, From: "alice", Subject: "to everyone",
	})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, m := range delivered {
		seen[m.To] = true
	}
	assert.Equal(t, map[string]bool{"bob": true, "carol": true}, seen)
}

func TestFromTemplate(t *testing.T) {
	r, b := newRegistryWithBus()

	team, err := r.FromTemplate("trading-desk", "", "lead-agent", map[string]string{
		"market-analyst":   "analyst-agent",
		"risk-officer":     "risk-agent",
		"execution-trader": "trader-agent",
		"unknown-role":     "ignored-agent",
	})
	require.NoError(t, err)

	assert.Equal(t, "Trading Desk", team.Name)
	assert.Equal(t, "lead-agent", team.Lead)
	assert.ElementsMatch(t, []string{"lead-agent", "analyst-agent", "risk-agent", "trader-agent"}, team.Members)
	assert.Contains(t, team.Workflows, "trade-approval")
	assert.False(t, team.HasMember("ignored-agent"), "assignments for roles outside the template are dropped")

	assert.Equal(t, 1, b.PendingCount("analyst-agent"))

	_, err = r.FromTemplate("no-such-template", "", "lead", nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAttachContext(t *testing.T) {
	r, _ := newRegistryWithBus()
	team := r.Create("desk", "", "lead")

	updated, err := r.AttachContext(team.ID, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ctx-1"}, updated.SharedContextIDs)

	updated, err = r.AttachContext(team.ID, "ctx-1")
	require.NoError(t, err)
	assert.Len(t, updated.SharedContextIDs, 1)
}

func TestRestore(t *testing.T) {
	r, _ := newRegistryWithBus()
	r.Restore([]*core.AgentTeam{{
		ID: "t1", Name: "restored", Lead: "alice", Members: []string{"alice", "bob"},
	}})
	got, err := r.Get("t1")
	require.NoError(t, err)
	assert.True(t, got.HasMember("bob"))
	assert.ElementsMatch(t, []string{"bob"}, r.Teammates("alice"))
}
