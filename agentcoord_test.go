package agentcoord_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentcoord "github.com/agentforge-io/agentcoord"
	"github.com/agentforge-io/agentcoord/bus"
	"github.com/agentforge-io/agentcoord/core"
	"github.com/agentforge-io/agentcoord/delegation"
	"github.com/agentforge-io/agentcoord/internal/testutil"
)

func TestCoordinationWorkflow(t *testing.T) {
	coord := agentcoord.New()

	// A desk team is assembled from a template.
	team, err := coord.CreateTeamFromTemplate("trading-desk", "", "lead", map[string]string{
		"market-analyst": "analyst",
		"risk-officer":   "risk",
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"lead", "analyst", "risk"}, team.Members)

	// The lead shares a working context with the whole team.
	ctx := coord.CreateSharedContext("morning-plan", "lead", map[string]any{"focus": "rates"})
	_, err = coord.ShareContextWithTeam(ctx.ID, "lead", team.ID)
	require.NoError(t, err)

	got, err := coord.SharedContext(ctx.ID, "analyst")
	require.NoError(t, err)
	assert.Equal(t, "rates", got.Data["focus"])

	updatedTeam, err := coord.Team(team.ID)
	require.NoError(t, err)
	assert.Contains(t, updatedTeam.SharedContextIDs, ctx.ID)

	// An update notifies the other members.
	_, err = coord.UpdateSharedContext(ctx.ID, "analyst", map[string]any{"signal": "steepener"})
	require.NoError(t, err)
	leadNotifies := coord.Messages("lead", bus.ReceiveOptions{Type: core.MessageTypeNotify})
	var sawUpdate bool
	for _, m := range leadNotifies {
		if m.SharedContextID == ctx.ID && m.From == "analyst" {
			sawUpdate = true
		}
	}
	assert.True(t, sawUpdate)

	// The lead delegates, the analyst accepts and completes.
	d, err := coord.DelegateTask("lead", "analyst", "signal-review", map[string]any{"signal": "steepener"}, "needs a second pair of eyes")
	require.NoError(t, err)

	_, err = coord.AcceptDelegation(d.ID, "risk")
	assert.ErrorIs(t, err, core.ErrAccessDenied)

	_, err = coord.AcceptDelegation(d.ID, "analyst")
	require.NoError(t, err)
	done, err := coord.CompleteDelegation(d.ID, "analyst", map[string]any{"verdict": "approved"})
	require.NoError(t, err)
	assert.Equal(t, core.DelegationCompleted, done.Status)

	outgoing := coord.AgentDelegations("lead", delegation.DirectionOutgoing)
	require.Len(t, outgoing, 1)
	assert.Equal(t, core.DelegationCompleted, outgoing[0].Status)

	// The lead reads the completion response and acknowledges it.
	responses := coord.Messages("lead", bus.ReceiveOptions{Type: core.MessageTypeResponse})
	require.Len(t, responses, 1)
	assert.Equal(t, 1, coord.AcknowledgeMessages("lead", responses[0].ID))
	assert.Empty(t, coord.Messages("lead", bus.ReceiveOptions{Type: core.MessageTypeResponse}))

	// The risk officer broadcasts to the team.
	delivered, err := coord.BroadcastToTeam(team.ID, "risk", "limit update", "gross limit unchanged")
	require.NoError(t, err)
	assert.Len(t, delivered, 2)

	// Exclusive access to the trade blotter.
	lease := coord.AcquireLock("blotter", "document", "analyst", time.Minute, "posting fills")
	require.NotNil(t, lease)
	assert.Nil(t, coord.AcquireLock("blotter", "document", "risk", time.Minute, ""))
	assert.True(t, coord.ReleaseLock("blotter", "analyst"))
	assert.NotNil(t, coord.AcquireLock("blotter", "document", "risk", time.Minute, ""))

	assert.ElementsMatch(t, []string{"blotter"}, coord.ReleaseAllLocks("risk"))
	assert.False(t, coord.IsLocked("blotter"))
}

func TestSendAndReplyThroughFacade(t *testing.T) {
	coord := agentcoord.New()
	coord.CreateTeam("alpha", "", "alice", "bob", "carol")

	msg := testutil.NewMessageBuilder().
		Type(core.MessageTypeRequest).
		From("alice").
		Subject("status?").
		Content("daily check-in").
		Priority(core.PriorityHigh).
		Build()

	delivered, err := coord.SendMessage(core.To("bob"), msg)
	require.NoError(t, err)
	require.Len(t, delivered, 1)

	reply, err := coord.ReplyToMessage(delivered[0], "all green", "")
	require.NoError(t, err)
	assert.Equal(t, "Re: status?", reply.Subject)
	assert.Equal(t, core.PriorityHigh, reply.Priority)

	// Everyone() fans out across the sender's teams.
	all, err := coord.SendMessage(core.Everyone(), testutil.NewMessageBuilder().
		Type(core.MessageTypeBroadcast).From("alice").Subject("announcement").Build())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSimulatedTimeThroughFacade(t *testing.T) {
	mock := clock.NewMock()
	coord := agentcoord.New(func(o *agentcoord.Options) { o.Clock = mock })

	require.NotNil(t, coord.AcquireLock("doc-1", "document", "agentA", 60*time.Second, ""))
	held := coord.HeldLock("doc-1")
	require.NotNil(t, held)
	assert.Equal(t, "agentA", held.LockedBy)

	mock.Add(61 * time.Second)
	assert.Nil(t, coord.HeldLock("doc-1"))
	assert.NotNil(t, coord.AcquireLock("doc-1", "document", "agentB", 60*time.Second, ""))
}

func TestOpenRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coord.db")

	coord, store, err := agentcoord.Open(path)
	require.NoError(t, err)

	team := coord.CreateTeam("alpha", "persisted", "alice", "bob")
	ctx := coord.CreateSharedContext("plan", "alice", map[string]any{"k": "v"}, "bob")
	_, err = coord.UpdateSharedContext(ctx.ID, "bob", map[string]any{"k2": "v2"})
	require.NoError(t, err)
	d, err := coord.DelegateTask("alice", "bob", "research", nil, "")
	require.NoError(t, err)
	_, err = coord.AcceptDelegation(d.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, coord.AcquireLock("doc-1", "document", "alice", time.Hour, ""))
	require.NoError(t, store.Close())

	reopened, store2, err := agentcoord.Open(path)
	require.NoError(t, err)
	defer store2.Close()

	restoredTeam, err := reopened.Team(team.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, restoredTeam.Members)

	restoredCtx, err := reopened.SharedContext(ctx.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, restoredCtx.Version)
	assert.Equal(t, "v2", restoredCtx.Data["k2"])

	incoming := reopened.AgentDelegations("bob", delegation.DirectionIncoming)
	require.Len(t, incoming, 1)
	assert.Equal(t, core.DelegationAccepted, incoming[0].Status)

	// Mailboxes survive, including the delegation notification.
	assert.NotEmpty(t, reopened.Messages("bob", bus.ReceiveOptions{Type: core.MessageTypeDelegate}))

	held := reopened.HeldLock("doc-1")
	require.NotNil(t, held)
	assert.Equal(t, "alice", held.LockedBy)

	// State transitions keep working against the restored instance.
	_, err = reopened.CompleteDelegation(incoming[0].ID, "bob", "done")
	require.NoError(t, err)
}

func TestTeamTemplatesExposed(t *testing.T) {
	coord := agentcoord.New()
	templates := coord.TeamTemplates()
	require.NotEmpty(t, templates)

	ids := make([]string, 0, len(templates))
	for _, tpl := range templates {
		ids = append(ids, tpl.ID)
	}
	assert.Contains(t, ids, "trading-desk")
}
