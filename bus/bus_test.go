package bus

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge-io/agentcoord/core"
)

// staticDirectory resolves teammates from a fixed map.
type staticDirectory struct {
	teammates map[string][]string
}

func (d *staticDirectory) Teammates(agentID string) []string {
	return d.teammates[agentID]
}

func TestSend_Unicast(t *testing.T) {
	mock := clock.NewMock()
	b := New(func(o *Options) { o.Clock = mock })

	delivered, err := b.Send(core.To("bob"), &core.AgentMessage{
		Type:    core.MessageTypeRequest,
		From:    "alice",
		Subject: "hello",
		Content: "hi bob",
	})
	require.NoError(t, err)
	require.Len(t, delivered, 1)

	m := delivered[0]
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "bob", m.To)
	assert.Equal(t, mock.Now(), m.Timestamp)
	assert.Equal(t, core.PriorityNormal, m.Priority)

	inbox := b.Receive("bob", ReceiveOptions{})
	require.Len(t, inbox, 1)
	assert.Equal(t, m.ID, inbox[0].ID)
}

func TestSend_UnknownRecipientCreatesMailbox(t *testing.T) {
	b := New()
	_, err := b.Send(core.To("nobody-yet"), &core.AgentMessage{Type: core.MessageTypeNotify, From: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, b.PendingCount("nobody-yet"))
}

func TestSend_BroadcastResolvesAcrossTeams(t *testing.T) {
	dir := &staticDirectory{teammates: map[string][]string{
		"alice": {"bob", "carol", "dave"},
	}}
	b := New(func(o *Options) { o.Directory = dir })

	delivered, err := b.Send(core.Everyone(), &core.AgentMessage{
		Type:    core.MessageTypeBroadcast,
		From:    "alice",
		Subject: "standup",
	})
	require.NoError(t, err)
	require.Len(t, delivered, 3)

	seen := map[string]bool{}
	ids := map[string]bool{}
	for _, m := range delivered {
		seen[m.To] = true
		ids[m.ID] = true
		assert.NotEqual(t, "all", m.To)
	}
	assert.Equal(t, map[string]bool{"bob": true, "carol": true, "dave": true}, seen)
	assert.Len(t, ids, 3, "each copy gets its own id")
	assert.Equal(t, 0, b.PendingCount("alice"), "sender never receives its own broadcast")
}

func TestSend_BroadcastWithoutDirectory(t *testing.T) {
	b := New()
	delivered, err := b.Send(core.Everyone(), &core.AgentMessage{Type: core.MessageTypeBroadcast, From: "loner"})
	require.NoError(t, err)
	assert.Empty(t, delivered)
}

func TestReceive_FilterAndLimit(t *testing.T) {
	b := New()
	for i := 0; i < 3; i++ {
		_, err := b.Send(core.To("bob"), &core.AgentMessage{Type: core.MessageTypeNotify, From: "a"})
		require.NoError(t, err)
	}
	_, err := b.Send(core.To("bob"), &core.AgentMessage{Type: core.MessageTypeRequest, From: "a"})
	require.NoError(t, err)

	assert.Len(t, b.Receive("bob", ReceiveOptions{}), 4)
	assert.Len(t, b.Receive("bob", ReceiveOptions{Type: core.MessageTypeNotify}), 3)
	assert.Len(t, b.Receive("bob", ReceiveOptions{Type: core.MessageTypeRequest}), 1)
	assert.Len(t, b.Receive("bob", ReceiveOptions{Limit: 2}), 2)
	assert.Len(t, b.Receive("bob", ReceiveOptions{Type: core.MessageTypeNotify, Limit: 2}), 2)

	// Receive is non-destructive.
	assert.Equal(t, 4, b.PendingCount("bob"))
}

func TestReceive_PreservesInsertionOrder(t *testing.T) {
	b := New()
	subjects := []string{"first", "second", "third"}
	for _, s := range subjects {
		_, err := b.Send(core.To("bob"), &core.AgentMessage{Type: core.MessageTypeNotify, From: "a", Subject: s})
		require.NoError(t, err)
	}
	inbox := b.Receive("bob", ReceiveOptions{})
	require.Len(t, inbox, 3)
	for i, s := range subjects {
		assert.Equal(t, s, inbox[i].Subject)
	}
}

func TestAcknowledge(t *testing.T) {
	b := New()
	first, err := b.Send(core.To("bob"), &core.AgentMessage{Type: core.MessageTypeNotify, From: "a"})
	require.NoError(t, err)
	_, err = b.Send(core.To("bob"), &core.AgentMessage{Type: core.MessageTypeNotify, From: "a"})
	require.NoError(t, err)

	removed := b.Acknowledge("bob", first[0].ID, "no-such-id")
	assert.Equal(t, 1, removed, "unknown ids are ignored silently")
	assert.Equal(t, 1, b.PendingCount("bob"))

	assert.Equal(t, 0, b.Acknowledge("bob"))
}

func TestReply(t *testing.T) {
	b := New()
	delivered, err := b.Send(core.To("bob"), &core.AgentMessage{
		Type:            core.MessageTypeRequest,
		From:            "alice",
		Subject:         "report",
		Priority:        core.PriorityHigh,
		SharedContextID: "ctx-1",
	})
	require.NoError(t, err)
	original := delivered[0]

	reply, err := b.Reply(original, "done", "")
	require.NoError(t, err)

	assert.Equal(t, "alice", reply.To)
	assert.Equal(t, "bob", reply.From)
	assert.Equal(t, core.MessageTypeResponse, reply.Type)
	assert.Equal(t, "Re: report", reply.Subject)
	assert.Equal(t, original.ID, reply.ReplyTo)
	assert.Equal(t, core.PriorityHigh, reply.Priority)
	assert.Equal(t, "ctx-1", reply.SharedContextID)

	inbox := b.Receive("alice", ReceiveOptions{})
	require.Len(t, inbox, 1)
	assert.Equal(t, reply.ID, inbox[0].ID)
}

func TestReceive_ReturnsCopies(t *testing.T) {
	b := New()
	_, err := b.Send(core.To("bob"), &core.AgentMessage{
		Type: core.MessageTypeNotify, From: "a",
		Metadata: map[string]any{"k": "v"},
	})
	require.NoError(t, err)

	inbox := b.Receive("bob", ReceiveOptions{})
	inbox[0].Metadata["k"] = "mutated"
	inbox[0].Subject = "mutated"

	again := b.Receive("bob", ReceiveOptions{})
	assert.Equal(t, "v", again[0].Metadata["k"])
	assert.Empty(t, again[0].Subject)
}

func TestRestore(t *testing.T) {
	b := New()
	b.Restore(map[string][]*core.AgentMessage{
		"bob": {
			{ID: "m1", Type: core.MessageTypeNotify, From: "a", To: "bob"},
			{ID: "m2", Type: core.MessageTypeRequest, From: "a", To: "bob"},
		},
	})
	inbox := b.Receive("bob", ReceiveOptions{})
	require.Len(t, inbox, 2)
	assert.Equal(t, "m1", inbox[0].ID)
	assert.Equal(t, "m2", inbox[1].ID)
}
