package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/cagentcore/pkg/chat"
)

func TestConversationBroadcastDeliversToSubscribers(t *testing.T) {
	c := NewConversation("conv1")
	ch, unsubscribe := c.subscribe()
	defer unsubscribe()

	c.EmitMessageAdded(chat.NewUserMessage("hi"))

	select {
	case data := <-ch:
		var e map[string]any
		require.NoError(t, json.Unmarshal(data, &e))
		assert.Equal(t, "message_added", e["type"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}

func TestConversationUnsubscribeClosesChannel(t *testing.T) {
	c := NewConversation("conv1")
	ch, unsubscribe := c.subscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
}

func TestConversationBroadcastDropsForSlowSubscriber(t *testing.T) {
	c := NewConversation("conv1")
	ch, unsubscribe := c.subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		c.EmitInterrupted()
	}

	assert.LessOrEqual(t, len(ch), subscriberBuffer)
}

func TestConversationNewHasIndependentHookRegistries(t *testing.T) {
	a := NewConversation("a")
	b := NewConversation("b")
	assert.NotSame(t, a.Hooks, b.Hooks)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}
