package ctxstore

import (
	"context"
	"testing"

	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/stretchr/testify/assert"
)

func TestFromAbsentScope(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "", ConversationID(context.Background()))
	assert.Equal(t, "", SessionID(context.Background()))
}

func TestWithAndFromRoundTrip(t *testing.T) {
	reg := hooks.New()
	ctx := With(context.Background(), Scope{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Hooks:          reg,
	})

	s, ok := From(ctx)
	assert.True(t, ok)
	assert.Equal(t, "conv-1", s.ConversationID)
	assert.Equal(t, "sess-1", s.SessionID)
	assert.Same(t, reg, s.Hooks)

	assert.Equal(t, "conv-1", ConversationID(ctx))
	assert.Equal(t, "sess-1", SessionID(ctx))
	assert.Same(t, reg, HooksOf(ctx))
}

func TestHooksOfReturnsFreshRegistryWithoutScope(t *testing.T) {
	r := HooksOf(context.Background())
	assert.NotNil(t, r)
}
