package cacheaware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidateIncrementsCountAndResetsCounters(t *testing.T) {
	s := New()
	s.RecordTurn(100)
	s.RecordTurn(50)
	require.Equal(t, 2, s.Snapshot().TurnsSinceInvalidation)

	before, after := 1000, 200
	s.Invalidate("compact", &before, &after, time.Unix(1000, 0))

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.InvalidationCount)
	assert.Equal(t, 0, snap.TurnsSinceInvalidation)
	assert.Equal(t, 0, snap.TokensSinceInvalidation)
	assert.Equal(t, "compact", snap.LastInvalidationReason)
	assert.Equal(t, 1000, *snap.TokensBeforeInvalidation)
	assert.Equal(t, 200, *snap.TokensAfterInvalidation)
}

func TestSubscribersEachInvokedExactlyOnce(t *testing.T) {
	s := New()
	calls := 0
	var lastReason string
	s.Subscribe(func(st State) {
		calls++
		lastReason = st.LastInvalidationReason
	})
	s.Subscribe(func(st State) { calls++ })

	s.Invalidate("edit", nil, nil, time.Now())
	assert.Equal(t, 2, calls)
	assert.Equal(t, "edit", lastReason)

	s.Invalidate("compact", nil, nil, time.Now())
	assert.Equal(t, 4, calls)
}

func TestSecondInvalidateIncrementsAgain(t *testing.T) {
	s := New()
	s.Invalidate("a", nil, nil, time.Now())
	s.Invalidate("b", nil, nil, time.Now())
	assert.Equal(t, 2, s.Snapshot().InvalidationCount)
}
