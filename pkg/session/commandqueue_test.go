package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_Throttles(t *testing.T) {
	s := newTestSession(newFakeLink(), newFakeBus())
	ctx := context.Background()

	require.NoError(t, s.dispatch(ctx, command{kind: cmdSetValues}))
	t1 := time.Now()
	require.NoError(t, s.dispatch(ctx, command{kind: cmdSetValues}))
	t2 := time.Now()

	assert.Greater(t, t2.Sub(t1), 900*time.Millisecond)
}

func TestDispatch_HeartbeatSkipsWithinWindow(t *testing.T) {
	link := newFakeLink()
	s := newTestSession(link, newFakeBus())
	ctx := context.Background()

	require.NoError(t, s.dispatch(ctx, command{kind: cmdSetValues}))
	require.NoError(t, s.dispatch(ctx, command{kind: cmdHeartbeat}))

	assert.Equal(t, 1, len(link.setCalls))
	assert.Equal(t, 0, link.heartbeatCount())
}

func TestDispatch_PollReachesLink(t *testing.T) {
	link := newFakeLink()
	s := newTestSession(link, newFakeBus())

	require.NoError(t, s.dispatch(context.Background(), command{kind: cmdPoll}))
	assert.Equal(t, 1, link.getCount())
}
