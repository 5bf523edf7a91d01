package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
)

func TestBusForwarder_EncodesAndEnqueues(t *testing.T) {
	fb := newFakeBus()
	s := newTestSession(newFakeLink(), fb)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.runBusForwarder(ctx) }()

	brightness := 0.5
	fb.DeviceCommands(s.device.ID).Set(dpcodec.LampState{
		ID:         s.device.ID,
		Brightness: &brightness,
	})

	var cmd command
	select {
	case cmd = <-s.commands:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded command")
	}
	cancel()
	<-done

	assert.Equal(t, cmdSetValues, cmd.kind)
	v, ok := cmd.dps.Get(dpcodec.BrightnessDPID)
	require.True(t, ok)
	assert.EqualValues(t, 505, v)
}
