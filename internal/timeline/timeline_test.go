package timeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeline_RingBufferRetainsLast100(t *testing.T) {
	tl := New()
	const n = 137
	for i := range n {
		tl.Log(Error{Desc: indexLabel(i)})
	}

	events := tl.Events()
	require.Len(t, events, EventLogCapacity)

	for i, ev := range events {
		want := indexLabel(n - EventLogCapacity + i)
		assert.Equal(t, want, ev.Kind.(Error).Desc)
	}
}

func indexLabel(i int) string {
	return string(rune('A' + (i % 26)))
}

func TestTimeline_DumpContainsBannerAndCounts(t *testing.T) {
	tl := New()
	tl.Log(ConnectAttempt{})
	tl.Log(Connected{})
	tl.Log(PollSent{})
	tl.Log(HeartbeatSent{})
	tl.Log(HeartbeatSkipped{LastActivityMS: 500})
	tl.Log(CommandSent{DpsJSON: `{"20":true}`})
	tl.Log(Error{Desc: "boom"})
	tl.Log(Timeout{Op: "poll"})
	tl.Log(Throttled{DelayedMS: 250})

	var buf bytes.Buffer
	tl.Dump(&buf, DeviceInfo{Name: "Lamp", ID: "L1", Version: "3.3"}, "test dump")

	out := buf.String()
	assert.Contains(t, out, "timeline dump: Lamp (L1) v3.3")
	assert.Contains(t, out, "reason: test dump")
	assert.Contains(t, out, "Heartbeat=2 Poll=1 Command=1 Error=1 Timeout=1 Throttled=1")
	assert.Contains(t, out, "CommandSent({\"20\":true})")
}
