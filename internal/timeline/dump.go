package timeline

import (
	"fmt"
	"io"
	"time"
)

// DeviceInfo identifies the device a dump belongs to, for the dump banner.
type DeviceInfo struct {
	Name    string
	ID      string
	Version string
}

// Dump writes a human-targeted diagnostic report to w: a banner, every
// retained event, per-kind counts, and inter-event deltas for the most
// recent 10 entries. It is not meant to be machine-parsed.
func (t *Timeline) Dump(w io.Writer, info DeviceInfo, reason string) {
	events := t.Events()

	fmt.Fprintf(w, "==== timeline dump: %s (%s) v%s ====\n", info.Name, info.ID, info.Version)
	fmt.Fprintf(w, "reason: %s\n", reason)
	fmt.Fprintf(w, "wall time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "events: %d\n", len(events))
	fmt.Fprintln(w, "----")

	for i, ev := range events {
		fmt.Fprintf(w, "[%d] +%dms | %s | %s\n", i, ev.ElapsedMS, ev.WallTime.Format("15:04:05.000"), ev.Kind.String())
	}

	fmt.Fprintln(w, "----")
	counts := countKinds(events)
	fmt.Fprintf(w, "Heartbeat=%d Poll=%d Command=%d Error=%d Timeout=%d Throttled=%d\n",
		counts.Heartbeat, counts.Poll, counts.Command, counts.Error, counts.Timeout, counts.Throttled)

	fmt.Fprintln(w, "---- last 10 inter-event deltas ----")
	for _, line := range lastDeltas(events, 10) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "==== end timeline dump ====")
}

type kindCounts struct {
	Heartbeat, Poll, Command, Error, Timeout, Throttled int
}

func countKinds(events []Event) kindCounts {
	var c kindCounts
	for _, ev := range events {
		switch ev.Kind.(type) {
		case HeartbeatSent, HeartbeatSkipped:
			c.Heartbeat++
		case PollSent:
			c.Poll++
		case CommandSent:
			c.Command++
		case Error:
			c.Error++
		case Timeout:
			c.Timeout++
		case Throttled:
			c.Throttled++
		}
	}
	return c
}

func lastDeltas(events []Event, n int) []string {
	if len(events) < 2 {
		return nil
	}
	start := len(events) - n
	if start < 1 {
		start = 1
	}
	lines := make([]string, 0, len(events)-start)
	for i := start; i < len(events); i++ {
		delta := events[i].WallTime.Sub(events[i-1].WallTime)
		lines = append(lines, fmt.Sprintf("[%d]->[%d]: %s", i-1, i, delta))
	}
	return lines
}
