package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_LatestWins(t *testing.T) {
	w := NewWatch[int]()
	w.Set(1)
	w.Set(2)
	w.Set(3)

	v, ok := w.Next()
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = w.Next()
	assert.False(t, ok, "second Next with no new Set should report no value")
}

func TestWatch_ChangedSignalsOnce(t *testing.T) {
	w := NewWatch[string]()
	w.Set("a")

	select {
	case <-w.Changed():
	case <-time.After(time.Second):
		t.Fatal("expected Changed to fire after Set")
	}

	select {
	case <-w.Changed():
		t.Fatal("Changed should not fire again without another Set")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatch_ZeroValueBeforeAnySet(t *testing.T) {
	w := NewWatch[int]()
	_, ok := w.Next()
	assert.False(t, ok)
}
