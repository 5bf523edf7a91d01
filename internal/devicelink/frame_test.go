package devicelink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := frame{Sequence: 7, Command: cmdDpQuery, Payload: []byte("hello world")}
	wire := f.marshalBinary()

	got, consumed, err := unmarshalFrame(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), consumed)
	assert.Equal(t, f.Sequence, got.Sequence)
	assert.Equal(t, f.Command, got.Command)
	assert.Equal(t, f.Payload, got.Payload)
}

func TestUnmarshalFrame_ShortData(t *testing.T) {
	_, _, err := unmarshalFrame([]byte{0x00, 0x00, 0x55})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestUnmarshalFrame_BadPrefix(t *testing.T) {
	f := frame{Sequence: 1, Command: cmdHeartbeat, Payload: []byte("x")}
	wire := f.marshalBinary()
	wire[0] = 0xff

	_, _, err := unmarshalFrame(wire)
	assert.ErrorIs(t, err, ErrBadPrefix)
}

func TestUnmarshalFrame_BadCRC(t *testing.T) {
	f := frame{Sequence: 1, Command: cmdHeartbeat, Payload: []byte("x")}
	wire := f.marshalBinary()
	wire[len(wire)-6] ^= 0xff

	_, _, err := unmarshalFrame(wire)
	assert.ErrorIs(t, err, ErrBadCRC)
}

func TestUnmarshalFrame_TwoFramesBackToBack(t *testing.T) {
	a := frame{Sequence: 1, Command: cmdDpQuery, Payload: []byte("aa")}.marshalBinary()
	b := frame{Sequence: 2, Command: cmdHeartbeat, Payload: []byte("bbbb")}.marshalBinary()
	buf := append(append([]byte{}, a...), b...)

	got1, n1, err := unmarshalFrame(buf)
	require.NoError(t, err)
	got2, n2, err := unmarshalFrame(buf[n1:])
	require.NoError(t, err)

	assert.Equal(t, uint32(1), got1.Sequence)
	assert.Equal(t, uint32(2), got2.Sequence)
	assert.Equal(t, len(buf), n1+n2)
}
