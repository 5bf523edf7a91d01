package devicelink

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
	"github.com/tuyabridge/tuyabridged/internal/testutil"
)

const testLocalKey = "0123456789abcdef"

func TestLink_ConnectAndPush(t *testing.T) {
	key := sessionKey(testLocalKey)
	block, err := newECBEncrypter(key)
	require.NoError(t, err)

	pushed := make(chan struct{})
	addr := testutil.NewTCPDevice(t, func(conn net.Conn) {
		payload := encryptECB(block, []byte(`{"dps":{"20":true,"21":"white","22":505,"23":0}}`))
		wire := frame{Sequence: 1, Command: cmdDpQueryNew, Payload: payload}.marshalBinary()
		conn.Write(wire)
		close(pushed)
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	})

	link := New(dpcodec.DeviceConfig{ID: "dev1", Address: addr, LocalKey: testLocalKey, Version: "3.3"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, link.Connect(ctx))
	defer link.Disconnect()

	<-pushed

	select {
	case batch := <-link.Inbound():
		require.Len(t, batch, 1)
		assert.Equal(t, dpcodec.CommandDpQueryNew, batch[0].Command)
		assert.Contains(t, batch[0].Raw, `"20":true`)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestLink_SetValuesWritesFramedCiphertext(t *testing.T) {
	key := sessionKey(testLocalKey)
	block, err := newECBEncrypter(key)
	require.NoError(t, err)

	received := make(chan frame, 2)
	addr := testutil.NewTCPDevice(t, func(conn net.Conn) {
		buf := make([]byte, 0, 4096)
		chunk := make([]byte, 4096)
		for {
			n, err := conn.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
				for {
					f, consumed, ferr := unmarshalFrame(buf)
					if ferr != nil {
						break
					}
					buf = buf[consumed:]
					received <- f
				}
			}
			if err != nil {
				return
			}
		}
	})

	link := New(dpcodec.DeviceConfig{ID: "dev1", Address: addr, LocalKey: testLocalKey, Version: "3.3"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, link.Connect(ctx))
	defer link.Disconnect()

	require.NoError(t, link.SetValues(ctx, dpcodec.DpMap{{Key: "20", Value: true}}))

	select {
	case f := <-received:
		assert.Equal(t, cmdSetValues, f.Command)
		plain, err := decryptECB(block, f.Payload)
		require.NoError(t, err)
		assert.Contains(t, string(plain), `"20":true`)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for device to receive set_values frame")
	}

	// The dummy follow-up set (firmware workaround) should also arrive.
	select {
	case f := <-received:
		assert.Equal(t, cmdSetValues, f.Command)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dummy follow-up set frame")
	}
}

func TestLink_DisconnectIsIdempotent(t *testing.T) {
	link := New(dpcodec.DeviceConfig{ID: "dev1", Address: "127.0.0.1:1", LocalKey: testLocalKey})
	assert.NoError(t, link.Disconnect())
	assert.NoError(t, link.Disconnect())
}

func TestLink_WriteBeforeConnectFails(t *testing.T) {
	link := New(dpcodec.DeviceConfig{ID: "dev1", Address: "127.0.0.1:1", LocalKey: testLocalKey})
	err := link.Heartbeat(context.Background())
	assert.Error(t, err)
}
