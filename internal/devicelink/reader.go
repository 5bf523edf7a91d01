package devicelink

import (
	"crypto/cipher"
	"errors"
	"io"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
)

// readLoop frames arbitrary inbound traffic independently of request/
// response pairing: the device may push an unsolicited dpQuery on a local
// state change at any time, not only in reply to Get. It runs until the
// connection is closed (by Disconnect or a read error) and then closes
// inbound, the channel Inbound() returned for this connection, signalling
// the session's receive loop that the link is gone.
func (l *Link) readLoop(conn net.Conn, block cipher.Block, inbound chan []dpcodec.Message) {
	defer close(inbound)

	buf := make([]byte, 0, readBufferGrain)
	chunk := make([]byte, readBufferGrain)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithField("device", l.cfg.ID).WithError(err).Debug("devicelink: read error, closing inbound")
			}
			return
		}

		for {
			f, consumed, ferr := unmarshalFrame(buf)
			if ferr != nil {
				break
			}
			buf = buf[consumed:]

			msg, ok := l.toMessage(f, block)
			if !ok {
				continue
			}
			select {
			case inbound <- []dpcodec.Message{msg}:
			default:
				log.WithField("device", l.cfg.ID).Debug("devicelink: inbound buffer full, dropping batch")
			}
		}
	}
}

func (l *Link) toMessage(f frame, block cipher.Block) (dpcodec.Message, bool) {
	plaintext, err := decryptECB(block, f.Payload)
	if err != nil {
		log.WithField("device", l.cfg.ID).WithError(err).Debug("devicelink: failed to decrypt frame, dropping")
		return dpcodec.Message{}, false
	}

	return dpcodec.Message{
		Command: wireCommandType(f.Command),
		Raw:     string(plaintext),
	}, true
}

func wireCommandType(cmd command) dpcodec.CommandType {
	switch cmd {
	case cmdControlNew:
		return dpcodec.CommandControlNew
	case cmdDpQueryNew:
		return dpcodec.CommandDpQueryNew
	default:
		return dpcodec.CommandDpQuery
	}
}
