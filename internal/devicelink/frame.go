// Package devicelink implements the Tuya "local" binary protocol: a
// length-prefixed, AES-encrypted TCP framing used by the device class this
// bridge supervises. It has no knowledge of DP semantics (internal/dpcodec
// owns that) or of session orchestration (pkg/session owns that) — it only
// frames, encrypts and transports.
package devicelink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	prefixMagic uint32 = 0x000055aa
	suffixMagic uint32 = 0x0000aa55

	// headerSize covers prefix, sequence, command, payload length.
	headerSize = 16
	// footerSize covers the CRC32 and the suffix magic.
	footerSize = 8
)

var ErrShortFrame = errors.New("devicelink: frame shorter than header+footer")
var ErrBadPrefix = errors.New("devicelink: bad frame prefix magic")
var ErrBadSuffix = errors.New("devicelink: bad frame suffix magic")
var ErrBadCRC = errors.New("devicelink: frame CRC mismatch")

// command identifies the Tuya wire-level command byte. These are a small
// subset of the real protocol's command set — only what this bridge sends
// or expects to receive.
type command uint32

const (
	cmdSetValues  command = 0x07
	cmdHeartbeat  command = 0x09
	cmdDpQuery    command = 0x0a
	cmdControlNew command = 0x0d
	cmdDpQueryNew command = 0x10
)

// frame is one wire-level Tuya message: a 16-byte header, an (encrypted)
// payload, and an 8-byte footer.
//
//	0      4        8           12          16                      N   N+4    N+8
//	| 0x000055aa | sequence | command | payload length | ...payload... | crc32 | 0x0000aa55 |
type frame struct {
	Sequence uint32
	Command  command
	Payload  []byte
}

// marshalBinary serializes f into a complete wire frame, including the CRC
// computed over everything preceding it.
func (f frame) marshalBinary() []byte {
	buf := make([]byte, headerSize+len(f.Payload)+footerSize)
	binary.BigEndian.PutUint32(buf[0:], prefixMagic)
	binary.BigEndian.PutUint32(buf[4:], f.Sequence)
	binary.BigEndian.PutUint32(buf[8:], uint32(f.Command))
	binary.BigEndian.PutUint32(buf[12:], uint32(len(f.Payload)))
	copy(buf[headerSize:], f.Payload)

	crcEnd := headerSize + len(f.Payload)
	crc := crc32.ChecksumIEEE(buf[:crcEnd])
	binary.BigEndian.PutUint32(buf[crcEnd:], crc)
	binary.BigEndian.PutUint32(buf[crcEnd+4:], suffixMagic)
	return buf
}

// unmarshalFrame parses one complete frame from data, returning the frame
// and the number of bytes consumed. It does not attempt to handle partial
// frames; callers that read from a stream must buffer until a full frame is
// available (see reader.go).
func unmarshalFrame(data []byte) (frame, int, error) {
	if len(data) < headerSize+footerSize {
		return frame{}, 0, ErrShortFrame
	}
	if binary.BigEndian.Uint32(data[0:]) != prefixMagic {
		return frame{}, 0, ErrBadPrefix
	}
	seq := binary.BigEndian.Uint32(data[4:])
	cmd := binary.BigEndian.Uint32(data[8:])
	payloadLen := binary.BigEndian.Uint32(data[12:])

	total := headerSize + int(payloadLen) + footerSize
	if len(data) < total {
		return frame{}, 0, ErrShortFrame
	}

	crcEnd := headerSize + int(payloadLen)
	wantCRC := binary.BigEndian.Uint32(data[crcEnd:])
	gotCRC := crc32.ChecksumIEEE(data[:crcEnd])
	if wantCRC != gotCRC {
		return frame{}, 0, fmt.Errorf("%w: want %#x got %#x", ErrBadCRC, wantCRC, gotCRC)
	}
	if binary.BigEndian.Uint32(data[crcEnd+4:]) != suffixMagic {
		return frame{}, 0, ErrBadSuffix
	}

	payload := make([]byte, payloadLen)
	copy(payload, data[headerSize:crcEnd])

	return frame{Sequence: seq, Command: cmd2command(cmd), Payload: payload}, total, nil
}

func cmd2command(v uint32) command {
	return command(v)
}
