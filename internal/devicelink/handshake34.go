package devicelink

import "net"

// negotiateSessionKey34 would perform the protocol 3.4 session-key exchange
// (an HMAC-SHA256 challenge/response over the local key, after which both
// sides derive a fresh per-session AES key). It is not implemented: the
// exchange requires interpreting a device-initiated handshake frame whose
// exact framing this bridge has not been validated against real 3.4
// hardware. Callers fall back to the 3.3 session-key scheme, which is known
// to work for some but not all 3.4 firmware revisions — see Connect's doc
// comment and DESIGN.md.
func negotiateSessionKey34(conn net.Conn, fallback [16]byte) (key [16]byte, ok bool) {
	return fallback, false
}
