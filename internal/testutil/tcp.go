// Package testutil provides lightweight network test doubles used across
// this module's package tests.
package testutil

import (
	"net"
	"testing"
)

// NewTCPDevice starts a TCP listener on an ephemeral loopback port and hands
// every accepted connection to handler in its own goroutine. It stands in
// for a real device's local-protocol listener in internal/devicelink tests.
// The listener is closed automatically when the test completes.
func NewTCPDevice(t *testing.T, handler func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("testutil: listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handler(conn)
		}
	}()

	return ln.Addr().String()
}
