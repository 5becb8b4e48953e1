package testutil

import (
	"net"
	"strings"
	"testing"
	"time"
)

// TelnetClient is a chat client for integration tests. It keeps a read
// buffer across ReadUntil calls, discarding only the data up to and
// including each match.
type TelnetClient struct {
	conn   net.Conn
	t      *testing.T
	buffer string
}

// NewTelnetClient dials addr and returns a connected client.
//
// Precondition: addr must be a "host:port" with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test. The
// connection is closed on test cleanup.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads until substr appears or timeout elapses, returning the
// output up to and including the match.
//
// Precondition: substr must be non-empty.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()

	if out, ok := c.take(substr); ok {
		return out
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.buffer += string(tmp[:n])
			if out, ok := c.take(substr); ok {
				return out
			}
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, c.buffer, err)
		}
	}
}

func (c *TelnetClient) take(substr string) (string, bool) {
	idx := strings.Index(c.buffer, substr)
	if idx < 0 {
		return "", false
	}
	end := idx + len(substr)
	out := c.buffer[:end]
	c.buffer = c.buffer[end:]
	return out, true
}

// Send writes text followed by \r\n.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write([]byte(text + "\r\n")); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}
