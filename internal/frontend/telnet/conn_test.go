package telnet

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// pipeConn returns a Conn on one end of an in-memory pipe and a writer
// feeding it.
func pipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return NewConn(server, 0, 0), client
}

func feed(client net.Conn, data []byte) {
	go func() {
		_, _ = client.Write(data)
	}()
}

func TestReadLine_CRLF(t *testing.T) {
	c, client := pipeConn(t)
	feed(client, []byte("!tac --help\r\n"))

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "!tac --help", line)
}

func TestReadLine_BareLF(t *testing.T) {
	c, client := pipeConn(t)
	feed(client, []byte("one\ntwo\n"))

	first, err := c.ReadLine()
	require.NoError(t, err)
	second, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, []string{first, second})
}

func TestReadLine_FiltersNegotiation(t *testing.T) {
	c, client := pipeConn(t)
	data := []byte{IAC, WILL, OptSuppressGoAhead, 'h', IAC, NOP, 'i', IAC, SB, 24, 0, 'x', IAC, SE, '\r', '\n'}
	feed(client, data)

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hi", line)
}

func TestReadLine_DropsControlCharacters(t *testing.T) {
	c, client := pipeConn(t)
	feed(client, []byte("a\x07b\tc\n"))

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ab\tc", line)
}

func TestReadLine_TooLong(t *testing.T) {
	c, client := pipeConn(t)
	c.SetMaxLine(4)
	feed(client, []byte("abcdefgh\nok\n"))

	_, err := c.ReadLine()
	assert.ErrorIs(t, err, ErrLineTooLong)

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ok", line)
}

func TestReadLine_EOF(t *testing.T) {
	c, client := pipeConn(t)
	go func() {
		_, _ = client.Write([]byte("partial"))
		client.Close()
	}()

	line, err := c.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "partial", line)
}

func TestWriteLine_NormalizesNewlines(t *testing.T) {
	c, client := pipeConn(t)
	go func() {
		_ = c.WriteLine("TAC Import Complete.\nScenes: 1 configured, 0 failed.")
	}()

	r := bufio.NewReader(client)
	first, err := r.ReadString('\n')
	require.NoError(t, err)
	second, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "TAC Import Complete.\r\n", first)
	assert.Equal(t, "Scenes: 1 configured, 0 failed.\r\n", second)
}

func TestNegotiate(t *testing.T) {
	c, client := pipeConn(t)
	go func() {
		_ = c.Negotiate()
	}()

	buf := make([]byte, 3)
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{IAC, WILL, OptSuppressGoAhead}, buf)
}

func TestPropertyReadLineRoundTripsPrintableText(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[ -~]{0,200}`).Draw(rt, "text")
		server, client := net.Pipe()
		defer server.Close()
		defer client.Close()
		c := NewConn(server, 0, 0)
		go func() {
			_, _ = client.Write([]byte(text + "\r\n"))
		}()

		line, err := c.ReadLine()
		if err != nil {
			rt.Fatalf("ReadLine: %v", err)
		}
		if line != strings.TrimRight(text, "\r\n") {
			rt.Fatalf("line = %q, want %q", line, text)
		}
	})
}
