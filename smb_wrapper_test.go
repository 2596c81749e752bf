package smbupload

import (
	"bytes"
	"context"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/absfs/smbupload/internal/logger"
)

// loopbackConn returns the client side of a loopback TCP connection.
func loopbackConn(t *testing.T) net.Conn {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
		close(accepted)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if server := <-accepted; server != nil {
		t.Cleanup(func() { server.Close() })
	}
	return conn
}

// closingSession closes the connection on Logoff, as go-smb2 does.
type closingSession struct {
	conn net.Conn
}

func (s *closingSession) Mount(string) (SMBShare, error) { return nil, nil }
func (s *closingSession) Logoff() error                  { return s.conn.Close() }

func TestNetTransport_CloseAfterConnClosed(t *testing.T) {
	conn := loopbackConn(t)
	tr := &netTransport{conn: conn}

	conn.Close()
	if err := tr.Close(); err != nil {
		t.Errorf("Close() after connection closed = %v, want nil", err)
	}
}

func TestConnectionClose_AfterLogoffClosesTransport(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "DEBUG", "text")
	t.Cleanup(func() { logger.InitWithWriter(os.Stdout, "INFO", "text") })

	conn := loopbackConn(t)
	c := &connection{
		transport: &netTransport{conn: conn},
		session:   &closingSession{conn: conn},
	}

	if err := c.close(context.Background()); err != nil {
		t.Errorf("close() error = %v, want nil", err)
	}
	if strings.Contains(buf.String(), "SMB disconnect failed") {
		t.Errorf("close() logged a disconnect failure:\n%s", buf.String())
	}
}
