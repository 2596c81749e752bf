package smbupload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/hirochachacha/go-smb2"
)

// NT status codes mapped onto io/fs errors.
const (
	statusAccessDenied        = 0xC0000022
	statusObjectNameNotFound  = 0xC0000034
	statusObjectNameCollision = 0xC0000035
	statusObjectPathNotFound  = 0xC000003A
	statusBadNetworkName      = 0xC00000CC
)

// NetDialer implements SMBDialer on top of go-smb2.
type NetDialer struct {
	// Timeout bounds the TCP dial.
	Timeout time.Duration
	// Deadline, when positive, is set as the I/O deadline of every connection
	// so a hung server cannot block a caller forever.
	Deadline time.Duration
}

// Dial opens a TCP connection to addr.
func (d *NetDialer) Dial(ctx context.Context, addr string) (Transport, error) {
	dialer := &net.Dialer{
		Timeout: d.Timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if d.Deadline > 0 {
		deadline := time.Now().Add(d.Deadline)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set deadline on %s: %w", addr, err)
		}
	}

	return &netTransport{conn: conn}, nil
}

// netTransport is a TCP connection waiting for session setup.
type netTransport struct {
	conn net.Conn
}

// Authenticate performs negotiation and NTLM session setup.
func (t *netTransport) Authenticate(ctx context.Context, creds Credentials) (SMBSession, error) {
	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:   creds.Username,
			Hash:   creds.Hash,
			Domain: creds.Domain,
		},
	}

	session, err := d.DialContext(ctx, t.conn)
	if err != nil {
		return nil, fmt.Errorf("SMB session setup failed: %w", err)
	}

	return &realSMBSession{session: session.WithContext(ctx), ctx: ctx}, nil
}

// Close closes the TCP connection. go-smb2's Logoff already closes it, so
// an already closed connection is not an error.
func (t *netTransport) Close() error {
	if err := t.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// realSMBSession wraps a go-smb2 Session to implement SMBSession.
type realSMBSession struct {
	session *smb2.Session
	ctx     context.Context
}

// Mount mounts a share and returns an SMBShare interface.
func (s *realSMBSession) Mount(shareName string) (SMBShare, error) {
	share, err := s.session.Mount(shareName)
	if err != nil {
		return nil, convertError(err)
	}
	return &realSMBShare{share: share.WithContext(s.ctx)}, nil
}

// Logoff ends the session.
func (s *realSMBSession) Logoff() error {
	return s.session.Logoff()
}

// realSMBShare wraps a go-smb2 Share to implement SMBShare.
type realSMBShare struct {
	share *smb2.Share
}

// Stat returns file info for the specified path.
func (sh *realSMBShare) Stat(name string) (fs.FileInfo, error) {
	info, err := sh.share.Stat(toSMBPath(name))
	return info, convertError(err)
}

// Mkdir creates a directory.
func (sh *realSMBShare) Mkdir(name string, perm fs.FileMode) error {
	return convertError(sh.share.Mkdir(toSMBPath(name), perm))
}

// OpenFile opens a file with the specified flags and permissions.
func (sh *realSMBShare) OpenFile(name string, flag int, perm fs.FileMode) (SMBFile, error) {
	file, err := sh.share.OpenFile(toSMBPath(name), flag, perm)
	if err != nil {
		return nil, convertError(err)
	}
	return file, nil
}

// Umount unmounts the share.
func (sh *realSMBShare) Umount() error {
	return sh.share.Umount()
}

// convertError maps go-smb2 response errors onto io/fs errors so callers can
// use errors.Is(err, fs.ErrNotExist) and friends.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var re *smb2.ResponseError
	if !errors.As(err, &re) {
		return err
	}

	var target error
	switch re.Code {
	case statusObjectNameNotFound, statusObjectPathNotFound, statusBadNetworkName:
		target = fs.ErrNotExist
	case statusObjectNameCollision:
		target = fs.ErrExist
	case statusAccessDenied:
		target = fs.ErrPermission
	default:
		return err
	}

	var pe *os.PathError
	if errors.As(err, &pe) {
		return &os.PathError{Op: pe.Op, Path: pe.Path, Err: errors.Join(target, re)}
	}
	return errors.Join(target, err)
}

// DefaultDialer returns the go-smb2 backed dialer for cfg.
func DefaultDialer(cfg *Config) SMBDialer {
	return &NetDialer{
		Timeout:  cfg.ConnTimeout,
		Deadline: cfg.OpTimeout,
	}
}
