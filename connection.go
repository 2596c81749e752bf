package smbupload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/absfs/smbupload/internal/logger"
)

// connection is one dial, authenticate and mount chain. Every write owns
// exactly one; nothing is shared or pooled between calls.
type connection struct {
	transport Transport
	session   SMBSession
	share     SMBShare
}

// openConnection connects to the server, authenticates and mounts the share.
// On failure everything acquired so far is released before returning and
// the error is an *OperationError naming the failed step.
func (w *Writer) openConnection(ctx context.Context) (*connection, error) {
	c := &connection{}

	err := w.step(ctx, StepConnect, "", func(ctx context.Context) error {
		t, err := w.dialer.Dial(ctx, w.cfg.Addr())
		c.transport = t
		return err
	})
	if err != nil {
		return nil, err
	}

	err = w.step(ctx, StepAuthenticate, "", func(ctx context.Context) error {
		s, err := c.transport.Authenticate(ctx, w.creds)
		c.session = s
		return err
	})
	if err != nil {
		c.close(ctx)
		return nil, err
	}

	err = w.step(ctx, StepMount, "", func(ctx context.Context) error {
		sh, err := c.session.Mount(w.cfg.Share)
		c.share = sh
		return err
	})
	if err != nil {
		c.close(ctx)
		return nil, err
	}

	err = w.step(ctx, StepShareType, "", func(ctx context.Context) error {
		typ, err := classifyShare(c.share, w.cfg.Share)
		if err != nil {
			return fmt.Errorf("share type probe: %w", err)
		}
		if typ != ShareTypeDisk {
			return fmt.Errorf("share %q is a %s share", w.cfg.Share, typ)
		}
		return nil
	})
	if err != nil {
		c.close(ctx)
		return nil, err
	}

	return c, nil
}

// classifyShare determines the kind of a mounted share. go-smb2 does not
// surface the tree connect share type, so the IPC$ name identifies the pipe
// share and any other share must answer a root lookup with a directory.
func classifyShare(share SMBShare, name string) (ShareType, error) {
	if strings.EqualFold(name, "IPC$") {
		return ShareTypePipe, nil
	}

	info, err := share.Stat("")
	if err != nil {
		return ShareTypeUnknown, err
	}
	if !info.IsDir() {
		return ShareTypeUnknown, nil
	}
	return ShareTypeDisk, nil
}

// close releases the share, the session and the transport, in that order,
// skipping whatever was never acquired. Errors are logged and returned
// joined.
func (c *connection) close(ctx context.Context) error {
	var errs []error

	if c.share != nil {
		if err := c.share.Umount(); err != nil {
			logger.WarnCtx(ctx, "SMB unmount failed", logger.KeyError, err)
			errs = append(errs, fmt.Errorf("umount: %w", err))
		}
		c.share = nil
	}

	if c.session != nil {
		if err := c.session.Logoff(); err != nil {
			logger.WarnCtx(ctx, "SMB logoff failed", logger.KeyError, err)
			errs = append(errs, fmt.Errorf("logoff: %w", err))
		}
		c.session = nil
	}

	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			logger.WarnCtx(ctx, "SMB disconnect failed", logger.KeyError, err)
			errs = append(errs, fmt.Errorf("disconnect: %w", err))
		}
		c.transport = nil
	}

	return errors.Join(errs...)
}
