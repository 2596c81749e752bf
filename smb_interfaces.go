package smbupload

import (
	"context"
	"io/fs"
)

// SMBDialer opens transport connections to an SMB server. It is the seam
// that lets tests replace go-smb2 with the in-memory mock.
type SMBDialer interface {
	// Dial opens a transport connection to addr (host:port).
	Dial(ctx context.Context, addr string) (Transport, error)
}

// Transport is an open connection that has not been authenticated yet.
type Transport interface {
	// Authenticate negotiates the dialect and performs NTLM session setup.
	Authenticate(ctx context.Context, creds Credentials) (SMBSession, error)
	// Close closes the underlying connection.
	Close() error
}

// SMBSession abstracts an authenticated SMB session.
type SMBSession interface {
	// Mount tree-connects to a share.
	Mount(shareName string) (SMBShare, error)
	// Logoff ends the session.
	Logoff() error
}

// SMBShare abstracts a tree-connected share.
type SMBShare interface {
	// Stat returns file info for the specified path. "." is the share root.
	Stat(name string) (fs.FileInfo, error)
	// Mkdir creates a single directory.
	Mkdir(name string, perm fs.FileMode) error
	// OpenFile opens a file with the specified flags and permissions.
	OpenFile(name string, flag int, perm fs.FileMode) (SMBFile, error)
	// Umount disconnects the tree.
	Umount() error
}

// SMBFile abstracts an SMB file handle opened for writing.
type SMBFile interface {
	// Write writes len(p) bytes from p to the file.
	Write(p []byte) (n int, err error)
	// Sync flushes written data on the server.
	Sync() error
	// Close closes the file handle.
	Close() error
}

// ShareType is the kind of resource a tree connect is bound to.
type ShareType int

const (
	ShareTypeUnknown ShareType = iota
	ShareTypeDisk
	ShareTypePipe
	ShareTypePrint
)

func (t ShareType) String() string {
	switch t {
	case ShareTypeDisk:
		return "disk"
	case ShareTypePipe:
		return "pipe"
	case ShareTypePrint:
		return "print"
	default:
		return "unknown"
	}
}
