package smbupload

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"
)

// MockSMBBackend provides an in-memory SMB server simulation for testing.
// It maintains a virtual share tree, a user database and a list of shares
// with their types, and records every operation for verification.
type MockSMBBackend struct {
	mu sync.RWMutex

	// files maps share:/path to mock file data
	files map[string]*mockFileData

	// shares available on this mock server
	shares map[string]ShareType

	// users maps DOMAIN\user (upper-cased domain) to NT hash
	users map[string][]byte

	// errors to inject for specific operations
	errorOnPath map[string]error
	errorOnOp   map[string]error

	// connection accounting
	openConns   int
	totalConns  int
	activeTrees int

	// operation tracking for verification (separate mutex to avoid lock contention)
	opMu       sync.Mutex
	operations []MockOperation
}

// mockFileData represents a file or directory in the mock filesystem.
type mockFileData struct {
	name    string
	content []byte
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

// MockOperation records an operation performed on the mock backend.
type MockOperation struct {
	Op   string
	Path string
	Args []interface{}
	Time time.Time
}

// NewMockSMBBackend creates a new mock SMB backend. It serves the IPC$ pipe
// share by default; disk shares and users are added by the test.
func NewMockSMBBackend() *MockSMBBackend {
	return &MockSMBBackend{
		files:       make(map[string]*mockFileData),
		shares:      map[string]ShareType{"IPC$": ShareTypePipe},
		users:       make(map[string][]byte),
		errorOnPath: make(map[string]error),
		errorOnOp:   make(map[string]error),
		operations:  make([]MockOperation, 0),
	}
}

// AddShare adds a share of the given type to the mock backend.
func (m *MockSMBBackend) AddShare(name string, typ ShareType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares[strings.ToUpper(name)] = typ
	if typ == ShareTypeDisk {
		m.files[mockKey(name, "")] = &mockFileData{
			name:    "/",
			isDir:   true,
			mode:    fs.ModeDir | 0755,
			modTime: time.Now(),
		}
	}
}

// AddUser registers an account that may authenticate.
func (m *MockSMBBackend) AddUser(domain, username, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userKey(domain, username)] = NTHash(password)
}

// AddFile adds a file to a disk share, creating parent directories.
func (m *MockSMBBackend) AddFile(share, name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[mockKey(share, name)] = &mockFileData{
		name:    path.Base(normalizeMockPath(name)),
		content: append([]byte(nil), content...),
		mode:    0644,
		modTime: time.Now(),
	}
	m.ensureParentDirs(share, normalizeMockPath(name))
}

// AddDir adds a directory to a disk share, creating parent directories.
func (m *MockSMBBackend) AddDir(share, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := normalizeMockPath(name)
	m.files[mockKey(share, p)] = &mockFileData{
		name:    path.Base(p),
		isDir:   true,
		mode:    fs.ModeDir | 0755,
		modTime: time.Now(),
	}
	m.ensureParentDirs(share, p)
}

// SetError sets an error to return for a specific path.
func (m *MockSMBBackend) SetError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOnPath[normalizeMockPath(name)] = err
}

// SetOperationError sets an error to return for a specific operation type:
// dial, auth, mount, stat, mkdir, open, write, sync, close.
func (m *MockSMBBackend) SetOperationError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOnOp[op] = err
}

// ClearErrors clears all injected errors.
func (m *MockSMBBackend) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOnPath = make(map[string]error)
	m.errorOnOp = make(map[string]error)
}

// GetOperations returns all recorded operations.
func (m *MockSMBBackend) GetOperations() []MockOperation {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	ops := make([]MockOperation, len(m.operations))
	copy(ops, m.operations)
	return ops
}

// OperationNames returns the names of all recorded operations in order.
func (m *MockSMBBackend) OperationNames() []string {
	ops := m.GetOperations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Op
	}
	return names
}

// ClearOperations clears the operation history.
func (m *MockSMBBackend) ClearOperations() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.operations = make([]MockOperation, 0)
}

// GetFile returns the content of a file (for test verification).
func (m *MockSMBBackend) GetFile(share, name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.files[mockKey(share, name)]; ok && !f.isDir {
		return append([]byte(nil), f.content...), true
	}
	return nil, false
}

// DirExists returns true if name is a directory on share.
func (m *MockSMBBackend) DirExists(share, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[mockKey(share, name)]
	return ok && f.isDir
}

// OpenConnections returns the number of transports not yet closed.
func (m *MockSMBBackend) OpenConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openConns
}

// TotalConnections returns the number of transports ever opened.
func (m *MockSMBBackend) TotalConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalConns
}

// ActiveTrees returns the number of mounted shares not yet unmounted.
func (m *MockSMBBackend) ActiveTrees() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeTrees
}

// recordOp records an operation for later verification.
func (m *MockSMBBackend) recordOp(op, p string, args ...interface{}) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.operations = append(m.operations, MockOperation{
		Op:   op,
		Path: p,
		Args: args,
		Time: time.Now(),
	})
}

// checkError checks for injected errors. Caller must hold m.mu.
func (m *MockSMBBackend) checkError(op, p string) error {
	if err, ok := m.errorOnOp[op]; ok {
		return err
	}
	if err, ok := m.errorOnPath[normalizeMockPath(p)]; ok {
		return err
	}
	return nil
}

// ensureParentDirs ensures all parent directories exist. Caller must hold m.mu.
func (m *MockSMBBackend) ensureParentDirs(share, p string) {
	dir := path.Dir(p)
	if dir == p || dir == "/" {
		return
	}

	if _, ok := m.files[mockKey(share, dir)]; !ok {
		m.files[mockKey(share, dir)] = &mockFileData{
			name:    path.Base(dir),
			isDir:   true,
			mode:    fs.ModeDir | 0755,
			modTime: time.Now(),
		}
		m.ensureParentDirs(share, dir)
	}
}

// normalizeMockPath normalizes a path for the mock filesystem.
func normalizeMockPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "." {
		p = ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// mockKey builds the file map key; share names are case-insensitive as on
// Windows servers.
func mockKey(share, p string) string {
	return strings.ToUpper(share) + ":" + normalizeMockPath(p)
}

func userKey(domain, username string) string {
	return strings.ToUpper(domain) + `\` + strings.ToLower(username)
}

// MockDialer implements SMBDialer against a MockSMBBackend.
type MockDialer struct {
	Backend *MockSMBBackend
}

// NewMockDialer creates a dialer connected to backend.
func NewMockDialer(backend *MockSMBBackend) *MockDialer {
	return &MockDialer{Backend: backend}
}

// Dial opens a mock transport.
func (d *MockDialer) Dial(ctx context.Context, addr string) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := d.Backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkError("dial", ""); err != nil {
		return nil, err
	}

	b.openConns++
	b.totalConns++
	b.recordOp("dial", addr)
	return &mockTransport{backend: b}, nil
}

// mockTransport implements Transport for testing.
type mockTransport struct {
	backend *MockSMBBackend
	closed  bool
	mu      sync.Mutex
}

// Authenticate checks creds against the backend's user table.
func (t *mockTransport) Authenticate(ctx context.Context, creds Credentials) (SMBSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, errors.New("connection closed")
	}

	b := t.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.recordOp("auth", creds.String())

	if err := b.checkError("auth", ""); err != nil {
		return nil, err
	}

	want, ok := b.users[userKey(creds.Domain, creds.Username)]
	if !ok || !bytes.Equal(want, creds.Hash) {
		return nil, errors.New("STATUS_LOGON_FAILURE")
	}

	return &MockSMBSession{backend: b, transport: t}, nil
}

// Close closes the mock transport. Closing twice is a no-op, as it is for
// netTransport once Logoff has dropped the connection.
func (t *mockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openConns--
	b.recordOp("disconnect", "")
	return nil
}

// MockSMBSession implements SMBSession for testing.
type MockSMBSession struct {
	backend   *MockSMBBackend
	transport *mockTransport
	loggedOff bool
	mu        sync.Mutex
}

// Mount mounts a share and returns an SMBShare interface.
func (s *MockSMBSession) Mount(shareName string) (SMBShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loggedOff {
		return nil, errors.New("session logged off")
	}

	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recordOp("mount", shareName)

	if err := b.checkError("mount", shareName); err != nil {
		return nil, err
	}

	typ, ok := b.shares[strings.ToUpper(shareName)]
	if !ok {
		return nil, &os.PathError{Op: "mount", Path: shareName, Err: fs.ErrNotExist}
	}

	b.activeTrees++
	return &MockSMBShare{backend: b, shareName: shareName, shareType: typ}, nil
}

// Logoff ends the session and, like go-smb2, closes the underlying
// transport.
func (s *MockSMBSession) Logoff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loggedOff {
		return nil
	}

	s.loggedOff = true
	s.backend.recordOp("logoff", "")
	if s.transport != nil {
		return s.transport.Close()
	}
	return nil
}

// MockSMBShare implements SMBShare for testing.
type MockSMBShare struct {
	backend   *MockSMBBackend
	shareName string
	shareType ShareType
	unmounted bool
	mu        sync.Mutex
}

// Stat returns file info for the specified path. Non-disk shares have no
// file namespace and fail every lookup.
func (sh *MockSMBShare) Stat(name string) (fs.FileInfo, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.unmounted {
		return nil, errors.New("share unmounted")
	}

	b := sh.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.recordOp("stat", normalizeMockPath(name))

	if err := b.checkError("stat", name); err != nil {
		return nil, err
	}

	if sh.shareType != ShareTypeDisk {
		return nil, &os.PathError{Op: "stat", Path: name, Err: errors.New("STATUS_INVALID_PARAMETER")}
	}

	data, exists := b.files[mockKey(sh.shareName, name)]
	if !exists {
		return nil, &os.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}

	return &mockFileInfo{data: data}, nil
}

// Mkdir creates a directory.
func (sh *MockSMBShare) Mkdir(name string, perm fs.FileMode) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.unmounted {
		return errors.New("share unmounted")
	}

	b := sh.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	p := normalizeMockPath(name)
	b.recordOp("mkdir", p, perm)

	if err := b.checkError("mkdir", p); err != nil {
		return err
	}

	if _, exists := b.files[mockKey(sh.shareName, p)]; exists {
		return &os.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}

	parent, ok := b.files[mockKey(sh.shareName, path.Dir(p))]
	if !ok {
		return &os.PathError{Op: "mkdir", Path: name, Err: fs.ErrNotExist}
	}
	if !parent.isDir {
		return &os.PathError{Op: "mkdir", Path: name, Err: ErrNotDirectory}
	}

	b.files[mockKey(sh.shareName, p)] = &mockFileData{
		name:    path.Base(p),
		isDir:   true,
		mode:    fs.ModeDir | perm,
		modTime: time.Now(),
	}
	return nil
}

// OpenFile opens a file with the specified flags and permissions.
func (sh *MockSMBShare) OpenFile(name string, flag int, perm fs.FileMode) (SMBFile, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.unmounted {
		return nil, errors.New("share unmounted")
	}

	b := sh.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	p := normalizeMockPath(name)
	b.recordOp("open", p, flag, perm)

	if err := b.checkError("open", p); err != nil {
		return nil, err
	}

	key := mockKey(sh.shareName, p)
	data, exists := b.files[key]

	create := flag&os.O_CREATE != 0
	excl := flag&os.O_EXCL != 0
	trunc := flag&os.O_TRUNC != 0

	if excl && exists {
		return nil, &os.PathError{Op: "open", Path: name, Err: fs.ErrExist}
	}

	if !exists {
		if !create {
			return nil, &os.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		if parent, ok := b.files[mockKey(sh.shareName, path.Dir(p))]; !ok || !parent.isDir {
			return nil, &os.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}

		data = &mockFileData{
			name:    path.Base(p),
			content: []byte{},
			mode:    perm,
			modTime: time.Now(),
		}
		b.files[key] = data
	}

	if data.isDir {
		return nil, &os.PathError{Op: "open", Path: name, Err: errors.New("is a directory")}
	}

	if trunc {
		data.content = []byte{}
		data.modTime = time.Now()
	}

	return &MockSMBFile{
		backend: b,
		path:    p,
		data:    data,
		flag:    flag,
	}, nil
}

// Umount unmounts the share.
func (sh *MockSMBShare) Umount() error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.unmounted {
		return nil
	}

	sh.unmounted = true
	b := sh.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeTrees--
	b.recordOp("umount", sh.shareName)
	return nil
}

// MockSMBFile implements SMBFile for testing.
type MockSMBFile struct {
	backend *MockSMBBackend
	path    string
	data    *mockFileData
	flag    int
	offset  int64
	closed  bool
	mu      sync.Mutex
}

// Write writes len(p) bytes from p to the file.
func (f *MockSMBFile) Write(p []byte) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}

	if f.flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return 0, errors.New("file not opened for writing")
	}

	b := f.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recordOp("write", f.path, len(p))

	if err := b.checkError("write", f.path); err != nil {
		return 0, err
	}

	end := f.offset + int64(len(p))
	if end > int64(len(f.data.content)) {
		grown := make([]byte, end)
		copy(grown, f.data.content)
		f.data.content = grown
	}

	n = copy(f.data.content[f.offset:], p)
	f.offset += int64(n)
	f.data.modTime = time.Now()

	return n, nil
}

// Sync flushes the file.
func (f *MockSMBFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fs.ErrClosed
	}

	b := f.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.recordOp("sync", f.path)
	return b.checkError("sync", f.path)
}

// Close closes the file.
func (f *MockSMBFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	b := f.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.recordOp("close", f.path)
	return b.checkError("close", f.path)
}

// mockFileInfo implements fs.FileInfo for mock files.
type mockFileInfo struct {
	data *mockFileData
}

func (fi *mockFileInfo) Name() string       { return fi.data.name }
func (fi *mockFileInfo) Size() int64        { return int64(len(fi.data.content)) }
func (fi *mockFileInfo) Mode() fs.FileMode  { return fi.data.mode }
func (fi *mockFileInfo) ModTime() time.Time { return fi.data.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.data.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }
