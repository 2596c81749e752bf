package smbupload

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/absfs/smbupload/internal/logger"
	"github.com/absfs/smbupload/internal/telemetry"
)

// WriteRequest describes one payload to store on the share.
type WriteRequest struct {
	// Content is written verbatim.
	Content []byte
	// FileName is a single path element. Empty means Config.FileName.
	FileName string
	// FolderPath is '/' or '\' separated. Empty means Config.FolderPath.
	FolderPath string
}

// WriteResult reports what a write did.
type WriteResult struct {
	OperationID  string
	Share        string
	Path         string // Remote path relative to the share root
	BytesWritten int64
	CreatedDirs  int
	Duration     time.Duration
}

// Writer stores payloads on a single SMB share. It holds only read-only
// configuration and is safe for concurrent use; every call opens its own
// connection and session.
type Writer struct {
	cfg     Config
	creds   Credentials
	dialer  SMBDialer
	metrics Metrics
	sem     *semaphore.Weighted
}

// Option configures a Writer.
type Option func(*Writer)

// WithDialer replaces the go-smb2 dialer.
func WithDialer(d SMBDialer) Option {
	return func(w *Writer) {
		w.dialer = d
	}
}

// WithMetrics sets the metrics sink. A nil Metrics disables recording.
func WithMetrics(m Metrics) Option {
	return func(w *Writer) {
		w.metrics = m
	}
}

// WithMaxConcurrent caps the number of writes in flight. Callers over the
// limit wait for a slot or for their context to end. n <= 0 means no limit.
func WithMaxConcurrent(n int) Option {
	return func(w *Writer) {
		if n <= 0 {
			w.sem = nil
			return
		}
		w.sem = semaphore.NewWeighted(int64(n))
	}
}

// New validates config and returns a Writer holding a private copy of it.
func New(config *Config, opts ...Option) (*Writer, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}

	cfg := *config
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}

	w := &Writer{
		cfg:   cfg,
		creds: creds,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.dialer == nil {
		w.dialer = DefaultDialer(&w.cfg)
	}

	return w, nil
}

// Config returns a copy of the writer's configuration.
func (w *Writer) Config() Config {
	return w.cfg
}

// WriteString writes content to folderPath/fileName. Empty folderPath or
// fileName fall back to the configured defaults.
func (w *Writer) WriteString(ctx context.Context, folderPath, fileName, content string) (*WriteResult, error) {
	return w.WriteFile(ctx, WriteRequest{
		Content:    []byte(content),
		FileName:   fileName,
		FolderPath: folderPath,
	})
}

// WriteFile connects, authenticates, mounts the share, creates the folder
// chain, and creates or truncates the target file with req.Content.
//
// Resources are released in reverse order of acquisition on every path.
// Directories created before a failure are left in place. Any failure is
// returned as an *OperationError; the result is never nil and carries the
// operation id and whatever progress was made.
func (w *Writer) WriteFile(ctx context.Context, req WriteRequest) (res *WriteResult, err error) {
	start := time.Now()

	folder := req.FolderPath
	if folder == "" {
		folder = w.cfg.FolderPath
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = w.cfg.FileName
	}
	remote := JoinRemotePath(folder, fileName)

	res = &WriteResult{
		OperationID: uuid.NewString(),
		Share:       w.cfg.Share,
		Path:        remote,
	}

	ctx, span := telemetry.StartSpan(ctx, "smb.write",
		attribute.String(telemetry.AttrOperationID, res.OperationID),
		attribute.String(telemetry.AttrHost, w.cfg.Host),
		attribute.String(telemetry.AttrShare, w.cfg.Share),
		attribute.String(telemetry.AttrPath, remote),
	)
	defer span.End()
	ctx = logger.WithOperation(ctx, res.OperationID, telemetry.TraceID(ctx))

	if w.cfg.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.OpTimeout)
		defer cancel()
	}

	// Registered first so it observes the full duration including teardown.
	defer func() {
		res.Duration = time.Since(start)
		if w.metrics != nil {
			w.metrics.ObserveWrite(StepOf(err), res.BytesWritten, res.CreatedDirs, res.Duration)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
			return
		}
		telemetry.SetAttributes(ctx,
			attribute.Int64(telemetry.AttrBytesWritten, res.BytesWritten),
			attribute.Int(telemetry.AttrCreatedDirs, res.CreatedDirs),
		)
		logger.InfoCtx(ctx, "SMB write complete",
			logger.KeyShare, res.Share,
			logger.KeyPath, res.Path,
			logger.KeyBytesWritten, res.BytesWritten,
			logger.KeyDurationMs, res.Duration.Milliseconds(),
		)
	}()

	err = w.step(ctx, StepValidate, remote, func(context.Context) error {
		if err := validateFolder(folder); err != nil {
			return err
		}
		return validateFileName(fileName)
	})
	if err != nil {
		return res, err
	}

	logger.DebugCtx(ctx, "SMB write starting",
		logger.KeyHost, w.cfg.Host,
		logger.KeyShare, w.cfg.Share,
		logger.KeyPath, remote,
		logger.KeyUsername, w.cfg.Username,
		logger.KeyDomain, w.cfg.Domain,
	)

	if w.sem != nil {
		// Waiting for a slot counts against the connect step.
		err = w.step(ctx, StepConnect, "", func(ctx context.Context) error {
			return w.sem.Acquire(ctx, 1)
		})
		if err != nil {
			return res, err
		}
		defer w.sem.Release(1)
	}

	conn, err := w.openConnection(ctx)
	if err != nil {
		return res, err
	}
	defer conn.close(ctx)

	for _, dir := range prefixes(folder) {
		var created bool
		err = w.step(ctx, StepMkdir, dir, func(context.Context) error {
			var err error
			created, err = ensureDir(conn.share, dir)
			return err
		})
		if err != nil {
			return res, err
		}
		if created {
			res.CreatedDirs++
		}
	}

	var file SMBFile
	err = w.step(ctx, StepOpen, remote, func(context.Context) error {
		var err error
		file, err = conn.share.OpenFile(remote, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		return err
	})
	if err != nil {
		return res, err
	}
	defer func() {
		if file == nil {
			return
		}
		if cerr := file.Close(); cerr != nil {
			logger.WarnCtx(ctx, "SMB file close failed", logger.KeyPath, remote, logger.KeyError, cerr)
		}
	}()

	err = w.step(ctx, StepWrite, remote, func(context.Context) error {
		n, err := writeAll(file, req.Content)
		res.BytesWritten = n
		if err != nil {
			return err
		}
		return file.Sync()
	})
	if err != nil {
		return res, err
	}

	err = w.step(ctx, StepClose, remote, func(context.Context) error {
		f := file
		file = nil
		return f.Close()
	})
	if err != nil {
		return res, err
	}

	return res, nil
}

// step runs fn inside a child span and converts its failure into an
// *OperationError for step.
func (w *Writer) step(ctx context.Context, step Step, path string, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "smb."+string(step),
		attribute.String(telemetry.AttrStep, string(step)),
	)
	defer span.End()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}

	opErr := &OperationError{
		Step:  step,
		Host:  w.cfg.Host,
		Share: w.cfg.Share,
		Path:  path,
		Err:   err,
	}
	telemetry.RecordError(ctx, opErr)
	logger.ErrorCtx(ctx, "SMB write failed",
		logger.KeyStep, string(step),
		logger.KeyHost, w.cfg.Host,
		logger.KeyShare, w.cfg.Share,
		logger.KeyPath, path,
		logger.KeyError, err,
	)
	return opErr
}

// ensureDir makes sure dir exists on share, creating it when absent. It
// reports whether this call created it. A directory created concurrently by
// someone else is not an error.
func ensureDir(share SMBShare, dir string) (bool, error) {
	info, err := share.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, &os.PathError{Op: "mkdir", Path: dir, Err: ErrNotDirectory}
		}
		return false, nil
	case !isNotExist(err):
		return false, err
	}

	if err := share.Mkdir(dir, 0755); err != nil {
		if isExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// writeAll writes p in full. A writer that makes no progress without an
// error fails with io.ErrShortWrite.
func writeAll(f SMBFile, p []byte) (int64, error) {
	var total int64
	for len(p) > 0 {
		n, err := f.Write(p)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
		p = p[n:]
	}
	return total, nil
}
