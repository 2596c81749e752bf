package smbupload

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPath indicates a folder path or file name is unusable.
	ErrInvalidPath = errors.New("invalid path")

	// ErrConnect indicates the transport connection could not be opened.
	ErrConnect = errors.New("connect failed")

	// ErrAuth indicates the server rejected the session setup.
	ErrAuth = errors.New("authentication failed")

	// ErrShare indicates the tree connect to the share failed.
	ErrShare = errors.New("share connect failed")

	// ErrShareType indicates the share exists but is not a disk share.
	ErrShareType = errors.New("not a disk share")

	// ErrDirectoryCreate indicates the folder chain could not be created.
	ErrDirectoryCreate = errors.New("directory create failed")

	// ErrFileWrite indicates the target file could not be opened, written or flushed.
	ErrFileWrite = errors.New("file write failed")

	// ErrNotDirectory indicates a path segment exists but is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Step identifies a stage of the write sequence.
type Step string

const (
	StepValidate     Step = "validate"
	StepConnect      Step = "connect"
	StepAuthenticate Step = "authenticate"
	StepMount        Step = "mount"
	StepShareType    Step = "share_type"
	StepMkdir        Step = "mkdir"
	StepOpen         Step = "open"
	StepWrite        Step = "write"
	StepClose        Step = "close"
)

// sentinel returns the taxonomy error a step failure is classified as.
func (s Step) sentinel() error {
	switch s {
	case StepValidate:
		return ErrInvalidPath
	case StepConnect:
		return ErrConnect
	case StepAuthenticate:
		return ErrAuth
	case StepMount:
		return ErrShare
	case StepShareType:
		return ErrShareType
	case StepMkdir:
		return ErrDirectoryCreate
	default:
		return ErrFileWrite
	}
}

// OperationError is the single error type returned by Writer.WriteFile.
// It records the failed step and target, and keeps the original cause.
type OperationError struct {
	Step  Step
	Host  string
	Share string
	Path  string
	Err   error
}

func (e *OperationError) Error() string {
	target := e.Share
	if e.Path != "" {
		target = e.Share + ":/" + e.Path
	}
	return fmt.Sprintf("smb %s %s@%s: %v: %v", e.Step, target, e.Host, e.Step.sentinel(), e.Err)
}

// Unwrap exposes both the step sentinel and the original cause, so
// errors.Is matches either.
func (e *OperationError) Unwrap() []error {
	return []error{e.Step.sentinel(), e.Err}
}

// Cause returns the original error.
func (e *OperationError) Cause() error {
	return e.Err
}

// StepOf returns the failed step of err, or "" if err is not an OperationError.
func StepOf(err error) Step {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Step
	}
	return ""
}

// isExist reports whether err means the target already exists.
func isExist(err error) bool {
	return err != nil && errors.Is(err, fs.ErrExist)
}

// isNotExist reports whether err means the target is missing.
func isNotExist(err error) bool {
	return err != nil && errors.Is(err, fs.ErrNotExist)
}
