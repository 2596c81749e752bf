package smbupload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/hirochachacha/go-smb2"
)

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "with path",
			err: &OperationError{
				Step:  StepMkdir,
				Host:  "fileserver",
				Share: "data",
				Path:  "2024/06",
				Err:   fs.ErrPermission,
			},
			want: "smb mkdir data:/2024/06@fileserver: directory create failed: permission denied",
		},
		{
			name: "without path",
			err: &OperationError{
				Step:  StepAuthenticate,
				Host:  "fileserver",
				Share: "data",
				Err:   errors.New("STATUS_LOGON_FAILURE"),
			},
			want: "smb authenticate data@fileserver: authentication failed: STATUS_LOGON_FAILURE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperationError_Is(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		step     Step
		sentinel error
	}{
		{StepValidate, ErrInvalidPath},
		{StepConnect, ErrConnect},
		{StepAuthenticate, ErrAuth},
		{StepMount, ErrShare},
		{StepShareType, ErrShareType},
		{StepMkdir, ErrDirectoryCreate},
		{StepOpen, ErrFileWrite},
		{StepWrite, ErrFileWrite},
		{StepClose, ErrFileWrite},
	}

	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			var err error = &OperationError{Step: tt.step, Share: "data", Err: cause}

			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", err, tt.sentinel)
			}
			if !errors.Is(err, cause) {
				t.Errorf("errors.Is(%v, cause) = false, want true", err)
			}
			if StepOf(err) != tt.step {
				t.Errorf("StepOf() = %q, want %q", StepOf(err), tt.step)
			}
		})
	}
}

func TestOperationError_As(t *testing.T) {
	inner := &os.PathError{Op: "mkdir", Path: "a", Err: fs.ErrExist}
	err := fmt.Errorf("upload: %w", &OperationError{Step: StepMkdir, Err: inner})

	var oe *OperationError
	if !errors.As(err, &oe) {
		t.Fatal("errors.As(*OperationError) = false, want true")
	}
	if oe.Cause() != inner {
		t.Errorf("Cause() = %v, want %v", oe.Cause(), inner)
	}

	var pe *os.PathError
	if !errors.As(err, &pe) {
		t.Error("errors.As(*os.PathError) = false, want true")
	}
	if !errors.Is(err, fs.ErrExist) {
		t.Error("errors.Is(fs.ErrExist) = false, want true")
	}
}

func TestStepOf(t *testing.T) {
	if got := StepOf(nil); got != "" {
		t.Errorf("StepOf(nil) = %q, want empty", got)
	}
	if got := StepOf(errors.New("plain")); got != "" {
		t.Errorf("StepOf(plain) = %q, want empty", got)
	}
}

func TestIsExistNotExist(t *testing.T) {
	exist := &os.PathError{Op: "mkdir", Path: "a", Err: fs.ErrExist}
	missing := &os.PathError{Op: "stat", Path: "a", Err: fs.ErrNotExist}

	if !isExist(exist) || isExist(missing) || isExist(nil) {
		t.Error("isExist() misclassified")
	}
	if !isNotExist(missing) || isNotExist(exist) || isNotExist(nil) {
		t.Error("isNotExist() misclassified")
	}
}

func TestConvertError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "nil error returns nil",
			err:      nil,
			expected: nil,
		},
		{
			name:     "object name not found",
			err:      &smb2.ResponseError{Code: statusObjectNameNotFound},
			expected: fs.ErrNotExist,
		},
		{
			name:     "object path not found",
			err:      &os.PathError{Op: "stat", Path: `a\b`, Err: &smb2.ResponseError{Code: statusObjectPathNotFound}},
			expected: fs.ErrNotExist,
		},
		{
			name:     "bad network name",
			err:      &smb2.ResponseError{Code: statusBadNetworkName},
			expected: fs.ErrNotExist,
		},
		{
			name:     "name collision",
			err:      &os.PathError{Op: "mkdir", Path: "a", Err: &smb2.ResponseError{Code: statusObjectNameCollision}},
			expected: fs.ErrExist,
		},
		{
			name:     "access denied",
			err:      &smb2.ResponseError{Code: statusAccessDenied},
			expected: fs.ErrPermission,
		},
		{
			name:     "unknown error passes through",
			err:      errors.New("unknown error"),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := convertError(tt.err)

			if tt.err == nil {
				if result != nil {
					t.Errorf("convertError() = %v, want nil", result)
				}
				return
			}

			if tt.expected == nil {
				if result != tt.err {
					t.Errorf("convertError() = %v, want %v (same error)", result, tt.err)
				}
				return
			}

			if !errors.Is(result, tt.expected) {
				t.Errorf("convertError() = %v, want %v", result, tt.expected)
			}

			var re *smb2.ResponseError
			if !errors.As(result, &re) {
				t.Errorf("convertError() = %v, lost the response error", result)
			}
		})
	}
}

func TestConvertError_KeepsPath(t *testing.T) {
	err := &os.PathError{Op: "mkdir", Path: `2024\06`, Err: &smb2.ResponseError{Code: statusObjectNameCollision}}

	result := convertError(err)

	var pe *os.PathError
	if !errors.As(result, &pe) {
		t.Fatalf("convertError() = %v, want *os.PathError", result)
	}
	if pe.Path != `2024\06` || pe.Op != "mkdir" {
		t.Errorf("PathError = %s %s, want mkdir 2024\\06", pe.Op, pe.Path)
	}
	if !strings.Contains(result.Error(), "2024") {
		t.Errorf("Error() = %q, want path in message", result.Error())
	}
}
