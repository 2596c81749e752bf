package smbupload

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitSegments(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{"forward slashes", "a/b/c", []string{"a", "b", "c"}},
		{"backslashes", `a\b\c`, []string{"a", "b", "c"}},
		{"mixed separators", `a/b\c`, []string{"a", "b", "c"}},
		{"duplicate separators", "a//b/c", []string{"a", "b", "c"}},
		{"leading and trailing backslashes", `\a\b\c\`, []string{"a", "b", "c"}},
		{"mixed duplicates", `/\a\\/b//\c/`, []string{"a", "b", "c"}},
		{"date layout", "2024/06/01/123456789", []string{"2024", "06", "01", "123456789"}},
		{"single segment", "data", []string{"data"}},
		{"empty", "", []string{}},
		{"only separators", `//\\`, []string{}},
		{"spaces are kept", "My Docs/2024", []string{"My Docs", "2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSegments(tt.path)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSegments(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSplitSegments_SeparatorStyleInsensitive(t *testing.T) {
	variants := []string{"a/b\\c", "a//b/c", "\\a\\b\\c\\", "/a/b/c/", "a\\\\b\\c"}
	want := []string{"a", "b", "c"}

	for _, v := range variants {
		if got := SplitSegments(v); !reflect.DeepEqual(got, want) {
			t.Errorf("SplitSegments(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestJoinRemotePath(t *testing.T) {
	tests := []struct {
		folder string
		file   string
		want   string
	}{
		{"2024/06/01/123456789", "test.txt", "2024/06/01/123456789/test.txt"},
		{`2024\06\01\`, "test.txt", "2024/06/01/test.txt"},
		{"/reports//daily/", "out.csv", "reports/daily/out.csv"},
		{"", "root.txt", "root.txt"},
		{"/", "root.txt", "root.txt"},
	}

	for _, tt := range tests {
		if got := JoinRemotePath(tt.folder, tt.file); got != tt.want {
			t.Errorf("JoinRemotePath(%q, %q) = %q, want %q", tt.folder, tt.file, got, tt.want)
		}
	}
}

func TestPrefixes(t *testing.T) {
	got := prefixes(`2024\06/01//123456789`)
	want := []string{"2024", "2024/06", "2024/06/01", "2024/06/01/123456789"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("prefixes() = %q, want %q", got, want)
	}

	if got := prefixes("/"); len(got) != 0 {
		t.Errorf("prefixes(\"/\") = %q, want empty", got)
	}
}

func TestValidateFolder(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple", "a/b/c", false},
		{"root", "/", false},
		{"empty", "", false},
		{"dot segment", "a/./b", true},
		{"dotdot segment", `a\..\b`, true},
		{"leading dotdot", "../etc", true},
		{"NUL byte", "a/\x00/b", true},
		{"dots inside names are fine", "a/v1.2/b..c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFolder(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateFolder(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPath) {
				t.Errorf("validateFolder(%q) error = %v, want ErrInvalidPath", tt.path, err)
			}
		})
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		wantErr  bool
	}{
		{"plain", "test.txt", false},
		{"no extension", "README", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"forward slash", "a/b.txt", true},
		{"backslash", `a\b.txt`, true},
		{"NUL byte", "a\x00.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileName(tt.fileName)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateFileName(%q) error = %v, wantErr %v", tt.fileName, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPath) {
				t.Errorf("validateFileName(%q) error = %v, want ErrInvalidPath", tt.fileName, err)
			}
		})
	}
}

func TestToSMBPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/path/to/file", `path\to\file`},
		{"path/to/file", `path\to\file`},
		{"/", ""},
		{".", ""},
		{"", ""},
		{"2024/06/01/test.txt", `2024\06\01\test.txt`},
	}

	for _, tt := range tests {
		if got := toSMBPath(tt.path); got != tt.want {
			t.Errorf("toSMBPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
