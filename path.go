package smbupload

import (
	"fmt"
	"strings"
)

// SplitSegments splits a folder path into its ordered, non-empty segments.
// Both '/' and '\' are separators, so duplicate, leading and trailing
// separators collapse:
//
//	"a/b\\c", "a//b/c" and "\\a\\b\\c\\" all yield ["a" "b" "c"].
func SplitSegments(p string) []string {
	return strings.FieldsFunc(p, isSeparator)
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// normalizeFolder returns the folder path as forward-slash joined segments
// without leading or trailing separators. The share root is "".
func normalizeFolder(p string) string {
	return strings.Join(SplitSegments(p), "/")
}

// JoinRemotePath composes the remote path of fileName inside folderPath,
// normalized to forward slashes with no doubled separators.
func JoinRemotePath(folderPath, fileName string) string {
	folder := normalizeFolder(folderPath)
	if folder == "" {
		return fileName
	}
	return folder + "/" + fileName
}

// prefixes returns the cumulative directory prefixes of folderPath in
// creation order: "a/b/c" yields ["a" "a/b" "a/b/c"].
func prefixes(folderPath string) []string {
	segs := SplitSegments(folderPath)
	out := make([]string, 0, len(segs))
	for i := range segs {
		out = append(out, strings.Join(segs[:i+1], "/"))
	}
	return out
}

// validateFolder rejects folder paths that would escape the share root or
// carry characters SMB cannot name.
func validateFolder(p string) error {
	if strings.ContainsRune(p, '\x00') {
		return fmt.Errorf("%w: folder %q contains NUL", ErrInvalidPath, p)
	}
	for _, seg := range SplitSegments(p) {
		if seg == "." || seg == ".." {
			return fmt.Errorf("%w: folder %q contains %q segment", ErrInvalidPath, p, seg)
		}
	}
	return nil
}

// validateFileName checks that name is a single, plain path element.
func validateFileName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: file name %q", ErrInvalidPath, name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: file name %q contains a separator", ErrInvalidPath, name)
	}
	return nil
}

// toSMBPath converts a normalized forward-slash path to SMB form:
// backslash separated, no leading separator. The share root is "".
func toSMBPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return strings.ReplaceAll(p, "/", "\\")
}
