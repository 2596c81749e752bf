package smbupload

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// Credentials carries what NTLM session setup needs. The password itself is
// not kept; only its NT hash.
type Credentials struct {
	Username string
	Domain   string
	Hash     []byte
}

// String returns DOMAIN\user without secret material.
func (c Credentials) String() string {
	if c.Domain == "" {
		return c.Username
	}
	return c.Domain + `\` + c.Username
}

// NTHash returns the NT one-way function of password: MD4 over its
// UTF-16LE encoding.
func NTHash(password string) []byte {
	u := utf16.Encode([]rune(password))
	b := make([]byte, 2*len(u))
	for i, v := range u {
		b[2*i] = byte(v)
		b[2*i+1] = byte(v >> 8)
	}

	h := md4.New()
	h.Write(b)
	return h.Sum(nil)
}

// ParseNTHash decodes a hex NT hash. The "LM:NT" form is accepted and the LM
// half ignored.
func ParseNTHash(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid NT hash: %w", err)
	}
	if len(b) != md4.Size {
		return nil, fmt.Errorf("invalid NT hash: want %d bytes, got %d", md4.Size, len(b))
	}
	return b, nil
}
