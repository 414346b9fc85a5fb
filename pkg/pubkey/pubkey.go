// Package pubkey validates and inspects OpenSSH public key lines.
package pubkey

import (
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// IsValid reports whether key is structurally an OpenSSH public key: at
// least two whitespace-separated fields, a base64 second field, and a
// decoded payload whose leading length-prefixed string equals the declared
// key-type token. This is a classification, not an error path.
func IsValid(key string) bool {
	fields := strings.Fields(key)
	if len(fields) < 2 {
		return false
	}
	blob, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return false
	}
	if len(blob) < 4 {
		return false
	}
	n := binary.BigEndian.Uint32(blob)
	if uint64(n)+4 > uint64(len(blob)) {
		return false
	}
	return string(blob[4:4+n]) == fields[0]
}

// Blob returns the base64 key material of key. This is the identity used
// for duplicate detection: two keys with equal blobs are the same key no
// matter what their comments say. ok is false when the field is missing.
func Blob(key string) (string, bool) {
	fields := strings.Fields(key)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}

// SameKey reports whether a and b carry the same key material.
func SameKey(a, b string) bool {
	ab, ok := Blob(a)
	if !ok {
		return false
	}
	bb, ok := Blob(b)
	if !ok {
		return false
	}
	return ab == bb
}

// Type returns the declared key-type token, empty when absent.
func Type(key string) string {
	fields := strings.Fields(key)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Comment returns the trailing comment, empty when absent.
func Comment(key string) string {
	fields := strings.Fields(key)
	if len(fields) < 3 {
		return ""
	}
	return strings.Join(fields[2:], " ")
}

// Fingerprint renders the SHA256 fingerprint of key, as ssh-keygen -lf
// would print it.
func Fingerprint(key string) (string, error) {
	pk, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key))
	if err != nil {
		return "", errors.Wrap(err, "could not parse public key")
	}
	return ssh.FingerprintSHA256(pk), nil
}
