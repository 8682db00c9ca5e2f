// Package kv provides the local key/value storage the planner persists its
// blobs into. Every backend stores opaque byte values under short keys and
// can enforce a byte quota across all keys.
package kv

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrInvalidKey    = errors.New("invalid key")
)

const (
	KindDir    = "dir"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

// Backend is the storage capability the store depends on.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

type Options struct {
	Kind string
	// Path is a directory for KindDir and a database file for KindSQLite.
	Path string
	// Quota caps the total bytes stored across all keys. Zero means unlimited.
	Quota int64
}

func Open(opts Options) (Backend, error) {
	switch normalizeKind(opts.Kind) {
	case KindDir:
		return OpenDir(opts.Path, opts.Quota)
	case KindSQLite:
		return OpenSQLite(opts.Path, opts.Quota)
	case KindMemory:
		return NewMemory(opts.Quota), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Kind)
	}
}

func normalizeKind(kind string) string {
	kind = strings.TrimSpace(strings.ToLower(kind))
	switch kind {
	case "", "dir", "file", "files":
		return KindDir
	case "sqlite", "sqlite3", "db":
		return KindSQLite
	case "memory", "mem":
		return KindMemory
	default:
		return kind
	}
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, r := range key {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_'
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func checkQuota(quota, others int64, value []byte) error {
	if quota <= 0 {
		return nil
	}
	if others+int64(len(value)) > quota {
		return fmt.Errorf("%w: %d bytes over a %d byte limit", ErrQuotaExceeded, others+int64(len(value))-quota, quota)
	}
	return nil
}
