package kv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const dirExt = ".json"

// Dir stores each key as <key>.json inside a directory.
type Dir struct {
	Root  string
	quota int64
}

func OpenDir(root string, quota int64) (*Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("data directory is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Dir{Root: root, quota: quota}, nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.Root, key+dirExt)
}

func (d *Dir) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(d.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (d *Dir) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if d.quota > 0 {
		others, err := d.usedExcept(key)
		if err != nil {
			return err
		}
		if err := checkQuota(d.quota, others, value); err != nil {
			return err
		}
	}
	return atomicWriteFile(d.path(key), value, 0o644)
}

func (d *Dir) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Dir) Keys() ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, dirExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, dirExt))
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *Dir) Close() error { return nil }

func (d *Dir) usedExcept(key string) (int64, error) {
	keys, err := d.Keys()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, k := range keys {
		if k == key {
			continue
		}
		info, err := os.Stat(d.path(k))
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
