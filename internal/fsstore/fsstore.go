// Package fsstore provides small file persistence primitives: atomic JSON
// snapshots and advisory cross-process locks. All state files the bot writes
// go through here so a crash mid-write never leaves a torn file behind.
package fsstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

var (
	ErrInvalidPath = errors.New("fsstore: invalid path")
	ErrLockTimeout = errors.New("fsstore: lock timeout")
	ErrLockFailed  = errors.New("fsstore: lock unavailable")
	ErrDecode      = errors.New("fsstore: decode failed")
	ErrWrite       = errors.New("fsstore: atomic write failed")
)

func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}

func EnsureDir(path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p, dirPerm); err != nil {
		return fmt.Errorf("fsstore ensure dir %s: %w", p, err)
	}
	return nil
}

// ReadJSON decodes path into out. A missing or empty file is not an error;
// it reports found=false so callers can start from a zero value.
func ReadJSON(path string, out any) (bool, error) {
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", p, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecode, p, err)
	}
	return true, nil
}

// WriteJSONAtomic persists v as indented JSON via a temp file in the target
// directory followed by rename, so readers only ever observe complete
// snapshots.
func WriteJSONAtomic(path string, v any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, p, err)
	}
	data = append(data, '\n')
	return writeAtomic(p, data)
}

func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrWrite, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrWrite, path, err)
	}

	// Best effort directory sync for durability; ignore failures.
	if dirFD, err := os.Open(dir); err == nil {
		_ = dirFD.Sync()
		_ = dirFD.Close()
	}
	return nil
}
