// Package devicestate persists small JSON documents in a directory on the
// local device, one file per key.
package devicestate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var ErrNotFound = errors.New("state not found")

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type Dir struct {
	path string
	mu   sync.Mutex
}

func Open(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) file(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid state key %q", key)
	}
	return filepath.Join(d.path, key+".json"), nil
}

// Read decodes the document stored under key into v.
func (d *Dir) Read(key string, v any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(key, v)
}

func (d *Dir) read(key string, v any) error {
	name, err := d.file(key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Write replaces the document under key. The file is written to a temp file
// and renamed so a crash never leaves a torn document.
func (d *Dir) Write(key string, v any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(key, v)
}

func (d *Dir) write(key string, v any) error {
	name, err := d.file(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(d.path, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Modify runs read, fn and write under the directory lock. fn receives
// found=false when nothing is stored yet.
func (d *Dir) Modify(key string, v any, fn func(found bool) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	found := true
	if err := d.read(key, v); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		found = false
	}
	if err := fn(found); err != nil {
		return err
	}
	return d.write(key, v)
}

func (d *Dir) Remove(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, err := d.file(key)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
