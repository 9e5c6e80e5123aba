// Package tokenstore persists Easy-Template sessions between process runs.
// Every store satisfies easytemplate.TokenStore: Load returns (nil, nil)
// when nothing has been saved and Save replaces the whole record.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// DefaultPath returns the token cache location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "easy-template", "token.json")
}

// Memory keeps the session in process memory only.
type Memory struct {
	mu      sync.Mutex
	session *easytemplate.Session
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns the stored session, or nil if none.
func (m *Memory) Load(context.Context) (*easytemplate.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil //nolint:nilnil // nothing stored yet
	}
	s := *m.session
	return &s, nil
}

// Save replaces the stored session.
func (m *Memory) Save(_ context.Context, s easytemplate.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	return nil
}

// codec transforms the record on its way to and from disk.
type codec interface {
	seal([]byte) ([]byte, error)
	open([]byte) ([]byte, error)
}

type plain struct{}

func (plain) seal(b []byte) ([]byte, error) { return b, nil }
func (plain) open(b []byte) ([]byte, error) { return b, nil }

// File stores the session as a JSON record on disk.
type File struct {
	path  string
	codec codec
	mu    sync.Mutex
}

// NewFile returns a store writing plain JSON to path.
func NewFile(path string) *File {
	return &File{path: path, codec: plain{}}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Load reads the record. A missing file is not an error.
func (f *File) Load(context.Context) (*easytemplate.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading %s: %w", f.path, err)
	}

	data, err = f.codec.open(data)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: opening %s: %w", f.path, err)
	}

	var s easytemplate.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("tokenstore: decoding %s: %w", f.path, err)
	}
	return &s, nil
}

// Save writes the record atomically (temp file + rename) with 0600
// permissions.
func (f *File) Save(_ context.Context, s easytemplate.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding: %w", err)
	}
	data, err = f.codec.seal(data)
	if err != nil {
		return fmt.Errorf("tokenstore: sealing: %w", err)
	}

	return writeAtomic(f.path, data)
}

// Clear removes the record.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenstore: removing %s: %w", f.path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return fmt.Errorf("tokenstore: creating directory %s: %w", dir, err)
	}

	// Same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenstore: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: setting permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: writing: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: syncing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: closing: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenstore: renaming: %w", err)
	}

	success = true
	return nil
}
