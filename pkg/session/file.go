package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

// sealer transforms the serialised record before it reaches disk.
type sealer interface {
	seal(plain []byte) ([]byte, error)
	open(sealed []byte) ([]byte, error)
}

// FileStore keeps the session in a single file, mode 0600.
type FileStore struct {
	mu     sync.Mutex
	path   string
	sealer sealer
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the file at path. The file and its
// directory are created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Get() (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session.Get: read %s: %w", f.path, err)
	}
	if f.sealer != nil {
		data, err = f.sealer.open(data)
		if err != nil {
			return nil, fmt.Errorf("session.Get: %w: %v", ErrCorrupt, err)
		}
	}
	var rec map[string]string
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("session.Get: %w: %v", ErrCorrupt, err)
	}
	s, err := fromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("session.Get: %w", err)
	}
	return s, nil
}

func (f *FileStore) Set(s *domain.Session) error {
	rec, err := toRecord(s)
	if err != nil {
		return fmt.Errorf("session.Set: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("session.Set: marshal: %w", err)
	}
	if f.sealer != nil {
		data, err = f.sealer.seal(data)
		if err != nil {
			return fmt.Errorf("session.Set: seal: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("session.Set: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session.Clear: %w", err)
	}
	return nil
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so readers see either the old record or the new one.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
