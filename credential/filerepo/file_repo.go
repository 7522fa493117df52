// Package filerepo persists the credential as a JSON file readable only by
// the current user.
package filerepo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/storyforge/credential"
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

var _ credential.Repo = (*FileRepo)(nil)

type FileRepo struct {
	path string
	mu   sync.Mutex
}

// New returns a repo storing the credential at folder/name, creating folder
// if needed.
func New(folder, name string) (*FileRepo, error) {
	if err := os.MkdirAll(folder, dirMode); err != nil {
		return nil, fmt.Errorf("[filerepo New] create %s: %w", folder, err)
	}
	return &FileRepo{path: filepath.Join(folder, name)}, nil
}

func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Load() (*credential.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, credential.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[filerepo Load] read: %w", err)
	}

	var c credential.Credential
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("[filerepo Load] decode: %w", err)
	}
	if c.AccessToken == "" && c.RefreshToken == "" {
		return nil, credential.ErrNotFound
	}
	return &c, nil
}

// Save writes to a temp file in the same directory and renames it over the
// old file, so a crash never leaves a partial credential behind.
func (r *FileRepo) Save(c *credential.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("[filerepo Save] encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".credential-*")
	if err != nil {
		return fmt.Errorf("[filerepo Save] create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo Save] chmod: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo Save] write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo Save] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filerepo Save] close: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("[filerepo Save] rename: %w", err)
	}
	return nil
}

func (r *FileRepo) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[filerepo Delete] %w", err)
	}
	return nil
}
