package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/existflow/taskcore/internal/model"
)

// Persister stores the session between process runs
type Persister interface {
	Load() (*model.Session, error)
	Save(s *model.Session) error
	Clear() error
}

// FilePersister keeps the session in a JSON file readable only by the user
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister writing to path
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load returns the stored session, or nil when there is none or it is
// incomplete
func (p *FilePersister) Load() (*model.Session, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	if !s.Valid() {
		return nil, nil
	}
	return &s, nil
}

// Save writes s with 0600 permissions
func (p *FilePersister) Save(s *model.Session) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(p.path, data, 0600)
}

// Clear removes the stored session
func (p *FilePersister) Clear() error {
	err := os.Remove(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryPersister keeps the session in memory only
type MemoryPersister struct {
	session *model.Session
}

// Load implements Persister
func (p *MemoryPersister) Load() (*model.Session, error) {
	if p.session == nil {
		return nil, nil
	}
	s := *p.session
	return &s, nil
}

// Save implements Persister
func (p *MemoryPersister) Save(s *model.Session) error {
	c := *s
	p.session = &c
	return nil
}

// Clear implements Persister
func (p *MemoryPersister) Clear() error {
	p.session = nil
	return nil
}
