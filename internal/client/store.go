package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stemsi/tooltrack-backend/internal/model"
)

// UserStoreKey is the fixed key the signed-in user is persisted under.
const UserStoreKey = "tooltrack.user"

// StoredSession is what survives a restart of the client.
type StoredSession struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// UserStore persists the signed-in user. Save must not return before the
// write is durable.
type UserStore interface {
	Save(ctx context.Context, s StoredSession) error
	Load(ctx context.Context) (*StoredSession, error)
	Clear(ctx context.Context) error
}

// FileStore keeps the session as a JSON file named after UserStoreKey.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore inside dir. The directory is created if
// missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, UserStoreKey+".json")}, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

// Save writes to a temporary file, syncs it and renames it into place so a
// reader never sees a partial session.
func (s *FileStore) Save(_ context.Context, sess StoredSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync session file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// Load returns the stored session, or nil when nothing is stored.
func (s *FileStore) Load(_ context.Context) (*StoredSession, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess StoredSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return &sess, nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
