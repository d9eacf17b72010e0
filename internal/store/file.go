package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
)

// FileStore keeps all users in one JSON array on disk. Each operation loads
// the whole file, mutates it, and writes it back through a temp file and a
// rename so a crash never leaves a half-written collection.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, wrap("create store directory", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Find(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(users, email); i >= 0 {
		u := users[i]
		return &u, nil
	}
	return nil, ErrUserNotFound
}

func (s *FileStore) Add(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	if indexOf(users, email) >= 0 {
		return nil, ErrDuplicateIdentity
	}

	user, err := newUser(email)
	if err != nil {
		return nil, err
	}
	if err := s.save(append(users, *user)); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *FileStore) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *FileStore) Remove(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return false, err
	}
	i := indexOf(users, email)
	if i < 0 {
		return false, nil
	}
	if err := s.save(append(users[:i], users[i+1:]...)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.load()
	return err
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() ([]models.User, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("read users file", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, wrap("decode users file", err)
	}
	return users, nil
}

func (s *FileStore) save(users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return wrap("encode users", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.tmp")
	if err != nil {
		return wrap("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return wrap("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return wrap("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return wrap("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return wrap("replace users file", err)
	}
	return nil
}
