// Package auth manages user accounts and JWT access tokens.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// User is a stored account. The password hash never leaves the package.
type User struct {
	ID           string `json:"user_id"`
	Username     string `json:"-"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
	IsActive     bool   `json:"is_active"`
}

// UserStore persists user accounts in a JSON file keyed by username. Every
// mutation rewrites the whole file; account volume is small enough that
// this stays cheap.
type UserStore struct {
	mu   sync.RWMutex
	path string
}

// NewUserStore opens (or creates) the store at path, creating parent
// directories as needed.
func NewUserStore(path string) (*UserStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("auth: create data dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
			return nil, fmt.Errorf("auth: init users file: %w", err)
		}
	}
	return &UserStore{path: path}, nil
}

// Get returns the user with the given username.
func (s *UserStore) Get(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}

	user, ok := users[username]
	if !ok {
		return nil, domain.NewNotFoundError("user", username)
	}
	user.Username = username
	return &user, nil
}

// Create adds a new user. Usernames and emails must both be unique.
func (s *UserStore) Create(user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := users[user.Username]; ok {
		return fmt.Errorf("auth: username taken: %w", domain.ErrAlreadyExists)
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("auth: email already registered: %w", domain.ErrAlreadyExists)
		}
	}

	users[user.Username] = user
	return s.save(users)
}

// Count returns the number of stored users.
func (s *UserStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

func (s *UserStore) load() (map[string]User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("auth: read users file: %w", err)
	}

	users := make(map[string]User)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &users); err != nil {
			return nil, fmt.Errorf("auth: parse users file: %w", err)
		}
	}
	return users, nil
}

// save writes atomically via a temp file so a crash mid-write cannot
// truncate the store.
func (s *UserStore) save(users map[string]User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: encode users: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("auth: write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("auth: replace users file: %w", err)
	}
	return nil
}

// nowISO returns the current time formatted the way store timestamps are kept.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
