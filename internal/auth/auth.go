// Package auth is the local credential/session store used when no
// remote backend is configured. Users live in a JSON blob under a fixed
// storage key in the data directory, passwords as bcrypt hashes. The
// signed-in user id sits under a second fixed key so a restart picks
// the session back up.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/ridematch/internal/models"
)

const (
	usersKey       = "ridematch_users"
	currentUserKey = "ridematch_current"

	minPasswordLen = 6
)

var (
	ErrEmailRequired  = errors.New("auth: email required")
	ErrEmailTaken     = errors.New("auth: email already registered")
	ErrWeakPassword   = errors.New("auth: password too weak")
	ErrBadCredentials = errors.New("auth: invalid email or password")
)

// SignUpData is the raw signup form submission.
type SignUpData struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	PickupLocation string `json:"pickup_location"`
}

// UserStore owns the persisted user list and the current-user marker.
type UserStore struct {
	mu        sync.Mutex
	dir       string
	users     []models.User
	currentID string
	nextID    int
}

func NewUserStore(dir string) (*UserStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("auth: create data dir: %w", err)
	}
	s := &UserStore{dir: dir, nextID: 1}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *UserStore) load() error {
	b, err := os.ReadFile(filepath.Join(s.dir, usersKey))
	if err == nil {
		if jerr := json.Unmarshal(b, &s.users); jerr != nil {
			return fmt.Errorf("auth: corrupt user blob: %w", jerr)
		}
		for _, u := range s.users {
			var n int
			if _, serr := fmt.Sscanf(u.ID, "u%d", &n); serr == nil && n >= s.nextID {
				s.nextID = n + 1
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if b, err := os.ReadFile(filepath.Join(s.dir, currentUserKey)); err == nil {
		id := strings.TrimSpace(string(b))
		for _, u := range s.users {
			if u.ID == id {
				s.currentID = id
			}
		}
	}
	return nil
}

func (s *UserStore) save() error {
	b, err := json.Marshal(s.users)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, usersKey), b, 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, currentUserKey), []byte(s.currentID), 0o600)
}

// SignUp registers a new account and signs it in. Email uniqueness is
// case-insensitive.
func (s *UserStore) SignUp(data SignUpData) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(data.Email))
	if email == "" {
		return models.User{}, ErrEmailRequired
	}
	if len(data.Password) < minPasswordLen {
		return models.User{}, ErrWeakPassword
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return models.User{}, ErrEmailTaken
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	u := models.User{
		ID:                    fmt.Sprintf("u%d", s.nextID),
		Email:                 email,
		PasswordHash:          string(hash),
		Name:                  strings.TrimSpace(data.Name),
		Phone:                 strings.TrimSpace(data.Phone),
		DefaultPickupLocation: strings.TrimSpace(data.PickupLocation),
		CreatedAt:             time.Now(),
	}
	s.nextID++
	s.users = append(s.users, u)
	s.currentID = u.ID
	if err := s.save(); err != nil {
		return models.User{}, err
	}
	return sanitize(u), nil
}

// SignIn checks credentials and marks the user current.
func (s *UserStore) SignIn(email, password string) (models.User, error) {
	want := strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.ToLower(u.Email) != want {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return models.User{}, ErrBadCredentials
		}
		s.currentID = u.ID
		if err := s.save(); err != nil {
			return models.User{}, err
		}
		return sanitize(u), nil
	}
	return models.User{}, ErrBadCredentials
}

// SignOut clears the current-user marker. Best-effort persistence;
// an unwritable data dir must not block signing out of the session.
func (s *UserStore) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = ""
	_ = s.save()
}

// Current returns the signed-in user, if any.
func (s *UserStore) Current() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == s.currentID {
			return sanitize(u), true
		}
	}
	return models.User{}, false
}

// Get resolves a user id, for session validation.
func (s *UserStore) Get(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return sanitize(u), true
		}
	}
	return models.User{}, false
}

// sanitize strips credential material before a user leaves this package.
func sanitize(u models.User) models.User {
	u.PasswordHash = ""
	return u
}
