// Package dispatch pushes match updates to connected user sessions
// over websockets. Delivery is best-effort; a user without an open
// socket just sees the match on their next page load.
package dispatch

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ridematch/internal/models"
)

var ErrNoSession = errors.New("dispatch: no live session")

// WSSession serializes writes to one user's connection.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(m models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(m)
}

// WSRegistry holds live sessions keyed by user id. A reconnect
// replaces the previous session.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession)}
}

func (r *WSRegistry) Add(userID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[userID]; ok {
		_ = old.conn.Close()
	}
	r.sessions[userID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		_ = s.conn.Close()
		delete(r.sessions, userID)
	}
}

// NotifyMatch sends the match to the user's live session, if any.
func (r *WSRegistry) NotifyMatch(userID string, m models.Match) error {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.send(m); err != nil {
		r.Remove(userID)
		return err
	}
	return nil
}
