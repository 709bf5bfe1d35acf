package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionTTL = 30 * 24 * time.Hour

// SessionStore maps opaque bearer tokens to user ids. The memory
// implementation serves a single process; the Redis one survives
// restarts and is selected when REDIS_ADDR is set.
type SessionStore interface {
	Create(userID string) (string, error)
	Resolve(token string) (string, bool)
	Revoke(token string)
}

type MemorySessions struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{tokens: make(map[string]string)}
}

func (m *MemorySessions) Create(userID string) (string, error) {
	token := uuid.NewString()
	m.mu.Lock()
	m.tokens[token] = userID
	m.mu.Unlock()
	return token, nil
}

func (m *MemorySessions) Resolve(token string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.tokens[token]
	return id, ok
}

func (m *MemorySessions) Revoke(token string) {
	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()
}

// RedisSessions keeps tokens under "session:<token>" with a TTL.
type RedisSessions struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisSessions(addr, password string) *RedisSessions {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisSessions{client: c, ctx: context.Background()}
}

func sessionKey(token string) string { return "session:" + token }

func (r *RedisSessions) Create(userID string) (string, error) {
	token := uuid.NewString()
	if err := r.client.Set(r.ctx, sessionKey(token), userID, sessionTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisSessions) Resolve(token string) (string, bool) {
	v, err := r.client.Get(r.ctx, sessionKey(token)).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (r *RedisSessions) Revoke(token string) {
	_ = r.client.Del(r.ctx, sessionKey(token)).Err()
}
