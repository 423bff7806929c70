package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"esgadvisor/internal/model"
)

// SessionCache holds the mutable interview state for the duration of one
// conversation. Exclusive access during a transition is guaranteed by the
// interview service's per-session lock, not here.
type SessionCache interface {
	Set(ctx context.Context, state *model.InterviewState) error
	Get(ctx context.Context, sessionID string) (*model.InterviewState, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a Redis-backed session cache. Sessions idle
// longer than ttl expire, archiving abandoned interviews.
func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(sessionID string) string {
	return "interview:session:" + sessionID
}

func (c *sessionCache) Set(ctx context.Context, state *model.InterviewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(state.SessionID), data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, sessionID string) (*model.InterviewState, error) {
	data, err := c.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var state model.InterviewState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *sessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, sessionKey(sessionID)).Err()
}
