// Package session provides the process-wide session cache: redis-backed
// session storage, advisory session markers, and sign-in throttling.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Data holds what is stored for each active session token.
type Data struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedisStore implements session storage using Redis.
type RedisStore struct {
	client        *redis.Client
	prefix        string
	markerPrefix  string
	attemptPrefix string
	attemptLimit  int
	attemptWindow time.Duration
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:        client,
		prefix:        "session:",
		markerPrefix:  "marker:",
		attemptPrefix: "signin_fail:",
		attemptLimit:  5,
		attemptWindow: 15 * time.Minute,
	}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

// SaveSession stores a session with expiration.
func (s *RedisStore) SaveSession(ctx context.Context, tokenHash string, data Data, expiresAt time.Time) error {
	data.CreatedAt = time.Now()
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	if err := s.client.Set(ctx, s.key(tokenHash), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LookupSession retrieves an active session.
func (s *RedisStore) LookupSession(ctx context.Context, tokenHash string) (Data, error) {
	jsonData, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if err == redis.Nil {
		return Data{}, fmt.Errorf("session not found or expired")
	}
	if err != nil {
		return Data{}, fmt.Errorf("lookup session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return Data{}, fmt.Errorf("unmarshal session data: %w", err)
	}
	return data, nil
}

// RevokeSession deletes a session.
func (s *RedisStore) RevokeSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// SetMarker records the advisory session-presence marker for a user. The
// marker is only a hint for route guards; authorization always
// re-validates the token.
func (s *RedisStore) SetMarker(ctx context.Context, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.markerPrefix+userID, "true", ttl).Err(); err != nil {
		return fmt.Errorf("set session marker: %w", err)
	}
	return nil
}

// ClearMarker removes the advisory marker.
func (s *RedisStore) ClearMarker(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.markerPrefix+userID).Err(); err != nil {
		return fmt.Errorf("clear session marker: %w", err)
	}
	return nil
}

// HasMarker reports whether the advisory marker is present.
func (s *RedisStore) HasMarker(ctx context.Context, userID string) (bool, error) {
	count, err := s.client.Exists(ctx, s.markerPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("check session marker: %w", err)
	}
	return count > 0, nil
}

// Allow reports whether a sign-in attempt for the email is within the
// failure budget.
func (s *RedisStore) Allow(ctx context.Context, email string) (bool, error) {
	count, err := s.client.Get(ctx, s.attemptPrefix+email).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read attempt count: %w", err)
	}
	return count < s.attemptLimit, nil
}

// RecordFailure counts one failed sign-in attempt within the window.
func (s *RedisStore) RecordFailure(ctx context.Context, email string) error {
	key := s.attemptPrefix + email
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, s.attemptWindow).Err(); err != nil {
			return fmt.Errorf("expire attempt counter: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter after a successful sign-in.
func (s *RedisStore) Reset(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.attemptPrefix+email).Err(); err != nil {
		return fmt.Errorf("reset attempt counter: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
