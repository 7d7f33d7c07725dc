package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthState is what the install redirect remembers until Slack calls back.
type OAuthState struct {
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedisClient parses url and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("NewRedisClient: failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRedisClient: redis connection failed: %w", err)
	}
	return client, nil
}

// RedisStateStore keeps OAuth states in redis with a TTL.
type RedisStateStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStateStore(client redis.UniversalClient, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func oauthStateKey(state string) string {
	return fmt.Sprintf("oauth_state:%s", state)
}

func (s *RedisStateStore) SaveState(ctx context.Context, state string, data OAuthState) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("SaveState: marshal state: %w", err)
	}
	if err := s.client.Set(ctx, oauthStateKey(state), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("SaveState: persist state: %w", err)
	}
	return nil
}

// ConsumeState loads and deletes the state in one step. A missing or expired
// state returns nil without error.
func (s *RedisStateStore) ConsumeState(ctx context.Context, state string) (*OAuthState, error) {
	raw, err := s.client.GetDel(ctx, oauthStateKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("ConsumeState: load state: %w", err)
	}

	var data OAuthState
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("ConsumeState: decode state: %w", err)
	}
	return &data, nil
}
