package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const flowNamespace = "portal:flow"

// releaseClaim deletes a claim only if it still holds the caller's token, so
// a claim that expired and was retaken elsewhere is left alone.
var releaseClaim = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient configures a Redis client and verifies connectivity
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// FlowStore persists per-retailer step-flow snapshots in Redis. Writes are
// last-writer-wins and every save refreshes the TTL.
type FlowStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewFlowStore wraps a Redis client
func NewFlowStore(client redis.UniversalClient, ttl time.Duration) *FlowStore {
	return &FlowStore{client: client, ttl: ttl}
}

// Load decodes the stored snapshot into out. It reports false when nothing is stored.
func (s *FlowStore) Load(ctx context.Context, kind, retailerID string, out any) (bool, error) {
	data, err := s.client.Get(ctx, flowKey(kind, retailerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s flow: %w", kind, err)
	}
	return true, decodeFlow(data, out)
}

// Save stores v under the retailer's key
func (s *FlowStore) Save(ctx context.Context, kind, retailerID string, v any) error {
	data, err := encodeFlow(v)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, flowKey(kind, retailerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save %s flow: %w", kind, err)
	}
	return nil
}

// Delete drops the retailer's snapshot
func (s *FlowStore) Delete(ctx context.Context, kind, retailerID string) error {
	if err := s.client.Del(ctx, flowKey(kind, retailerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s flow: %w", kind, err)
	}
	return nil
}

// Claim takes the retailer's exclusive lock on kind for at most ttl. It
// reports false when another request holds it. The returned func releases
// the claim and is safe to call once the context is gone.
func (s *FlowStore) Claim(ctx context.Context, kind, retailerID string, ttl time.Duration) (func(), bool, error) {
	key := claimKey(kind, retailerID)
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim %s flow: %w", kind, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		releaseClaim.Run(releaseCtx, s.client, []string{key}, token)
	}
	return release, true, nil
}

func claimKey(kind, retailerID string) string {
	return flowKey(kind, retailerID) + ":lock"
}

func flowKey(kind, retailerID string) string {
	return flowNamespace + ":" + kind + ":" + retailerID
}

func encodeFlow(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow: %w", err)
	}
	return data, nil
}

// decodeFlow rejects snapshots the flow types refuse to restore
func decodeFlow(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode flow: %w", err)
	}
	return nil
}
