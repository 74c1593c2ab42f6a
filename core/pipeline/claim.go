package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimTTL bounds how long a dispatch claim survives a crashed run before
// the track becomes selectable again.
const claimTTL = 10 * time.Minute

// ClaimStore is the optional admission control that closes the
// duplicate-selection race between overlapping invocations. Without one the
// selector's status filter is the only guard, which is the documented
// single-flight contract.
type ClaimStore interface {
	// Claim returns true when this invocation won the track.
	Claim(ctx context.Context, trackID int64) (bool, error)
}

// redisClaimStore implements ClaimStore with SET NX + TTL.
type redisClaimStore struct {
	client *redis.Client
}

// NewRedisClaimStore wraps a Redis client as a ClaimStore. A nil client
// yields a nil ClaimStore, which disables claiming.
func NewRedisClaimStore(client *redis.Client) ClaimStore {
	if client == nil {
		return nil
	}
	return &redisClaimStore{client: client}
}

func (s *redisClaimStore) Claim(ctx context.Context, trackID int64) (bool, error) {
	key := fmt.Sprintf("dispatch:claim:%d", trackID)
	ok, err := s.client.SetNX(ctx, key, time.Now().Unix(), claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to take dispatch claim for track %d: %w", trackID, err)
	}
	return ok, nil
}
