package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/backpine/users-service/internal/core/domain"
)

const (
	recentUsersKey = "users:recent"
	recentUsersCap = 100
)

// RecentUsers is the KV binding: a capped sorted set of recently created
// user ids scored by creation time.
type RecentUsers struct {
	client *redis.Client
}

// NewRecentUsers creates a RecentUsers wrapping the given Redis client.
func NewRecentUsers(client *redis.Client) *RecentUsers {
	return &RecentUsers{client: client}
}

// Remember records id and trims the set to the newest recentUsersCap entries.
func (r *RecentUsers) Remember(ctx context.Context, id domain.UserID, at time.Time) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, recentUsersKey, redis.Z{Score: float64(at.UnixMilli()), Member: string(id)})
		p.ZRemRangeByRank(ctx, recentUsersKey, 0, -recentUsersCap-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remember user: %w", err)
	}
	return nil
}
