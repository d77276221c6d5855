package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backpine/users-service/internal/core/domain"
)

// latest reads back up to n ids, newest first.
func latest(t *testing.T, r *RecentUsers, n int64) []domain.UserID {
	t.Helper()
	members, err := r.client.ZRevRange(context.Background(), recentUsersKey, 0, n-1).Result()
	require.NoError(t, err)

	ids := make([]domain.UserID, 0, len(members))
	for _, m := range members {
		ids = append(ids, domain.UserID(m))
	}
	return ids
}

func TestRecentUsersIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	ctx := context.Background()
	client, err := Connect(ctx, Config{Addr: addr, DB: 15})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Del(ctx, recentUsersKey).Err())

	recent := NewRecentUsers(client)
	base := time.Now()
	for i, id := range []domain.UserID{"usr_1", "usr_2", "usr_3"} {
		require.NoError(t, recent.Remember(ctx, id, base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, []domain.UserID{"usr_3", "usr_2"}, latest(t, recent, 2))
}

func TestRecentUsersIntegration_Capped(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	ctx := context.Background()
	client, err := Connect(ctx, Config{Addr: addr, DB: 15})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Del(ctx, recentUsersKey).Err())

	recent := NewRecentUsers(client)
	base := time.Now()
	for i := 0; i < recentUsersCap+5; i++ {
		require.NoError(t, recent.Remember(ctx, domain.FormatUserID(int64(i)), base.Add(time.Duration(i)*time.Millisecond)))
	}

	n, err := client.ZCard(ctx, recentUsersKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(recentUsersCap), n)
	assert.Equal(t, []domain.UserID{domain.FormatUserID(recentUsersCap + 4)}, latest(t, recent, 1))
}
