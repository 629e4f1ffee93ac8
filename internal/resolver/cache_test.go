package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/routewise/routewise/internal/catalog"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func sampleEffective(userID int64) Effective {
	return Effective{
		UserID: userID,
		Role:   "operator",
		Domains: map[catalog.Domain]DomainResult{
			catalog.DomainMenu: {Effective: []string{"dashboard"}, Items: []AnnotatedItem{}},
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, 1)
	require.False(t, ok)

	c.Put(ctx, sampleEffective(1))

	got, ok := c.Get(ctx, 1)
	require.True(t, ok)
	require.Equal(t, int64(1), got.UserID)
	require.Equal(t, []string{"dashboard"}, got.Domains[catalog.DomainMenu].Effective)
}

func TestCacheInvalidateOrphansAllEntries(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Put(ctx, sampleEffective(1))
	c.Put(ctx, sampleEffective(2))

	require.NoError(t, c.Invalidate(ctx, 1))

	// The version bump is global: both entries are gone, not just the
	// invalidated user's.
	_, ok := c.Get(ctx, 1)
	require.False(t, ok)
	_, ok = c.Get(ctx, 2)
	require.False(t, ok)
}

func TestCacheNilClientDegrades(t *testing.T) {
	c := NewCache(nil, time.Minute)
	ctx := context.Background()

	c.Put(ctx, sampleEffective(1))
	_, ok := c.Get(ctx, 1)
	require.False(t, ok)
	require.NoError(t, c.Invalidate(ctx, 1))
}
