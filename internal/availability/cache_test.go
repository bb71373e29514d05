package availability

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewCache(client, 30*time.Second)
}

func TestCacheRoundTrip(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()
	doctorID := uuid.New()
	date := schedule.DateKey("2026-03-02")

	_, hit, err := cache.Get(ctx, doctorID, date)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, doctorID, date, []int{540, 570}))

	minutes, hit, err := cache.Get(ctx, doctorID, date)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{540, 570}, minutes)
}

func TestCacheEntryExpires(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()
	doctorID := uuid.New()
	date := schedule.DateKey("2026-03-02")

	require.NoError(t, cache.Set(ctx, doctorID, date, []int{540}))
	mr.FastForward(time.Minute)

	_, hit, err := cache.Get(ctx, doctorID, date)
	require.NoError(t, err)
	assert.False(t, hit, "entry must expire with the TTL")
}

func TestCacheInvalidate(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()
	doctorID := uuid.New()
	date := schedule.DateKey("2026-03-02")

	require.NoError(t, cache.Set(ctx, doctorID, date, []int{540}))
	require.NoError(t, cache.Invalidate(ctx, doctorID, date))

	_, hit, err := cache.Get(ctx, doctorID, date)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheInvalidateDoctorDropsAllDates(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()
	doctorID := uuid.New()
	other := uuid.New()

	require.NoError(t, cache.Set(ctx, doctorID, "2026-03-02", []int{540}))
	require.NoError(t, cache.Set(ctx, doctorID, "2026-03-03", []int{600}))
	require.NoError(t, cache.Set(ctx, other, "2026-03-02", []int{660}))

	require.NoError(t, cache.InvalidateDoctor(ctx, doctorID))

	_, hit, _ := cache.Get(ctx, doctorID, "2026-03-02")
	assert.False(t, hit)
	_, hit, _ = cache.Get(ctx, doctorID, "2026-03-03")
	assert.False(t, hit)
	_, hit, _ = cache.Get(ctx, other, "2026-03-02")
	assert.True(t, hit, "other doctors keep their entries")
}
