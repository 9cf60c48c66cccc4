package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr := miniredis.RunT(t)

	manager, err := NewManager(Config{
		Addr:      mr.Addr(),
		KeyPrefix: "test:",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return mr, manager
}

func TestNewManager_ConnectFailure(t *testing.T) {
	_, err := NewManager(Config{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
}

func TestManager_SetAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "history", `[]`, 0))

	value, err := manager.Get(ctx, "history")
	require.NoError(t, err)
	assert.Equal(t, `[]`, value)

	// 键带前缀且不过期
	raw, err := mr.Get("test:history")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)
	assert.Equal(t, time.Duration(0), mr.TTL("test:history"))
}

func TestManager_SetWithTTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := manager.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_GetMissing(t *testing.T) {
	_, manager := setupTestRedis(t)

	_, err := manager.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_Delete(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "a", "1", 0))
	require.NoError(t, manager.Set(ctx, "b", "2", 0))

	require.NoError(t, manager.Delete(ctx, "a", "b", "missing"))
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))

	require.NoError(t, manager.Delete(ctx))
}

func TestManager_Ping(t *testing.T) {
	mr, manager := setupTestRedis(t)

	require.NoError(t, manager.Ping(context.Background()))

	mr.Close()
	assert.Error(t, manager.Ping(context.Background()))
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	_, err := manager.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, manager.Set(ctx, "k", "v", 0))
	assert.Error(t, manager.Delete(ctx, "k"))
	assert.Error(t, manager.Ping(ctx))
}
