package storage

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devis/config"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "draft:b", []byte("2")))
	require.NoError(t, kv.Set(ctx, "draft:a", []byte("1")))
	require.NoError(t, kv.Set(ctx, "other:c", []byte("3")))

	got, err := kv.Get(ctx, "draft:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	keys, err := kv.Keys(ctx, "draft:")
	require.NoError(t, err)
	assert.Equal(t, []string{"draft:a", "draft:b"}, keys)

	require.NoError(t, kv.Delete(ctx, "draft:a"))
	_, err = kv.Get(ctx, "draft:a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, kv.Ping(ctx))
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	kv := NewRedisKV(client, "devis-test:"+t.Name()+":")
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := kv.Keys(ctx, "")
		for _, k := range keys {
			kv.Delete(ctx, k)
		}
		kv.Close()
	})
	exerciseKV(t, kv)
}

func TestNewKV_Disabled(t *testing.T) {
	kv, err := NewKV(context.Background(), config.RedisConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)
}

func TestNewKV_Fallback(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, AllowFallback: true}
	kv, err := NewKV(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)
}

func TestNewKV_NoFallback(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, AllowFallback: false}
	_, err := NewKV(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
