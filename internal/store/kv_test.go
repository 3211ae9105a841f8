package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestMemoryKV 测试内存 KV 的读写删与过期
func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

// TestMemoryKV_TTL 测试过期键不可读
func TestMemoryKV_TTL(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := kv.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}
