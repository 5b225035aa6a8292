package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestStores(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			content := []byte("encrypted message body")

			hash, err := store.Put(ctx, content)
			require.NoError(t, err)
			assert.Equal(t, Hash(content), hash)

			again, err := store.Put(ctx, content)
			require.NoError(t, err)
			assert.Equal(t, hash, again)

			got, err := store.Fetch(ctx, hash)
			require.NoError(t, err)
			assert.Equal(t, content, got)

			_, err = store.Fetch(ctx, common.HexToHash("0x01"))
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestRedisStoreRejectsTamperedContent(t *testing.T) {
	store, mr := newRedisStore(t)
	hash, err := store.Put(context.Background(), []byte("original"))
	require.NoError(t, err)

	require.NoError(t, mr.Set(defaultKeyPrefix+hash.Hex(), "tampered"))
	_, err = store.Fetch(context.Background(), hash)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
