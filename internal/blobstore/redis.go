package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "blob:"

// RedisStore keeps blobs in Redis under prefix+hex(hash). Blobs never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(hash common.Hash) string {
	return r.prefix + hash.Hex()
}

// Fetch returns the blob for hash, verifying its content address.
func (r *RedisStore) Fetch(ctx context.Context, hash common.Hash) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("blob %s: %w", hash.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch blob %s: %w", hash.Hex(), err)
	}
	if err := verify(hash, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Put stores data and returns its hash. Storing the same content twice is a no-op.
func (r *RedisStore) Put(ctx context.Context, data []byte) (common.Hash, error) {
	hash := Hash(data)
	if err := r.client.SetNX(ctx, r.key(hash), data, 0).Err(); err != nil {
		return common.Hash{}, fmt.Errorf("put blob %s: %w", hash.Hex(), err)
	}
	return hash, nil
}
