package kvstore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

var errMissingRedisClient = errors.New("kvstore: redis client is required")

const redisScanBatch = 256

// RedisBackend stores each key as a plain redis string.
type RedisBackend struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisBackend wraps a redis client; "namespace:" is prepended to every key.
func NewRedisBackend(client redis.UniversalClient, namespace string) (*RedisBackend, error) {
	if client == nil {
		return nil, errMissingRedisClient
	}
	if namespace != "" && !strings.HasSuffix(namespace, ":") {
		namespace += ":"
	}
	return &RedisBackend{client: client, namespace: namespace}, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := b.client.Get(ctx, b.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, b.namespace+key, value, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.namespace+key).Err()
}

func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(b.namespace+prefix) + "*"
	seen := make(map[string]struct{})
	var keys []string
	// SCAN may return a key more than once.
	iter := b.client.Scan(ctx, 0, pattern, redisScanBatch).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), b.namespace)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func escapeGlob(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(value)
}
