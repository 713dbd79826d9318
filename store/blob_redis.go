package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisTxRetries = 5

// RedisBlob keeps the collection in one Redis string. Update uses
// WATCH/MULTI so concurrent writers from any instance serialize on the key.
type RedisBlob struct {
	client *redis.Client
}

func NewRedisBlob(client *redis.Client) *RedisBlob {
	return &RedisBlob{client: client}
}

func (b *RedisBlob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *RedisBlob) Update(ctx context.Context, key string, fn func([]byte, bool) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		ok := true
		if errors.Is(err, redis.Nil) {
			ok = false
		} else if err != nil {
			return err
		}

		next, err := fn(cur, ok)
		if err != nil || next == nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	// A failed transaction means another writer committed between WATCH
	// and EXEC; fn is re-run against the new value.
	for i := 0; i < redisTxRetries; i++ {
		err := b.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis key %s changed concurrently %d times", key, redisTxRetries)
}
