package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxWatchRetries = 5

// RedisStorage keeps session carts in Redis. Writes use WATCH so concurrent
// updates to one cart never overwrite each other.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl, now: time.Now}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func redisKey(session string) string {
	return fmt.Sprintf("cart:%s", session)
}

func (s *RedisStorage) Load(ctx context.Context, key string) (*Cart, error) {
	return s.get(ctx, s.client, redisKey(key))
}

func (s *RedisStorage) get(ctx context.Context, cmd getter, key string) (*Cart, error) {
	data, err := cmd.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return Decode(data)
}

func (s *RedisStorage) Update(ctx context.Context, key string, fn func(*Cart) error) (*Cart, error) {
	key = redisKey(key)
	var saved *Cart

	txf := func(tx *redis.Tx) error {
		c, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.Revision++
		c.UpdatedAt = s.now().UTC()

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		saved = c
		return nil
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, ErrConflict
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
