package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/logger"
)

const (
	redisOpTimeout   = 3 * time.Second
	redisTxRetries   = 5
	changeNotifyBody = "changed"
)

// RedisStore keeps each collection in one Redis hash keyed by the collection
// path. Writers PUBLISH on a channel named after the collection; subscribers
// re-read the hash when notified.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore builds a Redis-backed store and checks connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	collection, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	val, err := r.client.HGet(ctx, collection, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(val), nil
}

func (r *RedisStore) List(ctx context.Context, collection string) ([]Entry, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return r.list(ctx, collection)
}

func (r *RedisStore) list(ctx context.Context, collection string) ([]Entry, error) {
	vals, err := r.client.HGetAll(ctx, collection).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	entries := make([]Entry, 0, len(vals))
	for k, v := range vals {
		entries = append(entries, Entry{Key: k, Value: json.RawMessage(v)})
	}
	sortEntries(entries)
	return entries, nil
}

func (r *RedisStore) Set(ctx context.Context, path string, value any) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, collection, key, string(raw))
		pipe.Publish(ctx, collection, changeNotifyBody)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Update merges fields under WATCH so concurrent updates to the same
// collection do not lose each other's fields.
func (r *RedisStore) Update(ctx context.Context, path string, fields map[string]any) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, collection, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		merged, err := merge(json.RawMessage(current), fields)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, collection, key, string(merged))
			pipe.Publish(ctx, collection, changeNotifyBody)
			return nil
		})
		return err
	}

	for i := 0; i < redisTxRetries; i++ {
		err = r.client.Watch(ctx, txf, collection)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, path string) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	removed, err := r.client.HDel(ctx, collection, key).Result()
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if removed > 0 {
		if err := r.client.Publish(ctx, collection, changeNotifyBody).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", collection, err)
		}
	}
	return nil
}

func (r *RedisStore) Subscribe(ctx context.Context, collection string, fn Listener) (func(), error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}

	pubsub := r.client.Subscribe(ctx, collection)
	// Wait for the subscription to be confirmed so no write is missed
	// between the initial load and the first notification.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscriber(collection, fn, func(ctx context.Context) ([]Entry, error) {
		loadCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		return r.list(loadCtx, collection)
	})
	go sub.run(subCtx)
	sub.notify()

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				_ = pubsub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				sub.notify()
			}
		}
	}()

	logger.WithFields(logrus.Fields{"collection": collection}).Debug("Redis subscription opened")

	return func() {
		sub.close()
		cancel()
		_ = pubsub.Close()
	}, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
