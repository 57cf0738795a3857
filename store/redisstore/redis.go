// Package redisstore implements store.Store on top of Redis, the way the
// teacher's pkg/queue/redis.go backs its Queue interface with a
// *redis.Client. Lists map directly to Redis lists, the atomic
// tail-pop-plus-head-push required by dequeue maps to RPOPLPUSH, and the
// notification channel maps to Redis pub/sub.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/workq/internal/wqlog"
	"github.com/kart-io/workq/store"
)

// Options configures the Redis connection, mirroring the shape of the
// teacher's RedisOptions in pkg/queue/types.go.
type Options struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

func (o *Options) withDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	cp := *o
	if cp.DialTimeout == 0 {
		cp.DialTimeout = 5 * time.Second
	}
	if cp.ReadTimeout == 0 {
		cp.ReadTimeout = 3 * time.Second
	}
	if cp.WriteTimeout == 0 {
		cp.WriteTimeout = 3 * time.Second
	}
	return &cp
}

// Store implements store.Store against a single *redis.Client.
type Store struct {
	client *redis.Client
	logger wqlog.Logger

	mu   sync.Mutex
	subs []func()
}

// New dials Redis and verifies connectivity before returning.
func New(opts *Options, log wqlog.Logger) (*Store, error) {
	if log == nil {
		log = wqlog.Discard
	}
	o := opts.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		MaxRetries:   o.MaxRetries,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), o.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: connect: %w", err)
	}

	return &Store{client: client, logger: log}, nil
}

// NewWithClient adopts an externally managed *redis.Client; the caller
// remains responsible for closing it, mirroring NewRedisQueueWithClient
// in the teacher's queue/backends/redis package.
func NewWithClient(client *redis.Client, log wqlog.Logger) *Store {
	if log == nil {
		log = wqlog.Discard
	}
	return &Store{client: client, logger: log}
}

func (s *Store) AddIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redisstore: del %s: %w", key, err)
	}
	return nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, delta)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redisstore: incrby %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: expire %s: %w", key, err)
	}
	return nil
}

func (s *Store) Length(ctx context.Context, list string) (int64, error) {
	n, err := s.client.LLen(ctx, list).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: llen %s: %w", list, err)
	}
	return n, nil
}

func (s *Store) HeadPush(ctx context.Context, list string, value []byte) error {
	if err := s.client.LPush(ctx, list, value).Err(); err != nil {
		return fmt.Errorf("redisstore: lpush %s: %w", list, err)
	}
	return nil
}

// TailPopHeadPush uses RPOPLPUSH, which Redis guarantees atomic: the
// element never exists on neither list nor both at once, satisfying the
// spec's requirement (§5 Atomicity) that dequeue's ready-to-in-flight
// move be a single round trip.
func (s *Store) TailPopHeadPush(ctx context.Context, src, dst string) ([]byte, error) {
	v, err := s.client.RPopLPush(ctx, src, dst).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: rpoplpush %s->%s: %w", src, dst, err)
	}
	return v, nil
}

func (s *Store) Remove(ctx context.Context, list string, value []byte) error {
	if err := s.client.LRem(ctx, list, 1, value).Err(); err != nil {
		return fmt.Errorf("redisstore: lrem %s: %w", list, err)
	}
	return nil
}

func (s *Store) Range(ctx context.Context, list string) ([][]byte, error) {
	vals, err := s.client.LRange(ctx, list, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: lrange %s: %w", list, err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// Subscribe starts a goroutine relaying messages from a dedicated Redis
// pub/sub connection to handler until cancel is called.
func (s *Store) Subscribe(ctx context.Context, channel string, handler func([]byte)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redisstore: subscribe %s: %w", channel, err)
	}

	done := make(chan struct{})
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	s.mu.Lock()
	s.subs = append(s.subs, cancel)
	s.mu.Unlock()

	return cancel, nil
}

func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redisstore: publish %s: %w", channel, err)
	}
	return nil
}

func (s *Store) UnsubscribeAll() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	return nil
}

// Tx commits every queued operation in one MULTI/EXEC round trip. If fn
// returns an error, nothing is queued to Redis at all — the transaction
// is never started — satisfying the "failed transaction must not
// partially move the id" requirement in §5.
func (s *Store) Tx(ctx context.Context, fn func(store.Tx) error) error {
	tx := &redisTx{}
	if err := fn(tx); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		tx.apply(pipe)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: transaction: %w", err)
	}
	return nil
}

// Batch pipelines every queued operation without MULTI/EXEC, so a
// mid-pipeline failure can leave some operations applied and others not.
func (s *Store) Batch(ctx context.Context, fn func(store.Batch) error) error {
	b := &redisBatch{}
	if err := fn(b); err != nil {
		return err
	}

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		b.apply(pipe)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: batch: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.UnsubscribeAll(); err != nil {
		return err
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redisstore: close: %w", err)
	}
	return nil
}

type redisOp func(pipe redis.Pipeliner)

type redisTx struct{ ops []redisOp }

func (t *redisTx) HeadPush(list string, value []byte) {
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.LPush(context.Background(), list, value) })
}

func (t *redisTx) Remove(list string, value []byte) {
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.LRem(context.Background(), list, 1, value) })
}

func (t *redisTx) Set(key string, value []byte, ttl time.Duration) {
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.Set(context.Background(), key, value, ttl) })
}

func (t *redisTx) Delete(key string) {
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.Del(context.Background(), key) })
}

func (t *redisTx) apply(pipe redis.Pipeliner) {
	for _, op := range t.ops {
		op(pipe)
	}
}

type redisBatch struct{ ops []redisOp }

func (b *redisBatch) HeadPush(list string, value []byte) {
	b.ops = append(b.ops, func(p redis.Pipeliner) { p.LPush(context.Background(), list, value) })
}

func (b *redisBatch) Remove(list string, value []byte) {
	b.ops = append(b.ops, func(p redis.Pipeliner) { p.LRem(context.Background(), list, 1, value) })
}

func (b *redisBatch) Set(key string, value []byte, ttl time.Duration) {
	b.ops = append(b.ops, func(p redis.Pipeliner) { p.Set(context.Background(), key, value, ttl) })
}

func (b *redisBatch) Delete(key string) {
	b.ops = append(b.ops, func(p redis.Pipeliner) { p.Del(context.Background(), key) })
}

func (b *redisBatch) Increment(key string, delta int64, ttl time.Duration) {
	b.ops = append(b.ops, func(p redis.Pipeliner) {
		p.IncrBy(context.Background(), key, delta)
		if ttl > 0 {
			p.Expire(context.Background(), key, ttl)
		}
	})
}

func (b *redisBatch) apply(pipe redis.Pipeliner) {
	for _, op := range b.ops {
		op(pipe)
	}
}
