// Package memstore is an in-memory store.Store used by workq's own test
// suite, the way the teacher's pkg/queue/memory.go stands in for
// pkg/queue/redis.go in its tests. It is not meant for production use:
// there is nothing distributed about a process-local map.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/workq/store"
)

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Store implements store.Store entirely in process memory.
type Store struct {
	mu    sync.Mutex
	kv    map[string]entry
	lists map[string][][]byte // head is index 0

	subMu sync.RWMutex
	subs  map[string][]func([]byte)
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		kv:    make(map[string]entry),
		lists: make(map[string][][]byte),
		subs:  make(map[string][]func([]byte)),
	}
}

func ttlDeadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (s *Store) AddIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.kv[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	s.kv[key] = entry{value: append([]byte(nil), value...), expires: ttlDeadline(ttl)}
	return true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = entry{value: append([]byte(nil), value...), expires: ttlDeadline(ttl)}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.kv[key]
	if !ok || e.expired(time.Now()) {
		delete(s.kv, key)
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	delete(s.lists, key)
	return nil
}

func (s *Store) Increment(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if e, ok := s.kv[key]; ok && !e.expired(time.Now()) {
		current = decodeInt(e.value)
	}
	current += delta
	s.kv[key] = entry{value: encodeInt(current), expires: ttlDeadline(ttl)}
	return current, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.kv[key]
	if !ok {
		return nil
	}
	e.expires = ttlDeadline(ttl)
	s.kv[key] = e
	return nil
}

func (s *Store) Length(_ context.Context, list string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.lists[list])), nil
}

func (s *Store) HeadPush(_ context.Context, list string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[list] = append([][]byte{append([]byte(nil), value...)}, s.lists[list]...)
	return nil
}

func (s *Store) TailPopHeadPush(_ context.Context, src, dst string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.lists[src]
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}
	last := len(items) - 1
	value := items[last]
	s.lists[src] = items[:last]
	s.lists[dst] = append([][]byte{value}, s.lists[dst]...)
	return append([]byte(nil), value...), nil
}

func (s *Store) Remove(_ context.Context, list string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.lists[list]
	for i, v := range items {
		if string(v) == string(value) {
			s.lists[list] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) Range(_ context.Context, list string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.lists[list]
	out := make([][]byte, len(items))
	for i, v := range items {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *Store) Subscribe(_ context.Context, channel string, handler func([]byte)) (func(), error) {
	s.subMu.Lock()
	s.subs[channel] = append(s.subs[channel], handler)
	idx := len(s.subs[channel]) - 1
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		handlers := s.subs[channel]
		if idx < len(handlers) {
			handlers[idx] = nil
		}
	}
	return cancel, nil
}

func (s *Store) Publish(_ context.Context, channel string, payload []byte) error {
	s.subMu.RLock()
	handlers := append([]func([]byte){}, s.subs[channel]...)
	s.subMu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			go h(append([]byte(nil), payload...))
		}
	}
	return nil
}

func (s *Store) UnsubscribeAll() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = make(map[string][]func([]byte))
	return nil
}

func (s *Store) Tx(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) Batch(ctx context.Context, fn func(store.Batch) error) error {
	b := &memBatch{s: s, ctx: ctx}
	return fn(b)
}

func (s *Store) Close() error { return nil }

// memTx buffers operations and applies them in one shot while the store's
// mutex is already held by Store.Tx, giving it all-or-nothing semantics
// for free — a failure before commit() simply never mutates state.
type memTx struct {
	s   *Store
	ops []func()
}

func (t *memTx) HeadPush(list string, value []byte) {
	v := append([]byte(nil), value...)
	t.ops = append(t.ops, func() {
		t.s.lists[list] = append([][]byte{v}, t.s.lists[list]...)
	})
}

func (t *memTx) Remove(list string, value []byte) {
	v := append([]byte(nil), value...)
	t.ops = append(t.ops, func() {
		items := t.s.lists[list]
		for i, existing := range items {
			if string(existing) == string(v) {
				t.s.lists[list] = append(items[:i], items[i+1:]...)
				return
			}
		}
	})
}

func (t *memTx) Set(key string, value []byte, ttl time.Duration) {
	v := append([]byte(nil), value...)
	t.ops = append(t.ops, func() {
		t.s.kv[key] = entry{value: v, expires: ttlDeadline(ttl)}
	})
}

func (t *memTx) Delete(key string) {
	t.ops = append(t.ops, func() {
		delete(t.s.kv, key)
	})
}

func (t *memTx) commit() {
	for _, op := range t.ops {
		op()
	}
}

// memBatch applies each operation immediately and independently: a later
// operation's failure (there are none, in-memory) never rolls back an
// earlier one, matching the store contract's non-atomic Batch semantics.
type memBatch struct {
	s   *Store
	ctx context.Context
}

func (b *memBatch) HeadPush(list string, value []byte) { _ = b.s.HeadPush(b.ctx, list, value) }
func (b *memBatch) Remove(list string, value []byte)   { _ = b.s.Remove(b.ctx, list, value) }
func (b *memBatch) Set(key string, value []byte, ttl time.Duration) {
	_ = b.s.Set(b.ctx, key, value, ttl)
}
func (b *memBatch) Delete(key string) { _ = b.s.Delete(b.ctx, key) }
func (b *memBatch) Increment(key string, delta int64, ttl time.Duration) {
	_, _ = b.s.Increment(b.ctx, key, delta, ttl)
}

func encodeInt(v int64) []byte {
	if v == 0 {
		return []byte("0")
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return buf[pos:]
}

func decodeInt(b []byte) int64 {
	var v int64
	neg := false
	for i, c := range b {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v
}
