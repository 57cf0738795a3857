// Package store defines the contract workq engines use to talk to the
// shared key/value-plus-lists-plus-pubsub backend (§6.3 of the queue spec).
// It is intentionally narrow: a key/value store with TTLs, five list
// primitives (including one atomic cross-list move), a pub/sub channel,
// and a transaction/batch distinction. workq never depends on a concrete
// backend directly — only on this interface — so the engine can run
// against Redis in production and an in-memory fake in tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("store: key not found")

// Store is the full contract the queue engine is built on.
type Store interface {
	KV
	Lists
	PubSub

	// Tx runs fn against a Transaction that commits all-or-nothing when fn
	// returns nil, and is discarded entirely if fn returns an error or the
	// underlying backend fails to commit.
	Tx(ctx context.Context, fn func(tx Tx) error) error

	// Batch runs fn against a Batch that pipelines operations without any
	// atomicity guarantee — a cheaper fire-and-forget alternative to Tx
	// for operations that tolerate partial application.
	Batch(ctx context.Context, fn func(b Batch) error) error

	// Close releases any resources held by the store.
	Close() error
}

// KV is the key-value subset of the store contract.
type KV interface {
	// AddIfAbsent sets key to value with the given TTL only if key does not
	// already exist. Returns false (not an error) if the key was present.
	AddIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Set unconditionally sets key to value with the given TTL. A zero TTL
	// means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns ErrNotFound if key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Increment adds delta to the integer stored at key (treating an
	// absent key as 0), refreshes its TTL, and returns the new value.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// Expire resets the TTL of an existing key; a no-op if key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Lists is the ordered-sequence subset of the store contract. All four
// named lists in the spec (ready/in-flight/delayed/dead) are addressed
// purely by their key name; Lists has no notion of "which list is which".
type Lists interface {
	// Length returns the number of elements on list.
	Length(ctx context.Context, list string) (int64, error)

	// HeadPush pushes value onto the head of list.
	HeadPush(ctx context.Context, list string, value []byte) error

	// TailPopHeadPush atomically removes the tail element of src and
	// pushes it onto the head of dst in a single round trip, returning
	// ErrNotFound if src was empty. This is the one operation the spec
	// requires to be atomic outside of an explicit Tx (§5 Atomicity) —
	// it backs dequeue's ready-to-in-flight move.
	TailPopHeadPush(ctx context.Context, src, dst string) ([]byte, error)

	// Remove deletes the first occurrence of value from list.
	Remove(ctx context.Context, list string, value []byte) error

	// Range returns every element currently on list, head to tail.
	Range(ctx context.Context, list string) ([][]byte, error)
}

// PubSub is the notification-channel subset of the store contract.
type PubSub interface {
	// Subscribe registers handler to be invoked, on an unspecified
	// goroutine, for every message published to channel until the
	// returned cancel func is called or UnsubscribeAll fires.
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (cancel func(), err error)

	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// UnsubscribeAll tears down every subscription created through this
	// Store. Used by queue disposal.
	UnsubscribeAll() error
}

// Tx is the transactional view handed to Store.Tx's callback. Every
// operation queued against it either all apply, or none do.
type Tx interface {
	HeadPush(list string, value []byte)
	Remove(list string, value []byte)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

// Batch is the pipelined, non-atomic view handed to Store.Batch's callback.
type Batch interface {
	HeadPush(list string, value []byte)
	Remove(list string, value []byte)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Increment(key string, delta int64, ttl time.Duration)
}
