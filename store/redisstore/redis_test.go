package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kart-io/workq/internal/wqlog"
	"github.com/kart-io/workq/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(&Options{Addr: mr.Addr()}, wqlog.Discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddIfAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AddIfAbsent(ctx, "k", []byte("v1"), 0)
	if err != nil || !ok {
		t.Fatalf("first write: ok=%v err=%v", ok, err)
	}
	ok, err = s.AddIfAbsent(ctx, "k", []byte("v2"), 0)
	if err != nil || ok {
		t.Fatalf("collision write: ok=%v err=%v", ok, err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get = %q, err=%v, want v1", got, err)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "absent"); err != store.ErrNotFound {
		t.Errorf("Get absent = %v, want store.ErrNotFound", err)
	}
}

func TestIncrementWithTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.Increment(ctx, "c", 1, time.Minute)
	if err != nil || v != 1 {
		t.Fatalf("increment: v=%d err=%v", v, err)
	}
	v, err = s.Increment(ctx, "c", 4, time.Minute)
	if err != nil || v != 5 {
		t.Fatalf("second increment: v=%d err=%v", v, err)
	}
}

func TestTailPopHeadPushMovesAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.HeadPush(ctx, "src", []byte("a"))
	_ = s.HeadPush(ctx, "src", []byte("b")) // head-to-tail: b, a

	v, err := s.TailPopHeadPush(ctx, "src", "dst")
	if err != nil {
		t.Fatalf("TailPopHeadPush: %v", err)
	}
	if string(v) != "a" {
		t.Errorf("popped = %q, want a (tail element)", v)
	}

	dst, err := s.Range(ctx, "dst")
	if err != nil || len(dst) != 1 || string(dst[0]) != "a" {
		t.Fatalf("dst after move = %v, err=%v", dst, err)
	}
}

func TestTailPopHeadPushEmptyReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.TailPopHeadPush(context.Background(), "empty", "dst"); err != store.ErrNotFound {
		t.Errorf("TailPopHeadPush on empty list = %v, want ErrNotFound", err)
	}
}

func TestTxAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.HeadPush(ctx, "list", []byte("a"))

	errBoom := errBoomType{}
	err := s.Tx(ctx, func(tx store.Tx) error {
		tx.Remove("list", []byte("a"))
		tx.HeadPush("other", []byte("a"))
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("Tx err = %v, want errBoom", err)
	}

	list, _ := s.Range(ctx, "list")
	if len(list) != 1 {
		t.Errorf("list after aborted tx = %v, want unchanged", list)
	}
	other, _ := s.Range(ctx, "other")
	if len(other) != 0 {
		t.Errorf("other after aborted tx = %v, want empty", other)
	}
}

func TestTxCommitsAllOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.HeadPush(ctx, "list", []byte("a"))

	err := s.Tx(ctx, func(tx store.Tx) error {
		tx.Remove("list", []byte("a"))
		tx.HeadPush("other", []byte("a"))
		tx.Set("sidecar", []byte("v"), 0)
		return nil
	})
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}

	list, _ := s.Range(ctx, "list")
	if len(list) != 0 {
		t.Errorf("list after committed tx = %v, want empty", list)
	}
	other, _ := s.Range(ctx, "other")
	if len(other) != 1 || string(other[0]) != "a" {
		t.Errorf("other after committed tx = %v", other)
	}
	v, err := s.Get(ctx, "sidecar")
	if err != nil || string(v) != "v" {
		t.Errorf("sidecar after committed tx = %q, err=%v", v, err)
	}
}

func TestBatchAppliesAllOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Batch(ctx, func(b store.Batch) error {
		b.Set("k", []byte("v"), 0)
		b.Increment("c", 3, 0)
		return nil
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}

	v, err := s.Get(ctx, "k")
	if err != nil || string(v) != "v" {
		t.Errorf("Get after batch = %q, err=%v", v, err)
	}
	c, err := s.Get(ctx, "c")
	if err != nil || string(c) != "3" {
		t.Errorf("counter after batch = %q, err=%v", c, err)
	}
}

func TestPublishSubscribe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	cancel, err := s.Subscribe(ctx, "ch", func(payload []byte) { received <- payload })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if err := s.Publish(ctx, "ch", []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "hello" {
			t.Errorf("received = %q, want hello", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestUnsubscribeAllStopsDelivery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	_, err := s.Subscribe(ctx, "ch", func(payload []byte) { received <- payload })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := s.UnsubscribeAll(); err != nil {
		t.Fatalf("UnsubscribeAll: %v", err)
	}
	_ = s.Publish(ctx, "ch", []byte("hello"))

	select {
	case got := <-received:
		t.Fatalf("received %q after UnsubscribeAll, want no delivery", got)
	case <-time.After(100 * time.Millisecond):
	}
}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }
