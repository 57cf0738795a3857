package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/kart-io/workq/store"
)

func TestKVAddIfAbsent(t *testing.T) {
	s := New()
	ctx := context.Background()

	ok, err := s.AddIfAbsent(ctx, "k", []byte("v1"), 0)
	if err != nil || !ok {
		t.Fatalf("AddIfAbsent first write: ok=%v err=%v", ok, err)
	}

	ok, err = s.AddIfAbsent(ctx, "k", []byte("v2"), 0)
	if err != nil || ok {
		t.Fatalf("AddIfAbsent collision: ok=%v err=%v", ok, err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want v1 (second write should not have applied)", got)
	}
}

func TestKVExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 5*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); err != store.ErrNotFound {
		t.Errorf("Get after expiry = %v, want ErrNotFound", err)
	}
}

func TestIncrement(t *testing.T) {
	s := New()
	ctx := context.Background()

	v, err := s.Increment(ctx, "c", 1, 0)
	if err != nil || v != 1 {
		t.Fatalf("first increment: v=%d err=%v", v, err)
	}
	v, err = s.Increment(ctx, "c", 4, 0)
	if err != nil || v != 5 {
		t.Fatalf("second increment: v=%d err=%v", v, err)
	}
	v, err = s.Increment(ctx, "c", -2, 0)
	if err != nil || v != 3 {
		t.Fatalf("negative delta: v=%d err=%v", v, err)
	}
}

func TestTailPopHeadPush(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.HeadPush(ctx, "src", []byte("a"))
	_ = s.HeadPush(ctx, "src", []byte("b")) // src head-to-tail: b, a

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

	src, _ := s.Range(ctx, "src")
	if len(src) != 1 || string(src[0]) != "b" {
		t.Fatalf("src after move = %v", src)
	}
}

func TestTailPopHeadPushEmpty(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.TailPopHeadPush(ctx, "empty", "dst"); err != store.ErrNotFound {
		t.Errorf("TailPopHeadPush on empty list = %v, want ErrNotFound", err)
	}
}

func TestTxAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.HeadPush(ctx, "list", []byte("a"))

	err := s.Tx(ctx, func(tx store.Tx) error {
		tx.Remove("list", []byte("a"))
		tx.HeadPush("other", []byte("a"))
		return errInjected
	})
	if err != errInjected {
		t.Fatalf("Tx err = %v, want errInjected", err)
	}

	list, _ := s.Range(ctx, "list")
	if len(list) != 1 {
		t.Errorf("list after failed tx = %v, want unchanged", list)
	}
	other, _ := s.Range(ctx, "other")
	if len(other) != 0 {
		t.Errorf("other after failed tx = %v, want empty", other)
	}
}

func TestBatchAppliesImmediately(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Batch(ctx, func(b store.Batch) error {
		b.Set("k", []byte("v"), 0)
		b.Increment("c", 1, 0)
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
	if err != nil || string(c) != "1" {
		t.Errorf("counter after batch = %q, err=%v", c, err)
	}
}

func TestPublishSubscribe(t *testing.T) {
	s := New()
	ctx := context.Background()

	received := make(chan []byte, 1)
	cancel, err := s.Subscribe(ctx, "ch", func(payload []byte) {
		received <- payload
	})
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
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestUnsubscribeAllStopsDelivery(t *testing.T) {
	s := New()
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
	case <-time.After(50 * time.Millisecond):
	}
}

var errInjected = &injectedError{}

type injectedError struct{}

func (*injectedError) Error() string { return "injected" }
