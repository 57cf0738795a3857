package workq

import (
	"testing"
	"time"
)

func TestRetryDelayFor(t *testing.T) {
	cfg := defaultConfig("orders")
	cfg.retryDelay = 10 * time.Millisecond
	cfg.retryMultipliers = []int64{1, 3, 5, 10}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 30 * time.Millisecond},
		{3, 50 * time.Millisecond},
		{4, 100 * time.Millisecond},
		{5, 100 * time.Millisecond}, // clamps to the last multiplier
	}
	for _, tc := range cases {
		if got := cfg.retryDelayFor(tc.attempt); got != tc.want {
			t.Errorf("retryDelayFor(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryDelayDisabled(t *testing.T) {
	cfg := defaultConfig("orders")
	cfg.retryDelay = 0
	if got := cfg.retryDelayFor(1); got != 0 {
		t.Errorf("retryDelayFor with retryDelay<=0 = %v, want 0", got)
	}
}

func TestPayloadTTLFloor(t *testing.T) {
	cfg := defaultConfig("orders")
	cfg.retryDelay = 10 * time.Millisecond
	cfg.retries = 1

	// Sum is tiny, so the 7-day floor applies.
	if got, want := cfg.payloadTTL(), 7*24*time.Hour; got != want {
		t.Errorf("payloadTTL() = %v, want %v", got, want)
	}
}

func TestPayloadTTLDerived(t *testing.T) {
	cfg := defaultConfig("orders")
	cfg.retryDelay = 3 * 24 * time.Hour
	cfg.retries = 2
	cfg.retryMultipliers = []int64{1, 1, 1}

	// sum = 3 attempts * 3 days = 9 days; 1.5x = 13.5 days, above the floor.
	sum := 3 * (3 * 24 * time.Hour)
	want := time.Duration(1.5 * float64(sum))
	if got := cfg.payloadTTL(); got != want {
		t.Errorf("payloadTTL() = %v, want %v", got, want)
	}
}

func TestMaintenanceThrottleClamp(t *testing.T) {
	cases := []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{500 * time.Millisecond, time.Second},
		{5 * time.Second, 5 * time.Second},
		{2 * time.Minute, time.Minute},
	}
	for _, tc := range cases {
		cfg := defaultConfig("orders")
		cfg.workItemTimeout = tc.timeout
		if got := cfg.maintenanceThrottle(); got != tc.want {
			t.Errorf("maintenanceThrottle() with timeout=%v = %v, want %v", tc.timeout, got, tc.want)
		}
	}
}
