package workq

import "testing"

func TestSanitizeQueueName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "orders", "orders"},
		{"whitespace stripped", "order s\t\n", "orders"},
		{"colon replaced", "tenant:orders", "tenant-orders"},
		{"multiple colons", "a:b:c", "a-b-c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeQueueName(tc.in); got != tc.want {
				t.Errorf("sanitizeQueueName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestKeySchemaBitExact(t *testing.T) {
	k := newKeySchema("orders")

	checks := map[string]string{
		"ready":      k.ready(),
		"inFlight":   k.inFlight(),
		"delayed":    k.delayed(),
		"dead":       k.dead(),
		"notifyChan": k.notifyChan(),
	}
	want := map[string]string{
		"ready":      "q:orders:in",
		"inFlight":   "q:orders:work",
		"delayed":    "q:orders:wait",
		"dead":       "q:orders:dead",
		"notifyChan": "q:orders:in",
	}
	for name, got := range checks {
		if got != want[name] {
			t.Errorf("%s = %q, want %q", name, got, want[name])
		}
	}

	const id = "deadbeef"
	if got, want := k.payload(id), "q:orders:deadbeef"; got != want {
		t.Errorf("payload = %q, want %q", got, want)
	}
	if got, want := k.attempts(id), "q:orders:deadbeef:attempts"; got != want {
		t.Errorf("attempts = %q, want %q", got, want)
	}
	if got, want := k.enqueued(id), "q:orders:deadbeef:enqueued"; got != want {
		t.Errorf("enqueued = %q, want %q", got, want)
	}
	if got, want := k.dequeued(id), "q:orders:deadbeef:dequeued"; got != want {
		t.Errorf("dequeued = %q, want %q", got, want)
	}
	if got, want := k.waitUntil(id), "q:orders:deadbeef:wait"; got != want {
		t.Errorf("waitUntil = %q, want %q", got, want)
	}
}
