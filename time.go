package workq

import (
	"strconv"
	"time"
)

// encodeTime stores a timestamp as its UTC UnixNano tick count, matching
// the Enqueue/Dequeue/Wait-until timestamp entities (§3.1).
func encodeTime(t time.Time) []byte {
	return []byte(strconv.FormatInt(t.UTC().UnixNano(), 10))
}

func decodeTime(data []byte) (time.Time, bool) {
	if len(data) == 0 {
		return time.Time{}, false
	}
	ticks, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, ticks).UTC(), true
}

func encodeAttempts(n int) []byte {
	return []byte(strconv.Itoa(n))
}

func decodeAttempts(data []byte) (int, bool) {
	if len(data) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, false
	}
	return n, true
}
