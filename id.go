package workq

import (
	"crypto/rand"
	"encoding/hex"
)

// generateID produces the 32-hex-character random item id §3.1 mandates:
// 16 random bytes hex-encoded, adapted from the teacher's
// pkg/utils/idgen crypto/rand+hex approach (minus its timestamp/counter
// prefix, which the spec's bit-exact id format has no room for).
func generateID() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
