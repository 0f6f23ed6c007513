package util

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewHabitID returns a unique, opaque, time-derived id. The millisecond prefix
// preserves rough creation order; the random suffix keeps ids distinct when several
// habits are minted in the same millisecond (e.g. copy-to-today of many habits).
func NewHabitID() string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + hex.EncodeToString(suffix)
}
