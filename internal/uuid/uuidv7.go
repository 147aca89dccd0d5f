// Package uuid generates the time-ordered identifiers used for ledger rows.
package uuid

import (
	"time"

	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string stamped with the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a UUIDv7 string whose 48-bit millisecond prefix is taken
// from t, so ids minted for the same ledger instant sort together. The
// remaining 74 bits are random.
func NewAt(t time.Time) string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to standard UUIDv4 if random generation fails
		return googleuuid.New().String()
	}

	ms := uint64(t.UnixMilli())
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)

	return id.String()
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
