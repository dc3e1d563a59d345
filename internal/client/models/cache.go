package models

import (
	"encoding/json"
	"time"
)

// DefaultCacheTTL is used when a response is cached without an explicit TTL.
const DefaultCacheTTL = 5 * time.Minute

// CacheEntry is one cached GET response.
type CacheEntry struct {
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	InsertedAt time.Time       `json:"inserted_at"`
	TTL        time.Duration   `json:"ttl"`
}

// Valid reports whether the entry is still fresh at now. The boundary is
// inclusive: an entry read exactly TTL after insertion is still served.
func (c CacheEntry) Valid(now time.Time) bool {
	return now.Sub(c.InsertedAt) <= c.TTL
}
