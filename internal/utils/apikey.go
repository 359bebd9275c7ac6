package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// APIKey holds a freshly minted programmatic credential. The raw value is
// shown to the caller exactly once; only the hash is persisted.
type APIKey struct {
	Raw  string // "np-" prefixed hex secret returned to the client
	Hash string // SHA-256 of the raw value, as stored in api_keys
}

// NewAPIKey generates a random API key. The "np-" prefix makes leaked keys
// recognizable in logs and secret scanners.
func NewAPIKey() (APIKey, error) {
	raw, err := randomHex(32)
	if err != nil {
		return APIKey{}, err
	}
	raw = "np-" + raw
	return APIKey{Raw: raw, Hash: HashAPIKey(raw)}, nil
}

// HashAPIKey returns the hex SHA-256 digest of a raw API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
