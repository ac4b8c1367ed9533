package hashutil

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

func Blake3Hash(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash returns the first 8 hex characters of the blake3 hash of s.
func ShortHash(s string) string {
	return Blake3Hash([]byte(s))[:8]
}
