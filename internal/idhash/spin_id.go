package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSpinID computes a deterministic spin_id using SHA256.
// Formula: SHA256(table_id|number|bucket_start)
// bucket_start is the Unix second that opens the dedup time bucket, so the
// ID is exactly the dedup signature and a re-reported spin maps to the same key.
// Returns hex-encoded hash (64 characters).
func ComputeSpinID(tableID string, number int, bucketStart int64) string {
	data := fmt.Sprintf("%s|%d|%d", tableID, number, bucketStart)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
