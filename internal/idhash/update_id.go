package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeUpdateID computes a deterministic update_id using SHA256.
// Formula: SHA256(table_id|step)
// Returns hex-encoded hash (64 characters).
func ComputeUpdateID(tableID string, step int64) string {
	data := fmt.Sprintf("%s|%d", tableID, step)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
