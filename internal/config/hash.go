package config

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Hash is a stable fingerprint of cfg's JSON form. Nil hashes to 0.
func Hash(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil || len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// HashString formats Hash for logs.
func HashString(cfg *Config) string { return fmt.Sprintf("%016x", Hash(cfg)) }
