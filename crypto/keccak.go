// Package crypto provides the Keccak-256 hashing used by the
// interpreter, with a bounded cache for the 32- and 64-byte inputs that
// dominate contract workloads (storage slots, mapping keys).
package crypto

import (
	"github.com/VictoriaMetrics/fastcache"
	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/crypto/sha3"

	"github.com/eth2030/evmcore/core/types"
)

// hashCacheBytes bounds the cached hash entries. Entries are
// (input, digest) pairs of at most 96 bytes, so this holds well over
// a hundred thousand distinct inputs.
const hashCacheBytes = 16 * 1024 * 1024

var (
	hashCache = fastcache.New(hashCacheBytes)

	hashCacheHits   = metrics.NewCounter(`evmcore_hash_cache_hits_total`)
	hashCacheMisses = metrics.NewCounter(`evmcore_hash_cache_misses_total`)
)

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}

// CachedKeccak256 returns the Keccak-256 of data, serving 32- and
// 64-byte inputs from a process-wide cache. Other lengths hash
// directly; caching them does not pay off.
func CachedKeccak256(data []byte) types.Hash {
	if len(data) != 32 && len(data) != 64 {
		return types.BytesToHash(Keccak256(data))
	}
	var buf [types.HashLength]byte
	if v := hashCache.Get(buf[:0], data); len(v) == types.HashLength {
		hashCacheHits.Inc()
		return types.Hash(v)
	}
	hashCacheMisses.Inc()
	h := types.BytesToHash(Keccak256(data))
	hashCache.Set(data, h[:])
	return h
}
