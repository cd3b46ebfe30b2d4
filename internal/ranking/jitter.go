package ranking

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// JitterFunc maps a product id to a value in [0,1). It must be deterministic.
type JitterFunc func(id string) float64

const jitterBuckets = 1000

// IDJitter derives the variety jitter from the product id alone.
func IDJitter(id string) float64 {
	return float64(xxhash.Sum64String(id)%jitterBuckets) / jitterBuckets
}

// SeededJitter returns a JitterFunc whose values depend on seed as well as the id,
// so the variety ordering can be rotated without giving up repeatability.
func SeededJitter(seed uint64) JitterFunc {
	prefix := strconv.FormatUint(seed, 10) + ":"
	return func(id string) float64 {
		return float64(xxhash.Sum64String(prefix+id)%jitterBuckets) / jitterBuckets
	}
}
