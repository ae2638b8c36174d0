package psonmf

import (
	"math/rand"
	"time"

	"github.com/seehuhn/mt19937"
)

// NewRng returns a Mersenne Twister backed random stream seeded with seed.
// A seed of 0 derives the seed from the wall clock, so such runs are not
// reproducible; pass any nonzero seed for deterministic trajectories.  Each
// optimization run owns exactly one stream - never share one across runs.
func NewRng(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := mt19937.New()
	src.Seed(seed)
	return rand.New(src)
}
