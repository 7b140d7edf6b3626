package bastion

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// JitterSettings bounds the random offset added by a [Jitter]. A nil Seed
// draws the generator seed from the process entropy source.
type JitterSettings struct {
	Seed *uint64
	Min  time.Duration
	Max  time.Duration
}

// Jitter adds a uniformly distributed offset in [Min, Max) to a base delay so
// that clients retrying the same failure spread out instead of stampeding.
// A Jitter owns one PRNG, guarded by a mutex, and may be shared freely.
type Jitter struct {
	rng      *rand.Rand
	min, max time.Duration
	mu       sync.Mutex
}

// Seed returns a pointer to s, for use in [JitterSettings].
func Seed(s uint64) *uint64 { return &s }

// NewJitter validates settings and returns a generator.
func NewJitter(settings JitterSettings) (*Jitter, error) {
	if settings.Min < 0 {
		return nil, invalidConfig("jitter min %s is negative", settings.Min)
	}

	if settings.Min > settings.Max {
		return nil, invalidConfig(
			"jitter min %s exceeds max %s", settings.Min, settings.Max,
		)
	}

	var src *rand.PCG
	if settings.Seed != nil {
		src = rand.NewPCG(*settings.Seed, *settings.Seed)
	} else {
		//nolint:gosec // jitter is non-cryptographic timing variance
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Jitter{
		rng: rand.New(src), //nolint:gosec // see above
		min: settings.Min,
		max: settings.Max,
	}, nil
}

// ApplyJitter is the one-shot form of NewJitter followed by Apply.
func ApplyJitter(base time.Duration, settings JitterSettings) (time.Duration, error) {
	j, err := NewJitter(settings)
	if err != nil {
		return 0, err
	}

	return j.Apply(base), nil
}

// Apply returns base plus a random offset in [Min, Max). The sum saturates
// at the largest time.Duration.
func (j *Jitter) Apply(base time.Duration) time.Duration {
	add := j.min

	if span := int64(j.max - j.min); span > 0 {
		j.mu.Lock()
		add += time.Duration(j.rng.Int64N(span))
		j.mu.Unlock()
	}

	if base > time.Duration(math.MaxInt64)-add {
		return time.Duration(math.MaxInt64)
	}

	return base + add
}
