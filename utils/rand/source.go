package rand

import (
	"fmt"
	"math"
	mrand "math/rand"
	"sync"
	"time"
)

// Source is the random source shared by all wallet workers of a run.
// Implementations must be safe for concurrent use.
type Source interface {
	// Uint64n returns a uniform random value in [0, n). n must be strictly positive.
	Uint64n(n uint64) uint64
	// Float64 returns a uniform random value in [0.0, 1.0).
	Float64() float64
}

// secureSource draws from crypto/rand.
type secureSource struct{}

// NewSecureSource returns a Source backed by crypto/rand.
func NewSecureSource() Source {
	return secureSource{}
}

func (secureSource) Uint64n(n uint64) uint64 {
	r, err := Uint64n(n)
	if err != nil {
		panic(fmt.Errorf("irrecoverable randomness failure: %w", err))
	}
	return r
}

func (secureSource) Float64() float64 {
	r, err := Uint64()
	if err != nil {
		panic(fmt.Errorf("irrecoverable randomness failure: %w", err))
	}
	// 53 bits of precision, same construction as math/rand
	return float64(r>>11) / (1 << 53)
}

// seededSource is a deterministic Source, guarded by a mutex since math/rand.Rand
// is not safe for concurrent use.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source. Runs sharing a seed and a wallet
// list make the same random choices as long as wallets are processed sequentially.
func NewSeededSource(seed int64) Source {
	return &seededSource{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *seededSource) Uint64n(n uint64) uint64 {
	if n == 0 {
		panic("n should be strictly positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1<<63 {
		return uint64(s.rng.Int63n(int64(n)))
	}
	for {
		r := s.rng.Uint64()
		if r < n {
			return r
		}
	}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// IntRange returns a uniform random value in the inclusive range [low, high].
// If high < low the bounds are swapped.
func IntRange(src Source, low, high uint64) uint64 {
	if high < low {
		low, high = high, low
	}
	span := high - low + 1
	if span == 0 {
		// [0, MaxUint64]
		return src.Uint64n(math.MaxUint64)
	}
	return low + src.Uint64n(span)
}

// DurationRange returns a uniform random duration in [low, high].
func DurationRange(src Source, low, high time.Duration) time.Duration {
	if low < 0 {
		low = 0
	}
	if high <= low {
		return low
	}
	return low + time.Duration(src.Uint64n(uint64(high-low)+1))
}

// Bernoulli returns true with probability p.
func Bernoulli(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Shuffle permutes a data structure of size `n` in place based on the provided
// `swap` function.
//
// It implements Fisher-Yates Shuffle, using O(1) space and O(n) time.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := 0; i < n-1; i++ {
		j := i + int(src.Uint64n(uint64(n-i)))
		swap(i, j)
	}
}

// Pick returns a uniformly random element of items. items must not be empty.
func Pick[T any](src Source, items []T) T {
	return items[src.Uint64n(uint64(len(items)))]
}
