// Package rand provides the randomness used across the fleet: pacing delays, gas
// limits, token amounts, action order and game moves.
//
// NewSecureSource reads from the operating system and can be shared by any number
// of wallet workers. NewSeededSource makes a run reproducible.
//
// A failing entropy read cannot be handled by a worker, so the secure Source panics
// on it.
package rand

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
)

// Uint64 reads 8 bytes of entropy.
func Uint64() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("could not read entropy: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Uint64n returns a uniform value in [0, n). n must not be zero.
func Uint64n(n uint64) (uint64, error) {
	if n == 0 {
		return 0, fmt.Errorf("empty range [0, 0)")
	}
	r, err := rand.Int(rand.Reader, new(big.Int).SetUint64(n))
	if err != nil {
		return 0, fmt.Errorf("could not read entropy: %w", err)
	}
	return r.Uint64(), nil
}
