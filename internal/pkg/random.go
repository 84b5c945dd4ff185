package pkg

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// NewRand - PCG generator seeded from the operating system. Not safe for concurrent use.
func NewRand() *rand.Rand {
	var seed [16]byte
	_, _ = crand.Read(seed[:])

	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// NewSecret - random key material, for when no session secret is configured.
func NewSecret() string {
	return crand.Text()
}
