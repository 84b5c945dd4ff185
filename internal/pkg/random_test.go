package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRand(t *testing.T) {
	a, b := NewRand(), NewRand()

	same := true
	for range 8 {
		if a.Uint64() != b.Uint64() {
			same = false
		}
	}

	assert.False(t, same, "independently seeded generators should diverge")
}

func TestNewSecret(t *testing.T) {
	first, second := NewSecret(), NewSecret()

	assert.GreaterOrEqual(t, len(first), 26)
	assert.NotEqual(t, first, second)
}
