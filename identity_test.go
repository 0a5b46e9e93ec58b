package dispatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIdentity_LengthAndAlphabet(t *testing.T) {
	for _, n := range []int{0, 1, 2, IdentityLength, 64, 1000} {
		id := GenerateIdentity(n)
		assert.Len(t, id, n)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(identityAlphabet, r), "unexpected rune %q in %q", r, id)
		}
	}
}

func TestGenerateIdentity_Negative(t *testing.T) {
	assert.Equal(t, "", GenerateIdentity(-3))
}

func TestGenerateIdentity_UsesWholeAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for _, r := range GenerateIdentity(20000) {
		seen[r] = true
	}
	assert.Len(t, seen, len(identityAlphabet))
}

func TestIdentityAlphabet(t *testing.T) {
	assert.Len(t, identityAlphabet, 62)
}
