package dispatch

import "math/rand/v2"

// IdentityLength is the length of the identity a Client generates for itself.
const IdentityLength = 10

const identityAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateIdentity returns length characters drawn uniformly from the 62
// alphanumeric symbols. It is a session tag, not a secret.
func GenerateIdentity(length int) string {
	if length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = identityAlphabet[rand.IntN(len(identityAlphabet))]
	}
	return string(b)
}
