// Package codes generates the random alphanumeric codes that identify
// messages and chats on the platform.
package codes

import "math/rand/v2"

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	DefaultLength = 10
	MinLength     = 5
	MaxLength     = 30
)

// Random returns a random alphanumeric code of the given length. Lengths
// outside [MinLength, MaxLength] fall back to DefaultLength.
func Random(length int) string {
	if length < MinLength || length > MaxLength {
		length = DefaultLength
	}
	code := make([]byte, length)
	for i := range code {
		code[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(code)
}
