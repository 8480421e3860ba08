package codes_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lostpets/client/internal/codes"
)

func TestRandom_Length(t *testing.T) {
	assert.Len(t, codes.Random(5), 5)
	assert.Len(t, codes.Random(30), 30)
	assert.Len(t, codes.Random(17), 17)
}

func TestRandom_FallsBackToDefaultLength(t *testing.T) {
	assert.Len(t, codes.Random(0), codes.DefaultLength)
	assert.Len(t, codes.Random(4), codes.DefaultLength)
	assert.Len(t, codes.Random(31), codes.DefaultLength)
	assert.Len(t, codes.Random(-1), codes.DefaultLength)
}

func TestRandom_Charset(t *testing.T) {
	const alnum = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for i := 0; i < 50; i++ {
		for _, r := range codes.Random(codes.DefaultLength) {
			assert.True(t, strings.ContainsRune(alnum, r), "unexpected rune %q", r)
		}
	}
}

func TestRandom_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := codes.Random(codes.DefaultLength)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
