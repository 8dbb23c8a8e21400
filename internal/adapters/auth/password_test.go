package auth

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

func TestBcryptHasher_GenerateSalt(t *testing.T) {
	h := NewBcryptHasher(4)
	hexRe := regexp.MustCompile(`^[0-9a-f]{64}$`)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		salt, err := h.GenerateSalt()
		require.NoError(t, err)
		assert.Regexp(t, hexRe, salt, "salt should be 64 hex characters")
		assert.False(t, seen[salt], "salts should not repeat")
		seen[salt] = true
	}
}

func TestBcryptHasher_Hash_and_Compare(t *testing.T) {
	h := NewBcryptHasher(4)
	salt, err := h.GenerateSalt()
	require.NoError(t, err)

	hash, err := h.Hash(salt, "fest-password")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	require.NoError(t, h.Compare(hash, salt, "fest-password"))
}

func TestBcryptHasher_Compare_mismatch(t *testing.T) {
	h := NewBcryptHasher(4)
	salt1, err := h.GenerateSalt()
	require.NoError(t, err)
	salt2, err := h.GenerateSalt()
	require.NoError(t, err)
	hash, err := h.Hash(salt1, "correct")
	require.NoError(t, err)

	tests := []struct {
		name     string
		salt     string
		password string
	}{
		{name: "wrong password", salt: salt1, password: "wrong"},
		{name: "wrong salt", salt: salt2, password: "correct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Compare(hash, tt.salt, tt.password)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}
}

func TestBcryptHasher_long_password(t *testing.T) {
	h := NewBcryptHasher(4)
	salt, err := h.GenerateSalt()
	require.NoError(t, err)
	long := strings.Repeat("x", 200)

	hash, err := h.Hash(salt, long)
	require.NoError(t, err)
	require.NoError(t, h.Compare(hash, salt, long))
	assert.ErrorIs(t, h.Compare(hash, salt, long[:199]), domain.ErrInvalidCredentials)
}
