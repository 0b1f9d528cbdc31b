package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/domain"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, h.ComparePassword(hash, "s3cret"))
	assert.ErrorIs(t, h.ComparePassword(hash, "wrong"), bcrypt.ErrMismatchedHashAndPassword)
}

func TestHasher_SaltsEachHash(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	first, err := h.HashPassword("same")
	require.NoError(t, err)
	second, err := h.HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHasher_Rejects(t *testing.T) {
	_, err := NewHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	_, err = h.HashPassword("")
	assert.Error(t, err)
}

func TestHasher_PasswordByteLimit(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.HashPassword(strings.Repeat("é", 37))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	hash, err := h.HashPassword(strings.Repeat("é", 36))
	require.NoError(t, err)
	assert.NoError(t, h.ComparePassword(hash, strings.Repeat("é", 36)))
}
