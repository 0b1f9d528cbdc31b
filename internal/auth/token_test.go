package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager("secret", "auth-test", time.Hour)

	token, err := tm.Issue("alice", []string{"ADMIN", "USER"}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeBearer, token.Type)
	assert.NotEmpty(t, token.Value)

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, []string{"ADMIN", "USER"}, claims.Roles)
	assert.Equal(t, "auth-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_ParseIsIdempotent(t *testing.T) {
	tm := NewTokenManager("secret", "auth-test", time.Hour)
	token, err := tm.Issue("bob", []string{"USER"}, time.Minute)
	require.NoError(t, err)

	first, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	second, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTokenManager_ExpiryBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 500_000_000, time.UTC)}
	tm := NewTokenManager("secret", "auth-test", time.Hour, WithClock(clock.Now))

	issuedAt := clock.now
	token, err := tm.Issue("carol", nil, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, token.ExpiresAt.Before(issuedAt.Add(10*time.Minute)))

	clock.now = issuedAt.Add(10*time.Minute - time.Millisecond)
	_, err = tm.ParseToken(token.Value)
	require.NoError(t, err, "token must stay valid for its full ttl")

	clock.now = token.ExpiresAt.Add(time.Second)
	_, err = tm.ParseToken(token.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", "auth-test", time.Hour)

	other := NewTokenManager("other-secret", "auth-test", time.Hour)
	token, err := other.Issue("mallory", nil, 0)
	require.NoError(t, err)
	_, err = tm.ParseToken(token.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenManager("secret", "someone-else", time.Hour)
	token, err = wrongIssuer.Issue("mallory", nil, 0)
	require.NoError(t, err)
	_, err = tm.ParseToken(token.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "mallory", "iss": "auth-test"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.ParseToken("  ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_IssueRequiresSubject(t *testing.T) {
	tm := NewTokenManager("secret", "", time.Hour)
	_, err := tm.Issue(" ", nil, 0)
	assert.Error(t, err)
}
