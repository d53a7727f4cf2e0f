package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"messagely/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)
	for _, pw := range []string{"pw1", "correct horse battery staple", "ünïcødé", " "} {
		hash, err := h.Hash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, hash)

		ok, err := h.Verify(pw, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", pw)

		ok, err = h.Verify(pw+"x", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestPasswordHasher_TooLong(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)
	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestPasswordHasher_Salted(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	t.Parallel()

	_, err := NewPasswordHasher(bcrypt.MinCost).Verify("pw", "not-a-bcrypt-hash")
	assert.Error(t, err)
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("super-secret"), time.Hour)
	tok, err := issuer.Issue("alice")
	require.NoError(t, err)

	got, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestTokenIssuer_NoExpiry(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("k"), 0)
	issuer.now = func() time.Time { return time.Now().Add(-10 * 365 * 24 * time.Hour) }

	tok, err := issuer.Issue("bob")
	require.NoError(t, err)

	got, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "bob", got)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("k"), time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, err := issuer.Issue("bob")
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.True(t, errors.Is(err, common.ErrUnauthenticated), "got %v", err)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer([]byte("right-secret"), time.Hour).Issue("alice")
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("wrong-secret"), time.Hour).Verify(tok)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("k"), time.Hour)
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := issuer.Verify(tok)
		assert.ErrorIs(t, err, common.ErrUnauthenticated, "token %q", tok)
	}
}

func TestTokenIssuer_EmptyUsername(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer([]byte("k"), time.Hour).Issue("")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestUsernameFromClaims(t *testing.T) {
	t.Parallel()

	got, err := UsernameFromClaims(map[string]interface{}{"username": "carol"})
	require.NoError(t, err)
	assert.Equal(t, "carol", got)

	_, err = UsernameFromClaims(map[string]interface{}{"username": 42})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = UsernameFromClaims(map[string]interface{}{})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}
