package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/shared"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	verifier := NewTokenVerifier("test-secret", nil)

	token, err := issuer.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), subject)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	verifier := NewTokenVerifier("other-secret", nil)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	verifier := NewTokenVerifier("test-secret", nil)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestTokenGarbage(t *testing.T) {
	verifier := NewTokenVerifier("test-secret", nil)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := verifier.Verify(context.Background(), token)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated, "token %q", token)
	}
}

func TestTokenRevocation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	revocations := NewRevocationList(client)

	issuer := NewTokenIssuer("test-secret", time.Hour)
	verifier := NewTokenVerifier("test-secret", revocations)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	claims, err := verifier.Claims(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, revocations.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestTokenRevocationEntryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	revocations := NewRevocationList(client)

	require.NoError(t, revocations.Revoke(context.Background(), "jti-1", time.Now().Add(time.Minute)))

	revoked, err := revocations.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)

	revoked, err = revocations.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenRevocationStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	revocations := NewRevocationList(client)

	issuer := NewTokenIssuer("test-secret", time.Hour)
	verifier := NewTokenVerifier("test-secret", revocations)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	mr.Close()

	// A valid token must not pass when revocation status cannot be checked.
	_, err = verifier.Verify(context.Background(), token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, shared.ErrUnauthenticated))
}
