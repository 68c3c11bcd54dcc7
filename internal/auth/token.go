package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenIssuer signs HS256 bearer tokens at login.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for the given user id.
func (i *TokenIssuer) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// TokenVerifier validates bearer tokens. It satisfies the engine's
// CredentialVerifier contract; every failure mode collapses into
// shared.ErrUnauthenticated so callers cannot distinguish expired from
// malformed or revoked.
type TokenVerifier struct {
	secret  []byte
	revoked RevocationChecker
}

// NewTokenVerifier constructs a TokenVerifier. revoked may be nil when no
// revocation list is configured.
func NewTokenVerifier(secret string, revoked RevocationChecker) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), revoked: revoked}
}

// Verify checks the token's signature, expiry and revocation status, and
// returns the subject's user id.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (int64, error) {
	claims, err := v.Claims(ctx, token)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, shared.ErrUnauthenticated
	}
	return id, nil
}

// Claims validates the token and returns its registered claims.
func (v *TokenVerifier) Claims(ctx context.Context, token string) (*jwt.RegisteredClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, shared.ErrUnauthenticated
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, shared.ErrUnauthenticated
	}

	if v.revoked != nil && claims.ID != "" {
		revoked, err := v.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Revocation store unreachable: fail closed.
			return nil, fmt.Errorf("auth: check revocation: %w", err)
		}
		if revoked {
			return nil, shared.ErrUnauthenticated
		}
	}
	return claims, nil
}
