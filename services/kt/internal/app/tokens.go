package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "ktassist"
	tokenAudience = "ktassist-api"
	tokenLeeway   = 30 * time.Second
)

// sessionClaims binds a token to one in-memory session through its jti.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner requires a secret of at least 32 bytes.
func NewTokenSigner(secret string, ttl time.Duration) (*TokenSigner, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &TokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for sessionID held by email.
func (s *TokenSigner) Issue(sessionID, email string) (string, time.Time, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := sessionClaims{jwt.RegisteredClaims{
		Subject:   email,
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        sessionID,
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expires, nil
}

// Verify checks signature and registered claims and returns the session id.
func (s *TokenSigner) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("invalid token format")
	}
	claims := sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return "", err
	}
	if strings.TrimSpace(claims.ID) == "" {
		return "", errors.New("token jti missing")
	}
	return claims.ID, nil
}
