package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// CollaboratorClaims identify the registration/payment service calling the
// internal endpoints.
type CollaboratorClaims struct {
	jwt.RegisteredClaims
	Service string `json:"svc"`
}

type CollaboratorAuth struct {
	secret []byte
}

func NewCollaboratorAuth(secret string) *CollaboratorAuth {
	return &CollaboratorAuth{secret: []byte(secret)}
}

// IssueToken signs a token for service. Used by the CLI and tests.
func (a *CollaboratorAuth) IssueToken(service string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CollaboratorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Service: service,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (a *CollaboratorAuth) Validate(tokenString string) (*CollaboratorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CollaboratorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*CollaboratorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Require rejects requests without a valid bearer token. With no secret
// configured every request is rejected.
func (a *CollaboratorAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.secret) == 0 {
			http.Error(w, "collaborator access is not configured", http.StatusServiceUnavailable)
			return
		}

		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if _, err := a.Validate(strings.TrimSpace(raw)); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
