// Package auth issues and verifies the bearer tokens that gate both the
// HTTP API and the WebSocket upgrade. Credential flows (passwords, OTP,
// federated login) live outside this service; only the token boundary is
// enforced here.
package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"beamchat/backend/internal/chaterr"
)

const issuer = "beamchat-service"

// Verifier is the narrow view the middleware and gateway need.
type Verifier interface {
	Verify(tokenString string) (userID string, err error)
}

type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token carrying the user ID as subject.
func (s *Service) Issue(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(s.ttl).Unix(),
		"iat": time.Now().Unix(),
		"iss": issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a token and returns the user ID it carries.
// Any failure comes back wrapped in chaterr.ErrUnauthenticated.
func (s *Service) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", chaterr.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid claims", chaterr.ErrUnauthenticated)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("%w: missing subject", chaterr.ErrUnauthenticated)
	}
	return sub, nil
}
