package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lookaway/internal/models"
)

const tokenIssuer = "lookaway"

var ErrInvalidToken = errors.New("invalid session token")

type sessionClaims struct {
	ProgressID int64     `json:"pid"`
	UserID     int64     `json:"uid"`
	StartedAt  time.Time `json:"sat"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies the bearer tokens that carry a
// SessionHandle between the server and the monitoring client.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *TokenSigner) Sign(h models.SessionHandle) (string, error) {
	now := s.now()
	claims := sessionClaims{
		ProgressID: h.ProgressID,
		UserID:     h.UserID,
		StartedAt:  h.StartedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", h.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

func (s *TokenSigner) Parse(token string) (*models.SessionHandle, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return &models.SessionHandle{
		ProgressID: claims.ProgressID,
		UserID:     claims.UserID,
		StartedAt:  claims.StartedAt,
	}, nil
}
