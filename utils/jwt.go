package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cppla/simpleblog/models"
)

// ErrInvalidToken wraps every reason a session token is rejected.
var ErrInvalidToken = errors.New("invalid session token")

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens signed with a process-wide secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService for the given secret.
func NewTokenService(secret string, opts ...TokenOption) *TokenService {
	s := &TokenService{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for the user that expires ttl from now. Expiry has second granularity.
func (s *TokenService) Issue(userID uint, username string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := jwt.NewNumericDate(now.Add(ttl))

	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: expiresAt,
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt.Time, nil
}

// Verify validates a token and returns the identity it carries. Any failure yields
// models.Anonymous together with an error wrapping ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string) (models.Identity, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return models.Anonymous, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return models.Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return models.Anonymous, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	if claims.UserID == 0 || claims.Username == "" {
		return models.Anonymous, fmt.Errorf("%w: missing identity", ErrInvalidToken)
	}

	return models.NewIdentity(claims.UserID, claims.Username, claims.ExpiresAt.Time), nil
}
