// Package jwt signs and verifies the access and refresh tokens. The two kinds
// use distinct secrets and lifetimes and carry a typ claim so one can never be
// accepted in place of the other.
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidOrExpiredToken covers malformed tokens, bad signatures, wrong
// token types and expiry. The underlying jwt error stays in the chain.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

// AccessClaims identify the user for one session window
type AccessClaims struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	TokenType string `json:"typ"`
	gojwt.RegisteredClaims
}

// RefreshClaims only name the user; the token itself is checked against the
// value stored on the user record.
type RefreshClaims struct {
	TokenType string `json:"typ"`
	gojwt.RegisteredClaims
}

type JWTService struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWTService(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		accessSecret:  []byte(accessSecret),
		accessTTL:     accessTTL,
		refreshSecret: []byte(refreshSecret),
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// AccessTTL is the lifetime of access tokens (used for cookie Max-Age).
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of refresh tokens (used for cookie Max-Age).
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *JWTService) registered(userID string, ttl time.Duration) gojwt.RegisteredClaims {
	now := s.now()
	return gojwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(), // rotation always yields a new value
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
}

// GenerateAccessToken signs an access token for the user
func (s *JWTService) GenerateAccessToken(userID, email, username string) (string, error) {
	claims := AccessClaims{
		Email:            email,
		Username:         username,
		TokenType:        TypeAccess,
		RegisteredClaims: s.registered(userID, s.accessTTL),
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken signs a refresh token for the user
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	claims := RefreshClaims{
		TokenType:        TypeRefresh,
		RegisteredClaims: s.registered(userID, s.refreshTTL),
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

// ParseAccessToken verifies signature, expiry and type of an access token
func (s *JWTService) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess || claims.Subject == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

// ParseRefreshToken verifies signature, expiry and type of a refresh token
func (s *JWTService) ParseRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh || claims.Subject == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, claims gojwt.Claims, secret []byte) error {
	token, err := gojwt.ParseWithClaims(tokenString, claims, func(t *gojwt.Token) (interface{}, error) {
		return secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrExpiredToken, err)
	}
	if !token.Valid {
		return ErrInvalidOrExpiredToken
	}
	return nil
}
