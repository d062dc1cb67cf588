package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/ride-hailing/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenManager issues and verifies HMAC-signed JWT pairs: a short-lived
// access token plus a longer-lived refresh token exchangeable for a new
// access token.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (m *TokenManager) Pair(u *models.User) (TokenPair, error) {
	access, err := m.sign(u, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(u, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *TokenManager) sign(u *models.User, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    u.ID,
		Role:      u.Role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "ride-hailing",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyAccess parses an access token. Refresh tokens are rejected here so
// a long-lived refresh token cannot be used as a bearer credential.
func (m *TokenManager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, tokenTypeAccess)
}

// VerifyRefresh parses a refresh token for the token exchange endpoint.
func (m *TokenManager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, tokenTypeRefresh)
}

func (m *TokenManager) verify(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", models.ErrAuthFailure)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != wantType {
		return nil, fmt.Errorf("invalid %s token: %w", wantType, models.ErrAuthFailure)
	}
	return claims, nil
}

// AccessToken mints a fresh access token for an already-verified user,
// used by the refresh exchange.
func (m *TokenManager) AccessToken(u *models.User) (string, error) {
	return m.sign(u, tokenTypeAccess, m.accessTTL)
}
