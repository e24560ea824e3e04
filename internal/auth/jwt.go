package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lorrc/support-gateway/internal/core/domain"
)

// Claims defines the structured data we store in the JWT
type Claims struct {
	Role      string  `json:"role"`
	BackendID *int64  `json:"backend_id,omitempty"`
	GroupIDs  []int64 `json:"group_ids,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the token claims into the domain actor the access
// engine evaluates.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{
		ID:        c.Subject,
		Role:      domain.Role(c.Role),
		BackendID: c.BackendID,
		GroupIDs:  c.GroupIDs,
	}
}

type TokenManager struct {
	secretKey []byte
	tokenTTL  time.Duration
}

func NewTokenManager(secret string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{secretKey: []byte(secret), tokenTTL: tokenTTL}
}

// GenerateToken creates a new JWT access token for the given actor
func (tm *TokenManager) GenerateToken(actor domain.Actor) (string, error) {
	expirationTime := time.Now().Add(tm.tokenTTL)
	claims := &Claims{
		Role:      string(actor.Role),
		BackendID: actor.BackendID,
		GroupIDs:  actor.GroupIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Subject:   actor.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
