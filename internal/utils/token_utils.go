package utils

import (
	"time"

	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued by the backend. Subject holds the user ID.
type Claims struct {
	Name       string          `json:"name,omitempty"`
	Email      string          `json:"email,omitempty"`
	Role       domain.UserRole `json:"role"`
	Department string          `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the identity vouched for by c.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		UserID:     c.Subject,
		Name:       c.Name,
		Email:      c.Email,
		Role:       c.Role,
		Department: c.Department,
	}
}

// GenerateJWT generates a new JWT token for id, returning the token and its expiry.
func GenerateJWT(id domain.Identity, secret string, expiryDuration time.Duration, issuer string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiryDuration)
	claims := Claims{
		Name:       id.Name,
		Email:      id.Email,
		Role:       id.Role,
		Department: id.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAndValidateJWT parses a JWT token string, validates its signature and standard claims.
// It returns the Claims if the token is valid, or an error otherwise.
func ParseAndValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err // This will include errors like token expired, signature invalid, etc.
	}

	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return claims, nil
}
