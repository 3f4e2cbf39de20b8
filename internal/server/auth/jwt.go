// Package auth signs and parses the session tokens handed to clients.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

// Claims carries the session identity next to the standard claims.
// RegisteredClaims.ID is a random token id used for revocation.
type Claims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"nombre"`
	Email       string `json:"email"`
}

func (c *Claims) Identity() models.Identity {
	return models.Identity{DisplayName: c.DisplayName, Email: c.Email}
}

// GenerateToken returns an HS256 token for id valid for validityDuration,
// together with the claims it encodes.
func GenerateToken(id models.Identity, secretKey []byte, validityDuration time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		DisplayName: id.DisplayName,
		Email:       id.Email,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", nil, err
	}

	return tokenString, claims, nil
}

// ParseToken validates tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else invalid common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Email == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
