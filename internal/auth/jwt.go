package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("missing or invalid token")

// GenerateToken signs an HS256 token for cashier valid for ttl.
func GenerateToken(secret []byte, cashier models.Cashier, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":      cashier.ID,
		"username": cashier.Username,
		"role":     cashier.Role,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates tokenStr and returns the cashier it was issued to.
func ParseToken(secret []byte, tokenStr string) (models.Cashier, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return models.Cashier{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Cashier{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Cashier{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	return models.Cashier{ID: sub, Username: username, Role: role}, nil
}

// TokenClaims reads a "Bearer <token>" Authorization header.
func TokenClaims(secret []byte, authorization string) (models.Cashier, error) {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return models.Cashier{}, ErrInvalidToken
	}
	return ParseToken(secret, strings.TrimPrefix(authorization, "Bearer "))
}
