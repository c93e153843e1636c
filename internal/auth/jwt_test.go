package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(secret, models.Cashier{ID: "C1", Username: "ana", Role: RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}
	cashier, err := TokenClaims(secret, "Bearer "+token)
	if err != nil {
		t.Fatalf("TokenClaims() failed: %v", err)
	}
	if cashier.ID != "C1" || cashier.Username != "ana" || cashier.Role != RoleAdmin {
		t.Errorf("unexpected cashier %+v", cashier)
	}
}

func TestTokenClaims_Rejects(t *testing.T) {
	valid, _ := GenerateToken(secret, models.Cashier{ID: "C1"}, time.Minute)
	expired, _ := GenerateToken(secret, models.Cashier{ID: "C1"}, -time.Minute)
	otherKey, _ := GenerateToken([]byte("other"), models.Cashier{ID: "C1"}, time.Minute)
	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(secret)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "C1"}).SignedString(secret)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", valid},
		{"garbage", "Bearer not-a-token"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + otherKey},
		{"no subject", "Bearer " + noSub},
		{"no expiry", "Bearer " + noExp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := TokenClaims(secret, tt.header); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
