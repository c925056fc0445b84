package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims are the JWT claims issued at login: the caller identity the
// engine consumes on every request.
type AuthClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	BranchID string `json:"branch_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the parsed caller identity.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	BranchID *uuid.UUID
	Role     string
}

// GenerateToken creates a signed JWT for the provided user.
func GenerateToken(secret string, identity Identity, ttl time.Duration) (string, error) {
	claims := &AuthClaims{
		UserID:   identity.UserID.String(),
		TenantID: identity.TenantID.String(),
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if identity.BranchID != nil {
		claims.BranchID = identity.BranchID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded identity.
func ParseToken(secret, tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, err
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return nil, err
	}

	identity := &Identity{UserID: userID, TenantID: tenantID, Role: claims.Role}
	if claims.BranchID != "" {
		if branchID, err := uuid.Parse(claims.BranchID); err == nil {
			identity.BranchID = &branchID
		}
	}
	return identity, nil
}
