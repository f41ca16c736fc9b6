package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner   Role = "owner"
	RoleOfficer Role = "officer"
	RoleMember  Role = "member"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleOfficer, RoleMember:
		return true
	}
	return false
}

// CanMutatePoints reports whether the role may award, spend, adjust, or
// import. Only officers and the guild owner qualify.
func (r Role) CanMutatePoints() bool {
	return r == RoleOwner || r == RoleOfficer
}

// Actor is the authenticated caller. GuildID is the tenant every read and
// write must be scoped by; it comes from the token, never from the request
// body.
type Actor struct {
	UserID  uuid.UUID
	GuildID uuid.UUID
	Role    Role
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id"`
	GuildID string `json:"guild_id"`
	Role    string `json:"role"`
}

func GenerateToken(userID, guildID uuid.UUID, role Role, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:  userID.String(),
		GuildID: guildID.String(),
		Role:    string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}

	userID, err := uuid.Parse(tc.UserID)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid user_id in token: %w", err)
	}

	guildID, err := uuid.Parse(tc.GuildID)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid guild_id in token: %w", err)
	}

	role := Role(tc.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("ValidateToken: invalid role in token: %q", tc.Role)
	}

	return &Actor{
		UserID:  userID,
		GuildID: guildID,
		Role:    role,
	}, nil
}
