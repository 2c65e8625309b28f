package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// ParseRole accepts any casing and rejects anything outside the closed set.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleBuyer:
		return RoleBuyer, true
	case RoleSeller:
		return RoleSeller, true
	default:
		return "", false
	}
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) Public() AuthUser {
	return AuthUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type AuthClaims struct {
	UserID  string `json:"id"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Type    string `json:"typ"`
	TokenID string `json:"jti"`
}

type AuthUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type TokenPair struct {
	AccessToken      string        `json:"accessToken"`
	RefreshToken     string        `json:"-"`
	TokenType        string        `json:"tokenType"`
	ExpiresIn        int64         `json:"expiresIn"`
	AccessExpiresAt  time.Time     `json:"-"`
	RefreshExpiresAt time.Time     `json:"-"`
	RefreshTTL       time.Duration `json:"-"`
	User             AuthUser      `json:"user"`
}
