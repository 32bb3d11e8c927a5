package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var ErrInvalidClaims = errors.New("invalid token claims")

// Identity is who a validated access token speaks for.
type Identity struct {
	UserID int64
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type Authenticator interface {
	GenerateToken(userID int64, role string) (string, error)
	ValidateAccessToken(token string) (*jwt.Token, error)
}
