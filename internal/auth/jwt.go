package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTAuthenticator struct {
	secret string
	aud    string
	iss    string
	exp    time.Duration
}

func NewJWTAuthenticator(secret, aud, iss string, exp time.Duration) *JWTAuthenticator {
	if exp <= 0 {
		exp = time.Hour * 24 * 3 // 3 days
	}
	return &JWTAuthenticator{secret: secret, aud: aud, iss: iss, exp: exp}
}

// GenerateToken signs an access token for userID with the given role.
func (a *JWTAuthenticator) GenerateToken(userID int64, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": role,
		"exp":  now.Add(a.exp).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"iss":  a.iss,
		"aud":  a.aud,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.secret))
}

// ValidateAccessToken validates the access token
func (a *JWTAuthenticator) ValidateAccessToken(token string) (*jwt.Token, error) {
	return jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(a.iss),
		jwt.WithAudience(a.aud),
	)
}

// IdentityFromToken reads sub and role from a validated token. A missing
// role means customer.
func IdentityFromToken(t *jwt.Token) (Identity, error) {
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidClaims
	}

	var (
		id  Identity
		err error
	)
	switch sub := claims["sub"].(type) {
	case string:
		id.UserID, err = strconv.ParseInt(sub, 10, 64)
	case float64:
		id.UserID, err = strconv.ParseInt(fmt.Sprintf("%.f", sub), 10, 64)
	default:
		err = fmt.Errorf("sub has type %T", sub)
	}
	if err != nil || id.UserID <= 0 {
		return Identity{}, fmt.Errorf("%w: subject", ErrInvalidClaims)
	}

	role, _ := claims["role"].(string)
	switch role {
	case "":
		id.Role = RoleCustomer
	case RoleCustomer, RoleAdmin:
		id.Role = role
	default:
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, role)
	}
	return id, nil
}
