// Package session carries the authenticated caller explicitly from the
// verified bearer token into services.
package session

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalsKey is where the JWT middleware stores the parsed token.
const LocalsKey = "user"

var (
	ErrNoToken       = errors.New("invalid token in context")
	ErrInvalidClaims = errors.New("invalid claims")
	ErrMissingSub    = errors.New("missing sub claim")
)

// Session identifies the caller of a request. The zero value is anonymous.
type Session struct {
	UserID      string
	Email       string
	DisplayName string
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// FromClaims builds a session from token claims. The subject is required.
func FromClaims(claims jwt.MapClaims) (Session, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Session{}, ErrMissingSub
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if name == "" {
		name, _ = claims["display_name"].(string)
	}
	return Session{UserID: sub, Email: email, DisplayName: name}, nil
}

// FromCtx extracts the session from a request that passed JWT verification.
func FromCtx(c *fiber.Ctx) (Session, error) {
	token, ok := c.Locals(LocalsKey).(*jwt.Token)
	if !ok || token == nil {
		return Session{}, ErrNoToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidClaims
	}
	return FromClaims(claims)
}

// Optional returns the session when the request carried a valid token and
// the anonymous session otherwise.
func Optional(c *fiber.Ctx) Session {
	s, err := FromCtx(c)
	if err != nil {
		return Session{}
	}
	return s
}
