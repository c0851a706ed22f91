package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromClaims(t *testing.T) {
	s, err := FromClaims(jwt.MapClaims{"sub": "u1", "email": "a@b.c", "name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: "u1", Email: "a@b.c", DisplayName: "Ada"}, s)
	assert.True(t, s.Authenticated())

	_, err = FromClaims(jwt.MapClaims{"email": "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingSub)

	assert.False(t, Session{}.Authenticated())
}
