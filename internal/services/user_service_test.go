package services

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewUserService(st)
	ctx := context.Background()
	name := "Alice"
	in := ProvisionInput{UID: "alice", Email: "alice@example.com", DisplayName: &name}

	p, created, err := svc.Provision(ctx, alice, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "user", p.Role)

	other := "Changed"
	in.DisplayName = &other
	p, created, err = svc.Provision(ctx, alice, in)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, p.DisplayName)
	assert.Equal(t, "Alice", *p.DisplayName)
}

func TestProvisionRejectsBadInput(t *testing.T) {
	svc := NewUserService(store.NewMemoryStore())
	ctx := context.Background()

	_, _, err := svc.Provision(ctx, session.Session{}, ProvisionInput{Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, _, err = svc.Provision(ctx, session.Session{}, ProvisionInput{UID: "x"})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, _, err = svc.Provision(ctx, bob, ProvisionInput{UID: "alice", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrIdentityMismatch)
}

func TestFollowTopics(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewUserService(st)
	ctx := context.Background()

	_, err := svc.FollowTopics(ctx, alice, []string{"math"})
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, _, err = svc.Provision(ctx, alice, ProvisionInput{UID: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	p, err := svc.FollowTopics(ctx, alice, []string{"Math", "math", "Physics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "physics"}, []string(p.FollowedTopics))
	assert.False(t, svc.IsAdmin(ctx, "alice"))
}
