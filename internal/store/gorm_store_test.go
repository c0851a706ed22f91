package store

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.ContentRecord{}, &models.UserProfile{}))
	return NewGormStore(db)
}

func TestGormStoreCreateGetUpdate(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newRecord("r1", "alice", models.StatusPending)))
	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.NotNil(t, got.Tags)

	approved := models.StatusApproved
	patch := Patch{Status: &approved, IfStatus: models.StatusPending}.WithTags([]string{"quantum", "physics"})
	updated, err := s.Update(ctx, "r1", patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, []string{"quantum", "physics"}, []string(updated.Tags))

	_, err = s.Update(ctx, "r1", patch)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.Update(ctx, "missing", patch)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreListAndDelete(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord("r1", "alice", models.StatusApproved, "math", "science")))
	require.NoError(t, s.Create(ctx, newRecord("r2", "alice", models.StatusArchived, "math")))
	require.NoError(t, s.Create(ctx, newRecord("r3", "bob", models.StatusApproved, "physics")))

	mine, err := s.List(ctx, Query{Where: []Predicate{
		Eq(FieldOwnerID, "alice"),
		Ne(FieldStatus, models.StatusArchived),
	}})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "r1", mine[0].ID)

	math, err := s.List(ctx, Query{Where: []Predicate{Eq(FieldStatus, models.StatusApproved)}, Tag: "math"})
	require.NoError(t, err)
	require.Len(t, math, 1)
	assert.Equal(t, "r1", math[0].ID)

	require.NoError(t, s.Delete(ctx, "r1"))
	assert.ErrorIs(t, s.Delete(ctx, "r1"), ErrNotFound)
}

func TestGormStoreFailureAndBlobLookup(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord("r1", "alice", models.StatusPending)))
	shared := newRecord("r2", "bob", models.StatusApproved)
	shared.FileURL = "http://blobs/r1"
	require.NoError(t, s.Create(ctx, shared))

	failure := models.FailureModeration
	updated, err := s.Update(ctx, "r1", Patch{Failure: &failure, IfStatus: models.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, models.FailureModeration, updated.Failure)
	assert.Equal(t, models.StatusPending, updated.Status)

	refs, err := s.List(ctx, Query{Where: []Predicate{Eq(FieldFileURL, "http://blobs/r1")}})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestGormStoreProfiles(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	created, err := s.EnsureProfile(ctx, &models.UserProfile{UID: "alice", Email: "a@example.com", Role: "user"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureProfile(ctx, &models.UserProfile{UID: "alice", Email: "b@example.com", Role: "user"})
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, s.db.Model(&models.UserProfile{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	p, err := s.SetFollowedTopics(ctx, "alice", []string{"math", "physics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "physics"}, []string(p.FollowedTopics))
	assert.Equal(t, "a@example.com", p.Email)

	_, err = s.SetFollowedTopics(ctx, "nobody", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
