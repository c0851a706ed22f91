package liveview

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func snapshotOf(rec *models.ContentRecord) store.Snapshot {
	snap := store.Snapshot{Records: []models.ContentRecord{}}
	if rec != nil {
		snap.Records = append(snap.Records, *rec)
	}
	return snap
}

func TestFromSnapshot(t *testing.T) {
	pending := &models.ContentRecord{ID: "c1", Status: models.StatusPending, Stage: models.StageTagging}
	p := FromSnapshot("c1", snapshotOf(pending))
	assert.True(t, p.Exists)
	assert.Equal(t, models.StageTagging, p.Stage)
	assert.False(t, p.Done)

	approved := &models.ContentRecord{ID: "c1", Status: models.StatusApproved, Stage: models.StageCompleted, Tags: []string{"math"}, Reason: "ok"}
	p = FromSnapshot("c1", snapshotOf(approved))
	assert.True(t, p.Done)
	assert.Equal(t, models.StageCompleted, p.Stage)
	assert.Equal(t, []string{"math"}, p.Tags)

	rejected := &models.ContentRecord{ID: "c1", Status: models.StatusRejected, Reason: "promotional"}
	p = FromSnapshot("c1", snapshotOf(rejected))
	assert.True(t, p.Done)
	assert.Equal(t, "promotional", p.Reason)
	assert.Empty(t, p.Tags)

	p = FromSnapshot("c1", snapshotOf(nil))
	assert.False(t, p.Exists)
	assert.True(t, p.Done)

	failed := snapshotOf(pending)
	failed.Notice = &store.Notice{ContentID: "c1", Kind: "tagging_failed"}
	p = FromSnapshot("c1", failed)
	assert.True(t, p.Failed)
	assert.False(t, p.Done)

	recorded := *pending
	recorded.Failure = models.FailureModeration
	p = FromSnapshot("c1", snapshotOf(&recorded))
	assert.True(t, p.Failed)
	assert.True(t, p.Done)
	assert.Equal(t, models.StatusPending, p.Status)
	require.NotNil(t, p.Notice)
	assert.Equal(t, "moderation_failed", p.Notice.Kind)
	assert.Equal(t, models.FailureModeration.Message(), p.Notice.Message)
}

func next(t *testing.T, w *Watcher) Progress {
	t.Helper()
	select {
	case p, ok := <-w.Updates():
		require.True(t, ok)
		return p
	case <-time.After(time.Second):
		t.Fatal("no progress")
		return Progress{}
	}
}

func TestWatchFollowsRecordToCompletion(t *testing.T) {
	live := store.NewLiveStore(store.NewMemoryStore())
	ctx := context.Background()
	rec := &models.ContentRecord{ID: "c1", OwnerID: "alice", Status: models.StatusPending, Stage: models.StageVerifying}
	require.NoError(t, live.Create(ctx, rec))

	w, err := Watch(ctx, live.Hub(), "c1")
	require.NoError(t, err)
	defer w.Cancel()

	assert.Equal(t, models.StageVerifying, next(t, w).Stage)

	tagging := models.StageTagging
	_, err = live.Update(ctx, "c1", store.Patch{Stage: &tagging})
	require.NoError(t, err)
	assert.Equal(t, models.StageTagging, next(t, w).Stage)

	approved, completed := models.StatusApproved, models.StageCompleted
	_, err = live.Update(ctx, "c1", store.Patch{Status: &approved, Stage: &completed}.WithTags([]string{"math"}))
	require.NoError(t, err)
	done := next(t, w)
	assert.True(t, done.Done)
	assert.Equal(t, models.StatusApproved, done.Status)
}

func TestWatchCancelReleasesEverything(t *testing.T) {
	live := store.NewLiveStore(store.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := Watch(ctx, live.Hub(), "c1")
	require.NoError(t, err)
	w.Cancel()
	w.Cancel()

	for range w.Updates() {
	}
	assert.Equal(t, 0, live.Hub().Len())
}

func TestWatchEndsWithContext(t *testing.T) {
	live := store.NewLiveStore(store.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())

	w, err := Watch(ctx, live.Hub(), "c1")
	require.NoError(t, err)
	cancel()

	for range w.Updates() {
	}
	require.Eventually(t, func() bool { return live.Hub().Len() == 0 }, time.Second, 5*time.Millisecond)
}
