// Package liveview turns record snapshots into the progress a submitter sees
// while moderation runs.
package liveview

import (
	"context"
	"sync"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
)

// Progress is the client-facing state of one submission.
type Progress struct {
	ContentID string        `json:"content_id"`
	Exists    bool          `json:"exists"`
	Stage     models.Stage  `json:"stage"`
	Status    models.Status `json:"status,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Tags      []string      `json:"tags"`
	Notice    *store.Notice `json:"notice,omitempty"`
	Failed    bool          `json:"failed"`
	Done      bool          `json:"done"`
}

// FromSnapshot maps a by-id snapshot onto Progress. A missing record is done.
// Any status other than pending completes the progress, and so does a
// recorded pipeline failure.
func FromSnapshot(id string, snap store.Snapshot) Progress {
	p := Progress{ContentID: id, Tags: []string{}, Notice: snap.Notice, Failed: snap.Notice != nil}
	if len(snap.Records) == 0 {
		p.Stage = models.StageCompleted
		p.Done = true
		return p
	}
	rec := snap.Records[0]
	p.Exists = true
	p.Status = rec.Status
	p.Reason = rec.Reason
	p.Tags = append(p.Tags, rec.Tags...)
	if rec.Status != models.StatusPending {
		p.Stage = models.StageCompleted
		p.Done = true
		return p
	}
	p.Stage = rec.Stage
	if p.Stage == "" || p.Stage == models.StageCompleted {
		p.Stage = models.StageVerifying
	}
	if rec.Failure != "" {
		if p.Notice == nil {
			p.Notice = &store.Notice{ContentID: id, Kind: string(rec.Failure), Message: rec.Failure.Message()}
		}
		p.Failed = true
		p.Done = true
	}
	return p
}

// Watcher streams Progress for one record until cancelled.
type Watcher struct {
	id   string
	ctx  context.Context
	sub  *store.Subscription
	out  chan Progress
	stop chan struct{}
	once sync.Once
}

// Watch subscribes to the record. The caller must call Cancel, or cancel
// ctx, when it stops reading.
func Watch(ctx context.Context, hub *store.Hub, id string) (*Watcher, error) {
	sub, err := hub.Subscribe(ctx, store.Filter{ID: id})
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		id:   id,
		ctx:  ctx,
		sub:  sub,
		out:  make(chan Progress),
		stop: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Updates is closed once the watcher stops.
func (w *Watcher) Updates() <-chan Progress {
	return w.out
}

func (w *Watcher) Cancel() {
	w.once.Do(func() { close(w.stop) })
	w.sub.Cancel()
}

func (w *Watcher) loop() {
	defer close(w.out)
	for snap := range w.sub.C() {
		select {
		case w.out <- FromSnapshot(w.id, snap):
		case <-w.stop:
			return
		case <-w.ctx.Done():
			return
		}
	}
}
