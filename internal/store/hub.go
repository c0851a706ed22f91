package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("store: hub closed")

// Filter selects what a subscription watches: a single record by ID, or
// every record matching Query.
type Filter struct {
	ID    string
	Query *Query
}

// Notice is a one-off message attached to a record's stream without
// mutating the record, used to surface pipeline failures.
type Notice struct {
	ContentID string `json:"content_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// Snapshot is the full current result of a subscription's filter. For ID
// subscriptions Records holds zero (absent) or one record.
type Snapshot struct {
	Records []models.ContentRecord `json:"records"`
	Notice  *Notice                `json:"notice,omitempty"`
	At      time.Time              `json:"at"`
}

// Subscription is a cancellable handle on a live filter. The owner must call
// Cancel (or cancel the context passed to Subscribe) when it stops reading.
type Subscription struct {
	hub    *Hub
	id     uint64
	filter Filter
	ch     chan Snapshot

	mu        sync.Mutex
	closed    bool
	delivered int
	stop      func() bool
}

// C delivers snapshots; only the latest undelivered snapshot is kept. The
// channel is closed after Cancel.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Cancel detaches the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.hub.remove(s.id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.stop != nil {
		s.stop()
	}
	close(s.ch)
}

func (s *Subscription) deliverInitial(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.delivered > 0 {
		return
	}
	s.send(snap)
}

func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.send(snap)
}

// send must be called with s.mu held.
func (s *Subscription) send(snap Snapshot) {
	s.delivered++
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case stale := <-s.ch:
		if snap.Notice == nil {
			snap.Notice = stale.Notice
		}
	default:
	}
	s.ch <- snap
}

// Hub fans record changes out to subscriptions.
type Hub struct {
	reader Store

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// NewHub builds a hub that reads snapshots from reader.
func NewHub(reader Store) *Hub {
	return &Hub{
		reader: reader,
		subs:   make(map[uint64]*Subscription),
	}
}

// Subscribe registers a filter and immediately delivers its current snapshot.
// The subscription is cancelled automatically when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	if f.ID == "" && f.Query == nil {
		return nil, errors.New("store: filter requires an id or a query")
	}
	if f.Query != nil {
		if err := f.Query.Validate(); err != nil {
			return nil, err
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.nextID++
	sub := &Subscription{
		hub:    h,
		id:     h.nextID,
		filter: f,
		ch:     make(chan Snapshot, 1),
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	// Registered before reading so no change is missed; a snapshot published
	// in between is newer than ours and wins.
	initial, err := h.snapshot(ctx, f)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	sub.deliverInitial(initial)

	sub.mu.Lock()
	sub.stop = context.AfterFunc(ctx, sub.Cancel)
	if sub.closed {
		sub.stop()
	}
	sub.mu.Unlock()
	return sub, nil
}

// Publish informs subscribers that a record changed from before to after.
// Either side may be nil for creates and deletes.
func (h *Hub) Publish(ctx context.Context, before, after *models.ContentRecord) {
	id := ""
	switch {
	case after != nil:
		id = after.ID
	case before != nil:
		id = before.ID
	}

	for _, sub := range h.active() {
		switch {
		case sub.filter.ID != "":
			if sub.filter.ID != id {
				continue
			}
			// Re-read so concurrent writers converge on the stored state.
			snap, err := h.snapshot(ctx, sub.filter)
			if err != nil {
				slog.Error("subscription refresh failed", "content_id", id, "error", err)
				continue
			}
			sub.deliver(snap)
		case sub.filter.Query != nil:
			if !sub.filter.Query.Matches(before) && !sub.filter.Query.Matches(after) {
				continue
			}
			snap, err := h.snapshot(ctx, sub.filter)
			if err != nil {
				slog.Error("subscription refresh failed", "content_id", id, "error", err)
				continue
			}
			sub.deliver(snap)
		}
	}
}

// Notify attaches a notice to the current snapshot of every subscription
// watching the notice's record.
func (h *Hub) Notify(ctx context.Context, n Notice) {
	for _, sub := range h.active() {
		if sub.filter.ID != n.ContentID {
			continue
		}
		snap, err := h.snapshot(ctx, sub.filter)
		if err != nil {
			slog.Error("notice snapshot failed", "content_id", n.ContentID, "error", err)
			snap = Snapshot{At: time.Now().UTC(), Records: []models.ContentRecord{}}
		}
		notice := n
		snap.Notice = &notice
		sub.deliver(snap)
	}
}

// Close cancels every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	for _, sub := range h.active() {
		sub.Cancel()
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) active() []*Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	return subs
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) snapshot(ctx context.Context, f Filter) (Snapshot, error) {
	snap := Snapshot{At: time.Now().UTC(), Records: []models.ContentRecord{}}
	if f.ID != "" {
		rec, err := h.reader.Get(ctx, f.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return snap, nil
			}
			return Snapshot{}, err
		}
		snap.Records = append(snap.Records, *rec)
		return snap, nil
	}
	records, err := h.reader.List(ctx, *f.Query)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Records = records
	return snap, nil
}
