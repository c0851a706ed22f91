package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"gorm.io/datatypes"
)

// MemoryStore implements Store and ProfileStore using in-memory maps.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]models.ContentRecord
	profiles map[string]models.UserProfile
	now      func() time.Time
}

// NewMemoryStore constructs an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]models.ContentRecord),
		profiles: make(map[string]models.UserProfile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new content record.
func (m *MemoryStore) Create(_ context.Context, rec *models.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[rec.ID]; exists {
		return ErrConflict
	}
	now := m.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Tags == nil {
		rec.Tags = datatypes.JSONSlice[string]{}
	}
	m.byID[rec.ID] = rec.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.ContentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, patch Patch) (*models.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.IfStatus != "" && rec.Status != patch.IfStatus {
		return nil, ErrConflict
	}
	rec = rec.Clone()
	patch.apply(&rec)
	rec.UpdatedAt = m.now()
	m.byID[id] = rec
	out := rec.Clone()
	return &out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// List returns records matching q, newest first.
func (m *MemoryStore) List(_ context.Context, q Query) ([]models.ContentRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.ContentRecord, 0)
	for _, rec := range m.byID {
		if !q.Matches(&rec) {
			continue
		}
		items = append(items, rec.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (m *MemoryStore) EnsureProfile(_ context.Context, p *models.UserProfile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.UID]; ok {
		return false, nil
	}
	now := m.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.FollowedTopics == nil {
		p.FollowedTopics = datatypes.JSONSlice[string]{}
	}
	m.profiles[p.UID] = cloneProfile(*p)
	return true, nil
}

func (m *MemoryStore) GetProfile(_ context.Context, uid string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneProfile(p)
	return &out, nil
}

func (m *MemoryStore) SetFollowedTopics(_ context.Context, uid string, topics []string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	p.FollowedTopics = append(datatypes.JSONSlice[string]{}, topics...)
	p.UpdatedAt = m.now()
	m.profiles[uid] = p
	out := cloneProfile(p)
	return &out, nil
}

func cloneProfile(p models.UserProfile) models.UserProfile {
	out := p
	out.FollowedTopics = append(datatypes.JSONSlice[string]{}, p.FollowedTopics...)
	return out
}
