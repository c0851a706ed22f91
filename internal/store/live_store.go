package store

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
)

// LiveStore wraps a Store and publishes every successful mutation to a Hub.
type LiveStore struct {
	Store
	hub *Hub
}

// NewLiveStore returns the wrapped store together with its hub.
func NewLiveStore(inner Store) *LiveStore {
	return &LiveStore{Store: inner, hub: NewHub(inner)}
}

func (l *LiveStore) Hub() *Hub {
	return l.hub
}

func (l *LiveStore) Create(ctx context.Context, rec *models.ContentRecord) error {
	if err := l.Store.Create(ctx, rec); err != nil {
		return err
	}
	created := rec.Clone()
	l.hub.Publish(ctx, nil, &created)
	return nil
}

func (l *LiveStore) Update(ctx context.Context, id string, patch Patch) (*models.ContentRecord, error) {
	before, err := l.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := l.Store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	l.hub.Publish(ctx, before, after)
	return after, nil
}

func (l *LiveStore) Delete(ctx context.Context, id string) error {
	before, err := l.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := l.Store.Delete(ctx, id); err != nil {
		return err
	}
	l.hub.Publish(ctx, before, nil)
	return nil
}
