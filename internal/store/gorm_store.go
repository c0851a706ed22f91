package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store and ProfileStore on a relational database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, rec *models.ContentRecord) error {
	if rec.Tags == nil {
		rec.Tags = datatypes.JSONSlice[string]{}
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create content record: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.ContentRecord, error) {
	var rec models.ContentRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) Update(ctx context.Context, id string, patch Patch) (*models.ContentRecord, error) {
	cols := patch.columns()
	cols["updated_at"] = time.Now().UTC()

	query := s.db.WithContext(ctx).Model(&models.ContentRecord{}).Where("id = ?", id)
	if patch.IfStatus != "" {
		query = query.Where("status = ?", string(patch.IfStatus))
	}
	result := query.Updates(cols)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update content record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return s.Get(ctx, id)
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.ContentRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete content record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, q Query) ([]models.ContentRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&models.ContentRecord{})
	for _, p := range q.Where {
		switch p.Op {
		case OpEq:
			query = query.Where(clause.Eq{Column: clause.Column{Name: p.Field}, Value: normalize(p.Value)})
		case OpNe:
			query = query.Where(clause.Neq{Column: clause.Column{Name: p.Field}, Value: normalize(p.Value)})
		}
	}
	if q.Tag != "" {
		if s.db.Dialector.Name() == "postgres" {
			raw, _ := json.Marshal([]string{q.Tag})
			query = query.Where("tags @> ?::jsonb", string(raw))
		} else {
			query = query.Where(datatypes.JSONArrayQuery("tags").Contains(q.Tag))
		}
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var records []models.ContentRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) EnsureProfile(ctx context.Context, p *models.UserProfile) (bool, error) {
	if p.FollowedTopics == nil {
		p.FollowedTopics = datatypes.JSONSlice[string]{}
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create user profile: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.db.WithContext(ctx).First(&p, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) SetFollowedTopics(ctx context.Context, uid string, topics []string) (*models.UserProfile, error) {
	result := s.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"followed_topics": datatypes.JSONSlice[string](append([]string{}, topics...)),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update followed topics: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetProfile(ctx, uid)
}
