// Package store persists content records and user profiles and fans out
// record changes to live subscribers.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"gorm.io/datatypes"
)

var (
	// ErrNotFound is returned when a record or profile does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a conditional update finds the record in another status.
	ErrConflict = errors.New("store: status precondition failed")
	// ErrUnknownField is returned for query predicates on unsupported fields.
	ErrUnknownField = errors.New("store: unknown query field")
)

// Store is the content record collaborator.
type Store interface {
	Create(ctx context.Context, rec *models.ContentRecord) error
	Get(ctx context.Context, id string) (*models.ContentRecord, error)
	Update(ctx context.Context, id string, patch Patch) (*models.ContentRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]models.ContentRecord, error)
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	// EnsureProfile inserts p unless a profile with the same UID exists.
	EnsureProfile(ctx context.Context, p *models.UserProfile) (created bool, err error)
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	SetFollowedTopics(ctx context.Context, uid string, topics []string) (*models.UserProfile, error)
}

// Patch is a partial update. Nil fields are left untouched; fileUrl, fileType
// and ownerId are deliberately absent.
type Patch struct {
	Title       *string
	Description *string
	Tags        []string
	SetTags     bool
	IsPaid      *bool
	Status      *models.Status
	Stage       *models.Stage
	Reason      *string
	Failure     *models.Failure

	// IfStatus makes the update conditional on the record's current status.
	IfStatus models.Status
}

// WithTags sets the tag list, including setting it to empty.
func (p Patch) WithTags(tags []string) Patch {
	p.Tags = tags
	p.SetTags = true
	return p
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && !p.SetTags && p.IsPaid == nil &&
		p.Status == nil && p.Stage == nil && p.Reason == nil && p.Failure == nil
}

// columns returns the column/field names and values the patch writes.
// Column names match both the SQL column names and the BSON field names.
func (p Patch) columns() map[string]any {
	cols := make(map[string]any)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.SetTags {
		tags := make(datatypes.JSONSlice[string], len(p.Tags))
		copy(tags, p.Tags)
		cols["tags"] = tags
	}
	if p.IsPaid != nil {
		cols["is_paid"] = *p.IsPaid
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Stage != nil {
		cols["stage"] = string(*p.Stage)
	}
	if p.Reason != nil {
		cols["reason"] = *p.Reason
	}
	if p.Failure != nil {
		cols["failure"] = string(*p.Failure)
	}
	return cols
}

func (p Patch) apply(rec *models.ContentRecord) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.SetTags {
		rec.Tags = make(datatypes.JSONSlice[string], len(p.Tags))
		copy(rec.Tags, p.Tags)
	}
	if p.IsPaid != nil {
		rec.IsPaid = *p.IsPaid
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Stage != nil {
		rec.Stage = *p.Stage
	}
	if p.Reason != nil {
		rec.Reason = *p.Reason
	}
	if p.Failure != nil {
		rec.Failure = *p.Failure
	}
}

// Op is a query comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
)

// Queryable top-level fields.
const (
	FieldOwnerID  = "owner_id"
	FieldStatus   = "status"
	FieldStage    = "stage"
	FieldIsPaid   = "is_paid"
	FieldFileType = "file_type"
	FieldFileURL  = "file_url"
)

// Predicate compares one top-level field against a value.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Predicate { return Predicate{Field: field, Op: OpEq, Value: value} }
func Ne(field string, value any) Predicate { return Predicate{Field: field, Op: OpNe, Value: value} }

// Query selects records matching every predicate. Tag, when set, additionally
// requires the record's tags to contain it. Results are ordered newest first.
type Query struct {
	Where []Predicate
	Tag   string
	Limit int
}

// Validate rejects predicates on unknown fields or with unknown operators.
func (q Query) Validate() error {
	for _, p := range q.Where {
		if _, ok := fieldValue(&models.ContentRecord{}, p.Field); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, p.Field)
		}
		if p.Op != OpEq && p.Op != OpNe {
			return fmt.Errorf("store: unknown operator %q", p.Op)
		}
	}
	return nil
}

// Matches evaluates the query against a single record. A nil record never matches.
func (q Query) Matches(rec *models.ContentRecord) bool {
	if rec == nil {
		return false
	}
	for _, p := range q.Where {
		v, ok := fieldValue(rec, p.Field)
		if !ok {
			return false
		}
		equal := v == normalize(p.Value)
		if (p.Op == OpEq) != equal {
			return false
		}
	}
	if q.Tag != "" {
		found := false
		for _, t := range rec.Tags {
			if t == q.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fieldValue(rec *models.ContentRecord, field string) (any, bool) {
	switch field {
	case FieldOwnerID:
		return rec.OwnerID, true
	case FieldStatus:
		return string(rec.Status), true
	case FieldStage:
		return string(rec.Stage), true
	case FieldIsPaid:
		return rec.IsPaid, true
	case FieldFileType:
		return rec.FileType, true
	case FieldFileURL:
		return rec.FileURL, true
	}
	return nil, false
}

// normalize maps named string types onto plain strings so they compare and
// serialize the same way in every backend.
func normalize(v any) any {
	switch t := v.(type) {
	case models.Status:
		return string(t)
	case models.Stage:
		return string(t)
	}
	return v
}
