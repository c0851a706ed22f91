package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
)

// PublicContent is a record as shown to a browsing user. FileURL is empty
// when Locked.
type PublicContent struct {
	models.ContentRecord
	Locked bool `json:"locked"`
}

// ReviewInput is a manual moderation decision for a pending record.
type ReviewInput struct {
	Status models.Status `json:"status"`
	Reason string        `json:"reason"`
	Tags   []string      `json:"tags"`
}

// ContentService serves the owner's content list and actions, the public
// feed and admin review.
type ContentService struct {
	store    store.Store
	uploader storage.Uploader
}

func NewContentService(st store.Store, uploader storage.Uploader) *ContentService {
	return &ContentService{store: st, uploader: uploader}
}

// MineQuery selects the caller's non-archived records.
func MineQuery(ownerID string) store.Query {
	return store.Query{Where: []store.Predicate{
		store.Eq(store.FieldOwnerID, ownerID),
		store.Ne(store.FieldStatus, models.StatusArchived),
	}}
}

// ApprovedQuery selects the public feed, optionally narrowed to one tag.
func ApprovedQuery(tag string) store.Query {
	return store.Query{
		Where: []store.Predicate{store.Eq(store.FieldStatus, models.StatusApproved)},
		Tag:   NormalizeTag(tag),
	}
}

// NormalizeTag applies tag normalization to a single tag.
func NormalizeTag(tag string) string {
	if n := NormalizeTags([]string{tag}); len(n) == 1 {
		return n[0]
	}
	return ""
}

func (s *ContentService) ListMine(ctx context.Context, sess session.Session) ([]models.ContentRecord, error) {
	if !sess.Authenticated() {
		return nil, ErrPermission
	}
	records, err := s.store.List(ctx, MineQuery(sess.UserID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return records, nil
}

// Archive hides a record from its owner's list. Archiving an archived record
// is a no-op; the record and its blob are kept.
func (s *ContentService) Archive(ctx context.Context, sess session.Session, id string) (*models.ContentRecord, error) {
	rec, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusArchived {
		return rec, nil
	}
	archived := models.StatusArchived
	updated, err := s.store.Update(ctx, id, store.Patch{Status: &archived})
	if err != nil {
		return nil, s.storeErr(err)
	}
	slog.Info("content archived", "content_id", id, "user_id", sess.UserID, "action", "archive")
	return updated, nil
}

// Delete releases the blob (best-effort) and removes the record.
func (s *ContentService) Delete(ctx context.Context, sess session.Session, id string) error {
	rec, err := s.owned(ctx, sess, id)
	if err != nil {
		return err
	}

	if s.blobShared(ctx, rec) {
		slog.Info("blob kept for other records", "content_id", id, "action", "delete")
	} else if err := s.uploader.Delete(ctx, rec.FileURL); err != nil {
		slog.Warn("blob delete failed", "content_id", id, "user_id", sess.UserID, "action", "delete", "error", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeErr(err)
	}
	slog.Info("content deleted", "content_id", id, "user_id", sess.UserID, "action", "delete")
	return nil
}

// blobShared reports whether another record, of any owner, points at the
// same content-addressed blob. A failed lookup keeps the blob.
func (s *ContentService) blobShared(ctx context.Context, rec *models.ContentRecord) bool {
	records, err := s.store.List(ctx, store.Query{Where: []store.Predicate{
		store.Eq(store.FieldFileURL, rec.FileURL),
	}})
	if err != nil {
		slog.Warn("blob reference lookup failed", "content_id", rec.ID, "action", "delete", "error", err)
		return true
	}
	for _, r := range records {
		if r.ID != rec.ID {
			return true
		}
	}
	return false
}

// Edit rewrites the title, description, tags and paywall flag.
func (s *ContentService) Edit(ctx context.Context, sess session.Session, id string, in EditInput) (*models.ContentRecord, error) {
	in, err := ValidateEdit(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, sess, id); err != nil {
		return nil, err
	}
	patch := store.Patch{
		Title:       &in.Title,
		Description: &in.Description,
		IsPaid:      &in.IsPaid,
	}.WithTags(in.Tags)
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeErr(err)
	}
	slog.Info("content edited", "content_id", id, "user_id", sess.UserID, "action", "edit")
	return updated, nil
}

func (s *ContentService) ListApproved(ctx context.Context, tag string) ([]models.ContentRecord, error) {
	records, err := s.store.List(ctx, ApprovedQuery(tag))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return records, nil
}

// GetPublic returns an approved record. Paid content requested without a
// session is returned locked, without its file URL.
func (s *ContentService) GetPublic(ctx context.Context, sess session.Session, id string) (*PublicContent, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if rec.Status != models.StatusApproved {
		return nil, ErrContentNotFound
	}
	out := &PublicContent{ContentRecord: *rec}
	if rec.IsPaid && !sess.Authenticated() {
		out.FileURL = ""
		out.Locked = true
	}
	return out, nil
}

// Topics returns the sorted distinct tags of approved content.
func (s *ContentService) Topics(ctx context.Context) ([]string, error) {
	records, err := s.ListApproved(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	topics := []string{}
	for _, r := range records {
		for _, t := range r.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

// ListByStatus lists records for administrators. An empty status lists all.
func (s *ContentService) ListByStatus(ctx context.Context, status models.Status) ([]models.ContentRecord, error) {
	q := store.Query{}
	if status != "" {
		if !status.Valid() {
			return nil, ValidationErrors{{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}}
		}
		q.Where = append(q.Where, store.Eq(store.FieldStatus, status))
	}
	records, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return records, nil
}

// Review resolves a pending record by hand. Tags, when given, are merged
// into the record's tags.
func (s *ContentService) Review(ctx context.Context, id string, in ReviewInput) (*models.ContentRecord, error) {
	if in.Status != models.StatusApproved && in.Status != models.StatusRejected {
		return nil, ValidationErrors{{Field: "status", Message: "status must be approved or rejected"}}
	}
	tags := NormalizeTags(in.Tags)
	if len(tags) > MaxTags {
		return nil, ValidationErrors{{Field: "tags", Message: fmt.Sprintf("at most %d tags are allowed", MaxTags)}}
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if rec.Status != models.StatusPending {
		return nil, ErrInvalidTransition
	}

	completed, cleared := models.StageCompleted, models.Failure("")
	patch := store.Patch{
		Status:   &in.Status,
		Stage:    &completed,
		Reason:   &in.Reason,
		Failure:  &cleared,
		IfStatus: models.StatusPending,
	}
	if in.Status == models.StatusApproved {
		patch = patch.WithTags(MergeTags(rec.Tags, tags))
	}
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeErr(err)
	}
	slog.Info("content reviewed", "content_id", id, "action", "review", "status", string(in.Status))
	return updated, nil
}

// GetOwned returns one of the caller's records in any status.
func (s *ContentService) GetOwned(ctx context.Context, sess session.Session, id string) (*models.ContentRecord, error) {
	return s.owned(ctx, sess, id)
}

func (s *ContentService) owned(ctx context.Context, sess session.Session, id string) (*models.ContentRecord, error) {
	if !sess.Authenticated() {
		return nil, ErrPermission
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if rec.OwnerID != sess.UserID {
		return nil, ErrPermission
	}
	return rec, nil
}

func (s *ContentService) storeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrContentNotFound
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}
