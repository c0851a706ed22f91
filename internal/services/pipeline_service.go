package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// Notifier surfaces an asynchronous pipeline failure to whoever watches the record.
type Notifier interface {
	PipelineFailed(ctx context.Context, contentID string, err error)
}

// HubNotifier attaches failures to the record's live stream and reports
// them to Sentry.
type HubNotifier struct {
	hub *store.Hub
}

func NewHubNotifier(hub *store.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) PipelineFailed(ctx context.Context, contentID string, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("content_id", contentID)
		sentry.CaptureException(err)
	})

	failure := failureOf(err)
	n.hub.Notify(ctx, store.Notice{ContentID: contentID, Kind: string(failure), Message: failure.Message()})
}

// failureOf classifies a pipeline error for the record and its watchers.
func failureOf(err error) models.Failure {
	switch {
	case errors.Is(err, ErrModeration):
		return models.FailureModeration
	case errors.Is(err, ErrTagging):
		return models.FailureTagging
	default:
		return models.FailureInternal
	}
}

// PipelineService uploads submissions, records them as pending and drives
// them through classification and tagging.
type PipelineService struct {
	store      store.Store
	uploader   storage.Uploader
	classifier ai.Classifier
	tagger     ai.Tagger
	notifier   Notifier

	wg sync.WaitGroup
}

func NewPipelineService(st store.Store, uploader storage.Uploader, classifier ai.Classifier, tagger ai.Tagger, notifier Notifier) *PipelineService {
	return &PipelineService{
		store:      st,
		uploader:   uploader,
		classifier: classifier,
		tagger:     tagger,
		notifier:   notifier,
	}
}

// Submit validates and uploads the file, creates the pending record and
// returns it. Moderation continues in the background and is not bound to ctx.
func (s *PipelineService) Submit(ctx context.Context, sess session.Session, in SubmissionInput) (*models.ContentRecord, error) {
	if !sess.Authenticated() {
		return nil, ErrPermission
	}
	sub, err := BuildSubmission(in)
	if err != nil {
		return nil, err
	}

	path := storage.BlobPath(sess.UserID, sub.Data, sub.FileType)
	fileURL, err := s.uploader.Upload(ctx, bytes.NewReader(sub.Data), path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	rec := &models.ContentRecord{
		ID:          uuid.NewString(),
		Title:       sub.Title,
		Description: sub.Description,
		FileURL:     fileURL,
		FileType:    sub.FileType,
		FileSize:    sub.FileSize,
		OwnerID:     sess.UserID,
		IsPaid:      sub.IsPaid,
		Tags:        []string{},
		Status:      models.StatusPending,
		Stage:       models.StageVerifying,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		// The blob stays behind; orphans are not collected.
		slog.Error("content record create failed", "user_id", sess.UserID, "action", "submit", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	slog.Info("content submitted", "content_id", rec.ID, "user_id", sess.UserID, "action", "submit")

	snapshot := rec.Clone()
	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), &snapshot, sub.Tags)

	return rec, nil
}

// Wait blocks until every in-flight pipeline has finished.
func (s *PipelineService) Wait() {
	s.wg.Wait()
}

func (s *PipelineService) run(ctx context.Context, rec *models.ContentRecord, userTags []string) {
	defer s.wg.Done()
	start := time.Now()

	err := s.Moderate(ctx, rec, userTags)
	latency := time.Since(start).Milliseconds()
	switch {
	case err == nil:
		slog.Info("content moderated", "content_id", rec.ID, "action", "moderate", "latency_ms", latency)
	case errors.Is(err, ErrInvalidTransition):
		slog.Info("content left pending during moderation", "content_id", rec.ID, "action", "moderate", "latency_ms", latency)
	default:
		slog.Error("content moderation failed", "content_id", rec.ID, "user_id", rec.OwnerID,
			"action", "moderate", "error", err, "latency_ms", latency)
		s.recordFailure(ctx, rec.ID, err)
		if s.notifier != nil {
			s.notifier.PipelineFailed(ctx, rec.ID, err)
		}
	}
}

// recordFailure marks the still-pending record as failed so watchers that
// subscribe later see it too.
func (s *PipelineService) recordFailure(ctx context.Context, id string, err error) {
	failure := failureOf(err)
	_, werr := s.store.Update(ctx, id, store.Patch{Failure: &failure, IfStatus: models.StatusPending})
	if werr != nil {
		slog.Warn("pipeline failure not recorded", "content_id", id, "action", "moderate", "error", werr)
	}
}

// Moderate classifies a pending record and, when it is educational, tags
// it. The classifier and tagger are each called at most once. Every write is
// conditional on the record still being pending; if it is not,
// ErrInvalidTransition is returned and nothing else happens.
func (s *PipelineService) Moderate(ctx context.Context, rec *models.ContentRecord, userTags []string) error {
	verdict, err := s.classifier.Classify(ctx, ai.ClassifyRequest{
		Title:       rec.Title,
		Description: rec.Description,
		FileType:    rec.FileType,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModeration, err)
	}

	if !verdict.IsEducational {
		rejected, completed := models.StatusRejected, models.StageCompleted
		_, err := s.store.Update(ctx, rec.ID, store.Patch{
			Status:   &rejected,
			Stage:    &completed,
			Reason:   &verdict.Reason,
			IfStatus: models.StatusPending,
		})
		return pipelineWriteErr(err)
	}

	tagging := models.StageTagging
	current, err := s.store.Update(ctx, rec.ID, store.Patch{Stage: &tagging, IfStatus: models.StatusPending})
	if err != nil {
		return pipelineWriteErr(err)
	}

	result, err := s.tagger.GenerateTags(ctx, ai.TagRequest{
		Title:       rec.Title,
		Description: rec.Description,
		ContentType: ai.ContentTypeFromMIME(rec.FileType),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTagging, err)
	}
	aiTags := NormalizeTags(result.Tags)
	if len(aiTags) > MaxTags {
		aiTags = aiTags[:MaxTags]
	}

	approved, completed := models.StatusApproved, models.StageCompleted
	patch := store.Patch{
		Status:   &approved,
		Stage:    &completed,
		Reason:   &verdict.Reason,
		IfStatus: models.StatusPending,
	}.WithTags(MergeTags(current.Tags, userTags, aiTags))
	_, err = s.store.Update(ctx, rec.ID, patch)
	return pipelineWriteErr(err)
}

func pipelineWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}
