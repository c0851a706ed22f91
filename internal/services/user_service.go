package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
)

// ProvisionInput is the body of the provisioning endpoint.
type ProvisionInput struct {
	UID         string  `json:"uid"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name"`
}

type UserService struct {
	profiles store.ProfileStore
}

func NewUserService(profiles store.ProfileStore) *UserService {
	return &UserService{profiles: profiles}
}

// Provision creates the caller's profile unless it already exists. When a
// session is present its user must match the uid. created is false for an
// existing profile, which is returned unchanged.
func (s *UserService) Provision(ctx context.Context, sess session.Session, in ProvisionInput) (*models.UserProfile, bool, error) {
	in.UID = strings.TrimSpace(in.UID)
	in.Email = strings.TrimSpace(in.Email)
	if in.UID == "" || in.Email == "" {
		return nil, false, ErrMissingIdentity
	}
	if sess.Authenticated() && sess.UserID != in.UID {
		return nil, false, ErrIdentityMismatch
	}

	profile := &models.UserProfile{
		UID:            in.UID,
		Email:          in.Email,
		DisplayName:    in.DisplayName,
		Role:           "user",
		FollowedTopics: []string{},
	}
	created, err := s.profiles.EnsureProfile(ctx, profile)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !created {
		existing, err := s.profiles.GetProfile(ctx, in.UID)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return existing, false, nil
	}
	slog.Info("user provisioned", "user_id", in.UID, "action", "provision")
	return profile, true, nil
}

func (s *UserService) GetProfile(ctx context.Context, sess session.Session) (*models.UserProfile, error) {
	if !sess.Authenticated() {
		return nil, ErrPermission
	}
	p, err := s.profiles.GetProfile(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return p, nil
}

// FollowTopics replaces the caller's followed topics.
func (s *UserService) FollowTopics(ctx context.Context, sess session.Session, topics []string) (*models.UserProfile, error) {
	if !sess.Authenticated() {
		return nil, ErrPermission
	}
	p, err := s.profiles.SetFollowedTopics(ctx, sess.UserID, NormalizeTags(topics))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return p, nil
}

// IsAdmin reports whether the stored profile carries the admin role.
func (s *UserService) IsAdmin(ctx context.Context, uid string) bool {
	p, err := s.profiles.GetProfile(ctx, uid)
	return err == nil && p.Role == "admin"
}
