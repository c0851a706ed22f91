package services

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUpload            = errors.New("upload failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrModeration        = errors.New("moderation failed")
	ErrTagging           = errors.New("tagging failed")
	ErrPermission        = errors.New("permission denied")
	ErrContentNotFound   = errors.New("content not found")
	ErrInvalidTransition = errors.New("content is not pending review")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrMissingIdentity   = errors.New("uid and email are required")
	ErrIdentityMismatch  = errors.New("uid does not match the authenticated user")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the structured result of a failed validation. It
// matches ErrValidation with errors.Is.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}
