package models

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the persisted moderation state of a ContentRecord.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusArchived Status = "archived"
)

// Terminal reports whether no further automated transition may happen.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusArchived
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// Stage is the persisted progress marker of the moderation pipeline.
// Uploading happens before a record exists, so it is never stored.
type Stage string

const (
	StageUploading Stage = "uploading"
	StageVerifying Stage = "verifying"
	StageTagging   Stage = "tagging"
	StageCompleted Stage = "completed"
)

// Failure records why the pipeline stopped on a record that is still
// pending. Empty means no failure.
type Failure string

const (
	FailureModeration Failure = "moderation_failed"
	FailureTagging    Failure = "tagging_failed"
	FailureInternal   Failure = "error"
)

// Message is the user-facing text for the failure.
func (f Failure) Message() string {
	switch f {
	case "":
		return ""
	case FailureModeration:
		return "Content verification failed. An administrator will review your content."
	case FailureTagging:
		return "Tag generation failed. An administrator will review your content."
	default:
		return "Processing failed. An administrator will review your content."
	}
}

// ContentRecord holds metadata and moderation state for one uploaded submission.
type ContentRecord struct {
	ID          string                      `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	Title       string                      `gorm:"not null;size:300" bson:"title" json:"title"`
	Description string                      `gorm:"not null;type:text" bson:"description" json:"description"`
	FileURL     string                      `gorm:"not null;size:1024;index" bson:"file_url" json:"file_url"`
	FileType    string                      `gorm:"not null;size:100;index" bson:"file_type" json:"file_type"`
	FileSize    int64                       `gorm:"not null;default:0" bson:"file_size" json:"file_size"`
	OwnerID     string                      `gorm:"not null;size:128;index" bson:"owner_id" json:"owner_id"`
	IsPaid      bool                        `gorm:"not null;default:false" bson:"is_paid" json:"is_paid"`
	Tags        datatypes.JSONSlice[string] `bson:"tags" json:"tags"`
	Status      Status                      `gorm:"not null;size:20;default:'pending';index" bson:"status" json:"status"`
	Stage       Stage                       `gorm:"not null;size:20;default:'verifying'" bson:"stage" json:"stage"`
	Reason      string                      `gorm:"size:2000" bson:"reason,omitempty" json:"reason,omitempty"`
	Failure     Failure                     `gorm:"size:40;default:''" bson:"failure,omitempty" json:"failure,omitempty"`
	CreatedAt   time.Time                   `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time                   `bson:"updated_at" json:"updated_at"`
}

func (ContentRecord) TableName() string {
	return "content"
}

// Clone returns a deep copy so callers never share the tag slice.
func (r ContentRecord) Clone() ContentRecord {
	out := r
	out.Tags = make(datatypes.JSONSlice[string], len(r.Tags))
	copy(out.Tags, r.Tags)
	return out
}
