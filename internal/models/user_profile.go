package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfile is created on first sign-in by the provisioning endpoint.
type UserProfile struct {
	UID            string                      `gorm:"type:varchar(128);primaryKey" bson:"_id" json:"uid"`
	Email          string                      `gorm:"not null;size:255" bson:"email" json:"email"`
	DisplayName    *string                     `gorm:"size:255" bson:"display_name" json:"display_name"`
	Role           string                      `gorm:"size:20;default:'user'" bson:"role" json:"role"`
	FollowedTopics datatypes.JSONSlice[string] `bson:"followed_topics" json:"followed_topics"`
	CreatedAt      time.Time                   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time                   `bson:"updated_at" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "users"
}
