package dto

import "github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"

type ProvisionUserRequest struct {
	UID         string  `json:"uid"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name"`
}

type ProvisionUserResponse struct {
	Created bool                `json:"created"`
	User    *models.UserProfile `json:"user"`
}

type FollowTopicsRequest struct {
	Topics []string `json:"topics"`
}
