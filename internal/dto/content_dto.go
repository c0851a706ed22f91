package dto

import (
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
)

type ContentListResponse struct {
	Data  []models.ContentRecord `json:"data"`
	Count int                    `json:"count"`
}

type EditContentRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	IsPaid      bool     `json:"is_paid"`
}

func (r EditContentRequest) Input() services.EditInput {
	return services.EditInput{
		Title:       r.Title,
		Description: r.Description,
		Tags:        r.Tags,
		IsPaid:      r.IsPaid,
	}
}

type ReviewContentRequest struct {
	Status string   `json:"status"`
	Reason string   `json:"reason"`
	Tags   []string `json:"tags"`
}

func (r ReviewContentRequest) Input() services.ReviewInput {
	return services.ReviewInput{
		Status: models.Status(r.Status),
		Reason: r.Reason,
		Tags:   r.Tags,
	}
}

type TopicsResponse struct {
	Topics []string `json:"topics"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
