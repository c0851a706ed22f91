package dto

import "github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"

type ErrorResponse struct {
	Error   bool                  `json:"error"`
	Message string                `json:"message"`
	Fields  []services.FieldError `json:"fields,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Store     string `json:"store"`
	Streams   int    `json:"streams"`
}
