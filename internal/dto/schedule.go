package dto

import "github.com/noah-isme/counseling-api/internal/models"

// CreateScheduleRequest payload for booking a consultation.
type CreateScheduleRequest struct {
	ConsultantID string                  `json:"consultant_id" validate:"required,uuid4"`
	ClientID     string                  `json:"client_id" validate:"required,uuid4"`
	Date         string                  `json:"date" validate:"required"`
	StartTime    string                  `json:"start_time" validate:"required"`
	EndTime      string                  `json:"end_time" validate:"required"`
	Type         models.ConsultationType `json:"consultation_type" validate:"required"`
	Title        string                  `json:"title" validate:"required"`
	Description  string                  `json:"description"`
}

// UpdateScheduleRequest reschedules or annotates an existing booking. Nil
// fields stay unchanged.
type UpdateScheduleRequest struct {
	Date        *string `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

// CancelScheduleRequest carries the cancellation note.
type CancelScheduleRequest struct {
	Reason string `json:"reason" validate:"required"`
}
