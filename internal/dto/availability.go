package dto

import "github.com/noah-isme/counseling-api/internal/models"

// CreateSlotRequest payload for adding a recurring weekly window.
type CreateSlotRequest struct {
	ConsultantID string           `json:"consultant_id" validate:"required,uuid4"`
	DayOfWeek    models.DayOfWeek `json:"day_of_week" validate:"required"`
	StartTime    string           `json:"start_time" validate:"required"`
	EndTime      string           `json:"end_time" validate:"required"`
}

// UpdateSlotRequest moves an existing window.
type UpdateSlotRequest struct {
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"required"`
	StartTime string           `json:"start_time" validate:"required"`
	EndTime   string           `json:"end_time" validate:"required"`
}

// CreateVacationRequest payload for blocking part or all of one date.
// StartTime/EndTime are required only for CUSTOM vacations.
type CreateVacationRequest struct {
	ConsultantID string              `json:"consultant_id" validate:"required,uuid4"`
	Date         string              `json:"date" validate:"required"`
	Type         models.VacationType `json:"vacation_type" validate:"required"`
	StartTime    string              `json:"start_time"`
	EndTime      string              `json:"end_time"`
	Reason       string              `json:"reason"`
}

// DaySlot is one bookable or blocked interval in a day view.
type DaySlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// DayAvailability is the resolved picture of a consultant's day: weekly
// slots minus vacations minus existing bookings.
type DayAvailability struct {
	ConsultantID string    `json:"consultant_id"`
	Date         string    `json:"date"`
	Slots        []DaySlot `json:"slots"`
}
