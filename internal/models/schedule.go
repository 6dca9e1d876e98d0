package models

import "time"

// ScheduleStatus is the lifecycle state of a calendar booking.
type ScheduleStatus string

const (
	ScheduleStatusAvailable ScheduleStatus = "AVAILABLE"
	ScheduleStatusBooked    ScheduleStatus = "BOOKED"
	ScheduleStatusConfirmed ScheduleStatus = "CONFIRMED"
	ScheduleStatusCompleted ScheduleStatus = "COMPLETED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
	ScheduleStatusVacation  ScheduleStatus = "VACATION"
)

// Blocking reports whether the status occupies the consultant's calendar for
// overlap purposes.
func (s ScheduleStatus) Blocking() bool {
	return s == ScheduleStatusBooked || s == ScheduleStatusConfirmed
}

// Terminal reports whether no further transitions are allowed.
func (s ScheduleStatus) Terminal() bool {
	return s == ScheduleStatusCompleted || s == ScheduleStatusCancelled || s == ScheduleStatusVacation
}

// ConsultationType categorises a booking.
type ConsultationType string

const (
	ConsultationTypeIndividual ConsultationType = "INDIVIDUAL"
	ConsultationTypeCouple     ConsultationType = "COUPLE"
	ConsultationTypeFamily     ConsultationType = "FAMILY"
	ConsultationTypeGroup      ConsultationType = "GROUP"
	ConsultationTypeInitial    ConsultationType = "INITIAL"
)

// Schedule is a concrete calendar booking for a consultant/client pair.
// Date is an ISO calendar date; StartTime/EndTime are HH:MM with the end
// exclusive. Processed marks sweeper idempotency.
type Schedule struct {
	ID           string           `db:"id" json:"id"`
	ConsultantID string           `db:"consultant_id" json:"consultant_id"`
	ClientID     string           `db:"client_id" json:"client_id"`
	BranchCode   string           `db:"branch_code" json:"branch_code"`
	Date         string           `db:"date" json:"date"`
	StartTime    string           `db:"start_time" json:"start_time"`
	EndTime      string           `db:"end_time" json:"end_time"`
	Status       ScheduleStatus   `db:"status" json:"status"`
	Type         ConsultationType `db:"consultation_type" json:"consultation_type"`
	Title        string           `db:"title" json:"title"`
	Description  string           `db:"description" json:"description"`
	Notes        string           `db:"notes" json:"notes"`
	Processed    bool             `db:"processed" json:"processed"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	ConsultantID string
	ClientID     string
	BranchCode   string
	Status       ScheduleStatus
	DateFrom     string
	DateTo       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
