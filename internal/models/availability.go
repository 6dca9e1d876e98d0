package models

import "time"

// AvailabilitySlot is a recurring weekly window during which a consultant
// accepts bookings.
type AvailabilitySlot struct {
	ID           string    `db:"id" json:"id"`
	ConsultantID string    `db:"consultant_id" json:"consultant_id"`
	DayOfWeek    DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// VacationType classifies a vacation exception's coverage of a day.
type VacationType string

const (
	VacationFullDay   VacationType = "FULL_DAY"
	VacationMorning   VacationType = "MORNING"
	VacationAfternoon VacationType = "AFTERNOON"
	VacationCustom    VacationType = "CUSTOM"
)

const noonMinutes = 12 * 60

// Window returns the covered minute range [start, end) for the vacation
// type. CUSTOM ranges come from the exception's own times.
func (t VacationType) Window() (int, int, bool) {
	switch t {
	case VacationFullDay:
		return 0, 24 * 60, true
	case VacationMorning:
		return 0, noonMinutes, true
	case VacationAfternoon:
		return noonMinutes, 24 * 60, true
	default:
		return 0, 0, false
	}
}

// VacationException removes availability for part or all of one date.
// StartTime/EndTime are set iff Type is CUSTOM.
type VacationException struct {
	ID           string       `db:"id" json:"id"`
	ConsultantID string       `db:"consultant_id" json:"consultant_id"`
	Date         string       `db:"date" json:"date"`
	Type         VacationType `db:"vacation_type" json:"vacation_type"`
	StartTime    *string      `db:"start_time" json:"start_time,omitempty"`
	EndTime      *string      `db:"end_time" json:"end_time,omitempty"`
	Reason       string       `db:"reason" json:"reason"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}
