package models

import "time"

// Branch is a business location identified by its code.
type Branch struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CommonCode maps an enum value to its localized display label.
type CommonCode struct {
	ID        string `db:"id" json:"id"`
	CodeGroup string `db:"code_group" json:"code_group"`
	CodeValue string `db:"code_value" json:"code_value"`
	Label     string `db:"label" json:"label"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// Code groups used by the catalog.
const (
	CodeGroupMappingStatus    = "MAPPING_STATUS"
	CodeGroupPaymentStatus    = "PAYMENT_STATUS"
	CodeGroupScheduleStatus   = "SCHEDULE_STATUS"
	CodeGroupVacationType     = "VACATION_TYPE"
	CodeGroupConsultationType = "CONSULTATION_TYPE"
	CodeGroupMessages         = "MESSAGES"
)

// Message keys resolved through the code catalog.
const (
	MsgVacationConflict = "VACATION_CONFLICT"
)
