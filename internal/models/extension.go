package models

import "time"

// ExtensionStatus is the lifecycle state of a session-extension request.
type ExtensionStatus string

const (
	ExtensionStatusPendingPayment   ExtensionStatus = "PENDING_PAYMENT"
	ExtensionStatusDepositConfirmed ExtensionStatus = "DEPOSIT_CONFIRMED"
	ExtensionStatusApproved         ExtensionStatus = "APPROVED"
	ExtensionStatusRejected         ExtensionStatus = "REJECTED"
	ExtensionStatusCompleted        ExtensionStatus = "COMPLETED"
)

// Terminal reports whether the request can no longer change state.
func (s ExtensionStatus) Terminal() bool {
	return s == ExtensionStatusRejected || s == ExtensionStatusCompleted
}

// SessionExtensionRequest asks to add sessions to an already-active mapping
// through the same deposit-confirm/approve pipeline as initial payment.
type SessionExtensionRequest struct {
	ID                 string          `db:"id" json:"id"`
	MappingID          string          `db:"mapping_id" json:"mapping_id"`
	RequesterID        string          `db:"requester_id" json:"requester_id"`
	AdditionalSessions int             `db:"additional_sessions" json:"additional_sessions"`
	PackageName        string          `db:"package_name" json:"package_name"`
	PackagePrice       int64           `db:"package_price" json:"package_price"`
	Reason             string          `db:"reason" json:"reason"`
	Status             ExtensionStatus `db:"status" json:"status"`
	AdminComment       *string         `db:"admin_comment" json:"admin_comment,omitempty"`
	RejectionReason    *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	ApprovedAt         *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	RejectedAt         *time.Time      `db:"rejected_at" json:"rejected_at,omitempty"`
}

// ExtensionFilter describes query params for listing extension requests.
type ExtensionFilter struct {
	MappingID   string
	RequesterID string
	Status      ExtensionStatus
	Page        int
	PageSize    int
}

// ExtensionStatistics aggregates request counts by status.
type ExtensionStatistics struct {
	Total    int                     `json:"total"`
	ByStatus map[ExtensionStatus]int `json:"by_status"`
}
