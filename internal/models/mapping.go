package models

import "time"

// MappingStatus is the lifecycle state of a consultant-client mapping.
type MappingStatus string

const (
	MappingStatusPendingPayment    MappingStatus = "PENDING_PAYMENT"
	MappingStatusActive            MappingStatus = "ACTIVE"
	MappingStatusSessionsExhausted MappingStatus = "SESSIONS_EXHAUSTED"
	MappingStatusTerminated        MappingStatus = "TERMINATED"
)

// PaymentStatus is the payment-approval sub-state of a mapping.
type PaymentStatus string

const (
	PaymentStatusPending          PaymentStatus = "PENDING"
	PaymentStatusDepositConfirmed PaymentStatus = "DEPOSIT_CONFIRMED"
	PaymentStatusApproved         PaymentStatus = "APPROVED"
	PaymentStatusRejected         PaymentStatus = "REJECTED"
)

// Mapping is the consultant-client entitlement contract: a prepaid session
// balance gated by the payment-approval workflow.
type Mapping struct {
	ID           string        `db:"id" json:"id"`
	ConsultantID string        `db:"consultant_id" json:"consultant_id"`
	ClientID     string        `db:"client_id" json:"client_id"`
	BranchCode   string        `db:"branch_code" json:"branch_code"`
	Status       MappingStatus `db:"status" json:"status"`
	PayStatus    PaymentStatus `db:"payment_status" json:"payment_status"`

	TotalSessions     int `db:"total_sessions" json:"total_sessions"`
	UsedSessions      int `db:"used_sessions" json:"used_sessions"`
	RemainingSessions int `db:"remaining_sessions" json:"remaining_sessions"`
	// PurchasedSessions is the paid-for session count: set at creation,
	// grown by approved extensions, never reduced by refunds. Refund
	// proration always divides by this, so repeated refunds cannot shift
	// the per-session price.
	PurchasedSessions int `db:"purchased_sessions" json:"purchased_sessions"`

	PackageName  string `db:"package_name" json:"package_name"`
	PackagePrice int64  `db:"package_price" json:"package_price"`

	PaymentAmount    *int64     `db:"payment_amount" json:"payment_amount,omitempty"`
	PaymentMethod    *string    `db:"payment_method" json:"payment_method,omitempty"`
	PaymentReference *string    `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentDate      *time.Time `db:"payment_date" json:"payment_date,omitempty"`

	AdminApprovalDate *time.Time `db:"admin_approval_date" json:"admin_approval_date,omitempty"`
	ApprovedBy        *string    `db:"approved_by" json:"approved_by,omitempty"`

	StartDate *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`

	TerminationReason *string    `db:"termination_reason" json:"termination_reason,omitempty"`
	TerminatedBy      *string    `db:"terminated_by" json:"terminated_by,omitempty"`
	TerminatedAt      *time.Time `db:"terminated_at" json:"terminated_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MappingDetail augments a mapping with display names resolved from the
// user directory.
type MappingDetail struct {
	Mapping
	ConsultantName string `db:"consultant_name" json:"consultant_name"`
	ClientName     string `db:"client_name" json:"client_name"`
}

// MappingFilter describes query params for listing mappings.
type MappingFilter struct {
	ConsultantID string
	ClientID     string
	BranchCode   string
	Status       MappingStatus
	PayStatus    PaymentStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
