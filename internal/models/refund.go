package models

import "time"

// RefundKind distinguishes full termination from partial refunds.
type RefundKind string

const (
	RefundKindFull    RefundKind = "FULL"
	RefundKindPartial RefundKind = "PARTIAL"
)

// RefundAudit is the immutable record written for every refund applied to a
// mapping.
type RefundAudit struct {
	ID               string     `db:"id" json:"id"`
	MappingID        string     `db:"mapping_id" json:"mapping_id"`
	Kind             RefundKind `db:"kind" json:"kind"`
	Reason           string     `db:"reason" json:"reason"`
	RefundedSessions int        `db:"refunded_sessions" json:"refunded_sessions"`
	RefundedAmount   int64      `db:"refunded_amount" json:"refunded_amount"`
	Actor            string     `db:"actor" json:"actor"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// RefundAuditFilter describes query params for refund history listings.
type RefundAuditFilter struct {
	MappingID string
	Kind      RefundKind
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
