package dto

// PartialRefundRequest refunds part of a mapping's remaining balance.
type PartialRefundRequest struct {
	Sessions int    `json:"sessions" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required"`
}

// RefundQuote previews the amount a refund would pay out.
type RefundQuote struct {
	MappingID        string `json:"mapping_id"`
	RefundedSessions int    `json:"refunded_sessions"`
	PerSessionPrice  int64  `json:"per_session_price"`
	RefundedAmount   int64  `json:"refunded_amount"`
}
