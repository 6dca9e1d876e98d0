package dto

// CreateMappingRequest payload for opening a new consultant-client mapping.
type CreateMappingRequest struct {
	ConsultantID  string `json:"consultant_id" validate:"required,uuid4"`
	ClientID      string `json:"client_id" validate:"required,uuid4"`
	BranchCode    string `json:"branch_code" validate:"required"`
	TotalSessions int    `json:"total_sessions" validate:"required,gt=0"`
	PackageName   string `json:"package_name" validate:"required"`
	PackagePrice  int64  `json:"package_price" validate:"required,gt=0"`
}

// ConfirmDepositRequest records that a client's deposit arrived.
type ConfirmDepositRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference"`
}

// ApprovePaymentRequest finalises the payment workflow.
type ApprovePaymentRequest struct {
	Comment string `json:"comment"`
}

// RejectPaymentRequest declines a confirmed deposit.
type RejectPaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// TransferMappingRequest moves a client's remaining balance to another
// consultant.
type TransferMappingRequest struct {
	NewConsultantID string `json:"new_consultant_id" validate:"required,uuid4"`
	Reason          string `json:"reason" validate:"required"`
}

// TerminateMappingRequest ends a mapping early with a full refund record.
type TerminateMappingRequest struct {
	Reason string `json:"reason" validate:"required"`
}
