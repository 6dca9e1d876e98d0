package dto

// CreateExtensionRequest payload for requesting additional sessions on an
// active mapping.
type CreateExtensionRequest struct {
	MappingID          string `json:"mapping_id" validate:"required,uuid4"`
	AdditionalSessions int    `json:"additional_sessions" validate:"required,gt=0"`
	PackageName        string `json:"package_name" validate:"required"`
	PackagePrice       int64  `json:"package_price" validate:"required,gt=0"`
	Reason             string `json:"reason"`
}

// ReviewExtensionRequest captures the admin decision on a request.
type ReviewExtensionRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}
