package models

// NotificationKind names the business event a notification reports.
type NotificationKind string

const (
	NotifyPaymentApproved    NotificationKind = "PAYMENT_APPROVED"
	NotifyPaymentRejected    NotificationKind = "PAYMENT_REJECTED"
	NotifyScheduleBooked     NotificationKind = "SCHEDULE_BOOKED"
	NotifyScheduleConfirmed  NotificationKind = "SCHEDULE_CONFIRMED"
	NotifyScheduleCancelled  NotificationKind = "SCHEDULE_CANCELLED"
	NotifyNoteReminder       NotificationKind = "NOTE_REMINDER"
	NotifySessionCompleted   NotificationKind = "SESSION_COMPLETED"
	NotifySessionsExhausted  NotificationKind = "SESSIONS_EXHAUSTED"
	NotifyMappingTerminated  NotificationKind = "MAPPING_TERMINATED"
	NotifyExtensionApproved  NotificationKind = "EXTENSION_APPROVED"
	NotifyExtensionRejected  NotificationKind = "EXTENSION_REJECTED"
	NotifyRefundIssued       NotificationKind = "REFUND_ISSUED"
	NotifyVerificationCode   NotificationKind = "VERIFICATION_CODE"
)

// Notification is a fire-and-forget message to one user. Delivery happens on
// the background queue; business flows never block on it.
type Notification struct {
	RecipientID string            `json:"recipient_id"`
	Kind        NotificationKind  `json:"kind"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
