package models

import "time"

// UserRole is the closed set of roles known to the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleConsultant UserRole = "CONSULTANT"
	RoleClient     UserRole = "CLIENT"
)

// Capability names a discrete permission checked by membership, never by
// role-name matching.
type Capability string

const (
	CapManageMappings     Capability = "MANAGE_MAPPINGS"
	CapApprovePayments    Capability = "APPROVE_PAYMENTS"
	CapManageSchedules    Capability = "MANAGE_SCHEDULES"
	CapConfirmSchedules   Capability = "CONFIRM_SCHEDULES"
	CapManageAvailability Capability = "MANAGE_AVAILABILITY"
	CapProcessRefunds     Capability = "PROCESS_REFUNDS"
	CapRunSweeper         Capability = "RUN_SWEEPER"
	CapViewLedger         Capability = "VIEW_LEDGER"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleSuperAdmin: capSet(
		CapManageMappings, CapApprovePayments, CapManageSchedules, CapConfirmSchedules,
		CapManageAvailability, CapProcessRefunds, CapRunSweeper, CapViewLedger,
	),
	RoleAdmin: capSet(
		CapManageMappings, CapApprovePayments, CapManageSchedules, CapConfirmSchedules,
		CapManageAvailability, CapProcessRefunds, CapRunSweeper, CapViewLedger,
	),
	RoleConsultant: capSet(CapManageSchedules, CapManageAvailability, CapViewLedger),
	RoleClient:     capSet(CapViewLedger),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether the role carries the capability.
func (r UserRole) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Valid reports whether the role belongs to the closed enumeration.
func (r UserRole) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Actor identifies who invokes a core operation. It is threaded explicitly
// into every service call; the core never reaches into a web session.
type Actor struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	BranchCode string   `json:"branch_code"`
}

// Can reports whether the actor's role carries the capability.
func (a Actor) Can(c Capability) bool {
	return a.Role.Can(c)
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	BranchCode   string     `db:"branch_code" json:"branch_code"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
