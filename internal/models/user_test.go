package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.Can(CapApprovePayments))
	assert.True(t, RoleAdmin.Can(CapProcessRefunds))
	assert.True(t, RoleSuperAdmin.Can(CapRunSweeper))

	assert.True(t, RoleConsultant.Can(CapManageSchedules))
	assert.True(t, RoleConsultant.Can(CapManageAvailability))
	assert.False(t, RoleConsultant.Can(CapApprovePayments))
	assert.False(t, RoleConsultant.Can(CapProcessRefunds))

	assert.True(t, RoleClient.Can(CapViewLedger))
	assert.False(t, RoleClient.Can(CapManageSchedules))

	assert.False(t, UserRole("INTRUDER").Can(CapViewLedger))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleClient.Valid())
	assert.False(t, UserRole("").Valid())
	assert.False(t, UserRole("GUEST").Valid())
}

func TestActorCan(t *testing.T) {
	admin := Actor{UserID: "u1", Role: RoleAdmin}
	assert.True(t, admin.Can(CapManageMappings))

	anonymous := Actor{}
	assert.False(t, anonymous.Can(CapViewLedger))
}

func TestJWTClaimsActor(t *testing.T) {
	claims := &JWTClaims{UserID: "u1", Role: RoleConsultant, BranchCode: "GANGNAM"}
	actor := claims.Actor()
	assert.Equal(t, "u1", actor.UserID)
	assert.Equal(t, RoleConsultant, actor.Role)
	assert.Equal(t, "GANGNAM", actor.BranchCode)

	var missing *JWTClaims
	assert.Equal(t, Actor{}, missing.Actor())
}
