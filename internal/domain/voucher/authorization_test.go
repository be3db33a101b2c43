package voucher

import (
	"testing"

	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
)

func TestCanPerform_DenyByDefault(t *testing.T) {
	// DDFA, DFA and Audit Unit hold no write grants anywhere in the matrix.
	viewOnly := []identity.Role{identity.RoleDDFA, identity.RoleDFA, identity.RoleAudit}
	states := []State{
		{},
		{Status: StatusUnpaid},
		{Status: StatusPaid},
		{Status: StatusCancelled},
		{Status: StatusUnpaid, Released: true},
		{Status: StatusPaid, PendingDeletion: true},
	}

	for _, role := range viewOnly {
		for _, action := range AllActions {
			for _, state := range states {
				assert.False(t, CanPerform(role, action, state),
					"role %s must be denied %s", role, action)
			}
		}
	}
}

func TestCanPerform_Admin(t *testing.T) {
	t.Run("admin is allowed everything", func(t *testing.T) {
		for _, action := range AllActions {
			if action == ActionEditVoucher {
				continue
			}
			assert.True(t, CanPerform(identity.RoleAdmin, action, State{Status: StatusPaid, Released: true}))
		}
	})

	t.Run("admin cannot edit a voucher pending deletion", func(t *testing.T) {
		assert.False(t, CanPerform(identity.RoleAdmin, ActionEditVoucher,
			State{Status: StatusUnpaid, PendingDeletion: true}))
		assert.True(t, CanPerform(identity.RoleAdmin, ActionEditVoucher,
			State{Status: StatusUnpaid}))
	})
}

func TestCanPerform_EditVoucher(t *testing.T) {
	t.Run("staff edits unpaid only", func(t *testing.T) {
		assert.True(t, CanPerform(identity.RolePayableStaff, ActionEditVoucher, State{Status: StatusUnpaid}))
		assert.False(t, CanPerform(identity.RolePayableStaff, ActionEditVoucher, State{Status: StatusPaid}))
		assert.False(t, CanPerform(identity.RolePayableStaff, ActionEditVoucher, State{Status: StatusCancelled}))
	})

	t.Run("head and CPO edit any base status", func(t *testing.T) {
		for _, role := range []identity.Role{identity.RolePayableHead, identity.RoleCPO} {
			for _, status := range []BaseStatus{StatusUnpaid, StatusPaid, StatusCancelled} {
				assert.True(t, CanPerform(role, ActionEditVoucher, State{Status: status}))
			}
		}
	})

	t.Run("nobody edits during pending deletion", func(t *testing.T) {
		for _, role := range identity.AllRoles {
			assert.False(t, CanPerform(role, ActionEditVoucher,
				State{Status: StatusUnpaid, PendingDeletion: true}))
		}
	})
}

func TestCanPerform_StatusActions(t *testing.T) {
	assert.True(t, CanPerform(identity.RoleCPO, ActionUpdateStatus, State{Status: StatusUnpaid}))
	assert.True(t, CanPerform(identity.RolePayableHead, ActionUpdateStatus, State{Status: StatusPaid}))
	assert.False(t, CanPerform(identity.RolePayableStaff, ActionUpdateStatus, State{Status: StatusPaid}))

	assert.True(t, CanPerform(identity.RoleCPO, ActionSetPaymentMonth, State{}))
	assert.False(t, CanPerform(identity.RolePayableHead, ActionSetPaymentMonth, State{}))
}

func TestCanPerform_DeletionWorkflow(t *testing.T) {
	t.Run("request", func(t *testing.T) {
		for _, role := range []identity.Role{identity.RolePayableStaff, identity.RolePayableHead, identity.RoleCPO} {
			assert.True(t, CanPerform(role, ActionRequestDelete, State{Status: StatusUnpaid}))
			assert.False(t, CanPerform(role, ActionRequestDelete,
				State{Status: StatusUnpaid, PendingDeletion: true}))
		}
	})

	t.Run("approval routes by released flag", func(t *testing.T) {
		unreleased := State{Status: StatusUnpaid, PendingDeletion: true}
		released := State{Status: StatusUnpaid, Released: true, PendingDeletion: true}

		assert.True(t, CanPerform(identity.RolePayableHead, ActionApproveDelete, unreleased))
		assert.False(t, CanPerform(identity.RoleCPO, ActionApproveDelete, unreleased))

		assert.True(t, CanPerform(identity.RoleCPO, ActionApproveDelete, released))
		assert.False(t, CanPerform(identity.RolePayableHead, ActionApproveDelete, released))

		assert.True(t, CanPerform(identity.RolePayableHead, ActionRejectDelete, unreleased))
		assert.True(t, CanPerform(identity.RoleCPO, ActionRejectDelete, released))
	})

	t.Run("cancel is open to the requesting roles", func(t *testing.T) {
		pending := State{Status: StatusUnpaid, PendingDeletion: true}
		assert.True(t, CanPerform(identity.RolePayableStaff, ActionCancelDeleteRequest, pending))
		assert.True(t, CanPerform(identity.RolePayableHead, ActionCancelDeleteRequest, pending))
		assert.True(t, CanPerform(identity.RoleCPO, ActionCancelDeleteRequest, pending))
		assert.False(t, CanPerform(identity.RoleAudit, ActionCancelDeleteRequest, pending))
	})
}

func TestCanPerform_ReleaseActions(t *testing.T) {
	t.Run("assignment is payable unit work on unreleased rows", func(t *testing.T) {
		assert.True(t, CanPerform(identity.RolePayableStaff, ActionAssignControlNumber, State{Status: StatusUnpaid}))
		assert.True(t, CanPerform(identity.RolePayableHead, ActionAssignControlNumber, State{Status: StatusUnpaid}))
		assert.False(t, CanPerform(identity.RolePayableStaff, ActionAssignControlNumber,
			State{Status: StatusUnpaid, Released: true}))
		assert.False(t, CanPerform(identity.RoleCPO, ActionAssignControlNumber, State{Status: StatusUnpaid}))
	})

	t.Run("cpo release path is cpo only", func(t *testing.T) {
		assert.True(t, CanPerform(identity.RoleCPO, ActionCPORelease, State{Released: true}))
		assert.False(t, CanPerform(identity.RolePayableHead, ActionCPORelease, State{Released: true}))
		assert.True(t, CanPerform(identity.RolePayableStaff, ActionReleaseVouchers, State{}))
	})
}
