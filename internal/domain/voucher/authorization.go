package voucher

import "github.com/fmca/voucher-backend/internal/domain/identity"

// Action enumerates every gated operation of the voucher lifecycle
type Action string

const (
	ActionCreateVoucher       Action = "createVoucher"
	ActionEditVoucher         Action = "editVoucher"
	ActionUpdateStatus        Action = "updateStatus"
	ActionSetPaymentMonth     Action = "setPaymentMonth"
	ActionRequestDelete       Action = "requestDelete"
	ActionApproveDelete       Action = "approveDelete"
	ActionRejectDelete        Action = "rejectDelete"
	ActionCancelDeleteRequest Action = "cancelDeleteRequest"
	ActionAssignControlNumber Action = "assignControlNumber"
	ActionReleaseVouchers     Action = "releaseVouchers"
	ActionCPORelease          Action = "cpoRelease"
)

// AllActions lists every gated action, used by the deny-by-default tests
var AllActions = []Action{
	ActionCreateVoucher,
	ActionEditVoucher,
	ActionUpdateStatus,
	ActionSetPaymentMonth,
	ActionRequestDelete,
	ActionApproveDelete,
	ActionRejectDelete,
	ActionCancelDeleteRequest,
	ActionAssignControlNumber,
	ActionReleaseVouchers,
	ActionCPORelease,
}

// State is the authorization-relevant slice of a voucher's condition.
// Actions against no particular voucher (createVoucher) use the zero value.
type State struct {
	Status          BaseStatus
	Released        bool
	PendingDeletion bool
}

// StateOf captures the authorization state of an existing voucher
func StateOf(v *Voucher) State {
	return State{
		Status:          v.Status,
		Released:        v.IsReleased(),
		PendingDeletion: v.PendingDeletion,
	}
}

// CanPerform is the authorization matrix: (role, action, state) -> allow.
// Pure and deny-by-default; every rule not listed here is a denial.
// ADMIN is the superuser, with one carve-out: nobody edits a voucher that
// is pending deletion, because the overlay must be resolved first.
func CanPerform(role identity.Role, action Action, state State) bool {
	if role == identity.RoleAdmin {
		if action == ActionEditVoucher && state.PendingDeletion {
			return false
		}
		return true
	}

	switch action {
	case ActionCreateVoucher:
		return role == identity.RolePayableStaff || role == identity.RolePayableHead

	case ActionEditVoucher:
		if state.PendingDeletion {
			return false
		}
		switch role {
		case identity.RolePayableHead, identity.RoleCPO:
			return true
		case identity.RolePayableStaff:
			return state.Status == StatusUnpaid
		}
		return false

	case ActionUpdateStatus:
		return role == identity.RoleCPO || role == identity.RolePayableHead

	case ActionSetPaymentMonth:
		return role == identity.RoleCPO

	case ActionRequestDelete:
		if state.PendingDeletion {
			return false
		}
		switch role {
		case identity.RolePayableStaff, identity.RolePayableHead, identity.RoleCPO:
			return true
		}
		return false

	case ActionApproveDelete, ActionRejectDelete:
		if state.Released {
			return role == identity.RoleCPO
		}
		return role == identity.RolePayableHead

	case ActionCancelDeleteRequest:
		// Self-service undo; the workflow additionally verifies the
		// actor is the original requester.
		switch role {
		case identity.RolePayableStaff, identity.RolePayableHead, identity.RoleCPO:
			return true
		}
		return false

	case ActionAssignControlNumber:
		if state.Released {
			return false
		}
		return role == identity.RolePayableStaff || role == identity.RolePayableHead

	case ActionReleaseVouchers:
		return role == identity.RolePayableStaff || role == identity.RolePayableHead

	case ActionCPORelease:
		return role == identity.RoleCPO
	}

	return false
}
