package voucher

import (
	"context"
	"fmt"

	"github.com/fmca/voucher-backend/internal/domain/audit"
	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"go.uber.org/zap"
)

// DeletionService runs the delete-request approval workflow:
// request -> approve (permanent removal) | reject | cancel (requester undo).
type DeletionService struct {
	repo       voucher.Repository
	sink       audit.Sink
	log        *zap.Logger
	activeYear string
}

// NewDeletionService creates a new DeletionService
func NewDeletionService(repo voucher.Repository, sink audit.Sink, log *zap.Logger, activeYear string) *DeletionService {
	return &DeletionService{
		repo:       repo,
		sink:       sink,
		log:        log,
		activeYear: activeYear,
	}
}

// Request places a voucher into the pending-deletion overlay
func (s *DeletionService) Request(ctx context.Context, actor identity.Actor, rowIndex int64, reason string) (*voucher.Voucher, error) {
	v, err := s.mustGet(ctx, rowIndex)
	if err != nil {
		return nil, err
	}

	if !voucher.CanPerform(actor.Role, voucher.ActionRequestDelete, voucher.StateOf(v)) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot request deletion of voucher %d", actor.Role, rowIndex))
	}

	if err := v.RequestDeletion(reason, actor.Email); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "requestDelete",
		fmt.Sprintf("Deletion requested for voucher %s: %s", v.VoucherNumber, reason), v.RowIndex)

	return v, nil
}

// Approve permanently removes a pending-deletion voucher. The audit
// record carries a full snapshot because the data is destroyed.
func (s *DeletionService) Approve(ctx context.Context, actor identity.Actor, rowIndex int64) error {
	v, err := s.mustGet(ctx, rowIndex)
	if err != nil {
		return err
	}
	if !v.PendingDeletion {
		return shared.NewDomainError("INVALID_STATE", "Voucher has no pending deletion request")
	}

	if !voucher.CanPerform(actor.Role, voucher.ActionApproveDelete, voucher.StateOf(v)) {
		return shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot approve deletion of voucher %d", actor.Role, rowIndex))
	}

	snapshot := v.Snapshot()
	if err := s.repo.HardDelete(ctx, v.ID); err != nil {
		return err
	}

	s.audit(ctx, actor, "approveDelete",
		fmt.Sprintf("Voucher permanently deleted. Snapshot: %s. Reason: %s", snapshot, v.DeleteReason), rowIndex)

	return nil
}

// Reject declines a deletion request and restores the captured status
func (s *DeletionService) Reject(ctx context.Context, actor identity.Actor, rowIndex int64, reason string) (*voucher.Voucher, error) {
	v, err := s.mustGet(ctx, rowIndex)
	if err != nil {
		return nil, err
	}
	if !v.PendingDeletion {
		return nil, shared.NewDomainError("INVALID_STATE", "Voucher has no pending deletion request")
	}

	if !voucher.CanPerform(actor.Role, voucher.ActionRejectDelete, voucher.StateOf(v)) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot reject deletion of voucher %d", actor.Role, rowIndex))
	}

	if err := v.ResolveDeletion(reason); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Deletion rejected for voucher %s; status restored to %s", v.VoucherNumber, v.Status)
	if reason != "" {
		desc += ": " + reason
	}
	s.audit(ctx, actor, "rejectDelete", desc, v.RowIndex)

	return v, nil
}

// Cancel is the requester's own undo of a deletion request. Unlike
// Reject it needs no approver role, but only the original requester
// or an admin may invoke it.
func (s *DeletionService) Cancel(ctx context.Context, actor identity.Actor, rowIndex int64) (*voucher.Voucher, error) {
	v, err := s.mustGet(ctx, rowIndex)
	if err != nil {
		return nil, err
	}
	if !v.PendingDeletion {
		return nil, shared.NewDomainError("INVALID_STATE", "Voucher has no pending deletion request")
	}

	if !voucher.CanPerform(actor.Role, voucher.ActionCancelDeleteRequest, voucher.StateOf(v)) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot cancel a deletion request", actor.Role))
	}
	if !actor.Role.IsAdmin() && v.DeleteRequestedBy != actor.Email {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			"Only the original requester can cancel this deletion request")
	}

	if err := v.ResolveDeletion(""); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "cancelDeleteRequest",
		fmt.Sprintf("Deletion request cancelled for voucher %s; status restored to %s", v.VoucherNumber, v.Status), v.RowIndex)

	return v, nil
}

func (s *DeletionService) mustGet(ctx context.Context, rowIndex int64) (*voucher.Voucher, error) {
	v, err := s.repo.FindByRowIndex(ctx, s.activeYear, rowIndex)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Voucher %d not found in %s", rowIndex, s.activeYear))
	}
	return v, nil
}

func (s *DeletionService) audit(ctx context.Context, actor identity.Actor, action, description string, rowIndex int64) {
	rec := audit.NewRecord(actor.Email, actor.Role, action, description, s.activeYear, rowIndex)
	if err := s.sink.Append(ctx, rec); err != nil {
		s.log.Error("failed to append audit record",
			zap.String("action", action),
			zap.Int64("row_index", rowIndex),
			zap.Error(err))
	}
}
