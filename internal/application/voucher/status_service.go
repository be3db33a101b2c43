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

// StatusService applies Unpaid/Paid/Cancelled transitions, singly or per
// control-number batch.
type StatusService struct {
	repo       voucher.Repository
	sink       audit.Sink
	log        *zap.Logger
	activeYear string
}

// NewStatusService creates a new StatusService
func NewStatusService(repo voucher.Repository, sink audit.Sink, log *zap.Logger, activeYear string) *StatusService {
	return &StatusService{
		repo:       repo,
		sink:       sink,
		log:        log,
		activeYear: activeYear,
	}
}

// UpdateStatus validates and applies a status transition to one voucher.
// Supplying pmtMonth is itself a gated action: only roles that may set the
// payment month can pass one, and a transition to Paid fails when neither
// the caller nor the record can provide a month.
func (s *StatusService) UpdateStatus(ctx context.Context, actor identity.Actor, rowIndex int64, newStatus voucher.BaseStatus, pmtMonth string) (*voucher.Voucher, error) {
	v, err := s.repo.FindByRowIndex(ctx, s.activeYear, rowIndex)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Voucher %d not found in %s", rowIndex, s.activeYear))
	}

	if err := s.applyTransition(ctx, actor, v, newStatus, pmtMonth); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "updateStatus",
		fmt.Sprintf("Voucher %s status -> %s", v.VoucherNumber, v.DisplayStatus()), v.RowIndex)

	return v, nil
}

// BatchFailure reports one row that could not be transitioned
type BatchFailure struct {
	RowIndex int64  `json:"rowIndex"`
	Error    string `json:"error"`
}

// BatchResult reports the per-row outcome of a batch transition. The
// store has no multi-row transaction, so rows already committed stay
// committed when a later row fails.
type BatchResult struct {
	UpdatedCount int            `json:"updatedCount"`
	Failures     []BatchFailure `json:"failures"`
}

// BatchUpdateStatus applies the same transition to every voucher sharing
// a control number, best-effort per row.
func (s *StatusService) BatchUpdateStatus(ctx context.Context, actor identity.Actor, controlNumber string, newStatus voucher.BaseStatus, pmtMonth string) (*BatchResult, error) {
	if controlNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Control number is required")
	}

	vouchers, err := s.repo.FindByControlNumber(ctx, s.activeYear, controlNumber)
	if err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("No vouchers found for control number %s", controlNumber))
	}

	result := &BatchResult{Failures: make([]BatchFailure, 0)}
	for i := range vouchers {
		v := &vouchers[i]
		if err := s.applyTransition(ctx, actor, v, newStatus, pmtMonth); err != nil {
			result.Failures = append(result.Failures, BatchFailure{RowIndex: v.RowIndex, Error: err.Error()})
			continue
		}
		if err := s.repo.Save(ctx, v); err != nil {
			result.Failures = append(result.Failures, BatchFailure{RowIndex: v.RowIndex, Error: err.Error()})
			continue
		}
		result.UpdatedCount++
		s.audit(ctx, actor, "updateStatus",
			fmt.Sprintf("Voucher %s status -> %s (batch %s)", v.VoucherNumber, v.DisplayStatus(), controlNumber), v.RowIndex)
	}

	s.audit(ctx, actor, "batchUpdateStatus",
		fmt.Sprintf("Batch %s -> %s: %d updated, %d failed", controlNumber, newStatus, result.UpdatedCount, len(result.Failures)), 0)

	return result, nil
}

func (s *StatusService) applyTransition(ctx context.Context, actor identity.Actor, v *voucher.Voucher, newStatus voucher.BaseStatus, pmtMonth string) error {
	if !voucher.CanPerform(actor.Role, voucher.ActionUpdateStatus, voucher.StateOf(v)) {
		return shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot update voucher status", actor.Role))
	}
	if pmtMonth != "" && !voucher.CanPerform(actor.Role, voucher.ActionSetPaymentMonth, voucher.StateOf(v)) {
		return shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot set the payment month", actor.Role))
	}
	// Reversing a payment is a correction reserved for the CPO.
	if v.Status == voucher.StatusPaid && newStatus == voucher.StatusUnpaid &&
		actor.Role != identity.RoleCPO && actor.Role != identity.RoleAdmin {
		return shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot revert a paid voucher to unpaid", actor.Role))
	}
	return v.ChangeStatus(newStatus, pmtMonth)
}

func (s *StatusService) audit(ctx context.Context, actor identity.Actor, action, description string, rowIndex int64) {
	rec := audit.NewRecord(actor.Email, actor.Role, action, description, s.activeYear, rowIndex)
	if err := s.sink.Append(ctx, rec); err != nil {
		s.log.Error("failed to append audit record",
			zap.String("action", action),
			zap.Int64("row_index", rowIndex),
			zap.Error(err))
	}
}
