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

// ReleaseService covers the two release paths: payable-unit release of
// fresh vouchers under a new control number, and CPO forwarding of an
// already-released batch under its existing number.
type ReleaseService struct {
	repo       voucher.Repository
	allocator  *ControlNumberAllocator
	sink       audit.Sink
	log        *zap.Logger
	activeYear string
}

// NewReleaseService creates a new ReleaseService
func NewReleaseService(repo voucher.Repository, allocator *ControlNumberAllocator, sink audit.Sink, log *zap.Logger, activeYear string) *ReleaseService {
	return &ReleaseService{
		repo:       repo,
		allocator:  allocator,
		sink:       sink,
		log:        log,
		activeYear: activeYear,
	}
}

// NextControlNumber previews the control number the next release to
// targetUnit would be issued.
func (s *ReleaseService) NextControlNumber(ctx context.Context, actor identity.Actor, targetUnit string) (string, error) {
	if !voucher.CanPerform(actor.Role, voucher.ActionReleaseVouchers, voucher.State{}) {
		return "", shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot release vouchers", actor.Role))
	}
	return s.allocator.Peek(ctx, targetUnit)
}

// AssignControlNumber stamps a manually chosen control number onto the
// selected rows. Rows already released are rejected individually; the
// rest proceed.
func (s *ReleaseService) AssignControlNumber(ctx context.Context, actor identity.Actor, rowIndexes []int64, controlNumber, targetUnit string) (*ReleaseResult, error) {
	if len(rowIndexes) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "At least one voucher must be selected")
	}

	if err := s.allocator.Validate(ctx, targetUnit, controlNumber); err != nil {
		return nil, err
	}

	vouchers, err := s.repo.FindByRowIndexes(ctx, s.activeYear, rowIndexes)
	if err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return nil, shared.NewDomainError("NOT_FOUND", "None of the selected vouchers were found")
	}

	result := &ReleaseResult{ControlNumber: controlNumber}
	for i := range vouchers {
		v := &vouchers[i]
		if !voucher.CanPerform(actor.Role, voucher.ActionAssignControlNumber, voucher.StateOf(v)) {
			result.fail(v.RowIndex, fmt.Sprintf("Role %s cannot assign a control number here", actor.Role))
			continue
		}
		if err := v.AssignControlNumber(controlNumber, targetUnit); err != nil {
			result.fail(v.RowIndex, err.Error())
			continue
		}
		if err := s.repo.Save(ctx, v); err != nil {
			result.fail(v.RowIndex, err.Error())
			continue
		}
		result.ReleasedCount++
		s.audit(ctx, actor, "assignControlNumber",
			fmt.Sprintf("Control number %s assigned to voucher %s for %s", controlNumber, v.VoucherNumber, targetUnit), v.RowIndex)
	}

	if result.ReleasedCount > 0 {
		if err := s.allocator.Reserve(ctx, targetUnit, controlNumber); err != nil {
			s.log.Warn("failed to record issued control number",
				zap.String("control_number", controlNumber), zap.Error(err))
		}
		s.audit(ctx, actor, "assignControlNumber",
			fmt.Sprintf("Assigned %s to %d voucher(s) for %s (%d failed)",
				controlNumber, result.ReleasedCount, targetUnit, len(result.Failures)), 0)
	}

	return result, nil
}

// ReleaseVouchers is the payable-unit path: stamp a control number on
// every selected unreleased voucher. The caller may supply the number
// (typed or previewed via NextControlNumber); an empty controlNumber
// allocates the next one. Already-released rows are reported as
// failures, untouched.
func (s *ReleaseService) ReleaseVouchers(ctx context.Context, actor identity.Actor, rowIndexes []int64, targetUnit, controlNumber string) (*ReleaseResult, error) {
	if !voucher.CanPerform(actor.Role, voucher.ActionReleaseVouchers, voucher.State{}) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot release vouchers", actor.Role))
	}
	if len(rowIndexes) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "At least one voucher must be selected")
	}

	vouchers, err := s.repo.FindByRowIndexes(ctx, s.activeYear, rowIndexes)
	if err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return nil, shared.NewDomainError("NOT_FOUND", "None of the selected vouchers were found")
	}

	supplied := controlNumber != ""
	if supplied {
		if err := s.allocator.Validate(ctx, targetUnit, controlNumber); err != nil {
			return nil, err
		}
	} else {
		controlNumber, err = s.allocator.Next(ctx, targetUnit)
		if err != nil {
			return nil, err
		}
	}

	result := &ReleaseResult{ControlNumber: controlNumber}
	for i := range vouchers {
		v := &vouchers[i]
		if !voucher.CanPerform(actor.Role, voucher.ActionReleaseVouchers, voucher.StateOf(v)) {
			result.fail(v.RowIndex, fmt.Sprintf("Role %s cannot release this voucher", actor.Role))
			continue
		}
		if err := v.AssignControlNumber(controlNumber, targetUnit); err != nil {
			result.fail(v.RowIndex, err.Error())
			continue
		}
		if err := s.repo.Save(ctx, v); err != nil {
			result.fail(v.RowIndex, err.Error())
			continue
		}
		result.ReleasedCount++
		s.audit(ctx, actor, "releaseVouchers",
			fmt.Sprintf("Voucher %s released to %s under %s", v.VoucherNumber, targetUnit, controlNumber), v.RowIndex)
	}

	if supplied && result.ReleasedCount > 0 {
		if err := s.allocator.Reserve(ctx, targetUnit, controlNumber); err != nil {
			s.log.Warn("failed to record issued control number",
				zap.String("control_number", controlNumber), zap.Error(err))
		}
	}

	s.audit(ctx, actor, "releaseVouchers",
		fmt.Sprintf("Released %d voucher(s) to %s under %s (%d failed)",
			result.ReleasedCount, targetUnit, controlNumber, len(result.Failures)), 0)

	return result, nil
}

// CPORelease forwards an already-released batch onward under its
// existing control number. The batch must be homogeneous: every
// selected voucher released, all under the same control number. The
// check runs before any write, so a mixed batch changes nothing.
func (s *ReleaseService) CPORelease(ctx context.Context, actor identity.Actor, rowIndexes []int64, targetUnit, purpose string) (*ReleaseResult, error) {
	if !voucher.CanPerform(actor.Role, voucher.ActionCPORelease, voucher.State{Released: true}) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot perform a CPO release", actor.Role))
	}
	if len(rowIndexes) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "At least one voucher must be selected")
	}
	if purpose == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Purpose is required for a CPO release")
	}

	vouchers, err := s.repo.FindByRowIndexes(ctx, s.activeYear, rowIndexes)
	if err != nil {
		return nil, err
	}
	if len(vouchers) != len(rowIndexes) {
		return nil, shared.NewDomainError("NOT_FOUND", "One or more selected vouchers were not found")
	}

	var controlNumber string
	for i := range vouchers {
		v := &vouchers[i]
		if !v.IsReleased() {
			return nil, shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Voucher %d has no control number; only released vouchers qualify", v.RowIndex))
		}
		if controlNumber == "" {
			controlNumber = v.ControlNumber
		} else if v.ControlNumber != controlNumber {
			return nil, shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Selected vouchers carry mixed control numbers (%s vs %s)", controlNumber, v.ControlNumber))
		}
	}

	result := &ReleaseResult{ControlNumber: controlNumber}
	for i := range vouchers {
		v := &vouchers[i]
		if err := v.Forward(targetUnit, purpose); err != nil {
			result.fail(v.RowIndex, err.Error())
			continue
		}
		if err := s.repo.Save(ctx, v); err != nil {
			result.fail(v.RowIndex, err.Error())
			continue
		}
		result.ReleasedCount++
		s.audit(ctx, actor, "cpoRelease",
			fmt.Sprintf("Voucher %s forwarded to %s under %s: %s", v.VoucherNumber, targetUnit, controlNumber, purpose), v.RowIndex)
	}

	s.audit(ctx, actor, "cpoRelease",
		fmt.Sprintf("Forwarded %d voucher(s) to %s under %s (%d failed)",
			result.ReleasedCount, targetUnit, controlNumber, len(result.Failures)), 0)

	return result, nil
}

// ReleaseResult reports the outcome of a batch release
type ReleaseResult struct {
	ControlNumber string         `json:"controlNumber"`
	ReleasedCount int            `json:"releasedCount"`
	Failures      []BatchFailure `json:"failures,omitempty"`
}

func (r *ReleaseResult) fail(rowIndex int64, reason string) {
	r.Failures = append(r.Failures, BatchFailure{RowIndex: rowIndex, Error: reason})
}

func (s *ReleaseService) audit(ctx context.Context, actor identity.Actor, action, description string, rowIndex int64) {
	rec := audit.NewRecord(actor.Email, actor.Role, action, description, s.activeYear, rowIndex)
	if err := s.sink.Append(ctx, rec); err != nil {
		s.log.Error("failed to append audit record",
			zap.String("action", action),
			zap.Int64("row_index", rowIndex),
			zap.Error(err))
	}
}
