package voucher

import (
	"context"
	"fmt"

	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"go.uber.org/zap"
)

// LookupResult is the outcome of a revalidation lookup. At most one of
// the boolean outcomes applies; Message carries the operator-facing
// explanation.
type LookupResult struct {
	Found                 bool             `json:"found"`
	CanRevalidate         bool             `json:"canRevalidate"`
	AlreadyRevalidated    bool             `json:"alreadyRevalidated"`
	RequiresAuthorization bool             `json:"requiresAuthorization"`
	SourceYear            string           `json:"sourceYear,omitempty"`
	Message               string           `json:"message"`
	Reason                string           `json:"reason,omitempty"`
	Warning               string           `json:"warning,omitempty"`
	ExistingVoucherNumber string           `json:"existingVoucherNumber,omitempty"`
	Voucher               *voucher.Voucher `json:"-"`
}

// RevalidationService locates a stale voucher in the year archives and
// decides whether it may be re-entered into the active year.
type RevalidationService struct {
	repo       voucher.Repository
	log        *zap.Logger
	activeYear string
}

// NewRevalidationService creates a new RevalidationService
func NewRevalidationService(repo voucher.Repository, log *zap.Logger, activeYear string) *RevalidationService {
	return &RevalidationService{repo: repo, log: log, activeYear: activeYear}
}

// Lookup searches the year partitions in precedence order for a voucher
// number. A paid voucher never revalidates; a hit deeper than the
// immediately preceding year needs DDFA/DFA authorization.
func (s *RevalidationService) Lookup(ctx context.Context, voucherNumber string) (*LookupResult, error) {
	if voucherNumber == "" {
		return &LookupResult{Message: "Voucher number is required"}, nil
	}

	// A voucher already revalidated into the active year keeps its old
	// number in OldVoucherNumber; surface that before searching archives.
	existing, err := s.repo.FindByOldVoucherNumber(ctx, s.activeYear, voucherNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &LookupResult{
			Found:                 true,
			AlreadyRevalidated:    true,
			SourceYear:            s.activeYear,
			ExistingVoucherNumber: existing.VoucherNumber,
			Message:               fmt.Sprintf("Voucher %s was already revalidated as %s", voucherNumber, existing.VoucherNumber),
			Voucher:               existing,
		}, nil
	}

	for _, year := range voucher.YearPrecedence {
		if year == s.activeYear {
			continue
		}
		v, err := s.repo.FindByVoucherNumber(ctx, year, voucherNumber)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		return s.classify(v, year), nil
	}

	return &LookupResult{
		Message: fmt.Sprintf("Voucher %s was not found in any year", voucherNumber),
	}, nil
}

func (s *RevalidationService) classify(v *voucher.Voucher, sourceYear string) *LookupResult {
	result := &LookupResult{
		Found:      true,
		SourceYear: sourceYear,
		Voucher:    v,
	}

	if v.Status == voucher.StatusPaid {
		result.Reason = "Voucher is already paid"
		result.Message = fmt.Sprintf("Voucher %s (%s) is Paid and cannot be revalidated", v.VoucherNumber, sourceYear)
		return result
	}
	if v.PendingDeletion {
		result.Reason = "Voucher has a pending deletion request"
		result.Message = fmt.Sprintf("Voucher %s (%s) is pending deletion and cannot be revalidated", v.VoucherNumber, sourceYear)
		return result
	}

	result.CanRevalidate = true
	result.Message = fmt.Sprintf("Voucher %s found in %s and is eligible for revalidation", v.VoucherNumber, sourceYear)

	if sourceYear != s.precedingYear() {
		result.RequiresAuthorization = true
		result.Warning = fmt.Sprintf("Voucher is older than %s; DDFA/DFA authorization is required", s.precedingYear())
	}
	if v.Status == voucher.StatusCancelled {
		cancelled := "Voucher was cancelled; confirm with the issuing unit before revalidating"
		if result.Warning != "" {
			result.Warning += ". " + cancelled
		} else {
			result.Warning = cancelled
		}
	}

	return result
}

// precedingYear returns the partition immediately before the active year
// in precedence order.
func (s *RevalidationService) precedingYear() string {
	for i, y := range voucher.YearPrecedence {
		if y == s.activeYear && i+1 < len(voucher.YearPrecedence) {
			return voucher.YearPrecedence[i+1]
		}
	}
	return ""
}
