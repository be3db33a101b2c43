package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/fmca/voucher-backend/internal/domain/audit"
	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Input carries caller-supplied voucher fields for create and update.
// Net is never accepted: the aggregate derives it.
type Input struct {
	Payee            string
	VoucherNumber    string
	Particular       string
	OldVoucherNumber string
	Category         string
	AccountType      string
	Date             time.Time
	AttachmentURL    string
	PaymentType      voucher.PaymentType
	ContractSum      decimal.Decimal
	GrossAmount      decimal.Decimal
	VAT              decimal.Decimal
	WHT              decimal.Decimal
	StampDuty        decimal.Decimal
}

// Service handles voucher intake and edits against the active year
// partition. Archive years are readable through Get/Search only.
type Service struct {
	repo       voucher.Repository
	categories voucher.CategoryCatalog
	sink       audit.Sink
	log        *zap.Logger
	activeYear string
}

// NewService creates a new voucher Service
func NewService(repo voucher.Repository, categories voucher.CategoryCatalog, sink audit.Sink, log *zap.Logger, activeYear string) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		sink:       sink,
		log:        log,
		activeYear: activeYear,
	}
}

// ActiveYear returns the writable partition key
func (s *Service) ActiveYear() string {
	return s.activeYear
}

// Create validates and stores a new voucher in the active year
func (s *Service) Create(ctx context.Context, actor identity.Actor, in Input) (*voucher.Voucher, error) {
	if !voucher.CanPerform(actor.Role, voucher.ActionCreateVoucher, voucher.State{}) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot create vouchers", actor.Role))
	}

	if err := s.checkCategory(ctx, in.Category); err != nil {
		return nil, err
	}

	v, err := voucher.New(s.activeYear, detailsFromInput(in))
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "createVoucher",
		fmt.Sprintf("Created voucher %s for %s (net %s)", v.VoucherNumber, v.Payee, v.Net.StringFixed(2)),
		v.RowIndex)

	return v, nil
}

// Update replaces the details of an existing active-year voucher
func (s *Service) Update(ctx context.Context, actor identity.Actor, rowIndex int64, in Input) (*voucher.Voucher, error) {
	v, err := s.mustGet(ctx, rowIndex)
	if err != nil {
		return nil, err
	}

	if !voucher.CanPerform(actor.Role, voucher.ActionEditVoucher, voucher.StateOf(v)) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION",
			fmt.Sprintf("Role %s cannot edit voucher %d in its current state", actor.Role, rowIndex))
	}

	if err := s.checkCategory(ctx, in.Category); err != nil {
		return nil, err
	}

	if err := v.UpdateDetails(detailsFromInput(in)); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "updateVoucher",
		fmt.Sprintf("Updated voucher %s (net %s)", v.VoucherNumber, v.Net.StringFixed(2)),
		v.RowIndex)

	return v, nil
}

// Get fetches a single voucher from any year partition
func (s *Service) Get(ctx context.Context, year string, rowIndex int64) (*voucher.Voucher, error) {
	if year == "" {
		year = s.activeYear
	}
	if !voucher.IsKnownYear(year) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown year %q", year))
	}
	v, err := s.repo.FindByRowIndex(ctx, year, rowIndex)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Voucher %d not found in %s", rowIndex, year))
	}
	return v, nil
}

// List returns a filtered page of vouchers from one year partition
func (s *Service) List(ctx context.Context, year string, filter voucher.Filter) (shared.Paginated[voucher.Voucher], error) {
	if year == "" {
		year = s.activeYear
	}
	if !voucher.IsKnownYear(year) {
		return shared.Paginated[voucher.Voucher]{}, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown year %q", year))
	}
	return s.repo.FindAll(ctx, year, filter)
}

// PendingDeletions lists active-year vouchers awaiting deletion approval
func (s *Service) PendingDeletions(ctx context.Context) ([]voucher.Voucher, error) {
	return s.repo.FindPendingDeletions(ctx, s.activeYear)
}

// YearMatches groups cross-year search hits by their source partition
type YearMatches struct {
	Year     string            `json:"year"`
	Vouchers []voucher.Voucher `json:"vouchers"`
}

// SearchAcrossYears runs a read-only search through every year partition
// in precedence order. Hits outside the active year are view-only.
func (s *Service) SearchAcrossYears(ctx context.Context, query string) ([]YearMatches, error) {
	results := make([]YearMatches, 0, len(voucher.YearPrecedence))
	for _, year := range voucher.YearPrecedence {
		page, err := s.repo.FindAll(ctx, year, voucher.Filter{Search: query, PageSize: 100, Page: 1})
		if err != nil {
			return nil, err
		}
		if len(page.Items) > 0 {
			results = append(results, YearMatches{Year: year, Vouchers: page.Items})
		}
	}
	return results, nil
}

func (s *Service) mustGet(ctx context.Context, rowIndex int64) (*voucher.Voucher, error) {
	v, err := s.repo.FindByRowIndex(ctx, s.activeYear, rowIndex)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Voucher %d not found in %s", rowIndex, s.activeYear))
	}
	return v, nil
}

func (s *Service) checkCategory(ctx context.Context, category string) error {
	if category == "" {
		return nil
	}
	ok, err := s.categories.Exists(ctx, category)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown category %q", category))
	}
	return nil
}

// audit emits a record to the sink. A sink failure is logged and does not
// change the outcome of the operation that produced the record.
func (s *Service) audit(ctx context.Context, actor identity.Actor, action, description string, rowIndex int64) {
	rec := audit.NewRecord(actor.Email, actor.Role, action, description, s.activeYear, rowIndex)
	if err := s.sink.Append(ctx, rec); err != nil {
		s.log.Error("failed to append audit record",
			zap.String("action", action),
			zap.Int64("row_index", rowIndex),
			zap.Error(err))
	}
}

func detailsFromInput(in Input) voucher.Details {
	return voucher.Details{
		Payee:            in.Payee,
		VoucherNumber:    in.VoucherNumber,
		Particular:       in.Particular,
		OldVoucherNumber: in.OldVoucherNumber,
		Category:         in.Category,
		AccountType:      in.AccountType,
		Date:             in.Date,
		AttachmentURL:    in.AttachmentURL,
		PaymentType:      in.PaymentType,
		ContractSum:      in.ContractSum,
		GrossAmount:      in.GrossAmount,
		VAT:              in.VAT,
		WHT:              in.WHT,
		StampDuty:        in.StampDuty,
	}
}
