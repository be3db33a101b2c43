package voucher

import (
	"fmt"
	"strings"
	"time"

	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Details carries the caller-supplied descriptive and financial fields of
// a voucher. Net is intentionally absent: it is always derived here and
// never trusted from the caller.
type Details struct {
	Payee            string
	VoucherNumber    string // the account-or-mail voucher number
	Particular       string
	OldVoucherNumber string
	Category         string
	AccountType      string
	Date             time.Time
	AttachmentURL    string
	PaymentType      PaymentType
	ContractSum      decimal.Decimal
	GrossAmount      decimal.Decimal
	VAT              decimal.Decimal
	WHT              decimal.Decimal
	StampDuty        decimal.Decimal
}

// Voucher is the aggregate root of the payable voucher lifecycle.
// Identity is the (Year, RowIndex) pair; RowIndex is assigned by the
// repository at insert and is stable for the life of the record.
type Voucher struct {
	shared.BaseAggregateRoot
	Year     string `gorm:"type:varchar(10);not null;uniqueIndex:idx_vouchers_year_row,priority:1"`
	RowIndex int64  `gorm:"not null;uniqueIndex:idx_vouchers_year_row,priority:2"`

	Payee            string          `gorm:"type:varchar(200);not null"`
	VoucherNumber    string          `gorm:"type:varchar(100);not null;index"`
	Particular       string          `gorm:"type:text"`
	OldVoucherNumber string          `gorm:"type:varchar(100);index"`
	Category         string          `gorm:"type:varchar(100);index"`
	AccountType      string          `gorm:"type:varchar(100)"`
	Date             time.Time       `gorm:"not null"`
	AttachmentURL    string          `gorm:"type:text"`
	PaymentType      PaymentType     `gorm:"type:varchar(20);not null;default:'lumpsum'"`
	ContractSum      decimal.Decimal `gorm:"type:decimal(18,2)"`
	GrossAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	VAT              decimal.Decimal `gorm:"type:decimal(18,2)"`
	WHT              decimal.Decimal `gorm:"type:decimal(18,2)"`
	StampDuty        decimal.Decimal `gorm:"type:decimal(18,2)"`
	Net              decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	Status          BaseStatus  `gorm:"type:varchar(20);not null;default:'Unpaid';index"`
	PmtMonth        string      `gorm:"type:varchar(20)"`
	ControlNumber   string      `gorm:"type:varchar(60);index"`
	ReleasedTo      string      `gorm:"type:varchar(100)"`
	ReleasedAt      *time.Time
	PendingDeletion   bool        `gorm:"not null;default:false;index"`
	PreviousStatus    *BaseStatus `gorm:"type:varchar(20)"`
	DeleteReason      string      `gorm:"type:text"`
	DeleteRequestedBy string      `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (Voucher) TableName() string {
	return "vouchers"
}

// New creates a voucher in the given year partition with Unpaid status.
// RowIndex is zero until the repository assigns it.
func New(year string, d Details) (*Voucher, error) {
	if !IsKnownYear(year) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown year partition %q", year))
	}
	if err := validateDetails(d); err != nil {
		return nil, err
	}

	v := &Voucher{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Year:              year,
		Status:            StatusUnpaid,
	}
	v.applyDetails(d)

	v.AddDomainEvent(NewVoucherCreatedEvent(v))

	return v, nil
}

// UpdateDetails replaces the descriptive and financial fields, recomputing
// Net. The deletion overlay blocks edits until resolved.
func (v *Voucher) UpdateDetails(d Details) error {
	if v.PendingDeletion {
		return shared.NewDomainError("INVALID_STATE", "Voucher is pending deletion and cannot be edited")
	}
	if err := validateDetails(d); err != nil {
		return err
	}

	v.applyDetails(d)
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	v.AddDomainEvent(NewVoucherUpdatedEvent(v))

	return nil
}

// ChangeStatus applies an Unpaid/Paid/Cancelled transition. A non-empty
// pmtMonth is recorded alongside; the caller is responsible for the
// role gate on who may supply it.
func (v *Voucher) ChangeStatus(newStatus BaseStatus, pmtMonth string) error {
	if v.PendingDeletion {
		return shared.NewDomainError("INVALID_STATE", "Resolve the pending deletion request before changing status")
	}
	if !newStatus.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid status %q", newStatus))
	}
	if pmtMonth != "" && !IsValidMonth(pmtMonth) {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid payment month %q", pmtMonth))
	}
	if newStatus == StatusPaid && pmtMonth == "" && v.PmtMonth == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Payment month is required when marking a voucher Paid")
	}

	previous := v.Status
	v.Status = newStatus
	if pmtMonth != "" {
		v.PmtMonth = pmtMonth
	}
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	v.AddDomainEvent(NewStatusChangedEvent(v, previous))

	return nil
}

// RequestDeletion enters the pending-deletion overlay, capturing the
// current status for a later restore.
func (v *Voucher) RequestDeletion(reason, requestedBy string) error {
	if v.PendingDeletion {
		return shared.NewDomainError("INVALID_STATE", "Voucher already has a pending deletion request")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "A reason is required to request deletion")
	}

	previous := v.Status
	v.PendingDeletion = true
	v.PreviousStatus = &previous
	v.DeleteReason = strings.TrimSpace(reason)
	v.DeleteRequestedBy = requestedBy
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	v.AddDomainEvent(NewDeletionRequestedEvent(v))

	return nil
}

// ResolveDeletion clears the overlay and restores the captured status.
// Used by both reject (approver) and cancel (requester). Fails closed when
// the captured status is missing: restoring a guessed status would corrupt
// the lifecycle record.
func (v *Voucher) ResolveDeletion(reason string) error {
	if !v.PendingDeletion {
		return shared.NewDomainError("INVALID_STATE", "Voucher has no pending deletion request")
	}
	if v.PreviousStatus == nil || !v.PreviousStatus.IsValid() {
		return shared.NewDomainError("INVALID_STATE", "Previous status is missing; cannot restore voucher")
	}

	v.Status = *v.PreviousStatus
	v.PendingDeletion = false
	v.PreviousStatus = nil
	v.DeleteReason = ""
	v.DeleteRequestedBy = ""
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	v.AddDomainEvent(NewDeletionResolvedEvent(v, reason))

	return nil
}

// AssignControlNumber releases the voucher to a target unit. Release is
// monotonic: re-assigning over an existing control number is refused.
func (v *Voucher) AssignControlNumber(controlNumber, targetUnit string) error {
	if v.IsReleased() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Voucher already released under control number %s", v.ControlNumber))
	}
	if strings.TrimSpace(controlNumber) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Control number cannot be empty")
	}
	if strings.TrimSpace(targetUnit) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Target unit cannot be empty")
	}

	now := time.Now()
	v.ControlNumber = strings.TrimSpace(controlNumber)
	v.ReleasedTo = strings.TrimSpace(targetUnit)
	v.ReleasedAt = &now
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVoucherReleasedEvent(v))

	return nil
}

// Forward moves an already-released voucher onward to another unit under
// its existing control number. The CPO release path; the control number
// itself never changes here.
func (v *Voucher) Forward(targetUnit, purpose string) error {
	if !v.IsReleased() {
		return shared.NewDomainError("INVALID_STATE", "Only released vouchers can be forwarded")
	}
	if strings.TrimSpace(targetUnit) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Target unit cannot be empty")
	}
	if strings.TrimSpace(purpose) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Purpose is required for a CPO release")
	}

	now := time.Now()
	v.ReleasedTo = strings.TrimSpace(targetUnit)
	v.ReleasedAt = &now
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVoucherForwardedEvent(v, purpose))

	return nil
}

// IsReleased reports whether a control number has been assigned
func (v *Voucher) IsReleased() bool {
	return strings.TrimSpace(v.ControlNumber) != ""
}

// DisplayStatus renders the externally visible status string, overlaying
// "Pending Deletion" on top of the base lifecycle status.
func (v *Voucher) DisplayStatus() string {
	if v.PendingDeletion {
		return StatusPendingDeletion
	}
	return string(v.Status)
}

// Snapshot renders a one-line description of the voucher for audit
// records emitted before destructive operations.
func (v *Voucher) Snapshot() string {
	return fmt.Sprintf("row=%d year=%s voucherNo=%s payee=%s gross=%s net=%s status=%s cn=%s",
		v.RowIndex, v.Year, v.VoucherNumber, v.Payee,
		v.GrossAmount.StringFixed(2), v.Net.StringFixed(2), v.DisplayStatus(), v.ControlNumber)
}

func (v *Voucher) applyDetails(d Details) {
	v.Payee = strings.TrimSpace(d.Payee)
	v.VoucherNumber = strings.TrimSpace(d.VoucherNumber)
	v.Particular = strings.TrimSpace(d.Particular)
	v.OldVoucherNumber = strings.TrimSpace(d.OldVoucherNumber)
	v.Category = d.Category
	v.AccountType = d.AccountType
	v.Date = d.Date
	v.AttachmentURL = d.AttachmentURL
	v.PaymentType = d.PaymentType
	if v.PaymentType == "" {
		v.PaymentType = PaymentLumpsum
	}
	v.ContractSum = d.ContractSum
	v.GrossAmount = d.GrossAmount
	v.VAT = d.VAT
	v.WHT = d.WHT
	v.StampDuty = d.StampDuty
	v.Net = computeNet(d)
}

// computeNet derives the net payable: gross less VAT, WHT and stamp duty.
// Recomputed on every create and update so a tampered caller-side net can
// never be persisted.
func computeNet(d Details) decimal.Decimal {
	return d.GrossAmount.Sub(d.VAT.Add(d.WHT).Add(d.StampDuty))
}

func validateDetails(d Details) error {
	if strings.TrimSpace(d.Payee) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Payee name is required")
	}
	if strings.TrimSpace(d.VoucherNumber) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Voucher number is required")
	}
	if d.GrossAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Gross amount must be positive")
	}
	if d.VAT.IsNegative() || d.WHT.IsNegative() || d.StampDuty.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Deductions cannot be negative")
	}
	if d.Date.IsZero() {
		return shared.NewDomainError("VALIDATION_ERROR", "Voucher date is required")
	}
	if d.PaymentType != "" && !d.PaymentType.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid payment type %q", d.PaymentType))
	}
	if d.PaymentType == PaymentFirstPart && d.ContractSum.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Contract sum is required for a first part-payment")
	}
	if !d.PaymentType.MatchesParticular(d.Particular) {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Particular must start with the %s prefix", d.PaymentType))
	}
	return nil
}
