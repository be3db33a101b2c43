package voucher

import (
	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VoucherCreatedEvent is raised when a new voucher enters the store
type VoucherCreatedEvent struct {
	shared.BaseDomainEvent
	Year          string          `json:"year"`
	RowIndex      int64           `json:"row_index"`
	VoucherNumber string          `json:"voucher_number"`
	Payee         string          `json:"payee"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	Net           decimal.Decimal `json:"net"`
}

// EventType returns the event type name
func (e *VoucherCreatedEvent) EventType() string {
	return "VoucherCreated"
}

// NewVoucherCreatedEvent creates a new VoucherCreatedEvent
func NewVoucherCreatedEvent(v *Voucher) *VoucherCreatedEvent {
	return &VoucherCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VoucherCreated", "Voucher", v.ID),
		Year:            v.Year,
		RowIndex:        v.RowIndex,
		VoucherNumber:   v.VoucherNumber,
		Payee:           v.Payee,
		GrossAmount:     v.GrossAmount,
		Net:             v.Net,
	}
}

// VoucherUpdatedEvent is raised when voucher details change
type VoucherUpdatedEvent struct {
	shared.BaseDomainEvent
	Year     string `json:"year"`
	RowIndex int64  `json:"row_index"`
}

// EventType returns the event type name
func (e *VoucherUpdatedEvent) EventType() string {
	return "VoucherUpdated"
}

// NewVoucherUpdatedEvent creates a new VoucherUpdatedEvent
func NewVoucherUpdatedEvent(v *Voucher) *VoucherUpdatedEvent {
	return &VoucherUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VoucherUpdated", "Voucher", v.ID),
		Year:            v.Year,
		RowIndex:        v.RowIndex,
	}
}

// StatusChangedEvent is raised on every Unpaid/Paid/Cancelled transition
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	Year       string     `json:"year"`
	RowIndex   int64      `json:"row_index"`
	FromStatus BaseStatus `json:"from_status"`
	ToStatus   BaseStatus `json:"to_status"`
	PmtMonth   string     `json:"pmt_month,omitempty"`
}

// EventType returns the event type name
func (e *StatusChangedEvent) EventType() string {
	return "VoucherStatusChanged"
}

// NewStatusChangedEvent creates a new StatusChangedEvent
func NewStatusChangedEvent(v *Voucher, from BaseStatus) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VoucherStatusChanged", "Voucher", v.ID),
		Year:            v.Year,
		RowIndex:        v.RowIndex,
		FromStatus:      from,
		ToStatus:        v.Status,
		PmtMonth:        v.PmtMonth,
	}
}

// DeletionRequestedEvent is raised when the pending-deletion overlay is set
type DeletionRequestedEvent struct {
	shared.BaseDomainEvent
	Year           string     `json:"year"`
	RowIndex       int64      `json:"row_index"`
	Reason         string     `json:"reason"`
	RequestedBy    string     `json:"requested_by"`
	PreviousStatus BaseStatus `json:"previous_status"`
}

// EventType returns the event type name
func (e *DeletionRequestedEvent) EventType() string {
	return "VoucherDeletionRequested"
}

// NewDeletionRequestedEvent creates a new DeletionRequestedEvent
func NewDeletionRequestedEvent(v *Voucher) *DeletionRequestedEvent {
	var previous BaseStatus
	if v.PreviousStatus != nil {
		previous = *v.PreviousStatus
	}
	return &DeletionRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VoucherDeletionRequested", "Voucher", v.ID),
		Year:            v.Year,
		RowIndex:        v.RowIndex,
		Reason:          v.DeleteReason,
		RequestedBy:     v.DeleteRequestedBy,
		PreviousStatus:  previous,
	}
}

// DeletionResolvedEvent is raised when a deletion request is rejected or cancelled
type DeletionResolvedEvent struct {
	shared.BaseDomainEvent
	Year           string     `json:"year"`
	RowIndex       int64      `json:"row_index"`
	RestoredStatus BaseStatus `json:"restored_status"`
	Reason         string     `json:"reason,omitempty"`
}

// EventType returns the event type name
func (e *DeletionResolvedEvent) EventType() string {
	return "VoucherDeletionResolved"
}

// NewDeletionResolvedEvent creates a new DeletionResolvedEvent
func NewDeletionResolvedEvent(v *Voucher, reason string) *DeletionResolvedEvent {
	return &DeletionResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VoucherDeletionResolved", "Voucher", v.ID),
		Year:            v.Year,
		RowIndex:        v.RowIndex,
		RestoredStatus:  v.Status,
		Reason:          reason,
	}
}

// VoucherReleasedEvent is raised when a control number is assigned
type VoucherReleasedEvent struct {
	shared.BaseDomainEvent
	Year          string `json:"year"`
	RowIndex      int64  `json:"row_index"`
	ControlNumber string `json:"control_number"`
	TargetUnit    string `json:"target_unit"`
}

// EventType returns the event type name
func (e *VoucherReleasedEvent) EventType() string {
	return "VoucherReleased"
}

// NewVoucherReleasedEvent creates a new VoucherReleasedEvent
func NewVoucherReleasedEvent(v *Voucher) *VoucherReleasedEvent {
	return &VoucherReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VoucherReleased", "Voucher", v.ID),
		Year:            v.Year,
		RowIndex:        v.RowIndex,
		ControlNumber:   v.ControlNumber,
		TargetUnit:      v.ReleasedTo,
	}
}

// VoucherForwardedEvent is raised when a CPO release forwards a released
// voucher to another unit under its existing control number
type VoucherForwardedEvent struct {
	shared.BaseDomainEvent
	Year          string `json:"year"`
	RowIndex      int64  `json:"row_index"`
	ControlNumber string `json:"control_number"`
	TargetUnit    string `json:"target_unit"`
	Purpose       string `json:"purpose"`
}

// EventType returns the event type name
func (e *VoucherForwardedEvent) EventType() string {
	return "VoucherForwarded"
}

// NewVoucherForwardedEvent creates a new VoucherForwardedEvent
func NewVoucherForwardedEvent(v *Voucher, purpose string) *VoucherForwardedEvent {
	return &VoucherForwardedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VoucherForwarded", "Voucher", v.ID),
		Year:            v.Year,
		RowIndex:        v.RowIndex,
		ControlNumber:   v.ControlNumber,
		TargetUnit:      v.ReleasedTo,
		Purpose:         purpose,
	}
}
