package handler

import (
	"time"

	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

// VoucherView is the wire shape of a voucher. Status carries the
// display value, with "Pending Deletion" overlaying the base status.
type VoucherView struct {
	Year             string          `json:"year"`
	RowIndex         int64           `json:"rowIndex"`
	Payee            string          `json:"payee"`
	VoucherNumber    string          `json:"voucherNumber"`
	Particular       string          `json:"particular"`
	OldVoucherNumber string          `json:"oldVoucherNumber,omitempty"`
	Category         string          `json:"category,omitempty"`
	AccountType      string          `json:"accountType,omitempty"`
	Date             time.Time       `json:"date"`
	AttachmentURL    string          `json:"attachmentUrl,omitempty"`
	PaymentType      string          `json:"paymentType"`
	ContractSum      decimal.Decimal `json:"contractSum"`
	GrossAmount      decimal.Decimal `json:"grossAmount"`
	VAT              decimal.Decimal `json:"vat"`
	WHT              decimal.Decimal `json:"wht"`
	StampDuty        decimal.Decimal `json:"stampDuty"`
	Net              decimal.Decimal `json:"net"`
	Status           string          `json:"status"`
	PmtMonth         string          `json:"pmtMonth,omitempty"`
	ControlNumber    string          `json:"controlNumber,omitempty"`
	ReleasedTo       string          `json:"releasedTo,omitempty"`
	ReleasedAt       *time.Time      `json:"releasedAt,omitempty"`
	DeleteReason     string          `json:"deleteReason,omitempty"`
	Version          int             `json:"version"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func newVoucherView(v *voucher.Voucher) VoucherView {
	return VoucherView{
		Year:             v.Year,
		RowIndex:         v.RowIndex,
		Payee:            v.Payee,
		VoucherNumber:    v.VoucherNumber,
		Particular:       v.Particular,
		OldVoucherNumber: v.OldVoucherNumber,
		Category:         v.Category,
		AccountType:      v.AccountType,
		Date:             v.Date,
		AttachmentURL:    v.AttachmentURL,
		PaymentType:      string(v.PaymentType),
		ContractSum:      v.ContractSum,
		GrossAmount:      v.GrossAmount,
		VAT:              v.VAT,
		WHT:              v.WHT,
		StampDuty:        v.StampDuty,
		Net:              v.Net,
		Status:           v.DisplayStatus(),
		PmtMonth:         v.PmtMonth,
		ControlNumber:    v.ControlNumber,
		ReleasedTo:       v.ReleasedTo,
		ReleasedAt:       v.ReleasedAt,
		DeleteReason:     v.DeleteReason,
		Version:          v.Version,
		UpdatedAt:        v.UpdatedAt,
	}
}

func newVoucherViews(vouchers []voucher.Voucher) []VoucherView {
	views := make([]VoucherView, len(vouchers))
	for i := range vouchers {
		views[i] = newVoucherView(&vouchers[i])
	}
	return views
}
