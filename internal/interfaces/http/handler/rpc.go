package handler

import (
	"encoding/json"
	"time"

	auditapp "github.com/fmca/voucher-backend/internal/application/audit"
	voucherapp "github.com/fmca/voucher-backend/internal/application/voucher"
	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/fmca/voucher-backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RPCHandler dispatches the action-based voucher API. Every request is
// {action, payload}; every response is the standard envelope.
type RPCHandler struct {
	BaseHandler
	vouchers     *voucherapp.Service
	statuses     *voucherapp.StatusService
	deletions    *voucherapp.DeletionService
	releases     *voucherapp.ReleaseService
	revalidation *voucherapp.RevalidationService
	categories   voucher.CategoryCatalog
	auditTrail   *auditapp.Service
}

// NewRPCHandler creates a new RPCHandler
func NewRPCHandler(
	vouchers *voucherapp.Service,
	statuses *voucherapp.StatusService,
	deletions *voucherapp.DeletionService,
	releases *voucherapp.ReleaseService,
	revalidation *voucherapp.RevalidationService,
	categories voucher.CategoryCatalog,
	auditTrail *auditapp.Service,
) *RPCHandler {
	return &RPCHandler{
		vouchers:     vouchers,
		statuses:     statuses,
		deletions:    deletions,
		releases:     releases,
		revalidation: revalidation,
		categories:   categories,
		auditTrail:   auditTrail,
	}
}

type rpcRequest struct {
	Action  string          `json:"action" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch handles POST /api/v1/rpc
func (h *RPCHandler) Dispatch(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Request must carry an action and a payload")
		return
	}

	switch req.Action {
	case "createVoucher":
		h.createVoucher(c, actor, req.Payload)
	case "updateVoucher":
		h.updateVoucher(c, actor, req.Payload)
	case "updateStatus":
		h.updateStatus(c, actor, req.Payload)
	case "batchUpdateStatus":
		h.batchUpdateStatus(c, actor, req.Payload)
	case "assignControlNumber":
		h.assignControlNumber(c, actor, req.Payload)
	case "releaseVouchers":
		h.releaseVouchers(c, actor, req.Payload)
	case "requestDelete":
		h.requestDelete(c, actor, req.Payload)
	case "approveDelete":
		h.approveDelete(c, actor, req.Payload)
	case "rejectDelete":
		h.rejectDelete(c, actor, req.Payload)
	case "cancelDeleteRequest":
		h.cancelDeleteRequest(c, actor, req.Payload)
	case "lookupVoucher":
		h.lookupVoucher(c, req.Payload)
	case "getPendingDeletions":
		h.getPendingDeletions(c)
	case "getNextControlNumber":
		h.getNextControlNumber(c, actor, req.Payload)
	case "getVouchers":
		h.getVouchers(c, req.Payload)
	case "getVoucherByRow":
		h.getVoucherByRow(c, req.Payload)
	case "searchVouchers":
		h.searchVouchers(c, req.Payload)
	case "getCategories":
		h.getCategories(c)
	case "getAuditTrail":
		h.getAuditTrail(c, actor, req.Payload)
	default:
		h.Error(c, 400, dto.ErrCodeUnknownAction, "Unknown action: "+req.Action)
	}
}

type voucherPayload struct {
	Payee            string          `json:"payee"`
	VoucherNumber    string          `json:"voucherNumber"`
	Particular       string          `json:"particular"`
	OldVoucherNumber string          `json:"oldVoucherNumber"`
	Category         string          `json:"category"`
	AccountType      string          `json:"accountType"`
	Date             time.Time       `json:"date"`
	AttachmentURL    string          `json:"attachmentUrl"`
	PaymentType      string          `json:"paymentType"`
	ContractSum      decimal.Decimal `json:"contractSum"`
	GrossAmount      decimal.Decimal `json:"grossAmount"`
	VAT              decimal.Decimal `json:"vat"`
	WHT              decimal.Decimal `json:"wht"`
	StampDuty        decimal.Decimal `json:"stampDuty"`
}

func (p voucherPayload) toInput() voucherapp.Input {
	return voucherapp.Input{
		Payee:            p.Payee,
		VoucherNumber:    p.VoucherNumber,
		Particular:       p.Particular,
		OldVoucherNumber: p.OldVoucherNumber,
		Category:         p.Category,
		AccountType:      p.AccountType,
		Date:             p.Date,
		AttachmentURL:    p.AttachmentURL,
		PaymentType:      voucher.PaymentType(p.PaymentType),
		ContractSum:      p.ContractSum,
		GrossAmount:      p.GrossAmount,
		VAT:              p.VAT,
		WHT:              p.WHT,
		StampDuty:        p.StampDuty,
	}
}

func (h *RPCHandler) bind(c *gin.Context, payload json.RawMessage, out any) bool {
	if len(payload) == 0 {
		h.BadRequest(c, "Payload is required for this action")
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		h.BadRequest(c, "Malformed payload: "+err.Error())
		return false
	}
	return true
}

func (h *RPCHandler) createVoucher(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p voucherPayload
	if !h.bind(c, payload, &p) {
		return
	}
	v, err := h.vouchers.Create(c.Request.Context(), actor, p.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherView(v))
}

func (h *RPCHandler) updateVoucher(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndex int64 `json:"rowIndex"`
		voucherPayload
	}
	if !h.bind(c, payload, &p) {
		return
	}
	v, err := h.vouchers.Update(c.Request.Context(), actor, p.RowIndex, p.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherView(v))
}

func (h *RPCHandler) updateStatus(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndex int64  `json:"rowIndex"`
		Status   string `json:"status"`
		PmtMonth string `json:"pmtMonth"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	v, err := h.statuses.UpdateStatus(c.Request.Context(), actor, p.RowIndex, voucher.BaseStatus(p.Status), p.PmtMonth)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherView(v))
}

func (h *RPCHandler) batchUpdateStatus(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		ControlNumber string `json:"controlNumber"`
		Status        string `json:"status"`
		PmtMonth      string `json:"pmtMonth"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	result, err := h.statuses.BatchUpdateStatus(c.Request.Context(), actor, p.ControlNumber, voucher.BaseStatus(p.Status), p.PmtMonth)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *RPCHandler) assignControlNumber(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndexes    []int64 `json:"rowIndexes"`
		ControlNumber string  `json:"controlNumber"`
		TargetUnit    string  `json:"targetUnit"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	result, err := h.releases.AssignControlNumber(c.Request.Context(), actor, p.RowIndexes, p.ControlNumber, p.TargetUnit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *RPCHandler) releaseVouchers(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndexes    []int64 `json:"rowIndexes"`
		TargetUnit    string  `json:"targetUnit"`
		ControlNumber string  `json:"controlNumber"`
		IsCPORelease  bool    `json:"isCPORelease"`
		Purpose       string  `json:"purpose"`
	}
	if !h.bind(c, payload, &p) {
		return
	}

	// A CPO release forwards an already-released batch under its existing
	// control number; the payable-unit path stamps the supplied number or
	// allocates the next one. Each service gates its own roles.
	var result *voucherapp.ReleaseResult
	var err error
	if p.IsCPORelease {
		result, err = h.releases.CPORelease(c.Request.Context(), actor, p.RowIndexes, p.TargetUnit, p.Purpose)
	} else {
		result, err = h.releases.ReleaseVouchers(c.Request.Context(), actor, p.RowIndexes, p.TargetUnit, p.ControlNumber)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *RPCHandler) requestDelete(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndex int64  `json:"rowIndex"`
		Reason   string `json:"reason"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	v, err := h.deletions.Request(c.Request.Context(), actor, p.RowIndex, p.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherView(v))
}

func (h *RPCHandler) approveDelete(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndex int64 `json:"rowIndex"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	if err := h.deletions.Approve(c.Request.Context(), actor, p.RowIndex); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"deleted": true, "rowIndex": p.RowIndex})
}

func (h *RPCHandler) rejectDelete(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndex int64  `json:"rowIndex"`
		Reason   string `json:"reason"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	v, err := h.deletions.Reject(c.Request.Context(), actor, p.RowIndex, p.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherView(v))
}

func (h *RPCHandler) cancelDeleteRequest(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		RowIndex int64 `json:"rowIndex"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	v, err := h.deletions.Cancel(c.Request.Context(), actor, p.RowIndex)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherView(v))
}

func (h *RPCHandler) lookupVoucher(c *gin.Context, payload json.RawMessage) {
	var p struct {
		VoucherNumber string `json:"voucherNumber"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	result, err := h.revalidation.Lookup(c.Request.Context(), p.VoucherNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view := struct {
		*voucherapp.LookupResult
		Voucher *VoucherView `json:"voucher,omitempty"`
	}{LookupResult: result}
	if result.Voucher != nil {
		v := newVoucherView(result.Voucher)
		view.Voucher = &v
	}
	h.Success(c, view)
}

func (h *RPCHandler) getPendingDeletions(c *gin.Context) {
	vouchers, err := h.vouchers.PendingDeletions(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherViews(vouchers))
}

func (h *RPCHandler) getNextControlNumber(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		TargetUnit string `json:"targetUnit"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	number, err := h.releases.NextControlNumber(c.Request.Context(), actor, p.TargetUnit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"controlNumber": number})
}

func (h *RPCHandler) getVouchers(c *gin.Context, payload json.RawMessage) {
	var p struct {
		Year            string `json:"year"`
		Status          string `json:"status"`
		Category        string `json:"category"`
		Released        *bool  `json:"released"`
		PendingDeletion *bool  `json:"pendingDeletion"`
		Search          string `json:"search"`
		Page            int    `json:"page"`
		PageSize        int    `json:"pageSize"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			h.BadRequest(c, "Malformed payload: "+err.Error())
			return
		}
	}

	filter := voucher.Filter{
		Category:        p.Category,
		Released:        p.Released,
		PendingDeletion: p.PendingDeletion,
		Search:          p.Search,
		Page:            p.Page,
		PageSize:        p.PageSize,
	}
	if p.Status != "" {
		st := voucher.BaseStatus(p.Status)
		filter.Status = &st
	}

	page, err := h.vouchers.List(c.Request.Context(), p.Year, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, newVoucherViews(page.Items), page.Total, page.Page, page.PageSize)
}

func (h *RPCHandler) getVoucherByRow(c *gin.Context, payload json.RawMessage) {
	var p struct {
		Year     string `json:"year"`
		RowIndex int64  `json:"rowIndex"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	v, err := h.vouchers.Get(c.Request.Context(), p.Year, p.RowIndex)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newVoucherView(v))
}

func (h *RPCHandler) searchVouchers(c *gin.Context, payload json.RawMessage) {
	var p struct {
		Query string `json:"query"`
	}
	if !h.bind(c, payload, &p) {
		return
	}
	results, err := h.vouchers.SearchAcrossYears(c.Request.Context(), p.Query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

func (h *RPCHandler) getCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}

func (h *RPCHandler) getAuditTrail(c *gin.Context, actor identity.Actor, payload json.RawMessage) {
	var p struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			h.BadRequest(c, "Malformed payload: "+err.Error())
			return
		}
	}
	records, total, err := h.auditTrail.List(c.Request.Context(), actor, p.Limit, p.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"records": records, "total": total})
}
