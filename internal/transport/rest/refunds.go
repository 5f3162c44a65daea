package rest

import (
	"net/http"

	"propledger/internal/domain"
	"propledger/internal/service"
	"propledger/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type createRefundRequest struct {
	OriginalDeposit string `json:"original_deposit"`
	Method          string `json:"method"`
	BankName        string `json:"bank_name"`
	AccountHolder   string `json:"account_holder"`
	IBAN            string `json:"iban"`
	ChequeNumber    string `json:"cheque_number"`

	Deductions []struct {
		Type        string  `json:"type"`
		Description string  `json:"description"`
		Amount      string  `json:"amount"`
		InvoiceID   *string `json:"invoice_id"`
	} `json:"deductions"`
}

func (h *Handler) createDepositRefund(w http.ResponseWriter, r *http.Request) {
	var req createRefundRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}

	deposit, err := parseAmount("original_deposit", req.OriginalDeposit)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	in := service.CreateRefundInput{
		CheckoutID:      chi.URLParam(r, "checkout_id"),
		OriginalDeposit: deposit,
		Method:          domain.RefundMethod(req.Method),
		BankName:        req.BankName,
		AccountHolder:   req.AccountHolder,
		IBAN:            req.IBAN,
		ChequeNumber:    req.ChequeNumber,
	}
	for _, d := range req.Deductions {
		amount, err := parseAmount("deductions.amount", d.Amount)
		if err != nil {
			ErrorFrom(w, err)
			return
		}
		in.Deductions = append(in.Deductions, domain.Deduction{
			Type:        domain.DeductionType(d.Type),
			Description: d.Description,
			Amount:      amount,
			InvoiceID:   d.InvoiceID,
		})
	}

	refund, err := h.refunds.CreateForCheckout(r.Context(), in)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	SuccessCreated(w, "deposit refund calculated", toRefundDTO(refund, h.refunds.RequiresApproval(refund)))
}

func (h *Handler) getDepositRefund(w http.ResponseWriter, r *http.Request) {
	refund, err := h.refunds.Get(r.Context(), chi.URLParam(r, "refund_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "", toRefundDTO(refund, h.refunds.RequiresApproval(refund)))
}

func (h *Handler) approveDepositRefund(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	refund, err := h.refunds.Approve(r.Context(), chi.URLParam(r, "refund_id"), userID)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "deposit refund approved", toRefundDTO(refund, h.refunds.RequiresApproval(refund)))
}

type processRefundRequest struct {
	TransactionID string `json:"transaction_id"`
}

func (h *Handler) processDepositRefund(w http.ResponseWriter, r *http.Request) {
	var req processRefundRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}

	refund, err := h.refunds.Process(r.Context(), chi.URLParam(r, "refund_id"), req.TransactionID)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "deposit refund processed", toRefundDTO(refund, h.refunds.RequiresApproval(refund)))
}

func (h *Handler) attachRefundReceipt(w http.ResponseWriter, r *http.Request) {
	var req attachReceiptRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}
	if req.FileName == "" || len(req.Content) == 0 {
		ErrorBadRequest(w, "file_name and content are required")
		return
	}

	key, err := h.refunds.AttachReceipt(r.Context(), chi.URLParam(r, "refund_id"), req.FileName, req.Content)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	Success(w, "receipt attached", map[string]interface{}{"receipt_path": key})
}
