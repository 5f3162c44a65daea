package rest

import (
	"net/http"

	"propledger/internal/domain"
	"propledger/internal/repository"
	"propledger/internal/service"
	"propledger/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type registerPDCRequest struct {
	ChequeNumber string  `json:"cheque_number"`
	BankName     string  `json:"bank_name"`
	TenantID     string  `json:"tenant_id"`
	InvoiceID    *string `json:"invoice_id"`
	LeaseID      *string `json:"lease_id"`
	Amount       string  `json:"amount"`
	ChequeDate   string  `json:"cheque_date"`
}

func (h *Handler) parseRegisterPDC(r *http.Request, userID int64) (service.RegisterPDCInput, error) {
	var req registerPDCRequest
	if err := decodeBody(r, &req); err != nil {
		return service.RegisterPDCInput{}, err
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return service.RegisterPDCInput{}, err
	}
	chequeDate, err := parseDate("cheque_date", req.ChequeDate)
	if err != nil {
		return service.RegisterPDCInput{}, err
	}

	return service.RegisterPDCInput{
		ChequeNumber: req.ChequeNumber,
		BankName:     req.BankName,
		TenantID:     req.TenantID,
		InvoiceID:    req.InvoiceID,
		LeaseID:      req.LeaseID,
		Amount:       amount,
		ChequeDate:   chequeDate,
		RecordedBy:   userID,
	}, nil
}

func (h *Handler) registerPDC(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	in, err := h.parseRegisterPDC(r, userID)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	pdc, err := h.pdcs.Register(r.Context(), in)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	SuccessCreated(w, "cheque registered", toPDCDTO(pdc))
}

func (h *Handler) listPDCs(w http.ResponseWriter, r *http.Request) {
	f := repository.PDCsFilter{}

	q := r.URL.Query()
	if v := q.Get("tenant_id"); v != "" {
		f.TenantID = &v
	}
	if v := q.Get("invoice_id"); v != "" {
		f.InvoiceID = &v
	}
	if v := q.Get("lease_id"); v != "" {
		f.LeaseID = &v
	}
	if v := q.Get("status"); v != "" {
		s := domain.PDCStatus(v)
		f.Status = &s
	}

	pdcs, err := h.pdcs.List(r.Context(), f)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	Success(w, "", toPDCDTOs(pdcs))
}

func (h *Handler) getPDC(w http.ResponseWriter, r *http.Request) {
	pdc, err := h.pdcs.Get(r.Context(), chi.URLParam(r, "pdc_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "", toPDCDTO(pdc))
}

func (h *Handler) getPDCChain(w http.ResponseWriter, r *http.Request) {
	chain, err := h.pdcs.Chain(r.Context(), chi.URLParam(r, "pdc_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "", toPDCDTOs(chain))
}

func (h *Handler) markPDCDue(w http.ResponseWriter, r *http.Request) {
	pdc, err := h.pdcs.TransitionToDue(r.Context(), chi.URLParam(r, "pdc_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque due", toPDCDTO(pdc))
}

type depositPDCRequest struct {
	Date          string `json:"date"`
	BankAccountID string `json:"bank_account_id"`
}

func (h *Handler) depositPDC(w http.ResponseWriter, r *http.Request) {
	var req depositPDCRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	pdc, err := h.pdcs.Deposit(r.Context(), chi.URLParam(r, "pdc_id"), date, req.BankAccountID)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque deposited", toPDCDTO(pdc))
}

type clearPDCRequest struct {
	Date string `json:"date"`
}

func (h *Handler) clearPDC(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	var req clearPDCRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	pdc, err := h.pdcs.Clear(r.Context(), chi.URLParam(r, "pdc_id"), date, userID)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque cleared", toPDCDTO(pdc))
}

type bouncePDCRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (h *Handler) bouncePDC(w http.ResponseWriter, r *http.Request) {
	var req bouncePDCRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	pdc, err := h.pdcs.Bounce(r.Context(), chi.URLParam(r, "pdc_id"), date, req.Reason)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque bounced", toPDCDTO(pdc))
}

type withdrawPDCRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (h *Handler) withdrawPDC(w http.ResponseWriter, r *http.Request) {
	var req withdrawPDCRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	pdc, err := h.pdcs.Withdraw(r.Context(), chi.URLParam(r, "pdc_id"), date, req.Reason)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque withdrawn", toPDCDTO(pdc))
}

func (h *Handler) cancelPDC(w http.ResponseWriter, r *http.Request) {
	pdc, err := h.pdcs.Cancel(r.Context(), chi.URLParam(r, "pdc_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque cancelled", toPDCDTO(pdc))
}

type holdPDCRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) holdPDC(w http.ResponseWriter, r *http.Request) {
	var req holdPDCRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}

	pdc, err := h.pdcs.Hold(r.Context(), chi.URLParam(r, "pdc_id"), req.Reason)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque on hold", toPDCDTO(pdc))
}

func (h *Handler) releasePDC(w http.ResponseWriter, r *http.Request) {
	pdc, err := h.pdcs.Release(r.Context(), chi.URLParam(r, "pdc_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "cheque released", toPDCDTO(pdc))
}

func (h *Handler) replacePDC(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	in, err := h.parseRegisterPDC(r, userID)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	original, replacement, err := h.pdcs.Replace(r.Context(), chi.URLParam(r, "pdc_id"), in)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	SuccessCreated(w, "cheque replaced", map[string]interface{}{
		"original":    toPDCDTO(original),
		"replacement": toPDCDTO(replacement),
	})
}
