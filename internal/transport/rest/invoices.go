package rest

import (
	"net/http"

	"propledger/internal/domain"
	"propledger/internal/repository"
	"propledger/internal/service"
	"propledger/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type createInvoiceRequest struct {
	TenantID       string `json:"tenant_id"`
	UnitID         string `json:"unit_id"`
	PropertyID     string `json:"property_id"`
	InvoiceDate    string `json:"invoice_date"`
	DueDate        string `json:"due_date"`
	BaseRent       string `json:"base_rent"`
	ServiceCharges string `json:"service_charges"`
	ParkingFees    string `json:"parking_fees"`

	AdditionalCharges []struct {
		Name   string `json:"name"`
		Amount string `json:"amount"`
	} `json:"additional_charges"`
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}

	invoiceDate, err := parseDate("invoice_date", req.InvoiceDate)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	in := service.CreateInvoiceInput{
		TenantID:    req.TenantID,
		UnitID:      req.UnitID,
		PropertyID:  req.PropertyID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
	}

	if in.BaseRent, err = parseOptionalAmount("base_rent", req.BaseRent); err != nil {
		ErrorFrom(w, err)
		return
	}
	if in.ServiceCharges, err = parseOptionalAmount("service_charges", req.ServiceCharges); err != nil {
		ErrorFrom(w, err)
		return
	}
	if in.ParkingFees, err = parseOptionalAmount("parking_fees", req.ParkingFees); err != nil {
		ErrorFrom(w, err)
		return
	}
	for _, c := range req.AdditionalCharges {
		amount, err := parseAmount("additional_charges.amount", c.Amount)
		if err != nil {
			ErrorFrom(w, err)
			return
		}
		in.AdditionalCharges = append(in.AdditionalCharges, domain.Charge{Name: c.Name, Amount: amount})
	}

	inv, err := h.invoices.Create(r.Context(), in)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	SuccessCreated(w, "invoice created", toInvoiceDTO(inv))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	f := repository.InvoicesFilter{}

	q := r.URL.Query()
	if v := q.Get("tenant_id"); v != "" {
		f.TenantID = &v
	}
	if v := q.Get("property_id"); v != "" {
		f.PropertyID = &v
	}
	if v := q.Get("status"); v != "" {
		s := domain.InvoiceStatus(v)
		f.Status = &s
	}
	if v := q.Get("date_from"); v != "" {
		t, err := parseDate("date_from", v)
		if err != nil {
			ErrorFrom(w, err)
			return
		}
		f.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := parseDate("date_to", v)
		if err != nil {
			ErrorFrom(w, err)
			return
		}
		f.DateTo = &t
	}

	invoices, err := h.invoices.List(r.Context(), f)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	Success(w, "", toInvoiceDTOs(invoices))
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.Get(r.Context(), chi.URLParam(r, "invoice_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "", toInvoiceDTO(inv))
}

func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.Send(r.Context(), chi.URLParam(r, "invoice_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "invoice sent", toInvoiceDTO(inv))
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.Cancel(r.Context(), chi.URLParam(r, "invoice_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "invoice cancelled", toInvoiceDTO(inv))
}

type lateFeeRequest struct {
	Fee string `json:"fee"`
}

func (h *Handler) applyLateFee(w http.ResponseWriter, r *http.Request) {
	var req lateFeeRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}

	fee, err := parseAmount("fee", req.Fee)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	inv, err := h.invoices.ApplyLateFee(r.Context(), chi.URLParam(r, "invoice_id"), fee)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "late fee applied", toInvoiceDTO(inv))
}

type recordPaymentRequest struct {
	Amount         string `json:"amount"`
	Method         string `json:"method"`
	PaymentDate    string `json:"payment_date"`
	TransactionRef string `json:"transaction_ref"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	var req recordPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	paymentDate, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	payment, inv, err := h.payments.Record(r.Context(), service.RecordPaymentInput{
		InvoiceID:      chi.URLParam(r, "invoice_id"),
		Amount:         amount,
		Method:         domain.PaymentMethod(req.Method),
		PaymentDate:    paymentDate,
		TransactionRef: req.TransactionRef,
		RecordedBy:     userID,
	})
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	SuccessCreated(w, "payment recorded", map[string]interface{}{
		"payment": toPaymentDTO(payment),
		"invoice": toInvoiceDTO(inv),
	})
}

func (h *Handler) listInvoicePayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.invoices.ListPayments(r.Context(), chi.URLParam(r, "invoice_id"))
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	Success(w, "", toPaymentDTOs(payments))
}

type attachReceiptRequest struct {
	FileName string `json:"file_name"`
	Content  []byte `json:"content"` // base64 in JSON
}

func (h *Handler) attachPaymentReceipt(w http.ResponseWriter, r *http.Request) {
	var req attachReceiptRequest
	if err := decodeBody(r, &req); err != nil {
		ErrorFrom(w, err)
		return
	}
	if req.FileName == "" || len(req.Content) == 0 {
		ErrorBadRequest(w, "file_name and content are required")
		return
	}

	key, err := h.payments.AttachReceipt(r.Context(), chi.URLParam(r, "payment_id"), req.FileName, req.Content)
	if err != nil {
		ErrorFrom(w, err)
		return
	}

	Success(w, "receipt attached", map[string]interface{}{"receipt_path": key})
}
