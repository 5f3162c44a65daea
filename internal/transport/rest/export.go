package rest

import (
	"errors"
	"log"
	"net/http"

	"propledger/internal/domain"
	"propledger/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exports.GetExports(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] listExports error: %v", err)
		ErrorInternal(w, "failed to get exports")
		return
	}

	Success(w, "", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportIDParam := chi.URLParam(r, "export_id")
	if exportIDParam == "" {
		ErrorBadRequest(w, "export_id is required")
		return
	}
	exportID := "exports:" + exportIDParam

	export, err := h.exports.GetExport(r.Context(), exportID, userID)
	if err != nil {
		log.Printf("[HTTP] getExport error: %v", err)
		ErrorNotFound(w, "export not found")
		return
	}

	Success(w, "", export)
}

func (h *Handler) startExport(w http.ResponseWriter, r *http.Request, start func(req *ExportRequest, userID int64) (string, error)) {
	req, err := ValidateExportRequest(r)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			ErrorBadRequest(w, validationErr.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := start(req, userID)
	if err != nil {
		log.Printf("[HTTP] startExport error: %v", err)
		ErrorInternal(w, "failed to start export")
		return
	}

	SuccessAccepted(w, "export queued", map[string]interface{}{
		"export_id": exportID,
	})
}

func (h *Handler) exportInvoices(w http.ResponseWriter, r *http.Request) {
	h.startExport(w, r, func(req *ExportRequest, userID int64) (string, error) {
		return h.exports.StartInvoicesExport(r.Context(), h.invoiceRepo, req.Fields, req.ToInvoicesFilter(), userID)
	})
}

func (h *Handler) exportPayments(w http.ResponseWriter, r *http.Request) {
	h.startExport(w, r, func(req *ExportRequest, userID int64) (string, error) {
		return h.exports.StartPaymentsExport(r.Context(), h.paymentRepo, req.Fields, req.ToPaymentsFilter(), userID)
	})
}

func (h *Handler) exportPDCs(w http.ResponseWriter, r *http.Request) {
	h.startExport(w, r, func(req *ExportRequest, userID int64) (string, error) {
		return h.exports.StartPDCsExport(r.Context(), h.pdcRepo, req.Fields, req.ToPDCsFilter(), userID)
	})
}
