package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"propledger/internal/domain"
)

type APIResponse struct {
	ErrorCode int         `json:"error_code"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func Response(w http.ResponseWriter, message string, data interface{}, errorCode int, status string, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	response := APIResponse{
		ErrorCode: errorCode,
		Status:    status,
		Message:   message,
		Data:      data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[HTTP] write response error: %v", err)
	}
}

func Success(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusOK)
}

func SuccessCreated(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusCreated)
}

func SuccessAccepted(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusAccepted)
}

func Error(w http.ResponseWriter, message string, errorCode int, httpStatus int) {
	Response(w, message, nil, errorCode, "error", httpStatus)
}

func ErrorBadRequest(w http.ResponseWriter, message string) {
	Error(w, message, 400, http.StatusBadRequest)
}

func ErrorUnauthorized(w http.ResponseWriter, message string) {
	Error(w, message, 401, http.StatusUnauthorized)
}

func ErrorNotFound(w http.ResponseWriter, message string) {
	Error(w, message, 404, http.StatusNotFound)
}

func ErrorConflict(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 409, "error", http.StatusConflict)
}

func ErrorInternal(w http.ResponseWriter, message string) {
	Error(w, message, 500, http.StatusInternalServerError)
}

// ErrorFrom maps ledger errors onto HTTP statuses. Rejected transitions and
// stale writes are conflicts, not client mistakes, and the 409 body keeps
// enough context for the caller to reload and retry.
func ErrorFrom(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		transitionErr *domain.InvalidTransitionError
		overpayErr    *domain.OverpaymentError
		concurrentErr *domain.ConcurrentModificationError
	)

	switch {
	case errors.As(err, &validationErr):
		ErrorBadRequest(w, validationErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		ErrorNotFound(w, "not found")
	case errors.Is(err, domain.ErrLateFeeApplied):
		ErrorConflict(w, err.Error(), nil)
	case errors.As(err, &transitionErr):
		ErrorConflict(w, transitionErr.Error(), map[string]interface{}{
			"entity":        transitionErr.Entity,
			"id":            transitionErr.ID,
			"current_state": transitionErr.FromState,
			"action":        transitionErr.Action,
		})
	case errors.As(err, &overpayErr):
		ErrorConflict(w, overpayErr.Error(), map[string]interface{}{
			"invoice_id": overpayErr.InvoiceID,
			"balance":    overpayErr.Balance,
			"attempted":  overpayErr.Amount,
		})
	case errors.As(err, &concurrentErr):
		ErrorConflict(w, concurrentErr.Error(), map[string]interface{}{
			"entity": concurrentErr.Entity,
			"id":     concurrentErr.ID,
		})
	default:
		log.Printf("[HTTP] internal error: %v", err)
		ErrorInternal(w, "internal error")
	}
}
