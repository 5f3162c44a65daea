package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"propledger/internal/domain"
	"propledger/internal/repository"

	"github.com/shopspring/decimal"
)

// Filter fields arrive as loosely typed JSON (clients send numbers and
// strings interchangeably), so requests are decoded into interface{} first
// and coerced here.

func toStringPtr(v interface{}) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return &t, nil
	case float64:
		s := strconv.FormatInt(int64(t), 10)
		return &s, nil
	default:
		return nil, &domain.ValidationError{Message: "invalid type for string field"}
	}
}

func toInt64Ptr(v interface{}) (*int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		i := int64(t)
		return &i, nil
	case string:
		if t == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, err
		}
		return &i, nil
	default:
		return nil, &domain.ValidationError{Message: "invalid type for int field"}
	}
}

func toDatePtr(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	default:
		return nil, &domain.ValidationError{Message: "invalid type for date field"}
	}
}

// parseDate requires a YYYY-MM-DD value.
func parseDate(field, v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Message: field + " must be YYYY-MM-DD"}
	}
	return t, nil
}

// parseAmount requires a decimal string, e.g. "2500.00". Amounts never
// travel as JSON numbers to avoid float rounding on the wire.
func parseAmount(field, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, &domain.ValidationError{Field: field, Message: field + " is required"}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: field, Message: field + " must be a decimal string"}
	}
	return d, nil
}

// parseOptionalAmount treats empty as zero.
func parseOptionalAmount(field, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return parseAmount(field, v)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		return &domain.ValidationError{Message: "invalid request body"}
	}
	return nil
}

// ExportRequest selects the columns and filters for an invoice, payment or
// cheque export.
type ExportRequest struct {
	Fields    []string `json:"fields"`
	TenantID  *string  `json:"tenant_id,omitempty"`
	InvoiceID *string  `json:"invoice_id,omitempty"`
	Status    *string  `json:"status,omitempty"`
	DateFrom  *time.Time
	DateTo    *time.Time
}

type rawExportRequest struct {
	Fields    []string    `json:"fields"`
	TenantID  interface{} `json:"tenant_id"`
	InvoiceID interface{} `json:"invoice_id"`
	Status    interface{} `json:"status"`
	DateFrom  interface{} `json:"date_from"`
	DateTo    interface{} `json:"date_to"`
}

func ValidateExportRequest(r *http.Request) (*ExportRequest, error) {
	var raw rawExportRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	if len(raw.Fields) == 0 {
		return nil, &domain.ValidationError{Field: "fields", Message: "fields is required and must be an array"}
	}

	tenantID, err := toStringPtr(raw.TenantID)
	if err != nil {
		return nil, &domain.ValidationError{Field: "tenant_id", Message: "tenant_id must be string or empty"}
	}

	invoiceID, err := toStringPtr(raw.InvoiceID)
	if err != nil {
		return nil, &domain.ValidationError{Field: "invoice_id", Message: "invoice_id must be string or empty"}
	}

	status, err := toStringPtr(raw.Status)
	if err != nil {
		return nil, &domain.ValidationError{Field: "status", Message: "status must be string or empty"}
	}

	dateFrom, err := toDatePtr(raw.DateFrom)
	if err != nil {
		return nil, &domain.ValidationError{Field: "date_from", Message: "date_from must be YYYY-MM-DD or empty"}
	}
	dateTo, err := toDatePtr(raw.DateTo)
	if err != nil {
		return nil, &domain.ValidationError{Field: "date_to", Message: "date_to must be YYYY-MM-DD or empty"}
	}

	return &ExportRequest{
		Fields:    raw.Fields,
		TenantID:  tenantID,
		InvoiceID: invoiceID,
		Status:    status,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	}, nil
}

func (r *ExportRequest) ToInvoicesFilter() repository.InvoicesFilter {
	f := repository.InvoicesFilter{
		TenantID: r.TenantID,
		DateFrom: r.DateFrom,
		DateTo:   r.DateTo,
	}
	if r.Status != nil {
		s := domain.InvoiceStatus(*r.Status)
		f.Status = &s
	}
	return f
}

func (r *ExportRequest) ToPaymentsFilter() repository.PaymentsFilter {
	f := repository.PaymentsFilter{
		TenantID:  r.TenantID,
		InvoiceID: r.InvoiceID,
		DateFrom:  r.DateFrom,
		DateTo:    r.DateTo,
	}
	return f
}

func (r *ExportRequest) ToPDCsFilter() repository.PDCsFilter {
	f := repository.PDCsFilter{
		TenantID:  r.TenantID,
		InvoiceID: r.InvoiceID,
	}
	if r.Status != nil {
		s := domain.PDCStatus(*r.Status)
		f.Status = &s
	}
	return f
}
