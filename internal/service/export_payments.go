package service

import (
	"context"
	"fmt"
	"time"

	"propledger/internal/domain"
	"propledger/internal/repository"

	"github.com/xuri/excelize/v2"
)

var paymentColumnOrder = []string{
	"number", "invoice_id", "tenant_id", "amount", "method",
	"payment_date", "transaction_ref", "recorded_by", "created_at",
}

var paymentColumns = map[string]exportColumn[domain.Payment]{
	"number":          {Header: "Payment No", Value: func(p domain.Payment) any { return p.Number }},
	"invoice_id":      {Header: "Invoice", Value: func(p domain.Payment) any { return p.InvoiceID }},
	"tenant_id":       {Header: "Tenant", Value: func(p domain.Payment) any { return p.TenantID }},
	"amount":          {Header: "Amount", Value: func(p domain.Payment) any { return p.Amount.StringFixed(2) }},
	"method":          {Header: "Method", Value: func(p domain.Payment) any { return string(p.Method) }},
	"payment_date":    {Header: "Payment Date", Value: func(p domain.Payment) any { return p.PaymentDate.Format("2006-01-02") }},
	"transaction_ref": {Header: "Transaction Ref", Value: func(p domain.Payment) any { return p.TransactionRef }},
	"recorded_by":     {Header: "Recorded By", Value: func(p domain.Payment) any { return p.RecordedBy }},
	"created_at":      {Header: "Created", Value: func(p domain.Payment) any { return p.CreatedAt.Format("2006-01-02 15:04:05") }},
}

func (s *ExportService) StartPaymentsExport(ctx context.Context, repo *repository.PaymentRepository, selected []string, filter repository.PaymentsFilter, userID int64) (string, error) {
	st, err := s.start(ctx, "payments", selected, userID)
	if err != nil {
		return "", err
	}

	go s.runPaymentsExport(context.Background(), st, repo, selected, filter)
	return st.Key, nil
}

func (s *ExportService) runPaymentsExport(ctx context.Context, st *ExportStatus, repo *repository.PaymentRepository, selected []string, filter repository.PaymentsFilter) {
	payments, err := repo.List(ctx, filter)
	if err != nil {
		s.fail(ctx, st, err)
		return
	}
	if len(payments) > maxExportRows {
		s.fail(ctx, st, fmt.Errorf("too many payments for export (more than %d rows)", maxExportRows))
		return
	}

	cols := selectColumns(paymentColumns, paymentColumnOrder, selected)
	if len(cols) == 0 {
		s.fail(ctx, st, fmt.Errorf("no known fields selected"))
		return
	}

	f := excelize.NewFile()
	writeSheet(ctx, s, st, f, "Payments", cols, payments)

	fileName := fmt.Sprintf("payments_%s.xlsx", time.Now().Format("20060102_150405"))
	s.finish(ctx, st, f, fileName)
}
