package service

import (
	"context"
	"fmt"
	"time"

	"propledger/internal/domain"
	"propledger/internal/repository"

	"github.com/xuri/excelize/v2"
)

var invoiceColumnOrder = []string{
	"number", "tenant_id", "unit_id", "property_id",
	"invoice_date", "due_date",
	"base_rent", "service_charges", "parking_fees", "late_fee",
	"total_amount", "paid_amount", "balance_amount",
	"status", "sent_at", "paid_at",
}

var invoiceColumns = map[string]exportColumn[domain.Invoice]{
	"number":          {Header: "Invoice No", Value: func(i domain.Invoice) any { return i.Number }},
	"tenant_id":       {Header: "Tenant", Value: func(i domain.Invoice) any { return i.TenantID }},
	"unit_id":         {Header: "Unit", Value: func(i domain.Invoice) any { return i.UnitID }},
	"property_id":     {Header: "Property", Value: func(i domain.Invoice) any { return i.PropertyID }},
	"invoice_date":    {Header: "Invoice Date", Value: func(i domain.Invoice) any { return i.InvoiceDate.Format("2006-01-02") }},
	"due_date":        {Header: "Due Date", Value: func(i domain.Invoice) any { return i.DueDate.Format("2006-01-02") }},
	"base_rent":       {Header: "Base Rent", Value: func(i domain.Invoice) any { return i.BaseRent.StringFixed(2) }},
	"service_charges": {Header: "Service Charges", Value: func(i domain.Invoice) any { return i.ServiceCharges.StringFixed(2) }},
	"parking_fees":    {Header: "Parking Fees", Value: func(i domain.Invoice) any { return i.ParkingFees.StringFixed(2) }},
	"late_fee":        {Header: "Late Fee", Value: func(i domain.Invoice) any { return i.LateFee.StringFixed(2) }},
	"total_amount":    {Header: "Total", Value: func(i domain.Invoice) any { return i.TotalAmount.StringFixed(2) }},
	"paid_amount":     {Header: "Paid", Value: func(i domain.Invoice) any { return i.PaidAmount.StringFixed(2) }},
	"balance_amount":  {Header: "Balance", Value: func(i domain.Invoice) any { return i.BalanceAmount.StringFixed(2) }},
	"status":          {Header: "Status", Value: func(i domain.Invoice) any { return string(i.Status) }},
	"sent_at":         {Header: "Sent At", Value: func(i domain.Invoice) any { return timePtr(i.SentAt) }},
	"paid_at":         {Header: "Paid At", Value: func(i domain.Invoice) any { return timePtr(i.PaidAt) }},
}

// StartInvoicesExport queues an xlsx export of invoices and returns the job
// key immediately; generation runs in the background.
func (s *ExportService) StartInvoicesExport(ctx context.Context, repo *repository.InvoiceRepository, selected []string, filter repository.InvoicesFilter, userID int64) (string, error) {
	st, err := s.start(ctx, "invoices", selected, userID)
	if err != nil {
		return "", err
	}

	go s.runInvoicesExport(context.Background(), st, repo, selected, filter)
	return st.Key, nil
}

func (s *ExportService) runInvoicesExport(ctx context.Context, st *ExportStatus, repo *repository.InvoiceRepository, selected []string, filter repository.InvoicesFilter) {
	invoices, err := repo.List(ctx, filter)
	if err != nil {
		s.fail(ctx, st, err)
		return
	}
	if len(invoices) > maxExportRows {
		s.fail(ctx, st, fmt.Errorf("too many invoices for export (more than %d rows)", maxExportRows))
		return
	}

	cols := selectColumns(invoiceColumns, invoiceColumnOrder, selected)
	if len(cols) == 0 {
		s.fail(ctx, st, fmt.Errorf("no known fields selected"))
		return
	}

	f := excelize.NewFile()
	writeSheet(ctx, s, st, f, "Invoices", cols, invoices)

	fileName := fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("20060102_150405"))
	s.finish(ctx, st, f, fileName)
}
