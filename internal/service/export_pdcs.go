package service

import (
	"context"
	"fmt"
	"time"

	"propledger/internal/domain"
	"propledger/internal/repository"

	"github.com/xuri/excelize/v2"
)

var pdcColumnOrder = []string{
	"cheque_number", "bank_name", "tenant_id", "invoice_id", "lease_id",
	"amount", "cheque_date", "deposit_date", "cleared_date", "bounced_date",
	"status", "bounce_reason", "withdrawal_reason",
}

var pdcColumns = map[string]exportColumn[domain.PDC]{
	"cheque_number":     {Header: "Cheque No", Value: func(p domain.PDC) any { return p.ChequeNumber }},
	"bank_name":         {Header: "Bank", Value: func(p domain.PDC) any { return p.BankName }},
	"tenant_id":         {Header: "Tenant", Value: func(p domain.PDC) any { return p.TenantID }},
	"invoice_id":        {Header: "Invoice", Value: func(p domain.PDC) any { return strPtr(p.InvoiceID) }},
	"lease_id":          {Header: "Lease", Value: func(p domain.PDC) any { return strPtr(p.LeaseID) }},
	"amount":            {Header: "Amount", Value: func(p domain.PDC) any { return p.Amount.StringFixed(2) }},
	"cheque_date":       {Header: "Cheque Date", Value: func(p domain.PDC) any { return p.ChequeDate.Format("2006-01-02") }},
	"deposit_date":      {Header: "Deposited", Value: func(p domain.PDC) any { return timePtr(p.DepositDate) }},
	"cleared_date":      {Header: "Cleared", Value: func(p domain.PDC) any { return timePtr(p.ClearedDate) }},
	"bounced_date":      {Header: "Bounced", Value: func(p domain.PDC) any { return timePtr(p.BouncedDate) }},
	"status":            {Header: "Status", Value: func(p domain.PDC) any { return string(p.Status) }},
	"bounce_reason":     {Header: "Bounce Reason", Value: func(p domain.PDC) any { return p.BounceReason }},
	"withdrawal_reason": {Header: "Withdrawal Reason", Value: func(p domain.PDC) any { return p.WithdrawalReason }},
}

func (s *ExportService) StartPDCsExport(ctx context.Context, repo *repository.PDCRepository, selected []string, filter repository.PDCsFilter, userID int64) (string, error) {
	st, err := s.start(ctx, "pdcs", selected, userID)
	if err != nil {
		return "", err
	}

	go s.runPDCsExport(context.Background(), st, repo, selected, filter)
	return st.Key, nil
}

func (s *ExportService) runPDCsExport(ctx context.Context, st *ExportStatus, repo *repository.PDCRepository, selected []string, filter repository.PDCsFilter) {
	pdcs, err := repo.List(ctx, filter)
	if err != nil {
		s.fail(ctx, st, err)
		return
	}
	if len(pdcs) > maxExportRows {
		s.fail(ctx, st, fmt.Errorf("too many cheques for export (more than %d rows)", maxExportRows))
		return
	}

	cols := selectColumns(pdcColumns, pdcColumnOrder, selected)
	if len(cols) == 0 {
		s.fail(ctx, st, fmt.Errorf("no known fields selected"))
		return
	}

	f := excelize.NewFile()
	writeSheet(ctx, s, st, f, "PDCs", cols, pdcs)

	fileName := fmt.Sprintf("pdcs_%s.xlsx", time.Now().Format("20060102_150405"))
	s.finish(ctx, st, f, fileName)
}
