package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"propledger/internal/domain"
	"propledger/internal/repository"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// captureNotifier records emitted events for assertions.
type captureNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *captureNotifier) Notify(ctx context.Context, event string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

var invoiceColumnNames = strings.Split(
	"id,number,tenant_id,unit_id,property_id,invoice_date,due_date,base_rent,service_charges,parking_fees,additional_charges,late_fee,late_fee_applied,total_amount,paid_amount,balance_amount,status,sent_at,paid_at,created_at,updated_at,version", ",")

func invoiceRow(id, number, status string, total, paid, balance string, version int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(invoiceColumnNames).AddRow(
		id, number, "t-1", "u-1", "p-1",
		now, now.Add(14*24*time.Hour),
		total, "0", "0", []byte(`[]`),
		"0", false,
		total, paid, balance,
		status, nil, nil,
		now, now, version,
	)
}

func sequenceRow(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"last_value"}).AddRow(n)
}

func TestRecordPaymentTransaction(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()

	clock := fixedClock{t: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	notifier := &captureNotifier{}

	svc := NewPaymentService(raw,
		repository.NewInvoiceRepository(raw),
		repository.NewPaymentRepository(raw),
		repository.NewSequenceRepository(raw),
		nil, notifier, clock,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id`).
		WithArgs("inv-1").
		WillReturnRows(invoiceRow("inv-1", "INV-2026-0001", "SENT", "10000", "0", "10000", 1))
	mock.ExpectQuery(`INSERT INTO reference_sequences`).
		WillReturnRows(sequenceRow(1))
	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE invoices SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment, invoice, err := svc.Record(context.Background(), RecordPaymentInput{
		InvoiceID:  "inv-1",
		Amount:     decimal.NewFromInt(4000),
		Method:     domain.PaymentMethodCash,
		RecordedBy: 7,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if payment.Number != "PMT-2026-0001" {
		t.Fatalf("expected PMT-2026-0001; got %s", payment.Number)
	}
	if invoice.Status != domain.InvoiceStatusPartiallyPaid {
		t.Fatalf("expected PARTIALLY_PAID; got %s", invoice.Status)
	}
	if !invoice.BalanceAmount.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("expected balance 6000; got %s", invoice.BalanceAmount)
	}
	if invoice.Version != 2 {
		t.Fatalf("expected version bumped to 2; got %d", invoice.Version)
	}
	if !notifier.has(EventPaymentRecorded) {
		t.Fatal("expected payment.recorded event")
	}
	if notifier.has(EventInvoicePaid) {
		t.Fatal("partial payment must not emit invoice.paid")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordPaymentSettlesInvoice(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()

	clock := fixedClock{t: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	notifier := &captureNotifier{}

	svc := NewPaymentService(raw,
		repository.NewInvoiceRepository(raw),
		repository.NewPaymentRepository(raw),
		repository.NewSequenceRepository(raw),
		nil, notifier, clock,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id`).
		WithArgs("inv-1").
		WillReturnRows(invoiceRow("inv-1", "INV-2026-0001", "PARTIALLY_PAID", "10000", "9999", "1", 3))
	mock.ExpectQuery(`INSERT INTO reference_sequences`).
		WillReturnRows(sequenceRow(12))
	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE invoices SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, invoice, err := svc.Record(context.Background(), RecordPaymentInput{
		InvoiceID: "inv-1",
		Amount:    decimal.NewFromInt(1),
		Method:    domain.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if invoice.Status != domain.InvoiceStatusPaid {
		t.Fatalf("expected PAID; got %s", invoice.Status)
	}
	if !invoice.BalanceAmount.IsZero() {
		t.Fatalf("expected zero balance; got %s", invoice.BalanceAmount)
	}
	if !notifier.has(EventInvoicePaid) {
		t.Fatal("expected invoice.paid event")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordPaymentOverpaymentRollsBack(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()

	notifier := &captureNotifier{}
	svc := NewPaymentService(raw,
		repository.NewInvoiceRepository(raw),
		repository.NewPaymentRepository(raw),
		repository.NewSequenceRepository(raw),
		nil, notifier, fixedClock{t: time.Now()},
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id`).
		WithArgs("inv-1").
		WillReturnRows(invoiceRow("inv-1", "INV-2026-0001", "SENT", "100", "0", "100", 1))
	mock.ExpectRollback()

	_, _, err = svc.Record(context.Background(), RecordPaymentInput{
		InvoiceID: "inv-1",
		Amount:    decimal.NewFromInt(200),
		Method:    domain.PaymentMethodCash,
	})

	var ope *domain.OverpaymentError
	if !errors.As(err, &ope) {
		t.Fatalf("expected OverpaymentError; got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("rejected payment must not notify; got %v", notifier.events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
