package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"propledger/internal/domain"
	"propledger/internal/repository"
)

var pdcColumnNames = strings.Split(
	"id,cheque_number,bank_name,tenant_id,invoice_id,lease_id,amount,cheque_date,deposit_date,cleared_date,bounced_date,withdrawal_date,status,bounce_reason,withdrawal_reason,hold_reason,replacement_pdc_id,original_pdc_id,deposit_bank_account_id,recorded_by,created_at,updated_at,version", ",")

func pdcRow(id, status, amount string, invoiceID *string, version int64) *sqlmock.Rows {
	now := time.Now()
	var depositDate interface{}
	if status == "DEPOSITED" {
		depositDate = now
	}
	return sqlmock.NewRows(pdcColumnNames).AddRow(
		id, "100001", "ENBD", "t-1", invoiceID, nil,
		amount, now,
		depositDate, nil, nil, nil,
		status, "", "", "",
		nil, nil, nil,
		7, now, now, version,
	)
}

func newClearFixture(t *testing.T) (*PDCService, sqlmock.Sqlmock, *captureNotifier) {
	t.Helper()

	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })

	clock := fixedClock{t: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &captureNotifier{}

	payments := NewPaymentService(raw,
		repository.NewInvoiceRepository(raw),
		repository.NewPaymentRepository(raw),
		repository.NewSequenceRepository(raw),
		nil, notifier, clock,
	)
	pdcs := NewPDCService(raw, repository.NewPDCRepository(raw), payments, notifier, clock, 7)
	return pdcs, mock, notifier
}

func TestClearRecordsPaymentAtomically(t *testing.T) {
	svc, mock, notifier := newClearFixture(t)

	invoiceID := "inv-1"

	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs("pdc-1").
		WillReturnRows(pdcRow("pdc-1", "DEPOSITED", "6000", &invoiceID, 2))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pdcs SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id`).
		WithArgs("inv-1").
		WillReturnRows(invoiceRow("inv-1", "INV-2026-0002", "SENT", "6000", "0", "6000", 1))
	mock.ExpectQuery(`INSERT INTO reference_sequences`).
		WillReturnRows(sequenceRow(3))
	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE invoices SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cleared, err := svc.Clear(context.Background(), "pdc-1", time.Time{}, 7)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}

	if cleared.Status != domain.PDCStatusCleared {
		t.Fatalf("expected CLEARED; got %s", cleared.Status)
	}
	if cleared.ClearedDate == nil {
		t.Fatal("expected cleared date set")
	}
	if !notifier.has(EventPDCCleared) {
		t.Fatal("expected pdc.cleared event")
	}
	// cheque covered the whole invoice
	if !notifier.has(EventInvoicePaid) {
		t.Fatal("expected invoice.paid event")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClearRollsBackOnInvoiceConflict(t *testing.T) {
	svc, mock, notifier := newClearFixture(t)

	invoiceID := "inv-1"

	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs("pdc-1").
		WillReturnRows(pdcRow("pdc-1", "DEPOSITED", "6000", &invoiceID, 2))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pdcs SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id`).
		WithArgs("inv-1").
		WillReturnRows(invoiceRow("inv-1", "INV-2026-0002", "SENT", "6000", "0", "6000", 1))
	mock.ExpectQuery(`INSERT INTO reference_sequences`).
		WillReturnRows(sequenceRow(4))
	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// invoice CAS loses: the whole clear must roll back
	mock.ExpectExec(`UPDATE invoices SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Clear(context.Background(), "pdc-1", time.Time{}, 7)

	var cme *domain.ConcurrentModificationError
	if !errors.As(err, &cme) {
		t.Fatalf("expected ConcurrentModificationError; got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("failed clear must not notify; got %v", notifier.events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClearWithoutInvoiceSkipsPayment(t *testing.T) {
	svc, mock, notifier := newClearFixture(t)

	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs("pdc-2").
		WillReturnRows(pdcRow("pdc-2", "DEPOSITED", "2500", nil, 1))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pdcs SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cleared, err := svc.Clear(context.Background(), "pdc-2", time.Time{}, 7)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.Status != domain.PDCStatusCleared {
		t.Fatalf("expected CLEARED; got %s", cleared.Status)
	}
	if notifier.has(EventInvoicePaid) {
		t.Fatal("unlinked cheque must not emit invoice.paid")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClearRejectsUndeposited(t *testing.T) {
	svc, mock, _ := newClearFixture(t)

	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs("pdc-3").
		WillReturnRows(pdcRow("pdc-3", "RECEIVED", "1000", nil, 1))

	_, err := svc.Clear(context.Background(), "pdc-3", time.Time{}, 7)

	var ite *domain.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError; got %v", err)
	}
	if ite.FromState != "RECEIVED" {
		t.Fatalf("expected from state RECEIVED; got %s", ite.FromState)
	}
}

// pdcChainRow is pdcRow with the replacement-chain edges filled in.
func pdcChainRow(id, status string, originalID, replacementID *string, version int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(pdcColumnNames).AddRow(
		id, "cheq-"+id, "ENBD", "t-1", nil, nil,
		"6000", now,
		now, nil, now, nil,
		status, "insufficient funds", "", "",
		replacementID, originalID, nil,
		7, now, now, version,
	)
}

func TestReplaceLinksBothCheques(t *testing.T) {
	svc, mock, _ := newClearFixture(t)

	invoiceID := "inv-9"

	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs("pdc-1").
		WillReturnRows(pdcRow("pdc-1", "BOUNCED", "6000", &invoiceID, 3))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("200300", "t-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO pdcs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE pdcs SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	original, replacement, err := svc.Replace(context.Background(), "pdc-1", RegisterPDCInput{
		ChequeNumber: "200300",
		BankName:     "ENBD",
		Amount:       decimal.NewFromInt(6000),
		ChequeDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		RecordedBy:   7,
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if original.Status != domain.PDCStatusReplaced {
		t.Fatalf("expected REPLACED; got %s", original.Status)
	}
	if original.ReplacementPDCID == nil || *original.ReplacementPDCID != replacement.ID {
		t.Fatal("original must point at the replacement")
	}
	if replacement.OriginalPDCID == nil || *replacement.OriginalPDCID != "pdc-1" {
		t.Fatal("replacement must point back at the original")
	}
	if replacement.Status != domain.PDCStatusReceived {
		t.Fatalf("replacement starts RECEIVED; got %s", replacement.Status)
	}
	// tenant and invoice carry over when the request leaves them blank
	if replacement.TenantID != "t-1" {
		t.Fatalf("expected inherited tenant; got %s", replacement.TenantID)
	}
	if replacement.InvoiceID == nil || *replacement.InvoiceID != "inv-9" {
		t.Fatal("expected inherited invoice link")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceRejectsCyclicChain(t *testing.T) {
	svc, mock, _ := newClearFixture(t)

	idA := "pdc-a"
	idB := "pdc-b"

	// pdc-b claims pdc-a as its original, and pdc-a claims pdc-b back
	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs(idB).
		WillReturnRows(pdcChainRow(idB, "BOUNCED", &idA, nil, 2))
	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs(idA).
		WillReturnRows(pdcChainRow(idA, "REPLACED", &idB, &idB, 2))
	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs(idB).
		WillReturnRows(pdcChainRow(idB, "BOUNCED", &idA, nil, 2))

	_, _, err := svc.Replace(context.Background(), idB, RegisterPDCInput{
		ChequeNumber: "300400",
		BankName:     "ENBD",
		Amount:       decimal.NewFromInt(6000),
		ChequeDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		RecordedBy:   7,
	})
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error; got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
