package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"propledger/internal/repository"
)

func newSweepFixture(t *testing.T) (*Sweeper, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })

	// cheque dates in pdcRow are "today", so today's clock keeps them in
	// the due window
	clock := fixedClock{t: time.Now()}
	notifier := &captureNotifier{}

	invoiceRepo := repository.NewInvoiceRepository(raw)
	paymentRepo := repository.NewPaymentRepository(raw)
	seqRepo := repository.NewSequenceRepository(raw)

	invoices := NewInvoiceService(invoiceRepo, paymentRepo, seqRepo, notifier, clock)
	payments := NewPaymentService(raw, invoiceRepo, paymentRepo, seqRepo, nil, notifier, clock)
	pdcs := NewPDCService(raw, repository.NewPDCRepository(raw), payments, notifier, clock, 7)

	return NewSweeper(invoices, pdcs), mock
}

func TestSweepRunOnceEmptyPass(t *testing.T) {
	sweeper, mock := newSweepFixture(t)

	mock.ExpectQuery(`SELECT .+ FROM pdcs`).
		WillReturnRows(sqlmock.NewRows(pdcColumnNames))
	mock.ExpectQuery(`SELECT .+ FROM invoices`).
		WillReturnRows(sqlmock.NewRows(invoiceColumnNames))

	sweeper.RunOnce(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSweepSkipsFailingEntity(t *testing.T) {
	sweeper, mock := newSweepFixture(t)

	// candidate list holds two cheques; the first one's reload fails, the
	// second is still promoted
	mock.ExpectQuery(`SELECT .+ FROM pdcs`).
		WillReturnRows(func() *sqlmock.Rows {
			rows := pdcRow("pdc-1", "RECEIVED", "1000", nil, 1)
			now := time.Now()
			rows.AddRow(
				"pdc-2", "100002", "ENBD", "t-2", nil, nil,
				"2000", now,
				nil, nil, nil, nil,
				"RECEIVED", "", "", "",
				nil, nil, nil,
				7, now, now, 1,
			)
			return rows
		}())

	// pdc-1 reload fails
	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs("pdc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// pdc-2 reloads and transitions
	mock.ExpectQuery(`SELECT .+ FROM pdcs WHERE id`).
		WithArgs("pdc-2").
		WillReturnRows(pdcRow("pdc-2", "RECEIVED", "2000", nil, 1))
	mock.ExpectExec(`UPDATE pdcs SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT .+ FROM invoices`).
		WillReturnRows(sqlmock.NewRows(invoiceColumnNames))

	sweeper.RunOnce(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
