package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"propledger/internal/domain"
	"propledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecordPaymentInput struct {
	InvoiceID      string
	Amount         decimal.Decimal
	Method         domain.PaymentMethod
	PaymentDate    time.Time
	TransactionRef string
	RecordedBy     int64
}

// PaymentService is the single authoritative entry point for applying money
// to an invoice. Manual operator entry and PDC clearing both funnel through
// it; nothing else writes paid/balance amounts.
type PaymentService struct {
	db        *sql.DB
	invoices  *repository.InvoiceRepository
	payments  *repository.PaymentRepository
	sequences *repository.SequenceRepository
	receipts  ReceiptStore
	notifier  Notifier
	clock     Clock
}

func NewPaymentService(db *sql.DB, invoices *repository.InvoiceRepository, payments *repository.PaymentRepository, sequences *repository.SequenceRepository, receipts ReceiptStore, notifier Notifier, clock Clock) *PaymentService {
	return &PaymentService{
		db:        db,
		invoices:  invoices,
		payments:  payments,
		sequences: sequences,
		receipts:  receipts,
		notifier:  notifier,
		clock:     clock,
	}
}

// Record applies a payment in a single transaction: the payment row is
// inserted and the invoice's paid/balance/status are updated together.
func (s *PaymentService) Record(ctx context.Context, in RecordPaymentInput) (domain.Payment, domain.Invoice, error) {
	var (
		payment domain.Payment
		invoice domain.Invoice
	)

	err := repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		payment, invoice, err = s.recordInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	s.notifyRecorded(ctx, payment, invoice)
	return payment, invoice, nil
}

// RecordInTx applies a payment inside an existing transaction. Used by the
// PDC lifecycle so a cheque clearing and its payment commit atomically.
func (s *PaymentService) RecordInTx(ctx context.Context, tx *sql.Tx, in RecordPaymentInput) (domain.Payment, domain.Invoice, error) {
	return s.recordInTx(ctx, tx, in)
}

func (s *PaymentService) recordInTx(ctx context.Context, tx *sql.Tx, in RecordPaymentInput) (domain.Payment, domain.Invoice, error) {
	now := s.clock.Now()

	inv, err := s.invoices.WithTx(tx).GetByID(ctx, in.InvoiceID)
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	updated, err := inv.ApplyPayment(in.Amount, now)
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	number, err := s.sequences.WithTx(tx).NextReference(ctx, repository.SequenceKindPayment, now.Year())
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	date := in.PaymentDate
	if date.IsZero() {
		date = now
	}

	payment, err := domain.NewPayment(
		uuid.NewString(), number, inv.ID, inv.TenantID,
		in.Amount, in.Method, date, in.TransactionRef, in.RecordedBy,
	)
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	if err := s.payments.WithTx(tx).Insert(ctx, payment); err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}
	if err := s.invoices.WithTx(tx).Update(ctx, updated); err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}
	updated.Version++

	return payment, updated, nil
}

func (s *PaymentService) notifyRecorded(ctx context.Context, p domain.Payment, inv domain.Invoice) {
	s.notifier.Notify(ctx, EventPaymentRecorded, map[string]any{
		"payment_id": p.ID,
		"number":     p.Number,
		"invoice_id": inv.ID,
		"amount":     p.Amount.StringFixed(2),
		"balance":    inv.BalanceAmount.StringFixed(2),
	})
	if inv.Status == domain.InvoiceStatusPaid {
		s.notifier.Notify(ctx, EventInvoicePaid, map[string]any{
			"invoice_id": inv.ID,
			"number":     inv.Number,
		})
	}
}

func (s *PaymentService) Get(ctx context.Context, id string) (domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// AttachReceipt uploads a receipt document and stores the object key on the
// payment. The financial fields stay untouched.
func (s *PaymentService) AttachReceipt(ctx context.Context, paymentID, fileName string, data []byte) (string, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return "", err
	}

	key, err := s.receipts.Save(ctx, fmt.Sprintf("receipts/payments/%s_%s", p.Number, fileName), data)
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	if err := s.payments.SetReceiptPath(ctx, p.ID, key); err != nil {
		return "", err
	}
	return s.receipts.URL(ctx, key)
}
