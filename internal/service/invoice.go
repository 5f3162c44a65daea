package service

import (
	"context"
	"time"

	"propledger/internal/domain"
	"propledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInvoiceInput carries the validated charge components for a new
// invoice. Totals are always derived, never accepted from the caller.
type CreateInvoiceInput struct {
	TenantID          string
	UnitID            string
	PropertyID        string
	InvoiceDate       time.Time
	DueDate           time.Time
	BaseRent          decimal.Decimal
	ServiceCharges    decimal.Decimal
	ParkingFees       decimal.Decimal
	AdditionalCharges []domain.Charge
}

type InvoiceService struct {
	invoices  *repository.InvoiceRepository
	payments  *repository.PaymentRepository
	sequences *repository.SequenceRepository
	notifier  Notifier
	clock     Clock
}

func NewInvoiceService(invoices *repository.InvoiceRepository, payments *repository.PaymentRepository, sequences *repository.SequenceRepository, notifier Notifier, clock Clock) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		payments:  payments,
		sequences: sequences,
		notifier:  notifier,
		clock:     clock,
	}
}

func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (domain.Invoice, error) {
	if in.TenantID == "" {
		return domain.Invoice{}, &domain.ValidationError{Field: "tenant_id", Message: "tenant_id is required"}
	}
	if in.DueDate.Before(in.InvoiceDate) {
		return domain.Invoice{}, &domain.ValidationError{Field: "due_date", Message: "due_date must not precede invoice_date"}
	}
	for _, pair := range []struct {
		field  string
		amount decimal.Decimal
	}{
		{"base_rent", in.BaseRent},
		{"service_charges", in.ServiceCharges},
		{"parking_fees", in.ParkingFees},
	} {
		if err := domain.ValidateAmount(pair.field, pair.amount); err != nil {
			return domain.Invoice{}, err
		}
	}
	for _, c := range in.AdditionalCharges {
		if c.Name == "" {
			return domain.Invoice{}, &domain.ValidationError{Field: "additional_charges", Message: "charge name is required"}
		}
		if err := domain.ValidateAmount("additional_charges", c.Amount); err != nil {
			return domain.Invoice{}, err
		}
	}

	number, err := s.sequences.NextReference(ctx, repository.SequenceKindInvoice, in.InvoiceDate.Year())
	if err != nil {
		return domain.Invoice{}, err
	}

	inv := domain.Invoice{
		ID:                uuid.NewString(),
		Number:            number,
		TenantID:          in.TenantID,
		UnitID:            in.UnitID,
		PropertyID:        in.PropertyID,
		InvoiceDate:       in.InvoiceDate,
		DueDate:           in.DueDate,
		BaseRent:          domain.RoundMoney(in.BaseRent),
		ServiceCharges:    domain.RoundMoney(in.ServiceCharges),
		ParkingFees:       domain.RoundMoney(in.ParkingFees),
		AdditionalCharges: in.AdditionalCharges,
		LateFee:           decimal.Zero,
		PaidAmount:        decimal.Zero,
		Status:            domain.InvoiceStatusDraft,
		Version:           1,
	}
	inv = inv.CalculateTotals()

	if err := s.invoices.Insert(ctx, inv); err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (domain.Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context, f repository.InvoicesFilter) ([]domain.Invoice, error) {
	return s.invoices.List(ctx, f)
}

func (s *InvoiceService) ListPayments(ctx context.Context, invoiceID string) ([]domain.Payment, error) {
	if _, err := s.invoices.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.payments.ListByInvoice(ctx, invoiceID)
}

func (s *InvoiceService) Send(ctx context.Context, id string) (domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	inv, err = inv.MarkSent(s.clock.Now())
	if err != nil {
		return domain.Invoice{}, err
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return domain.Invoice{}, err
	}
	inv.Version++

	s.notifier.Notify(ctx, EventInvoiceSent, map[string]any{
		"invoice_id": inv.ID,
		"number":     inv.Number,
		"tenant_id":  inv.TenantID,
	})
	return inv, nil
}

func (s *InvoiceService) Cancel(ctx context.Context, id string) (domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	inv, err = inv.Cancel()
	if err != nil {
		return domain.Invoice{}, err
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return domain.Invoice{}, err
	}
	inv.Version++
	return inv, nil
}

func (s *InvoiceService) ApplyLateFee(ctx context.Context, id string, fee decimal.Decimal) (domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	inv, err = inv.ApplyLateFee(fee)
	if err != nil {
		return domain.Invoice{}, err
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return domain.Invoice{}, err
	}
	inv.Version++
	return inv, nil
}

// MarkOverdue flips one invoice past its due date. The sweep calls this for
// every candidate; it is also exposed for manual operator use.
func (s *InvoiceService) MarkOverdue(ctx context.Context, id string) (domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	before := inv.Status
	inv, err = inv.MarkOverdue(s.clock.Now())
	if err != nil {
		return domain.Invoice{}, err
	}
	if inv.Status == before {
		// idempotent no-op, nothing to persist
		return inv, nil
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return domain.Invoice{}, err
	}
	inv.Version++

	s.notifier.Notify(ctx, EventInvoiceOverdue, map[string]any{
		"invoice_id": inv.ID,
		"number":     inv.Number,
		"balance":    inv.BalanceAmount.StringFixed(2),
	})
	return inv, nil
}

// OverdueCandidates lists invoices the sweep should try to flip.
func (s *InvoiceService) OverdueCandidates(ctx context.Context) ([]domain.Invoice, error) {
	return s.invoices.ListOverdueCandidates(ctx, s.clock.Now())
}
