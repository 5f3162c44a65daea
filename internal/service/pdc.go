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

type RegisterPDCInput struct {
	ChequeNumber string
	BankName     string
	TenantID     string
	InvoiceID    *string
	LeaseID      *string
	Amount       decimal.Decimal
	ChequeDate   time.Time
	RecordedBy   int64
}

// PDCService owns the post-dated cheque lifecycle, including the replacement
// chain. Clearing a cheque is the one cross-entity mutation in the ledger:
// the PDC update and the payment recording share a transaction.
type PDCService struct {
	db         *sql.DB
	pdcs       *repository.PDCRepository
	payments   *PaymentService
	notifier   Notifier
	clock      Clock
	windowDays int
}

func NewPDCService(db *sql.DB, pdcs *repository.PDCRepository, payments *PaymentService, notifier Notifier, clock Clock, windowDays int) *PDCService {
	if windowDays <= 0 {
		windowDays = domain.DueWindowDays
	}
	return &PDCService{
		db:         db,
		pdcs:       pdcs,
		payments:   payments,
		notifier:   notifier,
		clock:      clock,
		windowDays: windowDays,
	}
}

func (s *PDCService) Register(ctx context.Context, in RegisterPDCInput) (domain.PDC, error) {
	p, err := s.buildPDC(in, nil)
	if err != nil {
		return domain.PDC{}, err
	}

	exists, err := s.pdcs.ExistsChequeForTenant(ctx, p.ChequeNumber, p.TenantID)
	if err != nil {
		return domain.PDC{}, err
	}
	if exists {
		return domain.PDC{}, &domain.ValidationError{
			Field:   "cheque_number",
			Message: fmt.Sprintf("cheque %s already registered for tenant %s", p.ChequeNumber, p.TenantID),
		}
	}

	if err := s.pdcs.Insert(ctx, p); err != nil {
		return domain.PDC{}, err
	}
	return p, nil
}

func (s *PDCService) buildPDC(in RegisterPDCInput, originalID *string) (domain.PDC, error) {
	if in.ChequeNumber == "" {
		return domain.PDC{}, &domain.ValidationError{Field: "cheque_number", Message: "cheque_number is required"}
	}
	if in.TenantID == "" {
		return domain.PDC{}, &domain.ValidationError{Field: "tenant_id", Message: "tenant_id is required"}
	}
	if in.BankName == "" {
		return domain.PDC{}, &domain.ValidationError{Field: "bank_name", Message: "bank_name is required"}
	}
	if err := domain.ValidatePositiveAmount("amount", in.Amount); err != nil {
		return domain.PDC{}, err
	}
	if in.ChequeDate.IsZero() {
		return domain.PDC{}, &domain.ValidationError{Field: "cheque_date", Message: "cheque_date is required"}
	}

	return domain.PDC{
		ID:            uuid.NewString(),
		ChequeNumber:  in.ChequeNumber,
		BankName:      in.BankName,
		TenantID:      in.TenantID,
		InvoiceID:     in.InvoiceID,
		LeaseID:       in.LeaseID,
		Amount:        domain.RoundMoney(in.Amount),
		ChequeDate:    in.ChequeDate,
		Status:        domain.PDCStatusReceived,
		OriginalPDCID: originalID,
		RecordedBy:    in.RecordedBy,
		Version:       1,
	}, nil
}

func (s *PDCService) Get(ctx context.Context, id string) (domain.PDC, error) {
	return s.pdcs.GetByID(ctx, id)
}

func (s *PDCService) List(ctx context.Context, f repository.PDCsFilter) ([]domain.PDC, error) {
	return s.pdcs.List(ctx, f)
}

// TransitionToDue promotes a received cheque whose value date entered the
// deposit window. Called per cheque by the sweep.
func (s *PDCService) TransitionToDue(ctx context.Context, id string) (domain.PDC, error) {
	p, err := s.pdcs.GetByID(ctx, id)
	if err != nil {
		return domain.PDC{}, err
	}

	p, err = p.TransitionToDue(s.clock.Now(), s.windowDays)
	if err != nil {
		return domain.PDC{}, err
	}
	if err := s.pdcs.Update(ctx, p); err != nil {
		return domain.PDC{}, err
	}
	p.Version++

	s.notifier.Notify(ctx, EventPDCDue, map[string]any{
		"pdc_id":        p.ID,
		"cheque_number": p.ChequeNumber,
		"cheque_date":   p.ChequeDate.Format("2006-01-02"),
	})
	return p, nil
}

func (s *PDCService) Deposit(ctx context.Context, id string, date time.Time, bankAccountID string) (domain.PDC, error) {
	return s.mutate(ctx, id, func(p domain.PDC) (domain.PDC, error) {
		if date.IsZero() {
			date = s.clock.Now()
		}
		return p.Deposit(date, bankAccountID)
	})
}

// Clear marks the cheque honoured and, when the cheque is linked to an
// invoice, records the payment in the same transaction. Both writes commit
// or neither does.
func (s *PDCService) Clear(ctx context.Context, id string, date time.Time, recordedBy int64) (domain.PDC, error) {
	p, err := s.pdcs.GetByID(ctx, id)
	if err != nil {
		return domain.PDC{}, err
	}

	if date.IsZero() {
		date = s.clock.Now()
	}
	cleared, err := p.Clear(date)
	if err != nil {
		return domain.PDC{}, err
	}

	var invoice *domain.Invoice
	err = repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.pdcs.WithTx(tx).Update(ctx, cleared); err != nil {
			return err
		}
		if cleared.InvoiceID != nil {
			_, inv, err := s.payments.RecordInTx(ctx, tx, RecordPaymentInput{
				InvoiceID:      *cleared.InvoiceID,
				Amount:         cleared.Amount,
				Method:         domain.PaymentMethodCheque,
				PaymentDate:    date,
				TransactionRef: fmt.Sprintf("PDC %s / %s", cleared.ChequeNumber, cleared.BankName),
				RecordedBy:     recordedBy,
			})
			if err != nil {
				return err
			}
			invoice = &inv
		}
		return nil
	})
	if err != nil {
		return domain.PDC{}, err
	}
	cleared.Version++

	payload := map[string]any{
		"pdc_id":        cleared.ID,
		"cheque_number": cleared.ChequeNumber,
		"amount":        cleared.Amount.StringFixed(2),
	}
	if invoice != nil {
		payload["invoice_id"] = invoice.ID
		payload["invoice_status"] = string(invoice.Status)
	}
	s.notifier.Notify(ctx, EventPDCCleared, payload)
	if invoice != nil && invoice.Status == domain.InvoiceStatusPaid {
		s.notifier.Notify(ctx, EventInvoicePaid, map[string]any{
			"invoice_id": invoice.ID,
			"number":     invoice.Number,
		})
	}
	return cleared, nil
}

func (s *PDCService) Bounce(ctx context.Context, id string, date time.Time, reason string) (domain.PDC, error) {
	p, err := s.mutate(ctx, id, func(p domain.PDC) (domain.PDC, error) {
		if date.IsZero() {
			date = s.clock.Now()
		}
		return p.Bounce(date, reason)
	})
	if err != nil {
		return domain.PDC{}, err
	}

	s.notifier.Notify(ctx, EventPDCBounced, map[string]any{
		"pdc_id":        p.ID,
		"cheque_number": p.ChequeNumber,
		"reason":        p.BounceReason,
	})
	return p, nil
}

func (s *PDCService) Withdraw(ctx context.Context, id string, date time.Time, reason string) (domain.PDC, error) {
	return s.mutate(ctx, id, func(p domain.PDC) (domain.PDC, error) {
		if date.IsZero() {
			date = s.clock.Now()
		}
		return p.Withdraw(date, reason)
	})
}

func (s *PDCService) Cancel(ctx context.Context, id string) (domain.PDC, error) {
	return s.mutate(ctx, id, domain.PDC.Cancel)
}

func (s *PDCService) Hold(ctx context.Context, id, reason string) (domain.PDC, error) {
	return s.mutate(ctx, id, func(p domain.PDC) (domain.PDC, error) {
		return p.Hold(reason)
	})
}

func (s *PDCService) Release(ctx context.Context, id string) (domain.PDC, error) {
	return s.mutate(ctx, id, domain.PDC.Release)
}

// Replace registers a fresh cheque as the replacement of a bounced one.
// The original gets its outbound replacement edge, the new cheque its
// inbound original edge, both in one transaction. The chain is checked for
// cycles before anything is written.
func (s *PDCService) Replace(ctx context.Context, originalID string, in RegisterPDCInput) (original, replacement domain.PDC, err error) {
	orig, err := s.pdcs.GetByID(ctx, originalID)
	if err != nil {
		return domain.PDC{}, domain.PDC{}, err
	}

	if err := s.checkChain(ctx, orig); err != nil {
		return domain.PDC{}, domain.PDC{}, err
	}

	if in.TenantID == "" {
		in.TenantID = orig.TenantID
	}
	if in.InvoiceID == nil {
		in.InvoiceID = orig.InvoiceID
	}
	if in.LeaseID == nil {
		in.LeaseID = orig.LeaseID
	}

	newPDC, err := s.buildPDC(in, &orig.ID)
	if err != nil {
		return domain.PDC{}, domain.PDC{}, err
	}

	exists, err := s.pdcs.ExistsChequeForTenant(ctx, newPDC.ChequeNumber, newPDC.TenantID)
	if err != nil {
		return domain.PDC{}, domain.PDC{}, err
	}
	if exists {
		return domain.PDC{}, domain.PDC{}, &domain.ValidationError{
			Field:   "cheque_number",
			Message: fmt.Sprintf("cheque %s already registered for tenant %s", newPDC.ChequeNumber, newPDC.TenantID),
		}
	}

	replaced, err := orig.MarkAsReplaced(newPDC.ID)
	if err != nil {
		return domain.PDC{}, domain.PDC{}, err
	}

	err = repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.pdcs.WithTx(tx).Insert(ctx, newPDC); err != nil {
			return err
		}
		return s.pdcs.WithTx(tx).Update(ctx, replaced)
	})
	if err != nil {
		return domain.PDC{}, domain.PDC{}, err
	}
	replaced.Version++

	return replaced, newPDC, nil
}

// Chain returns the full replacement chain containing the given cheque,
// oldest first.
func (s *PDCService) Chain(ctx context.Context, id string) ([]domain.PDC, error) {
	p, err := s.pdcs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// walk back to the head of the chain
	head := p
	for hops := 0; head.OriginalPDCID != nil; hops++ {
		if hops >= domain.MaxReplacementChainHops {
			return nil, fmt.Errorf("replacement chain for pdc %s exceeds %d links", id, domain.MaxReplacementChainHops)
		}
		prev, err := s.pdcs.GetByID(ctx, *head.OriginalPDCID)
		if err != nil {
			return nil, fmt.Errorf("broken replacement chain at %s: %w", *head.OriginalPDCID, err)
		}
		head = prev
	}

	// then forward to the tail
	chain := []domain.PDC{head}
	cur := head
	for hops := 0; cur.ReplacementPDCID != nil; hops++ {
		if hops >= domain.MaxReplacementChainHops {
			return nil, fmt.Errorf("replacement chain for pdc %s exceeds %d links", id, domain.MaxReplacementChainHops)
		}
		next, err := s.pdcs.GetByID(ctx, *cur.ReplacementPDCID)
		if err != nil {
			return nil, fmt.Errorf("broken replacement chain at %s: %w", *cur.ReplacementPDCID, err)
		}
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

// checkChain walks the ancestry of a cheque by repeated lookup and rejects
// chains that are already cyclic or unreasonably long. Walking by id lookup
// instead of in-memory references keeps cycle detection observable and
// bounded.
func (s *PDCService) checkChain(ctx context.Context, p domain.PDC) error {
	seen := map[string]bool{p.ID: true}
	cur := p
	for hops := 0; cur.OriginalPDCID != nil; hops++ {
		if hops >= domain.MaxReplacementChainHops {
			return fmt.Errorf("replacement chain for pdc %s exceeds %d links", p.ID, domain.MaxReplacementChainHops)
		}
		prev, err := s.pdcs.GetByID(ctx, *cur.OriginalPDCID)
		if err != nil {
			return fmt.Errorf("broken replacement chain at %s: %w", *cur.OriginalPDCID, err)
		}
		if seen[prev.ID] {
			return fmt.Errorf("replacement chain for pdc %s contains a cycle at %s", p.ID, prev.ID)
		}
		seen[prev.ID] = true
		cur = prev
	}
	return nil
}

// ReceivedInWindow lists cheques the sweep should try to promote.
func (s *PDCService) ReceivedInWindow(ctx context.Context) ([]domain.PDC, error) {
	return s.pdcs.ListReceivedInWindow(ctx, s.clock.Now(), s.windowDays)
}

func (s *PDCService) mutate(ctx context.Context, id string, fn func(domain.PDC) (domain.PDC, error)) (domain.PDC, error) {
	p, err := s.pdcs.GetByID(ctx, id)
	if err != nil {
		return domain.PDC{}, err
	}
	p, err = fn(p)
	if err != nil {
		return domain.PDC{}, err
	}
	if err := s.pdcs.Update(ctx, p); err != nil {
		return domain.PDC{}, err
	}
	p.Version++
	return p, nil
}
