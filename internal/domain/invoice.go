package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// Charge is a named additional charge line on an invoice.
type Charge struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Invoice is a billing document for one tenant/unit/period. Transition
// methods take a value receiver and return the updated invoice, so a failed
// guard never leaves a half-mutated entity behind; persistence is a separate
// step owned by the service layer.
type Invoice struct {
	ID         string
	Number     string
	TenantID   string
	UnitID     string
	PropertyID string

	InvoiceDate time.Time
	DueDate     time.Time

	BaseRent          decimal.Decimal
	ServiceCharges    decimal.Decimal
	ParkingFees       decimal.Decimal
	AdditionalCharges []Charge
	LateFee           decimal.Decimal
	LateFeeApplied    bool

	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	BalanceAmount decimal.Decimal

	Status InvoiceStatus

	SentAt *time.Time
	PaidAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// IsTerminal reports whether no further transitions are possible.
func (i Invoice) IsTerminal() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled
}

// IsReceivable reports whether payments may be applied in the current state.
func (i Invoice) IsReceivable() bool {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// CalculateTotals recomputes total and balance from the component amounts.
// Totals are never hand-set: every charge mutation goes through this before
// the invoice is persisted. Idempotent.
func (i Invoice) CalculateTotals() Invoice {
	total := i.BaseRent.Add(i.ServiceCharges).Add(i.ParkingFees)
	for _, c := range i.AdditionalCharges {
		total = total.Add(c.Amount)
	}
	total = total.Add(i.LateFee)

	i.TotalAmount = RoundMoney(total)
	i.BalanceAmount = RoundMoney(i.TotalAmount.Sub(i.PaidAmount))
	return i
}

func (i Invoice) MarkSent(now time.Time) (Invoice, error) {
	if i.Status != InvoiceStatusDraft {
		return i, i.transitionErr("send", "")
	}
	i.Status = InvoiceStatusSent
	i.SentAt = &now
	return i, nil
}

// MarkOverdue is called by the scheduled sweep. It is a no-op for invoices
// already overdue or in a terminal state, so re-running the sweep is safe.
func (i Invoice) MarkOverdue(now time.Time) (Invoice, error) {
	if i.Status == InvoiceStatusOverdue || i.IsTerminal() {
		return i, nil
	}
	if i.Status != InvoiceStatusSent && i.Status != InvoiceStatusPartiallyPaid {
		return i, i.transitionErr("mark overdue", "")
	}
	if !now.After(i.DueDate) {
		return i, i.transitionErr("mark overdue", "due date has not passed")
	}
	i.Status = InvoiceStatusOverdue
	return i, nil
}

// ApplyLateFee sets the late fee at most once, on overdue invoices only.
func (i Invoice) ApplyLateFee(fee decimal.Decimal) (Invoice, error) {
	if i.Status != InvoiceStatusOverdue {
		return i, i.transitionErr("apply late fee", "invoice is not overdue")
	}
	if i.LateFeeApplied {
		return i, ErrLateFeeApplied
	}
	if err := ValidatePositiveAmount("late_fee", fee); err != nil {
		return i, err
	}
	i.LateFee = RoundMoney(fee)
	i.LateFeeApplied = true
	return i.CalculateTotals(), nil
}

// Cancel is allowed for drafts and for sent invoices with no money applied.
func (i Invoice) Cancel() (Invoice, error) {
	switch {
	case i.Status == InvoiceStatusDraft:
	case i.Status == InvoiceStatusSent && i.PaidAmount.IsZero():
	default:
		return i, i.transitionErr("cancel", "invoice has payments or is not cancellable")
	}
	i.Status = InvoiceStatusCancelled
	return i, nil
}

// ApplyPayment increases the paid amount and derives the resulting status.
// The amount must not exceed the outstanding balance; payments are
// append-only, so an overpayment cannot be corrected afterwards.
func (i Invoice) ApplyPayment(amount decimal.Decimal, now time.Time) (Invoice, error) {
	if err := ValidatePositiveAmount("amount", amount); err != nil {
		return i, err
	}
	if !i.IsReceivable() {
		return i, i.transitionErr("record payment", "invoice is not receivable")
	}

	amount = RoundMoney(amount)
	if amount.GreaterThan(i.BalanceAmount) {
		return i, &OverpaymentError{
			InvoiceID: i.ID,
			Amount:    amount.StringFixed(2),
			Balance:   i.BalanceAmount.StringFixed(2),
		}
	}

	i.PaidAmount = RoundMoney(i.PaidAmount.Add(amount))
	i = i.CalculateTotals()

	if i.BalanceAmount.IsZero() {
		i.Status = InvoiceStatusPaid
		i.PaidAt = &now
	} else {
		i.Status = InvoiceStatusPartiallyPaid
	}
	return i, nil
}

func (i Invoice) transitionErr(action, reason string) error {
	return &InvalidTransitionError{
		Entity:    "invoice",
		ID:        i.ID,
		FromState: string(i.Status),
		Action:    action,
		Reason:    reason,
	}
}
