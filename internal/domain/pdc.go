package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PDCStatus string

const (
	PDCStatusReceived  PDCStatus = "RECEIVED"
	PDCStatusOnHold    PDCStatus = "ON_HOLD"
	PDCStatusDue       PDCStatus = "DUE"
	PDCStatusDeposited PDCStatus = "DEPOSITED"
	PDCStatusCleared   PDCStatus = "CLEARED"
	PDCStatusBounced   PDCStatus = "BOUNCED"
	PDCStatusReplaced  PDCStatus = "REPLACED"
	PDCStatusWithdrawn PDCStatus = "WITHDRAWN"
	PDCStatusCancelled PDCStatus = "CANCELLED"
)

// DueWindowDays is the default look-ahead for promoting a received cheque to
// DUE: the cheque date must fall within [today, today+window].
const DueWindowDays = 7

// MaxReplacementChainHops bounds the walk when checking a replacement chain
// for cycles. A legitimate chain never gets anywhere near this long.
const MaxReplacementChainHops = 50

// PDC is a post-dated cheque held against a tenant. A bounced cheque may be
// replaced by a new one; the ReplacementPDCID / OriginalPDCID pair forms a
// simple path, never a cycle. Each PDC has at most one outbound replacement
// edge and one inbound original edge.
type PDC struct {
	ID           string
	ChequeNumber string
	BankName     string
	TenantID     string
	InvoiceID    *string
	LeaseID      *string

	Amount     decimal.Decimal
	ChequeDate time.Time

	DepositDate    *time.Time
	ClearedDate    *time.Time
	BouncedDate    *time.Time
	WithdrawalDate *time.Time

	Status           PDCStatus
	BounceReason     string
	WithdrawalReason string
	HoldReason       string

	ReplacementPDCID *string
	OriginalPDCID    *string

	DepositBankAccountID *string
	RecordedBy           int64

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

func (p PDC) IsTerminal() bool {
	switch p.Status {
	case PDCStatusCleared, PDCStatusCancelled, PDCStatusReplaced, PDCStatusWithdrawn:
		return true
	}
	return false
}

// InDueWindow reports whether the cheque date falls within the deposit
// window starting at today. Dates are compared at day granularity.
func (p PDC) InDueWindow(today time.Time, windowDays int) bool {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	cheque := day(p.ChequeDate)
	start := day(today)
	end := start.AddDate(0, 0, windowDays)
	return !cheque.Before(start) && !cheque.After(end)
}

// TransitionToDue promotes a received cheque whose value date has entered
// the deposit window. Invoked by the scheduled sweep.
func (p PDC) TransitionToDue(today time.Time, windowDays int) (PDC, error) {
	if p.Status != PDCStatusReceived {
		return p, p.transitionErr("transition to due", "")
	}
	if !p.InDueWindow(today, windowDays) {
		return p, p.transitionErr("transition to due", "cheque date is outside the due window")
	}
	p.Status = PDCStatusDue
	return p, nil
}

func (p PDC) Deposit(date time.Time, bankAccountID string) (PDC, error) {
	if p.Status != PDCStatusDue {
		return p, p.transitionErr("deposit", "")
	}
	if strings.TrimSpace(bankAccountID) == "" {
		return p, &ValidationError{Field: "bank_account_id", Message: "bank_account_id is required"}
	}
	p.Status = PDCStatusDeposited
	p.DepositDate = &date
	p.DepositBankAccountID = &bankAccountID
	return p, nil
}

// Clear marks a deposited cheque as honoured by the bank. The caller is
// responsible for recording the payment against the linked invoice in the
// same transaction.
func (p PDC) Clear(date time.Time) (PDC, error) {
	if p.Status != PDCStatusDeposited {
		return p, p.transitionErr("clear", "")
	}
	p.Status = PDCStatusCleared
	p.ClearedDate = &date
	return p, nil
}

func (p PDC) Bounce(date time.Time, reason string) (PDC, error) {
	if p.Status != PDCStatusDeposited {
		return p, p.transitionErr("bounce", "")
	}
	if strings.TrimSpace(reason) == "" {
		return p, &ValidationError{Field: "reason", Message: "bounce reason is required"}
	}
	p.Status = PDCStatusBounced
	p.BouncedDate = &date
	p.BounceReason = reason
	return p, nil
}

// MarkAsReplaced links a bounced cheque to its replacement. The service
// walks the chain beforehand to guarantee the new cheque is not an ancestor.
func (p PDC) MarkAsReplaced(replacementID string) (PDC, error) {
	if p.Status != PDCStatusBounced {
		return p, p.transitionErr("replace", "only a bounced cheque can be replaced")
	}
	if replacementID == "" || replacementID == p.ID {
		return p, &ValidationError{Field: "replacement_pdc_id", Message: "replacement must be a different cheque"}
	}
	if p.ReplacementPDCID != nil {
		return p, p.transitionErr("replace", "cheque already has a replacement")
	}
	p.Status = PDCStatusReplaced
	p.ReplacementPDCID = &replacementID
	return p, nil
}

func (p PDC) Withdraw(date time.Time, reason string) (PDC, error) {
	if p.Status != PDCStatusReceived && p.Status != PDCStatusDue {
		return p, p.transitionErr("withdraw", "")
	}
	if strings.TrimSpace(reason) == "" {
		return p, &ValidationError{Field: "reason", Message: "withdrawal reason is required"}
	}
	p.Status = PDCStatusWithdrawn
	p.WithdrawalDate = &date
	p.WithdrawalReason = reason
	return p, nil
}

func (p PDC) Cancel() (PDC, error) {
	if p.Status != PDCStatusReceived {
		return p, p.transitionErr("cancel", "")
	}
	p.Status = PDCStatusCancelled
	return p, nil
}

// Hold suspends a received cheque pending operator review, for example a
// disputed amount or a stop-payment request from the tenant.
func (p PDC) Hold(reason string) (PDC, error) {
	if p.Status != PDCStatusReceived {
		return p, p.transitionErr("hold", "")
	}
	if strings.TrimSpace(reason) == "" {
		return p, &ValidationError{Field: "reason", Message: "hold reason is required"}
	}
	p.Status = PDCStatusOnHold
	p.HoldReason = reason
	return p, nil
}

func (p PDC) Release() (PDC, error) {
	if p.Status != PDCStatusOnHold {
		return p, p.transitionErr("release", "")
	}
	p.Status = PDCStatusReceived
	p.HoldReason = ""
	return p, nil
}

func (p PDC) transitionErr(action, reason string) error {
	return &InvalidTransitionError{
		Entity:    "pdc",
		ID:        p.ID,
		FromState: string(p.Status),
		Action:    action,
		Reason:    reason,
	}
}
