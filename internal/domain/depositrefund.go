package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusCalculated RefundStatus = "CALCULATED"
	RefundStatusApproved   RefundStatus = "APPROVED"
	RefundStatusProcessed  RefundStatus = "PROCESSED"
)

type RefundMethod string

const (
	RefundMethodBankTransfer RefundMethod = "BANK_TRANSFER"
	RefundMethodCheque       RefundMethod = "CHEQUE"
	RefundMethodCash         RefundMethod = "CASH"
)

type DeductionType string

const (
	DeductionTypeDamage     DeductionType = "DAMAGE"
	DeductionTypeUnpaidRent DeductionType = "UNPAID_RENT"
	DeductionTypeCleaning   DeductionType = "CLEANING"
	DeductionTypeUtilities  DeductionType = "UTILITIES"
	DeductionTypeOther      DeductionType = "OTHER"
)

// Deduction is one itemized line withheld from a deposit at checkout.
type Deduction struct {
	Type        DeductionType   `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	InvoiceID   *string         `json:"invoice_id,omitempty"`
}

// DepositRefund is the settlement computed when a tenancy ends: the deposit
// minus itemized deductions. Exactly one of NetRefund and AmountOwedByTenant
// is non-zero, by construction in CalculateRefund.
type DepositRefund struct {
	ID         string
	Number     string
	CheckoutID string

	OriginalDeposit    decimal.Decimal
	Deductions         []Deduction
	TotalDeductions    decimal.Decimal
	NetRefund          decimal.Decimal
	AmountOwedByTenant decimal.Decimal

	Method RefundMethod

	BankName      string
	AccountHolder string
	IBAN          string
	ChequeNumber  string

	Status RefundStatus

	ApprovedAt  *time.Time
	ApprovedBy  *int64
	ProcessedAt *time.Time

	TransactionID string
	ReceiptPath   string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// CalculateRefund derives the settlement amounts. Pure: negative line items
// are rejected, deductions beyond the deposit become an amount owed by the
// tenant rather than a negative refund.
func CalculateRefund(originalDeposit decimal.Decimal, deductions []Deduction) (total, netRefund, amountOwed decimal.Decimal, err error) {
	if e := ValidateAmount("original_deposit", originalDeposit); e != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, e
	}
	total = decimal.Zero
	for _, d := range deductions {
		if d.Amount.IsNegative() {
			return decimal.Zero, decimal.Zero, decimal.Zero,
				&ValidationError{Field: "deductions", Message: "deduction amounts must not be negative"}
		}
		total = total.Add(d.Amount)
	}
	total = RoundMoney(total)
	deposit := RoundMoney(originalDeposit)

	netRefund = deposit.Sub(total)
	if netRefund.IsNegative() {
		netRefund = decimal.Zero
	}
	amountOwed = total.Sub(deposit)
	if amountOwed.IsNegative() {
		amountOwed = decimal.Zero
	}
	return total, netRefund, amountOwed, nil
}

// RequiresApproval reports whether the refund exceeds the configured
// approval threshold and needs a manager sign-off before processing.
func (r DepositRefund) RequiresApproval(threshold decimal.Decimal) bool {
	return r.NetRefund.GreaterThan(threshold)
}

// CanBeProcessed checks that payout details are complete and the workflow
// has reached a payable state.
func (r DepositRefund) CanBeProcessed(threshold decimal.Decimal) bool {
	switch r.Method {
	case RefundMethodBankTransfer:
		if strings.TrimSpace(r.BankName) == "" ||
			strings.TrimSpace(r.AccountHolder) == "" ||
			strings.TrimSpace(r.IBAN) == "" {
			return false
		}
	case RefundMethodCheque, RefundMethodCash:
	default:
		return false
	}

	if r.Status == RefundStatusApproved {
		return true
	}
	return r.Status == RefundStatusCalculated && !r.RequiresApproval(threshold)
}

func (r DepositRefund) Approve(approver int64, now time.Time) (DepositRefund, error) {
	if r.Status != RefundStatusCalculated {
		return r, r.transitionErr("approve", "")
	}
	r.Status = RefundStatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = &approver
	return r, nil
}

func (r DepositRefund) MarkProcessed(transactionID string, now time.Time, threshold decimal.Decimal) (DepositRefund, error) {
	if r.Status == RefundStatusProcessed {
		return r, r.transitionErr("process", "refund already processed")
	}
	if !r.CanBeProcessed(threshold) {
		return r, r.transitionErr("process", "refund is not ready for processing")
	}
	r.Status = RefundStatusProcessed
	r.ProcessedAt = &now
	r.TransactionID = transactionID
	return r, nil
}

func (r DepositRefund) transitionErr(action, reason string) error {
	return &InvalidTransitionError{
		Entity:    "deposit_refund",
		ID:        r.ID,
		FromState: string(r.Status),
		Action:    action,
		Reason:    reason,
	}
}
