package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("entity not found")

// ErrLateFeeApplied is returned when a late fee is applied a second time.
var ErrLateFeeApplied = errors.New("late fee already applied")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidTransitionError reports a guard violation: the entity's current
// state does not permit the attempted action. It carries enough context for
// the operator to understand why the action is unavailable.
type InvalidTransitionError struct {
	Entity    string
	ID        string
	FromState string
	Action    string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: cannot %s from state %s: %s", e.Entity, e.ID, e.Action, e.FromState, e.Reason)
	}
	return fmt.Sprintf("%s %s: cannot %s from state %s", e.Entity, e.ID, e.Action, e.FromState)
}

// OverpaymentError rejects a payment amount that exceeds the invoice balance.
type OverpaymentError struct {
	InvoiceID string
	Amount    string
	Balance   string
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("invoice %s: payment %s exceeds outstanding balance %s", e.InvoiceID, e.Amount, e.Balance)
}

// ConcurrentModificationError is raised when an optimistic-lock update
// touches zero rows because the version moved underneath the caller.
type ConcurrentModificationError struct {
	Entity string
	ID     string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently, reload and retry", e.Entity, e.ID)
}
