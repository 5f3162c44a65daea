package service

import (
	"context"
	"time"
)

// Clock is injected everywhere the ledger needs the current time, so guard
// behavior (due windows, overdue detection) is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Notifier is the fire-and-forget notification sink. Implementations must
// never block the caller and their failures are never surfaced as ledger
// failures.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]any)
}

// ReceiptStore holds uploaded receipt documents. Entities keep only the
// opaque object key it returns.
type ReceiptStore interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

// Ledger event types pushed through the Notifier.
const (
	EventInvoiceSent     = "invoice.sent"
	EventInvoiceOverdue  = "invoice.overdue"
	EventInvoicePaid     = "invoice.paid"
	EventPaymentRecorded = "payment.recorded"
	EventPDCDue          = "pdc.due"
	EventPDCCleared      = "pdc.cleared"
	EventPDCBounced      = "pdc.bounced"
	EventRefundApproved  = "refund.approved"
	EventRefundProcessed = "refund.processed"
)
