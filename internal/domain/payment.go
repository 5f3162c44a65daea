package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodCard         PaymentMethod = "CARD"
)

// Payment is an immutable ledger entry: money applied to exactly one
// invoice. Rows are append-only: there is no update or delete path for a
// payment anywhere in the service.
type Payment struct {
	ID             string
	Number         string
	InvoiceID      string
	TenantID       string
	Amount         decimal.Decimal
	Method         PaymentMethod
	PaymentDate    time.Time
	TransactionRef string
	ReceiptPath    string
	RecordedBy     int64
	CreatedAt      time.Time
}

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodCard:
		return true
	}
	return false
}

// NewPayment validates inputs and builds the payment row. The invoice-side
// bookkeeping happens in Invoice.ApplyPayment; both are persisted in one
// transaction by the service.
func NewPayment(id, number, invoiceID, tenantID string, amount decimal.Decimal, method PaymentMethod, date time.Time, txnRef string, recordedBy int64) (Payment, error) {
	if err := ValidatePositiveAmount("amount", amount); err != nil {
		return Payment{}, err
	}
	if !ValidPaymentMethod(method) {
		return Payment{}, &ValidationError{Field: "method", Message: "unknown payment method"}
	}
	if strings.TrimSpace(invoiceID) == "" {
		return Payment{}, &ValidationError{Field: "invoice_id", Message: "invoice_id is required"}
	}
	return Payment{
		ID:             id,
		Number:         number,
		InvoiceID:      invoiceID,
		TenantID:       tenantID,
		Amount:         RoundMoney(amount),
		Method:         method,
		PaymentDate:    date,
		TransactionRef: txnRef,
		RecordedBy:     recordedBy,
	}, nil
}
