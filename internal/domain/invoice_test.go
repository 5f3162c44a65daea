package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testInvoice() Invoice {
	inv := Invoice{
		ID:             "inv-1",
		Number:         "INV-2026-0001",
		TenantID:       "tenant-1",
		UnitID:         "unit-1",
		PropertyID:     "prop-1",
		InvoiceDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		BaseRent:       dec("8000"),
		ServiceCharges: dec("1500"),
		ParkingFees:    dec("500"),
		Status:         InvoiceStatusDraft,
	}
	return inv.CalculateTotals()
}

func TestCalculateTotals(t *testing.T) {
	inv := testInvoice()
	inv.AdditionalCharges = []Charge{
		{Name: "water", Amount: dec("120.50")},
		{Name: "chiller", Amount: dec("79.50")},
	}
	inv = inv.CalculateTotals()

	if !inv.TotalAmount.Equal(dec("10200")) {
		t.Fatalf("expected total 10200; got %s", inv.TotalAmount)
	}
	if !inv.BalanceAmount.Equal(dec("10200")) {
		t.Fatalf("expected balance 10200; got %s", inv.BalanceAmount)
	}

	// idempotent: a second call changes nothing
	again := inv.CalculateTotals()
	if !again.TotalAmount.Equal(inv.TotalAmount) || !again.BalanceAmount.Equal(inv.BalanceAmount) {
		t.Fatalf("CalculateTotals is not idempotent: %s/%s vs %s/%s",
			again.TotalAmount, again.BalanceAmount, inv.TotalAmount, inv.BalanceAmount)
	}
}

func TestPartialPaymentsToFullSettlement(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	inv := testInvoice()
	inv, err := inv.MarkSent(now)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	inv, err = inv.ApplyPayment(dec("4000"), now)
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if inv.Status != InvoiceStatusPartiallyPaid {
		t.Fatalf("expected PARTIALLY_PAID; got %s", inv.Status)
	}
	if !inv.BalanceAmount.Equal(dec("6000")) {
		t.Fatalf("expected balance 6000; got %s", inv.BalanceAmount)
	}

	inv, err = inv.ApplyPayment(dec("6000"), now)
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if inv.Status != InvoiceStatusPaid {
		t.Fatalf("expected PAID; got %s", inv.Status)
	}
	if !inv.BalanceAmount.IsZero() {
		t.Fatalf("expected zero balance; got %s", inv.BalanceAmount)
	}
	if inv.PaidAt == nil {
		t.Fatal("expected PaidAt to be set")
	}

	_, err = inv.ApplyPayment(dec("1"), now)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError on paid invoice; got %v", err)
	}
}

func TestOverpaymentRejected(t *testing.T) {
	now := time.Now()
	inv := testInvoice()
	inv, _ = inv.MarkSent(now)
	inv, err := inv.ApplyPayment(dec("9999"), now)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}

	_, err = inv.ApplyPayment(dec("2"), now)
	var ope *OverpaymentError
	if !errors.As(err, &ope) {
		t.Fatalf("expected OverpaymentError; got %v", err)
	}
	// balance untouched by the rejected attempt
	if !inv.BalanceAmount.Equal(dec("1")) {
		t.Fatalf("expected balance 1; got %s", inv.BalanceAmount)
	}
}

func TestMarkOverdue(t *testing.T) {
	inv := testInvoice()
	inv, _ = inv.MarkSent(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	// before the due date: guard trips
	_, err := inv.MarkOverdue(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError before due date; got %v", err)
	}

	after := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
	inv, err = inv.MarkOverdue(after)
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if inv.Status != InvoiceStatusOverdue {
		t.Fatalf("expected OVERDUE; got %s", inv.Status)
	}

	// idempotent no-op
	inv2, err := inv.MarkOverdue(after)
	if err != nil {
		t.Fatalf("second mark overdue: %v", err)
	}
	if inv2.Status != InvoiceStatusOverdue {
		t.Fatalf("expected OVERDUE after no-op; got %s", inv2.Status)
	}
}

func TestOverdueRevertedByPayment(t *testing.T) {
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	inv := testInvoice()
	inv, _ = inv.MarkSent(now)
	inv, _ = inv.MarkOverdue(now)

	inv, err := inv.ApplyPayment(dec("1000"), now)
	if err != nil {
		t.Fatalf("payment on overdue invoice: %v", err)
	}
	if inv.Status != InvoiceStatusPartiallyPaid {
		t.Fatalf("expected PARTIALLY_PAID; got %s", inv.Status)
	}
}

func TestApplyLateFee(t *testing.T) {
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	inv := testInvoice()

	// not overdue yet
	if _, err := inv.ApplyLateFee(dec("250")); err == nil {
		t.Fatal("expected error applying late fee on draft invoice")
	}

	inv, _ = inv.MarkSent(now)
	inv, _ = inv.MarkOverdue(now)

	inv, err := inv.ApplyLateFee(dec("250"))
	if err != nil {
		t.Fatalf("apply late fee: %v", err)
	}
	if !inv.TotalAmount.Equal(dec("10250")) {
		t.Fatalf("expected total 10250; got %s", inv.TotalAmount)
	}

	// at most once
	if _, err := inv.ApplyLateFee(dec("250")); !errors.Is(err, ErrLateFeeApplied) {
		t.Fatalf("expected ErrLateFeeApplied; got %v", err)
	}

	// non-positive fee rejected
	inv.LateFeeApplied = false
	if _, err := inv.ApplyLateFee(dec("0")); err == nil {
		t.Fatal("expected error for zero fee")
	}
}

func TestCancelGuards(t *testing.T) {
	now := time.Now()

	inv := testInvoice()
	if _, err := inv.Cancel(); err != nil {
		t.Fatalf("cancel draft: %v", err)
	}

	inv = testInvoice()
	inv, _ = inv.MarkSent(now)
	if _, err := inv.Cancel(); err != nil {
		t.Fatalf("cancel sent with no payments: %v", err)
	}

	inv, _ = inv.ApplyPayment(dec("100"), now)
	if _, err := inv.Cancel(); err == nil {
		t.Fatal("expected cancel to fail once payments exist")
	}
}
