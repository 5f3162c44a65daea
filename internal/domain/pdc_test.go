package domain

import (
	"errors"
	"testing"
	"time"
)

func testPDC() PDC {
	return PDC{
		ID:           "pdc-1",
		ChequeNumber: "000451",
		BankName:     "Emirates NBD",
		TenantID:     "tenant-1",
		Amount:       dec("5000"),
		ChequeDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:       PDCStatusReceived,
	}
}

func TestTransitionToDueWindow(t *testing.T) {
	p := testPDC()

	// cheque dated 3 days out: inside the window
	today := time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC)
	p, err := p.TransitionToDue(today, DueWindowDays)
	if err != nil {
		t.Fatalf("transition to due: %v", err)
	}
	if p.Status != PDCStatusDue {
		t.Fatalf("expected DUE; got %s", p.Status)
	}

	// too early: cheque date more than a window ahead
	early := testPDC()
	_, err = early.TransitionToDue(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), DueWindowDays)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError; got %v", err)
	}

	// cheque date in the past: also outside the window
	late := testPDC()
	if _, err := late.TransitionToDue(time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), DueWindowDays); err == nil {
		t.Fatal("expected error for past-dated cheque")
	}

	// window boundary is inclusive on both ends
	edge := testPDC()
	if _, err := edge.TransitionToDue(time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC), DueWindowDays); err != nil {
		t.Fatalf("cheque date exactly window days ahead should pass: %v", err)
	}
}

func TestDepositClearFlow(t *testing.T) {
	p := testPDC()
	today := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	p, _ = p.TransitionToDue(today, DueWindowDays)

	p, err := p.Deposit(today, "acct-main")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if p.Status != PDCStatusDeposited || p.DepositDate == nil {
		t.Fatalf("expected DEPOSITED with deposit date; got %s", p.Status)
	}

	p, err = p.Clear(today.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if p.Status != PDCStatusCleared || p.ClearedDate == nil {
		t.Fatalf("expected CLEARED with cleared date; got %s", p.Status)
	}
	if !p.IsTerminal() {
		t.Fatal("CLEARED should be terminal")
	}
}

func TestClearRequiresDeposit(t *testing.T) {
	// no edge skips DEPOSITED on the way to CLEARED or BOUNCED
	p := testPDC()
	if _, err := p.Clear(time.Now()); err == nil {
		t.Fatal("expected clear from RECEIVED to fail")
	}
	if _, err := p.Bounce(time.Now(), "insufficient funds"); err == nil {
		t.Fatal("expected bounce from RECEIVED to fail")
	}

	p, _ = p.TransitionToDue(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), DueWindowDays)
	if _, err := p.Clear(time.Now()); err == nil {
		t.Fatal("expected clear from DUE to fail")
	}
}

func TestBounceAndReplace(t *testing.T) {
	p := testPDC()
	today := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	p, _ = p.TransitionToDue(today, DueWindowDays)
	p, _ = p.Deposit(today, "acct-main")

	// blank reason rejected
	if _, err := p.Bounce(today, "   "); err == nil {
		t.Fatal("expected blank bounce reason to be rejected")
	}

	p, err := p.Bounce(today.AddDate(0, 0, 1), "insufficient funds")
	if err != nil {
		t.Fatalf("bounce: %v", err)
	}
	if p.Status != PDCStatusBounced || p.BounceReason != "insufficient funds" {
		t.Fatalf("expected BOUNCED with reason; got %s %q", p.Status, p.BounceReason)
	}

	p, err = p.MarkAsReplaced("pdc-2")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if p.Status != PDCStatusReplaced {
		t.Fatalf("expected REPLACED; got %s", p.Status)
	}
	if p.ReplacementPDCID == nil || *p.ReplacementPDCID != "pdc-2" {
		t.Fatalf("expected replacement reference pdc-2; got %v", p.ReplacementPDCID)
	}

	// a replaced cheque has at most one outbound replacement edge
	if _, err := p.MarkAsReplaced("pdc-3"); err == nil {
		t.Fatal("expected second replacement to fail")
	}
}

func TestReplaceRejectsSelf(t *testing.T) {
	p := testPDC()
	p.Status = PDCStatusBounced
	if _, err := p.MarkAsReplaced(p.ID); err == nil {
		t.Fatal("expected self-replacement to be rejected")
	}
}

func TestWithdraw(t *testing.T) {
	p := testPDC()
	p, err := p.Withdraw(time.Now(), "tenant switched to bank transfer")
	if err != nil {
		t.Fatalf("withdraw from RECEIVED: %v", err)
	}
	if p.Status != PDCStatusWithdrawn || !p.IsTerminal() {
		t.Fatalf("expected terminal WITHDRAWN; got %s", p.Status)
	}

	deposited := testPDC()
	deposited.Status = PDCStatusDeposited
	if _, err := deposited.Withdraw(time.Now(), "reason"); err == nil {
		t.Fatal("expected withdraw from DEPOSITED to fail")
	}
}

func TestCancelOnlyFromReceived(t *testing.T) {
	p := testPDC()
	p, err := p.Cancel()
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p.Status != PDCStatusCancelled {
		t.Fatalf("expected CANCELLED; got %s", p.Status)
	}

	due := testPDC()
	due.Status = PDCStatusDue
	if _, err := due.Cancel(); err == nil {
		t.Fatal("expected cancel from DUE to fail")
	}
}

func TestHoldRelease(t *testing.T) {
	p := testPDC()
	p, err := p.Hold("amount disputed by tenant")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if p.Status != PDCStatusOnHold {
		t.Fatalf("expected ON_HOLD; got %s", p.Status)
	}

	// held cheques are invisible to the due sweep
	if _, err := p.TransitionToDue(p.ChequeDate, DueWindowDays); err == nil {
		t.Fatal("expected transition to due to fail while on hold")
	}

	p, err = p.Release()
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if p.Status != PDCStatusReceived || p.HoldReason != "" {
		t.Fatalf("expected RECEIVED with cleared reason; got %s %q", p.Status, p.HoldReason)
	}
}

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	now := time.Now()
	for _, st := range []PDCStatus{PDCStatusCleared, PDCStatusCancelled, PDCStatusReplaced, PDCStatusWithdrawn} {
		p := testPDC()
		p.Status = st
		if !p.IsTerminal() {
			t.Fatalf("%s should be terminal", st)
		}
		if _, err := p.TransitionToDue(now, DueWindowDays); err == nil {
			t.Fatalf("%s: transition to due should fail", st)
		}
		if _, err := p.Deposit(now, "acct"); err == nil {
			t.Fatalf("%s: deposit should fail", st)
		}
		if _, err := p.Clear(now); err == nil {
			t.Fatalf("%s: clear should fail", st)
		}
		if _, err := p.Bounce(now, "r"); err == nil {
			t.Fatalf("%s: bounce should fail", st)
		}
		if _, err := p.Withdraw(now, "r"); err == nil {
			t.Fatalf("%s: withdraw should fail", st)
		}
		if _, err := p.Cancel(); err == nil {
			t.Fatalf("%s: cancel should fail", st)
		}
	}
}
