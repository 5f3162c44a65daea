package service

import (
	"context"
	"errors"
	"fmt"

	"propledger/internal/domain"
	"propledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateRefundInput struct {
	CheckoutID      string
	OriginalDeposit decimal.Decimal
	Deductions      []domain.Deduction
	Method          domain.RefundMethod
	BankName        string
	AccountHolder   string
	IBAN            string
	ChequeNumber    string
}

// RefundService drives the deposit settlement workflow computed from a
// finalized checkout: calculate, approve when above threshold, process.
type RefundService struct {
	refunds   *repository.DepositRefundRepository
	sequences *repository.SequenceRepository
	receipts  ReceiptStore
	notifier  Notifier
	clock     Clock
	threshold decimal.Decimal
}

func NewRefundService(refunds *repository.DepositRefundRepository, sequences *repository.SequenceRepository, receipts ReceiptStore, notifier Notifier, clock Clock, threshold decimal.Decimal) *RefundService {
	return &RefundService{
		refunds:   refunds,
		sequences: sequences,
		receipts:  receipts,
		notifier:  notifier,
		clock:     clock,
		threshold: threshold,
	}
}

// CreateForCheckout computes and stores the settlement for a checkout. Each
// checkout gets exactly one refund record.
func (s *RefundService) CreateForCheckout(ctx context.Context, in CreateRefundInput) (domain.DepositRefund, error) {
	if in.CheckoutID == "" {
		return domain.DepositRefund{}, &domain.ValidationError{Field: "checkout_id", Message: "checkout_id is required"}
	}

	if _, err := s.refunds.GetByCheckoutID(ctx, in.CheckoutID); err == nil {
		return domain.DepositRefund{}, &domain.ValidationError{
			Field:   "checkout_id",
			Message: fmt.Sprintf("checkout %s already has a deposit refund", in.CheckoutID),
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.DepositRefund{}, err
	}

	total, net, owed, err := domain.CalculateRefund(in.OriginalDeposit, in.Deductions)
	if err != nil {
		return domain.DepositRefund{}, err
	}

	now := s.clock.Now()
	number, err := s.sequences.NextReference(ctx, repository.SequenceKindRefund, now.Year())
	if err != nil {
		return domain.DepositRefund{}, err
	}

	ref := domain.DepositRefund{
		ID:                 uuid.NewString(),
		Number:             number,
		CheckoutID:         in.CheckoutID,
		OriginalDeposit:    domain.RoundMoney(in.OriginalDeposit),
		Deductions:         in.Deductions,
		TotalDeductions:    total,
		NetRefund:          net,
		AmountOwedByTenant: owed,
		Method:             in.Method,
		BankName:           in.BankName,
		AccountHolder:      in.AccountHolder,
		IBAN:               in.IBAN,
		ChequeNumber:       in.ChequeNumber,
		Status:             domain.RefundStatusCalculated,
		Version:            1,
	}

	if err := s.refunds.Insert(ctx, ref); err != nil {
		return domain.DepositRefund{}, err
	}
	return ref, nil
}

func (s *RefundService) Get(ctx context.Context, id string) (domain.DepositRefund, error) {
	return s.refunds.GetByID(ctx, id)
}

func (s *RefundService) GetByCheckout(ctx context.Context, checkoutID string) (domain.DepositRefund, error) {
	return s.refunds.GetByCheckoutID(ctx, checkoutID)
}

// RequiresApproval exposes the threshold decision for the UI.
func (s *RefundService) RequiresApproval(r domain.DepositRefund) bool {
	return r.RequiresApproval(s.threshold)
}

func (s *RefundService) Approve(ctx context.Context, id string, approver int64) (domain.DepositRefund, error) {
	ref, err := s.refunds.GetByID(ctx, id)
	if err != nil {
		return domain.DepositRefund{}, err
	}

	ref, err = ref.Approve(approver, s.clock.Now())
	if err != nil {
		return domain.DepositRefund{}, err
	}
	if err := s.refunds.Update(ctx, ref); err != nil {
		return domain.DepositRefund{}, err
	}
	ref.Version++

	s.notifier.Notify(ctx, EventRefundApproved, map[string]any{
		"refund_id":  ref.ID,
		"number":     ref.Number,
		"net_refund": ref.NetRefund.StringFixed(2),
		"approver":   approver,
	})
	return ref, nil
}

func (s *RefundService) Process(ctx context.Context, id, transactionID string) (domain.DepositRefund, error) {
	ref, err := s.refunds.GetByID(ctx, id)
	if err != nil {
		return domain.DepositRefund{}, err
	}

	ref, err = ref.MarkProcessed(transactionID, s.clock.Now(), s.threshold)
	if err != nil {
		return domain.DepositRefund{}, err
	}
	if err := s.refunds.Update(ctx, ref); err != nil {
		return domain.DepositRefund{}, err
	}
	ref.Version++

	s.notifier.Notify(ctx, EventRefundProcessed, map[string]any{
		"refund_id":      ref.ID,
		"number":         ref.Number,
		"transaction_id": transactionID,
	})
	return ref, nil
}

// AttachReceipt uploads the payout receipt and stores its object key.
func (s *RefundService) AttachReceipt(ctx context.Context, id, fileName string, data []byte) (string, error) {
	ref, err := s.refunds.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	key, err := s.receipts.Save(ctx, fmt.Sprintf("receipts/refunds/%s_%s", ref.Number, fileName), data)
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}

	ref.ReceiptPath = key
	if err := s.refunds.Update(ctx, ref); err != nil {
		return "", err
	}
	return s.receipts.URL(ctx, key)
}
