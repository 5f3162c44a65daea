package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"propledger/internal/domain"
)

type DepositRefundRepository struct {
	db Querier
}

func NewDepositRefundRepository(db *sql.DB) *DepositRefundRepository {
	return &DepositRefundRepository{db: db}
}

func (r *DepositRefundRepository) WithTx(tx *sql.Tx) *DepositRefundRepository {
	return &DepositRefundRepository{db: tx}
}

const refundColumns = `id, number, checkout_id, original_deposit, deductions, total_deductions, net_refund, amount_owed_by_tenant, method, bank_name, account_holder, iban, cheque_number, status, approved_at, approved_by, processed_at, transaction_id, receipt_path, created_at, updated_at, version`

func (r *DepositRefundRepository) Insert(ctx context.Context, ref domain.DepositRefund) error {
	deductions, err := json.Marshal(ref.Deductions)
	if err != nil {
		return fmt.Errorf("marshal deductions: %w", err)
	}

	query := `INSERT INTO deposit_refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now(), now(), 1)`

	_, err = r.db.ExecContext(ctx, query,
		ref.ID, ref.Number, ref.CheckoutID,
		ref.OriginalDeposit, deductions, ref.TotalDeductions,
		ref.NetRefund, ref.AmountOwedByTenant,
		string(ref.Method), ref.BankName, ref.AccountHolder, ref.IBAN, ref.ChequeNumber,
		string(ref.Status), ref.ApprovedAt, ref.ApprovedBy, ref.ProcessedAt,
		ref.TransactionID, ref.ReceiptPath,
	)
	if err != nil {
		return fmt.Errorf("insert deposit refund %s: %w", ref.Number, err)
	}
	return nil
}

func (r *DepositRefundRepository) GetByID(ctx context.Context, id string) (domain.DepositRefund, error) {
	query := `SELECT ` + refundColumns + ` FROM deposit_refunds WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByCheckoutID resolves the one-to-one link from a checkout record.
func (r *DepositRefundRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (domain.DepositRefund, error) {
	query := `SELECT ` + refundColumns + ` FROM deposit_refunds WHERE checkout_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, checkoutID))
}

// Update writes the refund with a compare-and-swap on version.
func (r *DepositRefundRepository) Update(ctx context.Context, ref domain.DepositRefund) error {
	query := `UPDATE deposit_refunds SET
			method = $1, bank_name = $2, account_holder = $3, iban = $4, cheque_number = $5,
			status = $6, approved_at = $7, approved_by = $8, processed_at = $9,
			transaction_id = $10, receipt_path = $11,
			updated_at = now(), version = version + 1
		WHERE id = $12 AND version = $13`

	res, err := r.db.ExecContext(ctx, query,
		string(ref.Method), ref.BankName, ref.AccountHolder, ref.IBAN, ref.ChequeNumber,
		string(ref.Status), ref.ApprovedAt, ref.ApprovedBy, ref.ProcessedAt,
		ref.TransactionID, ref.ReceiptPath,
		ref.ID, ref.Version,
	)
	if err != nil {
		return fmt.Errorf("update deposit refund %s: %w", ref.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deposit refund %s: rows affected: %w", ref.ID, err)
	}
	if n == 0 {
		return &domain.ConcurrentModificationError{Entity: "deposit_refund", ID: ref.ID}
	}
	return nil
}

func (r *DepositRefundRepository) scanOne(row *sql.Row) (domain.DepositRefund, error) {
	var ref domain.DepositRefund
	var deductions []byte
	var method, status string
	var bankName, accountHolder, iban, chequeNumber, transactionID, receiptPath sql.NullString
	var approvedAt, processedAt sql.NullTime
	var approvedBy sql.NullInt64

	err := row.Scan(
		&ref.ID, &ref.Number, &ref.CheckoutID,
		&ref.OriginalDeposit, &deductions, &ref.TotalDeductions,
		&ref.NetRefund, &ref.AmountOwedByTenant,
		&method, &bankName, &accountHolder, &iban, &chequeNumber,
		&status, &approvedAt, &approvedBy, &processedAt,
		&transactionID, &receiptPath,
		&ref.CreatedAt, &ref.UpdatedAt, &ref.Version,
	)
	if err == sql.ErrNoRows {
		return domain.DepositRefund{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DepositRefund{}, err
	}

	ref.Method = domain.RefundMethod(method)
	ref.Status = domain.RefundStatus(status)
	if len(deductions) > 0 {
		if err := json.Unmarshal(deductions, &ref.Deductions); err != nil {
			return domain.DepositRefund{}, fmt.Errorf("unmarshal deductions: %w", err)
		}
	}
	ref.BankName = bankName.String
	ref.AccountHolder = accountHolder.String
	ref.IBAN = iban.String
	ref.ChequeNumber = chequeNumber.String
	ref.TransactionID = transactionID.String
	ref.ReceiptPath = receiptPath.String
	if approvedAt.Valid {
		ref.ApprovedAt = &approvedAt.Time
	}
	if processedAt.Valid {
		ref.ProcessedAt = &processedAt.Time
	}
	if approvedBy.Valid {
		ref.ApprovedBy = &approvedBy.Int64
	}
	return ref, nil
}
