package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"propledger/internal/domain"
)

type PaymentsFilter struct {
	InvoiceID *string
	TenantID  *string
	Method    *domain.PaymentMethod
	DateFrom  *time.Time
	DateTo    *time.Time
}

type PaymentRepository struct {
	db Querier
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

const paymentColumns = `id, number, invoice_id, tenant_id, amount, method, payment_date, transaction_ref, receipt_path, recorded_by, created_at`

// Insert appends a payment row. Payments are immutable ledger entries; this
// is the only write the repository exposes besides the receipt pointer.
func (r *PaymentRepository) Insert(ctx context.Context, p domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Number, p.InvoiceID, p.TenantID,
		p.Amount, string(p.Method), p.PaymentDate,
		p.TransactionRef, p.ReceiptPath, p.RecordedBy,
	)
	if err != nil {
		return fmt.Errorf("insert payment %s: %w", p.Number, err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Payment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

func (r *PaymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *PaymentRepository) List(ctx context.Context, f PaymentsFilter) ([]domain.Payment, error) {
	base := `SELECT ` + paymentColumns + ` FROM payments`

	where := []string{"1=1"}
	args := []any{}
	i := 1

	if f.InvoiceID != nil && *f.InvoiceID != "" {
		where = append(where, fmt.Sprintf("invoice_id = $%d", i))
		args = append(args, *f.InvoiceID)
		i++
	}
	if f.TenantID != nil && *f.TenantID != "" {
		where = append(where, fmt.Sprintf("tenant_id = $%d", i))
		args = append(args, *f.TenantID)
		i++
	}
	if f.Method != nil {
		where = append(where, fmt.Sprintf("method = $%d", i))
		args = append(args, string(*f.Method))
		i++
	}
	if f.DateFrom != nil {
		where = append(where, fmt.Sprintf("payment_date >= $%d", i))
		args = append(args, *f.DateFrom)
		i++
	}
	if f.DateTo != nil {
		where = append(where, fmt.Sprintf("payment_date <= $%d", i))
		args = append(args, *f.DateTo)
		i++
	}

	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY payment_date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// SetReceiptPath attaches the opaque storage key of an uploaded receipt.
// The financial fields of a payment are never updated.
func (r *PaymentRepository) SetReceiptPath(ctx context.Context, id, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET receipt_path = $1 WHERE id = $2`, path, id)
	if err != nil {
		return fmt.Errorf("set receipt path on payment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPayment(s rowScanner) (domain.Payment, error) {
	var p domain.Payment
	var method string
	var receiptPath sql.NullString

	err := s.Scan(
		&p.ID, &p.Number, &p.InvoiceID, &p.TenantID,
		&p.Amount, &method, &p.PaymentDate,
		&p.TransactionRef, &receiptPath, &p.RecordedBy, &p.CreatedAt,
	)
	if err != nil {
		return domain.Payment{}, err
	}
	p.Method = domain.PaymentMethod(method)
	if receiptPath.Valid {
		p.ReceiptPath = receiptPath.String
	}
	return p, nil
}

func scanPayments(rows *sql.Rows) ([]domain.Payment, error) {
	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
