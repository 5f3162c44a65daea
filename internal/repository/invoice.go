package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"propledger/internal/domain"
)

type InvoicesFilter struct {
	TenantID   *string
	PropertyID *string
	Status     *domain.InvoiceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

type InvoiceRepository struct {
	db Querier
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) WithTx(tx *sql.Tx) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

const invoiceColumns = `id, number, tenant_id, unit_id, property_id, invoice_date, due_date, base_rent, service_charges, parking_fees, additional_charges, late_fee, late_fee_applied, total_amount, paid_amount, balance_amount, status, sent_at, paid_at, created_at, updated_at, version`

func (r *InvoiceRepository) Insert(ctx context.Context, inv domain.Invoice) error {
	charges, err := json.Marshal(inv.AdditionalCharges)
	if err != nil {
		return fmt.Errorf("marshal additional charges: %w", err)
	}

	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now(), now(), 1)`

	_, err = r.db.ExecContext(ctx, query,
		inv.ID, inv.Number, inv.TenantID, inv.UnitID, inv.PropertyID,
		inv.InvoiceDate, inv.DueDate,
		inv.BaseRent, inv.ServiceCharges, inv.ParkingFees, charges,
		inv.LateFee, inv.LateFeeApplied,
		inv.TotalAmount, inv.PaidAmount, inv.BalanceAmount,
		string(inv.Status), inv.SentAt, inv.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice %s: %w", inv.Number, err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Update writes the invoice with a compare-and-swap on version. A zero row
// count on an existing invoice means a concurrent writer got there first.
func (r *InvoiceRepository) Update(ctx context.Context, inv domain.Invoice) error {
	charges, err := json.Marshal(inv.AdditionalCharges)
	if err != nil {
		return fmt.Errorf("marshal additional charges: %w", err)
	}

	query := `UPDATE invoices SET
			base_rent = $1, service_charges = $2, parking_fees = $3, additional_charges = $4,
			late_fee = $5, late_fee_applied = $6,
			total_amount = $7, paid_amount = $8, balance_amount = $9,
			status = $10, sent_at = $11, paid_at = $12,
			updated_at = now(), version = version + 1
		WHERE id = $13 AND version = $14`

	res, err := r.db.ExecContext(ctx, query,
		inv.BaseRent, inv.ServiceCharges, inv.ParkingFees, charges,
		inv.LateFee, inv.LateFeeApplied,
		inv.TotalAmount, inv.PaidAmount, inv.BalanceAmount,
		string(inv.Status), inv.SentAt, inv.PaidAt,
		inv.ID, inv.Version,
	)
	if err != nil {
		return fmt.Errorf("update invoice %s: %w", inv.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice %s: rows affected: %w", inv.ID, err)
	}
	if n == 0 {
		return &domain.ConcurrentModificationError{Entity: "invoice", ID: inv.ID}
	}
	return nil
}

func (r *InvoiceRepository) List(ctx context.Context, f InvoicesFilter) ([]domain.Invoice, error) {
	base := `SELECT ` + invoiceColumns + ` FROM invoices`

	where := []string{"1=1"}
	args := []any{}
	i := 1

	if f.TenantID != nil && *f.TenantID != "" {
		where = append(where, fmt.Sprintf("tenant_id = $%d", i))
		args = append(args, *f.TenantID)
		i++
	}
	if f.PropertyID != nil && *f.PropertyID != "" {
		where = append(where, fmt.Sprintf("property_id = $%d", i))
		args = append(args, *f.PropertyID)
		i++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", i))
		args = append(args, string(*f.Status))
		i++
	}
	if f.DateFrom != nil {
		where = append(where, fmt.Sprintf("invoice_date >= $%d", i))
		args = append(args, *f.DateFrom)
		i++
	}
	if f.DateTo != nil {
		where = append(where, fmt.Sprintf("invoice_date <= $%d", i))
		args = append(args, *f.DateTo)
		i++
	}

	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY invoice_date DESC, number DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// ListOverdueCandidates returns sent or partially paid invoices whose due
// date has passed. Used by the scheduled sweep.
func (r *InvoiceRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE status IN ($1, $2) AND due_date < $3
		ORDER BY due_date`

	rows, err := r.db.QueryContext(ctx, query,
		string(domain.InvoiceStatusSent), string(domain.InvoiceStatusPartiallyPaid), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(s rowScanner) (domain.Invoice, error) {
	var inv domain.Invoice
	var charges []byte
	var sentAt, paidAt sql.NullTime
	var status string

	err := s.Scan(
		&inv.ID, &inv.Number, &inv.TenantID, &inv.UnitID, &inv.PropertyID,
		&inv.InvoiceDate, &inv.DueDate,
		&inv.BaseRent, &inv.ServiceCharges, &inv.ParkingFees, &charges,
		&inv.LateFee, &inv.LateFeeApplied,
		&inv.TotalAmount, &inv.PaidAmount, &inv.BalanceAmount,
		&status, &sentAt, &paidAt,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.Version,
	)
	if err != nil {
		return domain.Invoice{}, err
	}

	inv.Status = domain.InvoiceStatus(status)
	if len(charges) > 0 {
		if err := json.Unmarshal(charges, &inv.AdditionalCharges); err != nil {
			return domain.Invoice{}, fmt.Errorf("unmarshal additional charges: %w", err)
		}
	}
	if sentAt.Valid {
		inv.SentAt = &sentAt.Time
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	return inv, nil
}

func (r *InvoiceRepository) scanOne(row *sql.Row) (domain.Invoice, error) {
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return domain.Invoice{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepository) scanMany(rows *sql.Rows) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
