package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"propledger/internal/domain"
)

type PDCsFilter struct {
	TenantID  *string
	InvoiceID *string
	LeaseID   *string
	Status    *domain.PDCStatus
}

type PDCRepository struct {
	db Querier
}

func NewPDCRepository(db *sql.DB) *PDCRepository {
	return &PDCRepository{db: db}
}

func (r *PDCRepository) WithTx(tx *sql.Tx) *PDCRepository {
	return &PDCRepository{db: tx}
}

const pdcColumns = `id, cheque_number, bank_name, tenant_id, invoice_id, lease_id, amount, cheque_date, deposit_date, cleared_date, bounced_date, withdrawal_date, status, bounce_reason, withdrawal_reason, hold_reason, replacement_pdc_id, original_pdc_id, deposit_bank_account_id, recorded_by, created_at, updated_at, version`

func (r *PDCRepository) Insert(ctx context.Context, p domain.PDC) error {
	query := `INSERT INTO pdcs (` + pdcColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, now(), now(), 1)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ChequeNumber, p.BankName, p.TenantID, p.InvoiceID, p.LeaseID,
		p.Amount, p.ChequeDate,
		p.DepositDate, p.ClearedDate, p.BouncedDate, p.WithdrawalDate,
		string(p.Status), p.BounceReason, p.WithdrawalReason, p.HoldReason,
		p.ReplacementPDCID, p.OriginalPDCID, p.DepositBankAccountID, p.RecordedBy,
	)
	if err != nil {
		return fmt.Errorf("insert pdc %s: %w", p.ChequeNumber, err)
	}
	return nil
}

func (r *PDCRepository) GetByID(ctx context.Context, id string) (domain.PDC, error) {
	query := `SELECT ` + pdcColumns + ` FROM pdcs WHERE id = $1`
	p, err := scanPDC(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.PDC{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PDC{}, err
	}
	return p, nil
}

// ExistsChequeForTenant enforces the natural key: cheque number is unique
// per tenant.
func (r *PDCRepository) ExistsChequeForTenant(ctx context.Context, chequeNumber, tenantID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pdcs WHERE cheque_number = $1 AND tenant_id = $2)`,
		chequeNumber, tenantID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Update writes the PDC with a compare-and-swap on version.
func (r *PDCRepository) Update(ctx context.Context, p domain.PDC) error {
	query := `UPDATE pdcs SET
			deposit_date = $1, cleared_date = $2, bounced_date = $3, withdrawal_date = $4,
			status = $5, bounce_reason = $6, withdrawal_reason = $7, hold_reason = $8,
			replacement_pdc_id = $9, original_pdc_id = $10, deposit_bank_account_id = $11,
			updated_at = now(), version = version + 1
		WHERE id = $12 AND version = $13`

	res, err := r.db.ExecContext(ctx, query,
		p.DepositDate, p.ClearedDate, p.BouncedDate, p.WithdrawalDate,
		string(p.Status), p.BounceReason, p.WithdrawalReason, p.HoldReason,
		p.ReplacementPDCID, p.OriginalPDCID, p.DepositBankAccountID,
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update pdc %s: %w", p.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pdc %s: rows affected: %w", p.ID, err)
	}
	if n == 0 {
		return &domain.ConcurrentModificationError{Entity: "pdc", ID: p.ID}
	}
	return nil
}

func (r *PDCRepository) List(ctx context.Context, f PDCsFilter) ([]domain.PDC, error) {
	base := `SELECT ` + pdcColumns + ` FROM pdcs`

	where := []string{"1=1"}
	args := []any{}
	i := 1

	if f.TenantID != nil && *f.TenantID != "" {
		where = append(where, fmt.Sprintf("tenant_id = $%d", i))
		args = append(args, *f.TenantID)
		i++
	}
	if f.InvoiceID != nil && *f.InvoiceID != "" {
		where = append(where, fmt.Sprintf("invoice_id = $%d", i))
		args = append(args, *f.InvoiceID)
		i++
	}
	if f.LeaseID != nil && *f.LeaseID != "" {
		where = append(where, fmt.Sprintf("lease_id = $%d", i))
		args = append(args, *f.LeaseID)
		i++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", i))
		args = append(args, string(*f.Status))
		i++
	}

	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY cheque_date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPDCs(rows)
}

// ListReceivedInWindow returns RECEIVED cheques whose value date falls
// inside the deposit window starting at today. Used by the scheduled sweep.
func (r *PDCRepository) ListReceivedInWindow(ctx context.Context, today time.Time, windowDays int) ([]domain.PDC, error) {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	end := start.AddDate(0, 0, windowDays+1)

	query := `SELECT ` + pdcColumns + ` FROM pdcs
		WHERE status = $1 AND cheque_date >= $2 AND cheque_date < $3
		ORDER BY cheque_date`

	rows, err := r.db.QueryContext(ctx, query, string(domain.PDCStatusReceived), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPDCs(rows)
}

func scanPDC(s rowScanner) (domain.PDC, error) {
	var p domain.PDC
	var invoiceID, leaseID, replacementID, originalID, bankAccountID sql.NullString
	var depositDate, clearedDate, bouncedDate, withdrawalDate sql.NullTime
	var status string
	var bounceReason, withdrawalReason, holdReason sql.NullString

	err := s.Scan(
		&p.ID, &p.ChequeNumber, &p.BankName, &p.TenantID, &invoiceID, &leaseID,
		&p.Amount, &p.ChequeDate,
		&depositDate, &clearedDate, &bouncedDate, &withdrawalDate,
		&status, &bounceReason, &withdrawalReason, &holdReason,
		&replacementID, &originalID, &bankAccountID, &p.RecordedBy,
		&p.CreatedAt, &p.UpdatedAt, &p.Version,
	)
	if err != nil {
		return domain.PDC{}, err
	}

	p.Status = domain.PDCStatus(status)
	if invoiceID.Valid {
		p.InvoiceID = &invoiceID.String
	}
	if leaseID.Valid {
		p.LeaseID = &leaseID.String
	}
	if replacementID.Valid {
		p.ReplacementPDCID = &replacementID.String
	}
	if originalID.Valid {
		p.OriginalPDCID = &originalID.String
	}
	if bankAccountID.Valid {
		p.DepositBankAccountID = &bankAccountID.String
	}
	if depositDate.Valid {
		p.DepositDate = &depositDate.Time
	}
	if clearedDate.Valid {
		p.ClearedDate = &clearedDate.Time
	}
	if bouncedDate.Valid {
		p.BouncedDate = &bouncedDate.Time
	}
	if withdrawalDate.Valid {
		p.WithdrawalDate = &withdrawalDate.Time
	}
	p.BounceReason = bounceReason.String
	p.WithdrawalReason = withdrawalReason.String
	p.HoldReason = holdReason.String
	return p, nil
}

func scanPDCs(rows *sql.Rows) ([]domain.PDC, error) {
	var out []domain.PDC
	for rows.Next() {
		p, err := scanPDC(rows)
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
