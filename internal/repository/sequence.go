package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Reference kinds for generated document numbers.
const (
	SequenceKindInvoice = "INV"
	SequenceKindPayment = "PMT"
	SequenceKindPDC     = "PDC"
	SequenceKindRefund  = "REF"
)

// SequenceRepository allocates reference numbers like INV-2026-0042 from a
// per-kind, per-year counter row. The upsert RETURNING makes allocation a
// single atomic statement, so numbers are unique even under concurrency.
type SequenceRepository struct {
	db Querier
}

func NewSequenceRepository(db *sql.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) WithTx(tx *sql.Tx) *SequenceRepository {
	return &SequenceRepository{db: tx}
}

func (r *SequenceRepository) Next(ctx context.Context, kind string, year int) (int64, error) {
	query := `INSERT INTO reference_sequences (kind, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, year)
		DO UPDATE SET last_value = reference_sequences.last_value + 1
		RETURNING last_value`

	var seq int64
	if err := r.db.QueryRowContext(ctx, query, kind, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence %s/%d: %w", kind, year, err)
	}
	return seq, nil
}

// NextReference allocates and formats the next reference for kind and year.
func (r *SequenceRepository) NextReference(ctx context.Context, kind string, year int) (string, error) {
	seq, err := r.Next(ctx, kind, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", kind, year, seq), nil
}
