package rest

import (
	"time"

	"propledger/internal/domain"
)

// Wire representations. Domain entities stay tag-free; everything crossing
// HTTP goes through these. Amounts are rendered as decimal strings.

type invoiceDTO struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	TenantID   string `json:"tenant_id"`
	UnitID     string `json:"unit_id"`
	PropertyID string `json:"property_id"`

	InvoiceDate string `json:"invoice_date"`
	DueDate     string `json:"due_date"`

	BaseRent          string          `json:"base_rent"`
	ServiceCharges    string          `json:"service_charges"`
	ParkingFees       string          `json:"parking_fees"`
	AdditionalCharges []domain.Charge `json:"additional_charges"`
	LateFee           string          `json:"late_fee"`
	LateFeeApplied    bool            `json:"late_fee_applied"`

	TotalAmount   string `json:"total_amount"`
	PaidAmount    string `json:"paid_amount"`
	BalanceAmount string `json:"balance_amount"`

	Status string `json:"status"`

	SentAt *time.Time `json:"sent_at,omitempty"`
	PaidAt *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

func toInvoiceDTO(i domain.Invoice) invoiceDTO {
	return invoiceDTO{
		ID:                i.ID,
		Number:            i.Number,
		TenantID:          i.TenantID,
		UnitID:            i.UnitID,
		PropertyID:        i.PropertyID,
		InvoiceDate:       i.InvoiceDate.Format("2006-01-02"),
		DueDate:           i.DueDate.Format("2006-01-02"),
		BaseRent:          i.BaseRent.String(),
		ServiceCharges:    i.ServiceCharges.String(),
		ParkingFees:       i.ParkingFees.String(),
		AdditionalCharges: i.AdditionalCharges,
		LateFee:           i.LateFee.String(),
		LateFeeApplied:    i.LateFeeApplied,
		TotalAmount:       i.TotalAmount.String(),
		PaidAmount:        i.PaidAmount.String(),
		BalanceAmount:     i.BalanceAmount.String(),
		Status:            string(i.Status),
		SentAt:            i.SentAt,
		PaidAt:            i.PaidAt,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
		Version:           i.Version,
	}
}

func toInvoiceDTOs(list []domain.Invoice) []invoiceDTO {
	out := make([]invoiceDTO, 0, len(list))
	for _, i := range list {
		out = append(out, toInvoiceDTO(i))
	}
	return out
}

type paymentDTO struct {
	ID             string    `json:"id"`
	Number         string    `json:"number"`
	InvoiceID      string    `json:"invoice_id"`
	TenantID       string    `json:"tenant_id"`
	Amount         string    `json:"amount"`
	Method         string    `json:"method"`
	PaymentDate    string    `json:"payment_date"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	ReceiptPath    string    `json:"receipt_path,omitempty"`
	RecordedBy     int64     `json:"recorded_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func toPaymentDTO(p domain.Payment) paymentDTO {
	return paymentDTO{
		ID:             p.ID,
		Number:         p.Number,
		InvoiceID:      p.InvoiceID,
		TenantID:       p.TenantID,
		Amount:         p.Amount.String(),
		Method:         string(p.Method),
		PaymentDate:    p.PaymentDate.Format("2006-01-02"),
		TransactionRef: p.TransactionRef,
		ReceiptPath:    p.ReceiptPath,
		RecordedBy:     p.RecordedBy,
		CreatedAt:      p.CreatedAt,
	}
}

func toPaymentDTOs(list []domain.Payment) []paymentDTO {
	out := make([]paymentDTO, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentDTO(p))
	}
	return out
}

type pdcDTO struct {
	ID           string  `json:"id"`
	ChequeNumber string  `json:"cheque_number"`
	BankName     string  `json:"bank_name"`
	TenantID     string  `json:"tenant_id"`
	InvoiceID    *string `json:"invoice_id,omitempty"`
	LeaseID      *string `json:"lease_id,omitempty"`

	Amount     string `json:"amount"`
	ChequeDate string `json:"cheque_date"`

	DepositDate    *time.Time `json:"deposit_date,omitempty"`
	ClearedDate    *time.Time `json:"cleared_date,omitempty"`
	BouncedDate    *time.Time `json:"bounced_date,omitempty"`
	WithdrawalDate *time.Time `json:"withdrawal_date,omitempty"`

	Status           string `json:"status"`
	BounceReason     string `json:"bounce_reason,omitempty"`
	WithdrawalReason string `json:"withdrawal_reason,omitempty"`
	HoldReason       string `json:"hold_reason,omitempty"`

	ReplacementPDCID *string `json:"replacement_pdc_id,omitempty"`
	OriginalPDCID    *string `json:"original_pdc_id,omitempty"`

	DepositBankAccountID *string `json:"deposit_bank_account_id,omitempty"`
	RecordedBy           int64   `json:"recorded_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

func toPDCDTO(p domain.PDC) pdcDTO {
	return pdcDTO{
		ID:                   p.ID,
		ChequeNumber:         p.ChequeNumber,
		BankName:             p.BankName,
		TenantID:             p.TenantID,
		InvoiceID:            p.InvoiceID,
		LeaseID:              p.LeaseID,
		Amount:               p.Amount.String(),
		ChequeDate:           p.ChequeDate.Format("2006-01-02"),
		DepositDate:          p.DepositDate,
		ClearedDate:          p.ClearedDate,
		BouncedDate:          p.BouncedDate,
		WithdrawalDate:       p.WithdrawalDate,
		Status:               string(p.Status),
		BounceReason:         p.BounceReason,
		WithdrawalReason:     p.WithdrawalReason,
		HoldReason:           p.HoldReason,
		ReplacementPDCID:     p.ReplacementPDCID,
		OriginalPDCID:        p.OriginalPDCID,
		DepositBankAccountID: p.DepositBankAccountID,
		RecordedBy:           p.RecordedBy,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		Version:              p.Version,
	}
}

func toPDCDTOs(list []domain.PDC) []pdcDTO {
	out := make([]pdcDTO, 0, len(list))
	for _, p := range list {
		out = append(out, toPDCDTO(p))
	}
	return out
}

type refundDTO struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	CheckoutID string `json:"checkout_id"`

	OriginalDeposit    string             `json:"original_deposit"`
	Deductions         []domain.Deduction `json:"deductions"`
	TotalDeductions    string             `json:"total_deductions"`
	NetRefund          string             `json:"net_refund"`
	AmountOwedByTenant string             `json:"amount_owed_by_tenant"`

	Method string `json:"method"`

	BankName      string `json:"bank_name,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	ChequeNumber  string `json:"cheque_number,omitempty"`

	Status string `json:"status"`

	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	TransactionID string `json:"transaction_id,omitempty"`
	ReceiptPath   string `json:"receipt_path,omitempty"`

	RequiresApproval bool `json:"requires_approval"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

func toRefundDTO(r domain.DepositRefund, requiresApproval bool) refundDTO {
	return refundDTO{
		ID:                 r.ID,
		Number:             r.Number,
		CheckoutID:         r.CheckoutID,
		OriginalDeposit:    r.OriginalDeposit.String(),
		Deductions:         r.Deductions,
		TotalDeductions:    r.TotalDeductions.String(),
		NetRefund:          r.NetRefund.String(),
		AmountOwedByTenant: r.AmountOwedByTenant.String(),
		Method:             string(r.Method),
		BankName:           r.BankName,
		AccountHolder:      r.AccountHolder,
		IBAN:               r.IBAN,
		ChequeNumber:       r.ChequeNumber,
		Status:             string(r.Status),
		ApprovedAt:         r.ApprovedAt,
		ApprovedBy:         r.ApprovedBy,
		ProcessedAt:        r.ProcessedAt,
		TransactionID:      r.TransactionID,
		ReceiptPath:        r.ReceiptPath,
		RequiresApproval:   requiresApproval,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		Version:            r.Version,
	}
}
