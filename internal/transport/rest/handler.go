package rest

import (
	"net/http"
	"time"

	"propledger/internal/repository"
	"propledger/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	invoices *service.InvoiceService
	payments *service.PaymentService
	pdcs     *service.PDCService
	refunds  *service.RefundService
	exports  *service.ExportService

	invoiceRepo *repository.InvoiceRepository
	paymentRepo *repository.PaymentRepository
	pdcRepo     *repository.PDCRepository
}

func NewHandler(
	invoices *service.InvoiceService,
	payments *service.PaymentService,
	pdcs *service.PDCService,
	refunds *service.RefundService,
	exports *service.ExportService,
	invoiceRepo *repository.InvoiceRepository,
	paymentRepo *repository.PaymentRepository,
	pdcRepo *repository.PDCRepository,
) *Handler {
	return &Handler{
		invoices:    invoices,
		payments:    payments,
		pdcs:        pdcs,
		refunds:     refunds,
		exports:     exports,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		pdcRepo:     pdcRepo,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Get("/", h.listInvoices)
		r.Get("/{invoice_id}", h.getInvoice)
		r.Patch("/{invoice_id}/send", h.sendInvoice)
		r.Patch("/{invoice_id}/cancel", h.cancelInvoice)
		r.Patch("/{invoice_id}/late-fee", h.applyLateFee)
		r.Post("/{invoice_id}/payments", h.recordPayment)
		r.Get("/{invoice_id}/payments", h.listInvoicePayments)
	})

	r.Post("/payments/{payment_id}/receipt", h.attachPaymentReceipt)

	r.Route("/pdcs", func(r chi.Router) {
		r.Post("/", h.registerPDC)
		r.Get("/", h.listPDCs)
		r.Get("/{pdc_id}", h.getPDC)
		r.Get("/{pdc_id}/chain", h.getPDCChain)
		r.Patch("/{pdc_id}/due", h.markPDCDue)
		r.Patch("/{pdc_id}/deposit", h.depositPDC)
		r.Patch("/{pdc_id}/clear", h.clearPDC)
		r.Patch("/{pdc_id}/bounce", h.bouncePDC)
		r.Patch("/{pdc_id}/withdraw", h.withdrawPDC)
		r.Patch("/{pdc_id}/cancel", h.cancelPDC)
		r.Patch("/{pdc_id}/hold", h.holdPDC)
		r.Patch("/{pdc_id}/release", h.releasePDC)
		r.Post("/{pdc_id}/replace", h.replacePDC)
	})

	r.Post("/checkouts/{checkout_id}/deposit-refund", h.createDepositRefund)
	r.Route("/deposit-refunds", func(r chi.Router) {
		r.Get("/{refund_id}", h.getDepositRefund)
		r.Patch("/{refund_id}/approve", h.approveDepositRefund)
		r.Patch("/{refund_id}/process", h.processDepositRefund)
		r.Post("/{refund_id}/receipt", h.attachRefundReceipt)
	})

	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.listExports)
		r.Get("/{export_id}", h.getExport)
		r.Post("/invoices", h.exportInvoices)
		r.Post("/payments", h.exportPayments)
		r.Post("/pdcs", h.exportPDCs)
	})

	return r
}
