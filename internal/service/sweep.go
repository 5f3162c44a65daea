package service

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically promotes received cheques into the due window and
// flips past-due invoices to overdue. Every transition re-checks the
// entity's current state, so running the sweep twice is harmless.
type Sweeper struct {
	invoices *InvoiceService
	pdcs     *PDCService
}

func NewSweeper(invoices *InvoiceService, pdcs *PDCService) *Sweeper {
	return &Sweeper{invoices: invoices, pdcs: pdcs}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass. Guard failures on individual
// entities are logged and skipped; one bad row never aborts the pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.sweepPDCs(ctx)
	s.sweepInvoices(ctx)
}

func (s *Sweeper) sweepPDCs(ctx context.Context) {
	candidates, err := s.pdcs.ReceivedInWindow(ctx)
	if err != nil {
		log.Printf("sweep: list due pdc candidates: %v", err)
		return
	}

	promoted := 0
	for _, p := range candidates {
		if _, err := s.pdcs.TransitionToDue(ctx, p.ID); err != nil {
			log.Printf("sweep: pdc %s (%s): %v", p.ID, p.ChequeNumber, err)
			continue
		}
		promoted++
	}
	if len(candidates) > 0 {
		log.Printf("sweep: promoted %d/%d pdcs to due", promoted, len(candidates))
	}
}

func (s *Sweeper) sweepInvoices(ctx context.Context) {
	candidates, err := s.invoices.OverdueCandidates(ctx)
	if err != nil {
		log.Printf("sweep: list overdue candidates: %v", err)
		return
	}

	flipped := 0
	for _, inv := range candidates {
		if _, err := s.invoices.MarkOverdue(ctx, inv.ID); err != nil {
			log.Printf("sweep: invoice %s (%s): %v", inv.ID, inv.Number, err)
			continue
		}
		flipped++
	}
	if len(candidates) > 0 {
		log.Printf("sweep: marked %d/%d invoices overdue", flipped, len(candidates))
	}
}
