/*
scheduler.go - Automated monthly expense deductions

PURPOSE:
  Periodically records the current month's deduction for every recurring
  (monthly) expense, so the month's dispatch takes them into account
  without someone ticking each one.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check deducts monthly expenses for the current month
  - Months already deducted are skipped (the log is unique per month)

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (AUTO_DEDUCT_MONTHLY)

USAGE:
  scheduler := NewDeductionScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - expenses.go: TriggerMonthlyDeductions endpoint (manual run)
  - billing/service.go: DeductMonthlyExpenses
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/warp/crm-engine/billing"
)

// DeductionScheduler deducts recurring expenses every month.
type DeductionScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDeductionScheduler creates a new scheduler.
func NewDeductionScheduler(h *Handler) *DeductionScheduler {
	return &DeductionScheduler{
		Handler:       h,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (ds *DeductionScheduler) Start() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	logger := ds.Handler.Logger
	if !ds.Enabled {
		logger.Info("deduction scheduler disabled")
		return
	}
	if ds.ticker != nil {
		return
	}

	ds.ticker = time.NewTicker(ds.CheckInterval)
	ds.stop = make(chan struct{})
	ds.wg.Add(1)

	go ds.run()

	logger.Info("deduction scheduler started", "interval", ds.CheckInterval)
}

// Stop stops the scheduler and waits for a running check to finish.
func (ds *DeductionScheduler) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.ticker == nil {
		return
	}
	ds.ticker.Stop()
	close(ds.stop)
	ds.wg.Wait()
	ds.ticker = nil
	ds.Handler.Logger.Info("deduction scheduler stopped")
}

func (ds *DeductionScheduler) run() {
	defer ds.wg.Done()

	// Run immediately on start
	ds.RunNow(context.Background())

	for {
		select {
		case <-ds.ticker.C:
			ds.RunNow(context.Background())
		case <-ds.stop:
			return
		}
	}
}

// RunNow deducts the current month's recurring expenses.
func (ds *DeductionScheduler) RunNow(ctx context.Context) int {
	period := ds.Handler.Billing.Now().Period()
	n, err := ds.Handler.Billing.DeductMonthlyExpenses(ctx, period)
	if err != nil {
		ds.Handler.Logger.ErrorContext(ctx, "monthly deduction failed", "period", period.String(), "error", err)
		return 0
	}
	return n
}

// TriggerMonthlyDeductions deducts every monthly expense for a month,
// the current one when no period is given.
// POST /api/deductions/monthly
func (h *Handler) TriggerMonthlyDeductions(w http.ResponseWriter, r *http.Request) {
	var req DeductionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	period := h.Billing.Now().Period()
	if req.Period != "" {
		p, err := billing.ParsePeriod(req.Period)
		if err != nil {
			h.fail(w, r, "Invalid period", err)
			return
		}
		period = p
	}
	n, err := h.Billing.DeductMonthlyExpenses(r.Context(), period)
	if err != nil {
		h.fail(w, r, "Failed to deduct monthly expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period.String(), "deducted": n})
}
