/*
recalc.go - Snapshot derivation for one tenant-week

PURPOSE:
  Pulls every upstream dataset for a tenant and date range, folds the rows
  through the metric reducers, and invokes the customer-analytics
  procedures, producing the complete Snapshot that the lifecycle manager
  applies to the record.

READ PLAN:
  The three revenue channels (POS payments, primary and secondary ticketing
  orders) are independent and read-only, so they are issued concurrently
  and awaited jointly. The remaining reads (ledger, headcount samples,
  check-ins) run sequentially; they are cheap and bounded memory beats
  marginal parallelism here.

FAILURE MODES:
  - Any upstream read error aborts the snapshot and surfaces; an empty
    dataset does not (it contributes zero).
  - Customer-analytics failures are recovered locally: new-customer percent
    falls back to the most recent non-zero historical value (or the
    record's current value), active-customer count keeps the record's
    current value. Both are logged, neither fails the snapshot.

SEE ALSO:
  - metrics/derive.go: the reducers
  - rollover.go: calls Compute for the previous and current week
*/
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/zykor/performance-engine/calendar"
	"github.com/zykor/performance-engine/metrics"
	"github.com/zykor/performance-engine/upstream"
)

// Recalculator derives weekly snapshots from upstream data.
type Recalculator struct {
	Reader     upstream.Reader
	Customers  metrics.CustomerMetricsProvider
	Classifier metrics.Classifier
	Store      RecordStore
}

// NewRecalculator wires a recalculator from its collaborators.
func NewRecalculator(reader upstream.Reader, customers metrics.CustomerMetricsProvider, classifier metrics.Classifier, store RecordStore) *Recalculator {
	return &Recalculator{
		Reader:     reader,
		Customers:  customers,
		Classifier: classifier,
		Store:      store,
	}
}

// Compute derives the full snapshot for one tenant and date range. current
// is the record being recomputed; its stored customer-health values serve
// as the fallback when the analytical procedures fail.
func (rc *Recalculator) Compute(ctx context.Context, tenantID int64, week calendar.Week, rng calendar.Range, current *WeeklyRecord) (Snapshot, error) {
	var snap Snapshot

	payments, primaryOrders, secondaryOrders, err := rc.readRevenueChannels(ctx, tenantID, rng)
	if err != nil {
		return snap, err
	}

	entries, err := rc.Reader.LedgerEntries(ctx, tenantID, rng.Start, rng.End)
	if err != nil {
		return snap, fmt.Errorf("ledger entries: %w", err)
	}

	samples, err := rc.Reader.HeadcountSamples(ctx, tenantID, rng.Start, rng.End)
	if err != nil {
		return snap, fmt.Errorf("headcount samples: %w", err)
	}

	checkIns, err := rc.Reader.AttendedCheckIns(ctx, upstream.PlatformSecondary, tenantID, rng.Start, rng.End)
	if err != nil {
		return snap, fmt.Errorf("check-ins: %w", err)
	}

	snap.TotalRevenue = metrics.Revenue(payments, primaryOrders, secondaryOrders)
	snap.AttractionCostPercent = metrics.AttractionCostPercent(
		metrics.AttractionCost(entries, rc.Classifier), snap.TotalRevenue)
	snap.LaborCost = metrics.LaborCost(entries, rc.Classifier)
	snap.CustomersServed = metrics.Headcount(samples, primaryOrders, checkIns, rc.Classifier)
	snap.AverageTicket = metrics.AverageTicket(snap.TotalRevenue, snap.CustomersServed)

	rc.customerHealth(ctx, tenantID, week, rng, current, &snap)

	return snap, nil
}

// readRevenueChannels issues the three independent revenue reads
// concurrently and joins them.
func (rc *Recalculator) readRevenueChannels(ctx context.Context, tenantID int64, rng calendar.Range) ([]upstream.Payment, []upstream.TicketOrder, []upstream.TicketOrder, error) {
	var (
		wg sync.WaitGroup

		payments        []upstream.Payment
		primaryOrders   []upstream.TicketOrder
		secondaryOrders []upstream.TicketOrder

		paymentsErr, primaryErr, secondaryErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		payments, paymentsErr = rc.Reader.Payments(ctx, tenantID, rng.Start, rng.End)
	}()
	go func() {
		defer wg.Done()
		primaryOrders, primaryErr = rc.Reader.SettledOrders(ctx, upstream.PlatformPrimary, tenantID, rng.Start, rng.End)
	}()
	go func() {
		defer wg.Done()
		secondaryOrders, secondaryErr = rc.Reader.SettledOrders(ctx, upstream.PlatformSecondary, tenantID, rng.Start, rng.End)
	}()
	wg.Wait()

	if paymentsErr != nil {
		return nil, nil, nil, fmt.Errorf("pos payments: %w", paymentsErr)
	}
	if primaryErr != nil {
		return nil, nil, nil, fmt.Errorf("primary ticketing orders: %w", primaryErr)
	}
	if secondaryErr != nil {
		return nil, nil, nil, fmt.Errorf("secondary ticketing orders: %w", secondaryErr)
	}

	return payments, primaryOrders, secondaryOrders, nil
}

// customerHealth fills the two procedure-backed fields, best-effort.
func (rc *Recalculator) customerHealth(ctx context.Context, tenantID int64, week calendar.Week, rng calendar.Range, current *WeeklyRecord, snap *Snapshot) {
	// Defaults when everything fails: whatever the record already holds.
	if current != nil {
		snap.NewCustomerPercent = current.NewCustomerPercent
		snap.ActiveCustomerCount = current.ActiveCustomerCount
	}

	newPct, err := rc.Customers.NewCustomerPercent(ctx, tenantID, rng, rng.PriorDays(7))
	if err != nil {
		log.Printf("[Recalc] tenant %d week %s: new-customer percent unavailable: %v", tenantID, week, err)
		if prior, ok, histErr := rc.Store.LatestNonZeroNewCustomerPercent(ctx, tenantID, week); histErr == nil && ok {
			snap.NewCustomerPercent = prior
		}
	} else {
		snap.NewCustomerPercent = newPct
	}

	active, err := rc.Customers.ActiveCustomerCount(ctx, tenantID, rng.TrailingDays(metrics.ActiveWindowDays))
	if err != nil {
		log.Printf("[Recalc] tenant %d week %s: active-customer count unavailable: %v", tenantID, week, err)
	} else {
		snap.ActiveCustomerCount = active
	}
}
