/*
lifecycle.go - Weekly record lifecycle manager

PURPOSE:
  Two operations, and only two, ever touch a weekly record:

  EnsureWeek:    create a zero-initialized record if the composite key is
                 absent. Week boundaries come from the calendar, never from
                 callers. Idempotent - calling it for an existing week is a
                 no-op that returns the stored record.

  ApplySnapshot: overwrite the full derived-field set of an existing record,
                 stamp LastRecalculatedAt, append a provenance note. Fails
                 loudly with ErrRecordNotFound when the record is absent:
                 callers must EnsureWeek first for weeks that might be new.

  Records are never deleted here or anywhere else in the engine.

SEE ALSO:
  - rollover.go: the only caller
  - record.go: WeeklyRecord and Snapshot
*/
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zykor/performance-engine/calendar"
)

// Lifecycle creates and updates weekly records.
type Lifecycle struct {
	Store RecordStore

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewLifecycle creates a lifecycle manager over the given store.
func NewLifecycle(store RecordStore) *Lifecycle {
	return &Lifecycle{Store: store, Now: time.Now}
}

// EnsureWeek creates a zero-initialized record for the week if none exists
// and returns the stored record either way.
func (l *Lifecycle) EnsureWeek(ctx context.Context, tenantID int64, week calendar.Week) (*WeeklyRecord, error) {
	existing, err := l.Store.GetWeek(ctx, tenantID, week)
	if err != nil {
		return nil, fmt.Errorf("lookup week %s: %w", week, err)
	}
	if existing != nil {
		return existing, nil
	}

	rng := week.DateRange()
	rec := &WeeklyRecord{
		TenantID:   tenantID,
		Year:       week.Year,
		WeekNumber: week.Number,
		WeekStart:  rng.Start,
		WeekEnd:    rng.End,
		Notes:      fmt.Sprintf("auto-created %s", l.Now().UTC().Format(time.RFC3339)),
	}

	if err := l.Store.InsertWeek(ctx, rec); err != nil {
		// A concurrent invocation may have created it between the lookup
		// and the insert; the stored record wins.
		if racing, lookupErr := l.Store.GetWeek(ctx, tenantID, week); lookupErr == nil && racing != nil {
			return racing, nil
		}
		return nil, fmt.Errorf("create week %s: %w", week, err)
	}

	return rec, nil
}

// ApplySnapshot overwrites the derived fields of an existing record and
// returns the updated record. The record must already exist.
func (l *Lifecycle) ApplySnapshot(ctx context.Context, tenantID int64, week calendar.Week, snap Snapshot) (*WeeklyRecord, error) {
	rec, err := l.Store.GetWeek(ctx, tenantID, week)
	if err != nil {
		return nil, fmt.Errorf("lookup week %s: %w", week, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("apply snapshot to week %s: %w", week, ErrRecordNotFound)
	}

	now := l.Now().UTC()
	rec.TotalRevenue = snap.TotalRevenue
	rec.AttractionCostPercent = snap.AttractionCostPercent
	rec.LaborCost = snap.LaborCost
	rec.CustomersServed = snap.CustomersServed
	rec.AverageTicket = snap.AverageTicket
	rec.NewCustomerPercent = snap.NewCustomerPercent
	rec.ActiveCustomerCount = snap.ActiveCustomerCount
	rec.LastRecalculatedAt = now
	rec.Notes = appendNote(rec.Notes, fmt.Sprintf("auto-updated %s", now.Format(time.RFC3339)))

	if err := l.Store.UpdateWeek(ctx, rec); err != nil {
		return nil, fmt.Errorf("update week %s: %w", week, err)
	}

	return rec, nil
}

// appendNote keeps only the creation note plus the latest update note, so
// the provenance string stays bounded across years of weekly runs.
func appendNote(existing, note string) string {
	if idx := strings.Index(existing, "; auto-updated "); idx >= 0 {
		existing = existing[:idx]
	} else if strings.HasPrefix(existing, "auto-updated ") {
		existing = ""
	}
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
