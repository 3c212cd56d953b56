/*
Package engine maintains the authoritative weekly performance records.

PURPOSE:
  One record exists per tenant per calendar week, derived by aggregating the
  upstream datasets and invoking the customer-analytics procedures. This
  package owns the record lifecycle (create-if-absent, recompute-in-place)
  and the rollover orchestration that closes the previous week and opens the
  current one on every invocation.

KEY TYPES IN THIS FILE (record.go):
  WeeklyRecord: the durable output row
  Snapshot:     the full derived-field set applied on recomputation
  Tenant:       a venue from the tenant registry
  RecordStore:  persistence interface (point lookup, insert, full update)
  RunStore:     audit trail of job invocations

DESIGN PRINCIPLES:
  1. Records are never deleted; only derived fields are overwritten.
  2. The composite key (tenant, year, week) is unique and immutable.
  3. Week boundaries are derived from the calendar, never user-supplied.
  4. Recomputation is idempotent: unchanged upstream data yields identical
     derived fields, so overlapping invocations self-heal.

SEE ALSO:
  - lifecycle.go: create-if-absent and snapshot application
  - recalc.go: derivation of a Snapshot from upstream rows
  - rollover.go: the per-tenant state machine
  - store/sqlite/sqlite.go: RecordStore implementation
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zykor/performance-engine/calendar"
)

// Tenant is one managed venue from the tenant registry.
type Tenant struct {
	ID   int64
	Name string
}

// WeeklyRecord is the durable weekly performance row for one tenant.
type WeeklyRecord struct {
	TenantID   int64
	Year       int
	WeekNumber int

	// Derived from (Year, WeekNumber) at creation; Monday..Sunday.
	WeekStart time.Time
	WeekEnd   time.Time

	TotalRevenue          decimal.Decimal
	AttractionCostPercent decimal.Decimal
	LaborCost             decimal.Decimal
	CustomersServed       int
	AverageTicket         decimal.Decimal
	NewCustomerPercent    decimal.Decimal
	ActiveCustomerCount   int

	LastRecalculatedAt time.Time
	Notes              string
}

// Week returns the record's calendar key.
func (r *WeeklyRecord) Week() calendar.Week {
	return calendar.Week{Year: r.Year, Number: r.WeekNumber}
}

// Snapshot is the complete derived-field set produced by one recomputation.
// Applying a snapshot always overwrites every field; there are no partial
// patches.
type Snapshot struct {
	TotalRevenue          decimal.Decimal
	AttractionCostPercent decimal.Decimal
	LaborCost             decimal.Decimal
	CustomersServed       int
	AverageTicket         decimal.Decimal
	NewCustomerPercent    decimal.Decimal
	ActiveCustomerCount   int
}

// RecordStore persists weekly records.
type RecordStore interface {
	// ListActiveTenants returns the tenants the job processes.
	ListActiveTenants(ctx context.Context) ([]Tenant, error)

	// GetWeek returns the record for the composite key, or nil when absent.
	GetWeek(ctx context.Context, tenantID int64, week calendar.Week) (*WeeklyRecord, error)

	// InsertWeek creates a record. Fails on a duplicate composite key.
	InsertWeek(ctx context.Context, rec *WeeklyRecord) error

	// UpdateWeek overwrites the full derived-field set of an existing
	// record. Returns ErrRecordNotFound when the composite key is absent.
	UpdateWeek(ctx context.Context, rec *WeeklyRecord) error

	// LatestNonZeroNewCustomerPercent returns the most recent non-zero
	// new-customer percent stored before the given week, for fallback when
	// the analytical procedure is unavailable. ok is false when no such
	// value exists.
	LatestNonZeroNewCustomerPercent(ctx context.Context, tenantID int64, before calendar.Week) (value decimal.Decimal, ok bool, err error)
}

// RecalculationRun is one audit row per job invocation.
type RecalculationRun struct {
	ID          string
	Year        int
	WeekNumber  int
	Tenants     int
	Succeeded   int
	Failed      int
	Status      string // "running", "completed", "failed"
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RunStore records job invocations for audit and operator visibility.
type RunStore interface {
	SaveRun(ctx context.Context, run RecalculationRun) error
	ListRuns(ctx context.Context, limit int) ([]RecalculationRun, error)
}
