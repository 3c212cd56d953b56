/*
datasets.go - Row types and the tenant-scoped Reader interface

PURPOSE:
  Typed views of the upstream datasets this engine aggregates. The rows are
  produced by external collectors (POS scraper, ticketing syncs, cost-ledger
  import) and are strictly read-only here.

DATASETS:
  Payment        POS payment events (net amount per business date)
  HeadcountSample POS per-date headcount samples
  TicketOrder    Ticketing-platform orders (two platforms share the shape)
  CheckIn        Ticketing-platform check-in records
  LedgerEntry    Payroll/cost ledger rows (signed amounts, category labels)

SEE ALSO:
  - reader.go: pagination over these datasets
  - store/sqlite/reader.go: SQL-backed Reader implementation
*/
package upstream

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Platform distinguishes the two ticketing channels.
type Platform string

const (
	PlatformPrimary   Platform = "primary"
	PlatformSecondary Platform = "secondary"
)

// Payment is one settled POS payment event.
type Payment struct {
	TenantID     int64
	BusinessDate time.Time
	NetAmount    decimal.Decimal
}

// HeadcountSample is one per-date POS headcount reading.
type HeadcountSample struct {
	TenantID   int64
	SampleDate time.Time
	Headcount  int
}

// TicketOrder is one ticketing-platform order line.
type TicketOrder struct {
	TenantID    int64
	Platform    Platform
	OrderDate   time.Time
	ProductName string
	Quantity    int
	NetAmount   decimal.Decimal
	Settled     bool
}

// CheckIn is one ticketing-platform check-in record.
type CheckIn struct {
	TenantID    int64
	Platform    Platform
	CheckInDate time.Time
	Attended    bool
}

// LedgerEntry is one payroll/cost ledger row. Amount keeps its upstream
// sign; cost reducers take absolute values.
type LedgerEntry struct {
	TenantID  int64
	EntryDate time.Time
	Category  string
	Amount    decimal.Decimal
}

// Reader pulls tenant-scoped, date-ranged rows from each dataset.
// Implementations page through FetchAll, so a returned slice is always the
// complete matching set or an error - never silent partial data.
type Reader interface {
	Payments(ctx context.Context, tenantID int64, from, to time.Time) ([]Payment, error)
	HeadcountSamples(ctx context.Context, tenantID int64, from, to time.Time) ([]HeadcountSample, error)
	SettledOrders(ctx context.Context, platform Platform, tenantID int64, from, to time.Time) ([]TicketOrder, error)
	AttendedCheckIns(ctx context.Context, platform Platform, tenantID int64, from, to time.Time) ([]CheckIn, error)
	LedgerEntries(ctx context.Context, tenantID int64, from, to time.Time) ([]LedgerEntry, error)
}
