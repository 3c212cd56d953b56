/*
customers.go - Customer-health metrics capability

PURPOSE:
  Two weekly fields come from externally-owned analytical procedures rather
  than row reduction: the share of customers seen this week who are new, and
  the size of the active customer base. The procedures are black boxes to
  this engine - invoked with a tenant and date ranges, returning a small
  structured result or erroring.

BEST-EFFORT CONTRACT:
  Provider failures never fail a recalculation. The engine falls back to the
  best available prior value (new-customer percent) or leaves the field at
  its previous value (active count). See engine/recalc.go.

WINDOWS:
  NewCustomerPercent compares the week against the immediately prior 7-day
  period. ActiveCustomerCount looks at the trailing 90 days ending at the
  week's Sunday.

SEE ALSO:
  - store/sqlite/analytics.go: SQL-backed implementation
  - engine/recalc.go: fallback handling
*/
package metrics

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zykor/performance-engine/calendar"
)

// ActiveWindowDays is the trailing window for the active-customer base.
const ActiveWindowDays = 90

// CustomerMetricsProvider invokes the external analytical procedures.
type CustomerMetricsProvider interface {
	// NewCustomerPercent returns the percentage of the current range's
	// customers not seen before it, compared against the prior range.
	NewCustomerPercent(ctx context.Context, tenantID int64, current, comparison calendar.Range) (decimal.Decimal, error)

	// ActiveCustomerCount returns the number of customers active in the
	// window.
	ActiveCustomerCount(ctx context.Context, tenantID int64, window calendar.Range) (int, error)
}
