/*
analytics.go - Customer-analytics procedures

PURPOSE:
  SQL implementations of the two externally-owned analytical procedures the
  engine invokes by name, satisfying metrics.CustomerMetricsProvider:

  NewCustomerPercent:
    distinct visitors of the current range, split into new vs returning
    against the full visit history before the range; percentage of new.

  ActiveCustomerCount:
    visitors with two or more visits inside the window - one visit is a
    trial, two is a habit.

  The engine treats both as black boxes and tolerates failure; nothing here
  is load-bearing for the revenue/cost derivations.

SEE ALSO:
  - metrics/customers.go: the capability interface and windows
  - engine/recalc.go: fallback behavior on procedure failure
*/
package sqlite

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zykor/performance-engine/calendar"
)

// NewCustomerPercent returns the percentage of the current range's distinct
// visitors with no visit before the range started. The comparison range is
// part of the procedure's call contract; the split itself is computed
// against the full prior history.
func (s *Store) NewCustomerPercent(ctx context.Context, tenantID int64, current, comparison calendar.Range) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT customer_key FROM customer_visits
			WHERE tenant_id = ? AND visit_date >= ? AND visit_date <= ?
		)`,
		tenantID, current.Start.Format(dateLayout), current.End.Format(dateLayout)).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if total == 0 {
		return decimal.Zero, nil
	}

	var fresh int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT customer_key FROM customer_visits
			WHERE tenant_id = ? AND visit_date >= ? AND visit_date <= ?
			  AND customer_key NOT IN (
				SELECT customer_key FROM customer_visits
				WHERE tenant_id = ? AND visit_date < ?
			  )
		)`,
		tenantID, current.Start.Format(dateLayout), current.End.Format(dateLayout),
		tenantID, current.Start.Format(dateLayout)).Scan(&fresh)
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromInt(int64(fresh)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)), nil
}

// ActiveCustomerCount returns the number of customers with at least two
// visits inside the window.
func (s *Store) ActiveCustomerCount(ctx context.Context, tenantID int64, window calendar.Range) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT customer_key FROM customer_visits
			WHERE tenant_id = ? AND visit_date >= ? AND visit_date <= ?
			GROUP BY customer_key
			HAVING COUNT(*) >= 2
		)`,
		tenantID, window.Start.Format(dateLayout), window.End.Format(dateLayout)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
