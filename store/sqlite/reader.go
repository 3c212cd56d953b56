/*
reader.go - SQL-backed paginated dataset reads

PURPOSE:
  Implements upstream.Reader over the collector-landed tables. Each dataset
  is exposed as an upstream.Source whose FetchPage translates the generic
  key-prefixed filters into a WHERE clause; upstream.FetchAll drives the
  page loop, so the engine always sees complete row sets.

SEE ALSO:
  - upstream/reader.go: pagination contract and filter types
  - sqlite.go: schema
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zykor/performance-engine/upstream"
)

// tableSource adapts one table to the upstream.Source contract.
type tableSource[T any] struct {
	store   *Store
	table   string
	columns string
	scan    func(*sql.Rows) (T, error)
}

// FetchPage returns up to limit rows starting at offset, under the query's
// filters and sort key.
func (ts tableSource[T]) FetchPage(ctx context.Context, q upstream.Query, offset, limit int) ([]T, error) {
	ts.store.mu.RLock()
	defer ts.store.mu.RUnlock()

	where, args, err := buildWhere(q.Filters)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + ts.columns + " FROM " + ts.table + where
	if q.OrderBy != "" {
		query += " ORDER BY " + q.OrderBy
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := ts.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		row, err := ts.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// buildWhere translates key-prefixed comparisons into a WHERE clause.
func buildWhere(filters []upstream.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	var (
		clauses []string
		args    []any
	)
	for _, f := range filters {
		switch f.Op {
		case upstream.OpAtLeast:
			clauses = append(clauses, f.Column+" >= ?")
			args = append(args, f.Value)
		case upstream.OpAtMost:
			clauses = append(clauses, f.Column+" <= ?")
			args = append(args, f.Value)
		case upstream.OpEquals:
			clauses = append(clauses, f.Column+" = ?")
			args = append(args, f.Value)
		case upstream.OpMemberOf:
			values, ok := f.Value.([]any)
			if !ok {
				return "", nil, fmt.Errorf("member-of filter on %s: value must be []any", f.Column)
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			clauses = append(clauses, f.Column+" IN ("+placeholders+")")
			args = append(args, values...)
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q on %s", f.Op, f.Column)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// tenantRange builds the common tenant-plus-date-range filter set.
func tenantRange(dateColumn string, tenantID int64, from, to time.Time) []upstream.Filter {
	return []upstream.Filter{
		upstream.Equals("tenant_id", tenantID),
		upstream.AtLeast(dateColumn, from.Format(dateLayout)),
		upstream.AtMost(dateColumn, to.Format(dateLayout)),
	}
}

// =============================================================================
// upstream.Reader
// =============================================================================

// Payments returns POS payment events for a tenant and date range.
func (s *Store) Payments(ctx context.Context, tenantID int64, from, to time.Time) ([]upstream.Payment, error) {
	src := tableSource[upstream.Payment]{
		store:   s,
		table:   "pos_payments",
		columns: "tenant_id, business_date, net_amount",
		scan:    scanPayment,
	}
	return upstream.FetchAll(ctx, src, upstream.Query{
		Dataset: "pos_payments",
		Filters: tenantRange("business_date", tenantID, from, to),
		OrderBy: "business_date, id",
	})
}

// HeadcountSamples returns POS headcount samples for a tenant and date range.
func (s *Store) HeadcountSamples(ctx context.Context, tenantID int64, from, to time.Time) ([]upstream.HeadcountSample, error) {
	src := tableSource[upstream.HeadcountSample]{
		store:   s,
		table:   "pos_headcount",
		columns: "tenant_id, sample_date, headcount",
		scan:    scanHeadcountSample,
	}
	return upstream.FetchAll(ctx, src, upstream.Query{
		Dataset: "pos_headcount",
		Filters: tenantRange("sample_date", tenantID, from, to),
		OrderBy: "sample_date, id",
	})
}

// SettledOrders returns a platform's settled ticket orders for a tenant and
// date range.
func (s *Store) SettledOrders(ctx context.Context, platform upstream.Platform, tenantID int64, from, to time.Time) ([]upstream.TicketOrder, error) {
	src := tableSource[upstream.TicketOrder]{
		store:   s,
		table:   "ticket_orders",
		columns: "tenant_id, platform, order_date, product_name, quantity, net_amount, settled",
		scan:    scanTicketOrder,
	}
	filters := append(tenantRange("order_date", tenantID, from, to),
		upstream.Equals("platform", string(platform)),
		upstream.Equals("settled", 1))
	return upstream.FetchAll(ctx, src, upstream.Query{
		Dataset: "ticket_orders",
		Filters: filters,
		OrderBy: "order_date, id",
	})
}

// AttendedCheckIns returns a platform's attended check-ins for a tenant and
// date range.
func (s *Store) AttendedCheckIns(ctx context.Context, platform upstream.Platform, tenantID int64, from, to time.Time) ([]upstream.CheckIn, error) {
	src := tableSource[upstream.CheckIn]{
		store:   s,
		table:   "ticket_checkins",
		columns: "tenant_id, platform, checkin_date, attended",
		scan:    scanCheckIn,
	}
	filters := append(tenantRange("checkin_date", tenantID, from, to),
		upstream.Equals("platform", string(platform)),
		upstream.Equals("attended", 1))
	return upstream.FetchAll(ctx, src, upstream.Query{
		Dataset: "ticket_checkins",
		Filters: filters,
		OrderBy: "checkin_date, id",
	})
}

// LedgerEntries returns cost-ledger rows for a tenant and date range.
func (s *Store) LedgerEntries(ctx context.Context, tenantID int64, from, to time.Time) ([]upstream.LedgerEntry, error) {
	src := tableSource[upstream.LedgerEntry]{
		store:   s,
		table:   "ledger_entries",
		columns: "tenant_id, entry_date, category, amount",
		scan:    scanLedgerEntry,
	}
	return upstream.FetchAll(ctx, src, upstream.Query{
		Dataset: "ledger_entries",
		Filters: tenantRange("entry_date", tenantID, from, to),
		OrderBy: "entry_date, id",
	})
}

// =============================================================================
// DATASET WRITES (collector-side; used by sync tooling and tests)
// =============================================================================

// InsertPayment lands one POS payment row.
func (s *Store) InsertPayment(ctx context.Context, p upstream.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pos_payments (tenant_id, business_date, net_amount) VALUES (?, ?, ?)`,
		p.TenantID, p.BusinessDate.Format(dateLayout), p.NetAmount.String())
	return err
}

// InsertHeadcountSample lands one POS headcount row.
func (s *Store) InsertHeadcountSample(ctx context.Context, h upstream.HeadcountSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pos_headcount (tenant_id, sample_date, headcount) VALUES (?, ?, ?)`,
		h.TenantID, h.SampleDate.Format(dateLayout), h.Headcount)
	return err
}

// InsertTicketOrder lands one ticketing-platform order row.
func (s *Store) InsertTicketOrder(ctx context.Context, o upstream.TicketOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticket_orders (tenant_id, platform, order_date, product_name, quantity, net_amount, settled)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.TenantID, string(o.Platform), o.OrderDate.Format(dateLayout),
		o.ProductName, o.Quantity, o.NetAmount.String(), boolToInt(o.Settled))
	return err
}

// InsertCheckIn lands one ticketing-platform check-in row.
func (s *Store) InsertCheckIn(ctx context.Context, ci upstream.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticket_checkins (tenant_id, platform, checkin_date, attended) VALUES (?, ?, ?, ?)`,
		ci.TenantID, string(ci.Platform), ci.CheckInDate.Format(dateLayout), boolToInt(ci.Attended))
	return err
}

// InsertLedgerEntry lands one cost-ledger row.
func (s *Store) InsertLedgerEntry(ctx context.Context, e upstream.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (tenant_id, entry_date, category, amount) VALUES (?, ?, ?, ?)`,
		e.TenantID, e.EntryDate.Format(dateLayout), e.Category, e.Amount.String())
	return err
}

// InsertCustomerVisit lands one customer-visit row.
func (s *Store) InsertCustomerVisit(ctx context.Context, tenantID int64, customerKey string, visitDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customer_visits (tenant_id, customer_key, visit_date) VALUES (?, ?, ?)`,
		tenantID, customerKey, visitDate.Format(dateLayout))
	return err
}

// =============================================================================
// ROW SCANNERS
// =============================================================================

func scanPayment(rows *sql.Rows) (upstream.Payment, error) {
	var (
		p      upstream.Payment
		date   string
		amount string
	)
	if err := rows.Scan(&p.TenantID, &date, &amount); err != nil {
		return p, err
	}
	var err error
	if p.BusinessDate, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return p, err
	}
	if p.NetAmount, err = decimal.NewFromString(amount); err != nil {
		return p, err
	}
	return p, nil
}

func scanHeadcountSample(rows *sql.Rows) (upstream.HeadcountSample, error) {
	var (
		h    upstream.HeadcountSample
		date string
	)
	if err := rows.Scan(&h.TenantID, &date, &h.Headcount); err != nil {
		return h, err
	}
	var err error
	if h.SampleDate, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return h, err
	}
	return h, nil
}

func scanTicketOrder(rows *sql.Rows) (upstream.TicketOrder, error) {
	var (
		o        upstream.TicketOrder
		platform string
		date     string
		amount   string
		settled  int
	)
	if err := rows.Scan(&o.TenantID, &platform, &date, &o.ProductName, &o.Quantity, &amount, &settled); err != nil {
		return o, err
	}
	o.Platform = upstream.Platform(platform)
	o.Settled = settled != 0
	var err error
	if o.OrderDate, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return o, err
	}
	if o.NetAmount, err = decimal.NewFromString(amount); err != nil {
		return o, err
	}
	return o, nil
}

func scanCheckIn(rows *sql.Rows) (upstream.CheckIn, error) {
	var (
		ci       upstream.CheckIn
		platform string
		date     string
		attended int
	)
	if err := rows.Scan(&ci.TenantID, &platform, &date, &attended); err != nil {
		return ci, err
	}
	ci.Platform = upstream.Platform(platform)
	ci.Attended = attended != 0
	var err error
	if ci.CheckInDate, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return ci, err
	}
	return ci, nil
}

func scanLedgerEntry(rows *sql.Rows) (upstream.LedgerEntry, error) {
	var (
		e      upstream.LedgerEntry
		date   string
		amount string
	)
	if err := rows.Scan(&e.TenantID, &date, &e.Category, &amount); err != nil {
		return e, err
	}
	var err error
	if e.EntryDate, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return e, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, err
	}
	return e, nil
}
