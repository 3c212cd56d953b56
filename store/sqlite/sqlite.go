/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.RecordStore, engine.RunStore, upstream.Reader and
  metrics.CustomerMetricsProvider on one SQLite database. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  tenants:             Tenant registry (read-only collaborator data)
  weekly_performance:  The durable weekly records - the engine's output
  recalculation_runs:  One audit row per job invocation
  pos_payments, pos_headcount, ticket_orders, ticket_checkins,
  ledger_entries, customer_visits:
                       Upstream datasets landed by external collectors;
                       strictly read-only from the engine's perspective

MONEY COLUMNS:
  Currency and percent values are stored as TEXT and parsed with
  decimal.Decimal. REAL columns accumulate binary-float drift over a year
  of weekly sums.

LIFECYCLE CONTRACT:
  weekly_performance rows are inserted once per (tenant, year, week) -
  enforced by the primary key - and thereafter only updated. Nothing in
  this package deletes them.

CONCURRENCY:
  sync.RWMutex guards the connection; SQLite runs in WAL mode so readers
  do not block each other.

USAGE:
  store, err := sqlite.New("./data/performance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/record.go: interface definitions
  - reader.go: paginated dataset reads
  - analytics.go: the customer-analytics procedures
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/zykor/performance-engine/calendar"
	"github.com/zykor/performance-engine/engine"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tenant registry
	CREATE TABLE IF NOT EXISTS tenants (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Weekly performance records (the engine's durable output)
	CREATE TABLE IF NOT EXISTS weekly_performance (
		tenant_id INTEGER NOT NULL,
		year INTEGER NOT NULL,
		week_number INTEGER NOT NULL,
		week_start TEXT NOT NULL,
		week_end TEXT NOT NULL,
		total_revenue TEXT NOT NULL DEFAULT '0',
		attraction_cost_percent TEXT NOT NULL DEFAULT '0',
		labor_cost TEXT NOT NULL DEFAULT '0',
		customers_served INTEGER NOT NULL DEFAULT 0,
		average_ticket TEXT NOT NULL DEFAULT '0',
		new_customer_percent TEXT NOT NULL DEFAULT '0',
		active_customer_count INTEGER NOT NULL DEFAULT 0,
		last_recalculated_at TEXT,
		notes TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tenant_id, year, week_number)
	);

	CREATE INDEX IF NOT EXISTS idx_weekly_performance_tenant_week
		ON weekly_performance(tenant_id, year DESC, week_number DESC);

	-- Job invocation audit trail
	CREATE TABLE IF NOT EXISTS recalculation_runs (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		week_number INTEGER NOT NULL,
		tenants INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	-- Upstream datasets (written by external collectors, read-only here)
	CREATE TABLE IF NOT EXISTS pos_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		business_date TEXT NOT NULL,
		net_amount TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pos_payments_tenant_date
		ON pos_payments(tenant_id, business_date);

	CREATE TABLE IF NOT EXISTS pos_headcount (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		sample_date TEXT NOT NULL,
		headcount INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pos_headcount_tenant_date
		ON pos_headcount(tenant_id, sample_date);

	CREATE TABLE IF NOT EXISTS ticket_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		platform TEXT NOT NULL,
		order_date TEXT NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		net_amount TEXT NOT NULL DEFAULT '0',
		settled INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_ticket_orders_tenant_date
		ON ticket_orders(tenant_id, platform, order_date);

	CREATE TABLE IF NOT EXISTS ticket_checkins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		platform TEXT NOT NULL,
		checkin_date TEXT NOT NULL,
		attended INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_ticket_checkins_tenant_date
		ON ticket_checkins(tenant_id, platform, checkin_date);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		entry_date TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_tenant_date
		ON ledger_entries(tenant_id, entry_date);

	CREATE TABLE IF NOT EXISTS customer_visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		customer_key TEXT NOT NULL,
		visit_date TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_customer_visits_tenant_date
		ON customer_visits(tenant_id, visit_date);
	CREATE INDEX IF NOT EXISTS idx_customer_visits_tenant_key
		ON customer_visits(tenant_id, customer_key, visit_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANTS
// =============================================================================

// SaveTenant inserts or replaces a tenant registry row.
func (s *Store) SaveTenant(ctx context.Context, t engine.Tenant, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tenants (id, name, active) VALUES (?, ?, ?)`,
		t.ID, t.Name, boolToInt(active))
	return err
}

// ListActiveTenants returns the tenants the job processes, ordered by id.
func (s *Store) ListActiveTenants(ctx context.Context) ([]engine.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM tenants WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []engine.Tenant
	for rows.Next() {
		var t engine.Tenant
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// =============================================================================
// WEEKLY RECORDS
// =============================================================================

// GetWeek returns the record for the composite key, or nil when absent.
func (s *Store) GetWeek(ctx context.Context, tenantID int64, week calendar.Week) (*engine.WeeklyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, year, week_number, week_start, week_end,
		       total_revenue, attraction_cost_percent, labor_cost,
		       customers_served, average_ticket, new_customer_percent,
		       active_customer_count, last_recalculated_at, notes
		FROM weekly_performance
		WHERE tenant_id = ? AND year = ? AND week_number = ?`,
		tenantID, week.Year, week.Number)

	rec, err := scanWeeklyRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// InsertWeek creates a record. Fails on a duplicate composite key.
func (s *Store) InsertWeek(ctx context.Context, rec *engine.WeeklyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_performance (
			tenant_id, year, week_number, week_start, week_end,
			total_revenue, attraction_cost_percent, labor_cost,
			customers_served, average_ticket, new_customer_percent,
			active_customer_count, last_recalculated_at, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TenantID, rec.Year, rec.WeekNumber,
		rec.WeekStart.Format(dateLayout), rec.WeekEnd.Format(dateLayout),
		rec.TotalRevenue.String(), rec.AttractionCostPercent.String(),
		rec.LaborCost.String(), rec.CustomersServed,
		rec.AverageTicket.String(), rec.NewCustomerPercent.String(),
		rec.ActiveCustomerCount, timeText(rec.LastRecalculatedAt), rec.Notes)
	return err
}

// UpdateWeek overwrites the full derived-field set of an existing record.
func (s *Store) UpdateWeek(ctx context.Context, rec *engine.WeeklyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE weekly_performance SET
			total_revenue = ?, attraction_cost_percent = ?, labor_cost = ?,
			customers_served = ?, average_ticket = ?, new_customer_percent = ?,
			active_customer_count = ?, last_recalculated_at = ?, notes = ?
		WHERE tenant_id = ? AND year = ? AND week_number = ?`,
		rec.TotalRevenue.String(), rec.AttractionCostPercent.String(),
		rec.LaborCost.String(), rec.CustomersServed,
		rec.AverageTicket.String(), rec.NewCustomerPercent.String(),
		rec.ActiveCustomerCount, timeText(rec.LastRecalculatedAt), rec.Notes,
		rec.TenantID, rec.Year, rec.WeekNumber)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrRecordNotFound
	}
	return nil
}

// ListWeeks returns a tenant's records, newest first. Year 0 means all years.
func (s *Store) ListWeeks(ctx context.Context, tenantID int64, year int) ([]engine.WeeklyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT tenant_id, year, week_number, week_start, week_end,
		       total_revenue, attraction_cost_percent, labor_cost,
		       customers_served, average_ticket, new_customer_percent,
		       active_customer_count, last_recalculated_at, notes
		FROM weekly_performance
		WHERE tenant_id = ?`
	args := []any{tenantID}
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY year DESC, week_number DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []engine.WeeklyRecord
	for rows.Next() {
		rec, err := scanWeeklyRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// LatestNonZeroNewCustomerPercent returns the most recent non-zero stored
// new-customer percent before the given week.
func (s *Store) LatestNonZeroNewCustomerPercent(ctx context.Context, tenantID int64, before calendar.Week) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var text string
	err := s.db.QueryRowContext(ctx, `
		SELECT new_customer_percent FROM weekly_performance
		WHERE tenant_id = ?
		  AND (year < ? OR (year = ? AND week_number < ?))
		  AND CAST(new_customer_percent AS REAL) != 0
		ORDER BY year DESC, week_number DESC
		LIMIT 1`,
		tenantID, before.Year, before.Year, before.Number).Scan(&text)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse stored percent %q: %w", text, err)
	}
	return value, true, nil
}

// =============================================================================
// RECALCULATION RUNS
// =============================================================================

// SaveRun inserts or replaces a run audit row.
func (s *Store) SaveRun(ctx context.Context, run engine.RecalculationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC().Format(timeLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO recalculation_runs
			(id, year, week_number, tenants, succeeded, failed, status, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Year, run.WeekNumber, run.Tenants, run.Succeeded, run.Failed,
		run.Status, run.Error, run.StartedAt.UTC().Format(timeLayout), completed)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]engine.RecalculationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, week_number, tenants, succeeded, failed, status, error, started_at, completed_at
		FROM recalculation_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []engine.RecalculationRun
	for rows.Next() {
		var (
			run       engine.RecalculationRun
			errText   sql.NullString
			started   string
			completed sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Year, &run.WeekNumber, &run.Tenants,
			&run.Succeeded, &run.Failed, &run.Status, &errText, &started, &completed); err != nil {
			return nil, err
		}
		run.Error = errText.String
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, err
		}
		if completed.Valid {
			t, err := time.Parse(timeLayout, completed.String)
			if err != nil {
				return nil, err
			}
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// SCAN / FORMAT HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeeklyRecord(row rowScanner) (*engine.WeeklyRecord, error) {
	var (
		rec                   engine.WeeklyRecord
		weekStart, weekEnd    string
		revenue, attraction   string
		labor, ticket, newPct string
		recalculatedAt        sql.NullString
	)

	err := row.Scan(&rec.TenantID, &rec.Year, &rec.WeekNumber, &weekStart, &weekEnd,
		&revenue, &attraction, &labor, &rec.CustomersServed, &ticket, &newPct,
		&rec.ActiveCustomerCount, &recalculatedAt, &rec.Notes)
	if err != nil {
		return nil, err
	}

	if rec.WeekStart, err = time.ParseInLocation(dateLayout, weekStart, time.UTC); err != nil {
		return nil, err
	}
	if rec.WeekEnd, err = time.ParseInLocation(dateLayout, weekEnd, time.UTC); err != nil {
		return nil, err
	}
	if rec.TotalRevenue, err = decimal.NewFromString(revenue); err != nil {
		return nil, err
	}
	if rec.AttractionCostPercent, err = decimal.NewFromString(attraction); err != nil {
		return nil, err
	}
	if rec.LaborCost, err = decimal.NewFromString(labor); err != nil {
		return nil, err
	}
	if rec.AverageTicket, err = decimal.NewFromString(ticket); err != nil {
		return nil, err
	}
	if rec.NewCustomerPercent, err = decimal.NewFromString(newPct); err != nil {
		return nil, err
	}
	if recalculatedAt.Valid && recalculatedAt.String != "" {
		if rec.LastRecalculatedAt, err = time.Parse(timeLayout, recalculatedAt.String); err != nil {
			return nil, err
		}
	}

	return &rec, nil
}

func timeText(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
