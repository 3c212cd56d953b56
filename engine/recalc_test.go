package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zykor/performance-engine/calendar"
	"github.com/zykor/performance-engine/engine"
	"github.com/zykor/performance-engine/metrics"
	"github.com/zykor/performance-engine/upstream"
)

// =============================================================================
// TEST FAKES
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeReader serves canned rows filtered by tenant and date range, and can
// fail wholesale for selected tenants.
type fakeReader struct {
	payments  []upstream.Payment
	primary   []upstream.TicketOrder
	secondary []upstream.TicketOrder
	samples   []upstream.HeadcountSample
	checkIns  []upstream.CheckIn
	entries   []upstream.LedgerEntry

	paymentsErr error
	failTenants map[int64]bool
}

func (f *fakeReader) tenantDown(tenantID int64) error {
	if f.failTenants[tenantID] {
		return errors.New("collector offline")
	}
	return nil
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

func (f *fakeReader) Payments(_ context.Context, tenantID int64, from, to time.Time) ([]upstream.Payment, error) {
	if f.paymentsErr != nil {
		return nil, f.paymentsErr
	}
	if err := f.tenantDown(tenantID); err != nil {
		return nil, err
	}
	var out []upstream.Payment
	for _, p := range f.payments {
		if p.TenantID == tenantID && inRange(p.BusinessDate, from, to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeReader) HeadcountSamples(_ context.Context, tenantID int64, from, to time.Time) ([]upstream.HeadcountSample, error) {
	if err := f.tenantDown(tenantID); err != nil {
		return nil, err
	}
	var out []upstream.HeadcountSample
	for _, s := range f.samples {
		if s.TenantID == tenantID && inRange(s.SampleDate, from, to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeReader) SettledOrders(_ context.Context, platform upstream.Platform, tenantID int64, from, to time.Time) ([]upstream.TicketOrder, error) {
	if err := f.tenantDown(tenantID); err != nil {
		return nil, err
	}
	rows := f.primary
	if platform == upstream.PlatformSecondary {
		rows = f.secondary
	}
	var out []upstream.TicketOrder
	for _, o := range rows {
		if o.TenantID == tenantID && o.Settled && inRange(o.OrderDate, from, to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeReader) AttendedCheckIns(_ context.Context, _ upstream.Platform, tenantID int64, from, to time.Time) ([]upstream.CheckIn, error) {
	if err := f.tenantDown(tenantID); err != nil {
		return nil, err
	}
	var out []upstream.CheckIn
	for _, ci := range f.checkIns {
		if ci.TenantID == tenantID && ci.Attended && inRange(ci.CheckInDate, from, to) {
			out = append(out, ci)
		}
	}
	return out, nil
}

func (f *fakeReader) LedgerEntries(_ context.Context, tenantID int64, from, to time.Time) ([]upstream.LedgerEntry, error) {
	if err := f.tenantDown(tenantID); err != nil {
		return nil, err
	}
	var out []upstream.LedgerEntry
	for _, e := range f.entries {
		if e.TenantID == tenantID && inRange(e.EntryDate, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeCustomers serves fixed analytics values or errors.
type fakeCustomers struct {
	newPct    decimal.Decimal
	newPctErr error
	active    int
	activeErr error
}

func (f *fakeCustomers) NewCustomerPercent(context.Context, int64, calendar.Range, calendar.Range) (decimal.Decimal, error) {
	if f.newPctErr != nil {
		return decimal.Zero, f.newPctErr
	}
	return f.newPct, nil
}

func (f *fakeCustomers) ActiveCustomerCount(context.Context, int64, calendar.Range) (int, error) {
	if f.activeErr != nil {
		return 0, f.activeErr
	}
	return f.active, nil
}

// seededReader returns a reader holding one representative week of tenant-1
// data: 50000 revenue, 500 customers, a 3000 attraction cost and 8500 labor.
func seededReader() *fakeReader {
	day := calendar.Date(2025, time.January, 7)
	return &fakeReader{
		payments: []upstream.Payment{
			{TenantID: 1, BusinessDate: day, NetAmount: dec("45000")},
		},
		primary: []upstream.TicketOrder{
			{TenantID: 1, OrderDate: day, ProductName: "General Admission Ticket", Quantity: 150, NetAmount: dec("4000"), Settled: true},
		},
		secondary: []upstream.TicketOrder{
			{TenantID: 1, OrderDate: day, ProductName: "Entry", Quantity: 20, NetAmount: dec("1000"), Settled: true},
		},
		samples: []upstream.HeadcountSample{
			{TenantID: 1, SampleDate: day, Headcount: 300},
		},
		checkIns: attended(1, day, 50),
		entries: []upstream.LedgerEntry{
			{TenantID: 1, EntryDate: day, Category: "Artist Booking", Amount: dec("-3000")},
			{TenantID: 1, EntryDate: day, Category: "STAFF SALARY", Amount: dec("-8500")},
			{TenantID: 1, EntryDate: day, Category: "Cleaning Supplies", Amount: dec("-200")},
		},
	}
}

func attended(tenantID int64, day time.Time, n int) []upstream.CheckIn {
	out := make([]upstream.CheckIn, n)
	for i := range out {
		out[i] = upstream.CheckIn{TenantID: tenantID, CheckInDate: day, Attended: true}
	}
	return out
}

// =============================================================================
// SNAPSHOT DERIVATION
// =============================================================================

func TestCompute_DerivesFullSnapshot(t *testing.T) {
	// GIVEN: One week of upstream data across every channel
	// WHEN: Computing the snapshot
	// THEN: Revenue 50000, 6% attraction cost, 8500 labor, 500 customers,
	//       average ticket 100, plus the analytics values

	store := newEngineStore(t)
	customers := &fakeCustomers{newPct: dec("25"), active: 42}
	recalc := engine.NewRecalculator(seededReader(), customers, metrics.DefaultClassifier(), store)

	week := calendar.Week{Year: 2025, Number: 2}
	snap, err := recalc.Compute(context.Background(), 1, week, week.DateRange(), nil)
	require.NoError(t, err)

	assert.True(t, snap.TotalRevenue.Equal(dec("50000")), "revenue %s", snap.TotalRevenue)
	assert.True(t, snap.AttractionCostPercent.Equal(dec("6")), "attraction %s", snap.AttractionCostPercent)
	assert.True(t, snap.LaborCost.Equal(dec("8500")), "labor %s", snap.LaborCost)
	assert.Equal(t, 500, snap.CustomersServed)
	assert.True(t, snap.AverageTicket.Equal(dec("100")), "ticket %s", snap.AverageTicket)
	assert.True(t, snap.NewCustomerPercent.Equal(dec("25")))
	assert.Equal(t, 42, snap.ActiveCustomerCount)
}

func TestCompute_QuietWeekIsAllZeros(t *testing.T) {
	// GIVEN: No upstream rows at all
	// WHEN: Computing the snapshot
	// THEN: Every derived field is zero; no division blows up

	store := newEngineStore(t)
	recalc := engine.NewRecalculator(&fakeReader{}, &fakeCustomers{}, metrics.DefaultClassifier(), store)

	week := calendar.Week{Year: 2025, Number: 2}
	snap, err := recalc.Compute(context.Background(), 1, week, week.DateRange(), nil)
	require.NoError(t, err)

	assert.True(t, snap.TotalRevenue.IsZero())
	assert.True(t, snap.AttractionCostPercent.IsZero())
	assert.True(t, snap.AverageTicket.IsZero())
	assert.Zero(t, snap.CustomersServed)
}

func TestCompute_UpstreamErrorAbortsSnapshot(t *testing.T) {
	// GIVEN: The POS payment read fails
	// WHEN: Computing the snapshot
	// THEN: The error surfaces with channel context; nothing partial returns

	store := newEngineStore(t)
	reader := seededReader()
	reader.paymentsErr = errors.New("connection reset")
	recalc := engine.NewRecalculator(reader, &fakeCustomers{}, metrics.DefaultClassifier(), store)

	week := calendar.Week{Year: 2025, Number: 2}
	_, err := recalc.Compute(context.Background(), 1, week, week.DateRange(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pos payments")
}

// =============================================================================
// CUSTOMER-ANALYTICS FALLBACK
// =============================================================================

func TestCompute_AnalyticsFailureFallsBackToHistory(t *testing.T) {
	// GIVEN: The analytics procedures are down and week 1 stored a non-zero
	//        new-customer percent
	// WHEN: Computing week 2 with a current record holding 42 actives
	// THEN: The percent falls back to the historical 12.5 and the active
	//       count keeps the record's value; the snapshot still succeeds

	store := newEngineStore(t)
	ctx := context.Background()

	w1 := calendar.Week{Year: 2025, Number: 1}
	hist := &engine.WeeklyRecord{
		TenantID: 1, Year: w1.Year, WeekNumber: w1.Number,
		WeekStart: w1.DateRange().Start, WeekEnd: w1.DateRange().End,
		NewCustomerPercent: dec("12.5"),
	}
	require.NoError(t, store.InsertWeek(ctx, hist))

	customers := &fakeCustomers{
		newPctErr: errors.New("procedure timeout"),
		activeErr: errors.New("procedure timeout"),
	}
	recalc := engine.NewRecalculator(seededReader(), customers, metrics.DefaultClassifier(), store)

	week := calendar.Week{Year: 2025, Number: 2}
	current := &engine.WeeklyRecord{
		TenantID: 1, Year: week.Year, WeekNumber: week.Number,
		NewCustomerPercent:  dec("9"),
		ActiveCustomerCount: 42,
	}

	snap, err := recalc.Compute(ctx, 1, week, week.DateRange(), current)
	require.NoError(t, err)
	assert.True(t, snap.NewCustomerPercent.Equal(dec("12.5")), "percent %s", snap.NewCustomerPercent)
	assert.Equal(t, 42, snap.ActiveCustomerCount)
}

func TestCompute_AnalyticsFailureWithoutHistoryKeepsCurrentValues(t *testing.T) {
	// GIVEN: Analytics down, no stored history at all
	// WHEN: Computing with a current record
	// THEN: The record's own values carry forward

	store := newEngineStore(t)
	customers := &fakeCustomers{
		newPctErr: errors.New("procedure timeout"),
		activeErr: errors.New("procedure timeout"),
	}
	recalc := engine.NewRecalculator(seededReader(), customers, metrics.DefaultClassifier(), store)

	week := calendar.Week{Year: 2025, Number: 2}
	current := &engine.WeeklyRecord{
		TenantID: 1, Year: week.Year, WeekNumber: week.Number,
		NewCustomerPercent:  dec("9"),
		ActiveCustomerCount: 17,
	}

	snap, err := recalc.Compute(context.Background(), 1, week, week.DateRange(), current)
	require.NoError(t, err)
	assert.True(t, snap.NewCustomerPercent.Equal(dec("9")))
	assert.Equal(t, 17, snap.ActiveCustomerCount)
}
