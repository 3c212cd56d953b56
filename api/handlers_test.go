package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zykor/performance-engine/api"
	"github.com/zykor/performance-engine/calendar"
	"github.com/zykor/performance-engine/engine"
	"github.com/zykor/performance-engine/metrics"
	"github.com/zykor/performance-engine/store/sqlite"
	"github.com/zykor/performance-engine/upstream"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.January, 8, 3, 0, 0, 0, time.UTC) // Wed, week 2

// newTestServer wires the full stack - the sqlite store serves as record
// store, run store, upstream reader and analytics provider - against an
// in-memory database.
func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	lifecycle := engine.NewLifecycle(store)
	lifecycle.Now = func() time.Time { return testNow }
	recalc := engine.NewRecalculator(store, store, metrics.DefaultClassifier(), store)
	orch := engine.NewOrchestrator(store, lifecycle, recalc, store)
	orch.Now = func() time.Time { return testNow }

	server := httptest.NewServer(api.NewRouter(api.NewHandler(store, orch)))
	t.Cleanup(server.Close)
	return server, store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedWeekOfData(t *testing.T, store *sqlite.Store, tenantID int64) {
	t.Helper()
	ctx := context.Background()
	day := calendar.Date(2025, time.January, 7)

	require.NoError(t, store.InsertPayment(ctx, upstream.Payment{
		TenantID: tenantID, BusinessDate: day, NetAmount: dec("45000"),
	}))
	require.NoError(t, store.InsertTicketOrder(ctx, upstream.TicketOrder{
		TenantID: tenantID, Platform: upstream.PlatformPrimary, OrderDate: day,
		ProductName: "General Admission Ticket", Quantity: 150, NetAmount: dec("5000"), Settled: true,
	}))
	require.NoError(t, store.InsertHeadcountSample(ctx, upstream.HeadcountSample{
		TenantID: tenantID, SampleDate: day, Headcount: 350,
	}))
	require.NoError(t, store.InsertLedgerEntry(ctx, upstream.LedgerEntry{
		TenantID: tenantID, EntryDate: day, Category: "Artist Booking", Amount: dec("-3000"),
	}))
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

// =============================================================================
// TRIGGER ENDPOINT
// =============================================================================

func TestTriggerRecalculation_ResponseContract(t *testing.T) {
	// GIVEN: One active tenant with a week of upstream data
	// WHEN: POSTing the trigger
	// THEN: 200 with success, the processed week, and one per-tenant result
	//       carrying the derived record

	server, store := newTestServer(t)
	require.NoError(t, store.SaveTenant(context.Background(), engine.Tenant{ID: 1, Name: "Main Hall"}, true))
	seedWeekOfData(t, store, 1)

	resp, err := http.Post(server.URL+"/api/jobs/weekly-recalculation", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.RecalculationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.True(t, body.Success)
	assert.Equal(t, 2, body.WeekProcessed)
	assert.Equal(t, 2025, body.Year)
	assert.NotEmpty(t, body.Timestamp)

	require.Len(t, body.PerTenantResults, 1)
	tr := body.PerTenantResults[0]
	assert.Equal(t, int64(1), tr.TenantID)
	assert.Equal(t, "Main Hall", tr.TenantName)
	assert.Equal(t, 2, tr.WeekProcessed)
	assert.Equal(t, 1, tr.PreviousWeek)
	assert.True(t, tr.Succeeded)
	assert.Empty(t, tr.Error)

	require.NotNil(t, tr.Data)
	assert.Equal(t, "50000", tr.Data.TotalRevenue)
	assert.Equal(t, "6", tr.Data.AttractionCostPercent)
	assert.Equal(t, 500, tr.Data.CustomersServed)
	assert.Equal(t, "100", tr.Data.AverageTicket)
	assert.Equal(t, "2025-01-06", tr.Data.WeekStart)
	assert.Equal(t, "2025-01-12", tr.Data.WeekEnd)
}

func TestTriggerRecalculation_NoTenantsConflict(t *testing.T) {
	// GIVEN: An empty tenant registry
	// WHEN: POSTing the trigger
	// THEN: 409 with the failure payload

	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/jobs/weekly-recalculation", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "no active tenants")
	assert.NotEmpty(t, body.Timestamp)
}

func TestTriggerRecalculation_IsIdempotent(t *testing.T) {
	// GIVEN: A successful run
	// WHEN: Triggering again with unchanged upstream data
	// THEN: Same derived fields, still one record for the week

	server, store := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTenant(ctx, engine.Tenant{ID: 1, Name: "Main Hall"}, true))
	seedWeekOfData(t, store, 1)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(server.URL+"/api/jobs/weekly-recalculation", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	records, err := store.ListWeeks(ctx, 1, 2025)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].TotalRevenue.Equal(dec("50000")))
}

// =============================================================================
// READ-ONLY VIEWS
// =============================================================================

func TestListTenants(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTenant(ctx, engine.Tenant{ID: 1, Name: "Main Hall"}, true))
	require.NoError(t, store.SaveTenant(ctx, engine.Tenant{ID: 2, Name: "Closed Venue"}, false))

	var tenants []api.TenantDTO
	status := getJSON(t, server.URL+"/api/tenants", &tenants)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, tenants, 1)
	assert.Equal(t, "Main Hall", tenants[0].Name)
}

func TestListTenantWeeks(t *testing.T) {
	// GIVEN: A tenant with a recomputed week
	// WHEN: Fetching its weeks
	// THEN: The derived record returns as money-safe strings

	server, store := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTenant(ctx, engine.Tenant{ID: 1, Name: "Main Hall"}, true))
	seedWeekOfData(t, store, 1)

	resp, err := http.Post(server.URL+"/api/jobs/weekly-recalculation", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	var weeks []api.WeeklyRecordDTO
	status := getJSON(t, server.URL+"/api/tenants/1/weeks?year=2025", &weeks)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, weeks, 1)
	assert.Equal(t, 2, weeks[0].WeekNumber)
	assert.Equal(t, "50000", weeks[0].TotalRevenue)
	assert.NotEmpty(t, weeks[0].LastRecalculatedAt)
}

func TestListTenantWeeks_InvalidID(t *testing.T) {
	server, _ := newTestServer(t)

	var body api.ErrorResponse
	status := getJSON(t, server.URL+"/api/tenants/not-a-number/weeks", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)
}

func TestListRuns_AfterTrigger(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTenant(ctx, engine.Tenant{ID: 1, Name: "Main Hall"}, true))
	seedWeekOfData(t, store, 1)

	resp, err := http.Post(server.URL+"/api/jobs/weekly-recalculation", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	var runs []api.RunDTO
	status := getJSON(t, server.URL+"/api/jobs/runs?limit=5", &runs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 1, runs[0].Tenants)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 2, runs[0].WeekNumber)
}
