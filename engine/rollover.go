/*
rollover.go - Per-invocation rollover orchestration

PURPOSE:
  The job entry point. Each invocation, for every active tenant in order:

  1. Resolve the current week from "now".
  2. Resolve the previous week: week-1, with the fixed wrap to week 52 of
     the prior year.
  3. Recompute the previous week, best-effort: only when its record exists,
     over its stored date range; failures are logged and never abort the
     tenant.
  4. Ensure the current week's record exists (zero-initialized on first
     sight).
  5. Recompute the current week; a failure here marks the tenant failed but
     the loop continues to the next tenant.

  Tenants are processed strictly sequentially: one tenant's row sets are
  fully released before the next tenant's reads begin, and failure
  attribution stays trivial. There is no retry inside an invocation - the
  next scheduled run retries naturally because recomputation is idempotent.

SEE ALSO:
  - recalc.go: snapshot derivation
  - lifecycle.go: EnsureWeek / ApplySnapshot
  - api/handlers.go: HTTP trigger wrapping Run
*/
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zykor/performance-engine/calendar"
)

// TenantResult is the outcome of one tenant's rollover.
type TenantResult struct {
	TenantID     int64
	TenantName   string
	Week         calendar.Week
	PreviousWeek calendar.Week
	Succeeded    bool

	// Record is the applied current-week snapshot when Succeeded.
	Record *WeeklyRecord

	// Err holds the captured failure when !Succeeded.
	Err string
}

// RunResult is the outcome of one full invocation.
type RunResult struct {
	Week        calendar.Week
	Results     []TenantResult
	StartedAt   time.Time
	CompletedAt time.Time
}

// Succeeded counts tenants whose current-week recomputation applied.
func (r *RunResult) Succeeded() int {
	n := 0
	for _, tr := range r.Results {
		if tr.Succeeded {
			n++
		}
	}
	return n
}

// Failed counts tenants whose current-week recomputation did not apply.
func (r *RunResult) Failed() int { return len(r.Results) - r.Succeeded() }

// Orchestrator drives the weekly rollover across all active tenants.
type Orchestrator struct {
	Store     RecordStore
	Lifecycle *Lifecycle
	Recalc    *Recalculator

	// Runs, when set, receives one audit row per invocation.
	Runs RunStore

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(store RecordStore, lifecycle *Lifecycle, recalc *Recalculator, runs RunStore) *Orchestrator {
	return &Orchestrator{
		Store:     store,
		Lifecycle: lifecycle,
		Recalc:    recalc,
		Runs:      runs,
		Now:       time.Now,
	}
}

// Run executes one full rollover invocation. It errors only on top-level
// failures (tenant registry unavailable or empty); per-tenant failures are
// captured in the result.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	started := o.Now().UTC()
	week := calendar.WeekOf(started)

	log.Printf("[Recalc] starting weekly rollover for %s", week)

	tenants, err := o.Store.ListActiveTenants(ctx)
	if err != nil {
		o.recordRun(ctx, week, nil, started, fmt.Sprintf("list tenants: %v", err))
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	if len(tenants) == 0 {
		o.recordRun(ctx, week, nil, started, ErrNoActiveTenants.Error())
		return nil, ErrNoActiveTenants
	}

	result := &RunResult{Week: week, StartedAt: started}

	for _, tenant := range tenants {
		result.Results = append(result.Results, o.processTenant(ctx, tenant, week))
	}

	result.CompletedAt = o.Now().UTC()
	log.Printf("[Recalc] rollover %s completed: %d tenants, %d succeeded, %d failed",
		week, len(result.Results), result.Succeeded(), result.Failed())

	o.recordRun(ctx, week, result, started, "")
	return result, nil
}

// processTenant runs the five rollover stages for one tenant.
func (o *Orchestrator) processTenant(ctx context.Context, tenant Tenant, week calendar.Week) TenantResult {
	prev := week.Previous()
	tr := TenantResult{
		TenantID:     tenant.ID,
		TenantName:   tenant.Name,
		Week:         week,
		PreviousWeek: prev,
	}

	log.Printf("[Recalc] tenant %q (%d): closing %s, recomputing %s", tenant.Name, tenant.ID, prev, week)

	// The previous week holds finalizing data; a failure there must never
	// block the current week's close.
	if err := o.recomputePreviousWeek(ctx, tenant.ID, prev); err != nil {
		log.Printf("[Recalc] tenant %d: previous week %s not recomputed: %v", tenant.ID, prev, err)
	}

	if _, err := o.Lifecycle.EnsureWeek(ctx, tenant.ID, week); err != nil {
		tr.Err = (&TenantWeekError{TenantID: tenant.ID, Week: week, Stage: "ensure", Err: err}).Error()
		return tr
	}

	rec, err := o.recomputeWeek(ctx, tenant.ID, week)
	if err != nil {
		tr.Err = (&TenantWeekError{TenantID: tenant.ID, Week: week, Stage: "recompute", Err: err}).Error()
		return tr
	}

	tr.Succeeded = true
	tr.Record = rec
	return tr
}

// recomputePreviousWeek recomputes a closed week when its record exists.
// A week never opened (new tenant, first run of the year) is skipped.
func (o *Orchestrator) recomputePreviousWeek(ctx context.Context, tenantID int64, week calendar.Week) error {
	rec, err := o.Store.GetWeek(ctx, tenantID, week)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	// Recompute over the record's stored boundaries, not a re-derived
	// range, so historical records keep the period they were created with.
	snap, err := o.Recalc.Compute(ctx, tenantID, week, calendar.Range{Start: rec.WeekStart, End: rec.WeekEnd}, rec)
	if err != nil {
		return err
	}

	_, err = o.Lifecycle.ApplySnapshot(ctx, tenantID, week, snap)
	return err
}

// recomputeWeek recomputes the current week and applies the snapshot. The
// record must exist; the caller ensures it first.
func (o *Orchestrator) recomputeWeek(ctx context.Context, tenantID int64, week calendar.Week) (*WeeklyRecord, error) {
	rec, err := o.Store.GetWeek(ctx, tenantID, week)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	snap, err := o.Recalc.Compute(ctx, tenantID, week, calendar.Range{Start: rec.WeekStart, End: rec.WeekEnd}, rec)
	if err != nil {
		return nil, err
	}

	return o.Lifecycle.ApplySnapshot(ctx, tenantID, week, snap)
}

// recordRun persists the audit row when a run store is configured.
func (o *Orchestrator) recordRun(ctx context.Context, week calendar.Week, result *RunResult, started time.Time, topErr string) {
	if o.Runs == nil {
		return
	}

	completed := o.Now().UTC()
	run := RecalculationRun{
		ID:          fmt.Sprintf("run-%d", started.UnixNano()),
		Year:        week.Year,
		WeekNumber:  week.Number,
		Status:      "completed",
		StartedAt:   started,
		CompletedAt: &completed,
	}

	if topErr != "" {
		run.Status = "failed"
		run.Error = topErr
	} else if result != nil {
		run.Tenants = len(result.Results)
		run.Succeeded = result.Succeeded()
		run.Failed = result.Failed()
	}

	if err := o.Runs.SaveRun(ctx, run); err != nil {
		log.Printf("[Recalc] failed to record run: %v", err)
	}
}
