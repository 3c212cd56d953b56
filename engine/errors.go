/*
errors.go - Centralized error types for the weekly engine

PURPOSE:
  All engine error types in one place. Callers distinguish contract
  violations (a missing record on update means the orchestrator skipped
  EnsureWeek) from transient upstream failures (which the tenant loop
  isolates).

USAGE:
    if errors.Is(err, engine.ErrRecordNotFound) {
        // ordering bug, not a transient condition
    }

SEE ALSO:
  - lifecycle.go: raises ErrRecordNotFound
  - rollover.go: raises ErrNoActiveTenants
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/zykor/performance-engine/calendar"
)

var (
	// ErrRecordNotFound is returned when a snapshot is applied to a week
	// that was never created. This indicates an ordering bug in the
	// orchestrator, not a transient condition.
	ErrRecordNotFound = errors.New("weekly record not found")

	// ErrNoActiveTenants is returned when the tenant registry yields
	// nothing to process.
	ErrNoActiveTenants = errors.New("no active tenants")
)

// TenantWeekError ties a failure to the tenant and week being processed.
type TenantWeekError struct {
	TenantID int64
	Week     calendar.Week
	Stage    string // "previous-week", "ensure", "recompute", "apply"
	Err      error
}

func (e *TenantWeekError) Error() string {
	return fmt.Sprintf("tenant %d week %s: %s: %v", e.TenantID, e.Week, e.Stage, e.Err)
}

func (e *TenantWeekError) Unwrap() error { return e.Err }
