/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the job trigger and the read-only views. These types
  decouple the engine's domain model from the external API contract; the
  scheduler integration and the dashboard both consume these shapes.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

MONEY FIELDS:
  Serialized as decimal strings ("45000", "6.25"), never floats. Clients
  parse them with their own decimal type.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/rollover.go: RunResult, the source of the trigger response
*/
package api

import (
	"time"

	"github.com/zykor/performance-engine/engine"
)

// WeeklyRecordDTO is one weekly performance record in API responses.
type WeeklyRecordDTO struct {
	TenantID              int64  `json:"tenantId"`
	Year                  int    `json:"year"`
	WeekNumber            int    `json:"weekNumber"`
	WeekStart             string `json:"weekStart"`
	WeekEnd               string `json:"weekEnd"`
	TotalRevenue          string `json:"totalRevenue"`
	AttractionCostPercent string `json:"attractionCostPercent"`
	LaborCost             string `json:"laborCost"`
	CustomersServed       int    `json:"customersServed"`
	AverageTicket         string `json:"averageTicket"`
	NewCustomerPercent    string `json:"newCustomerPercent"`
	ActiveCustomerCount   int    `json:"activeCustomerCount"`
	LastRecalculatedAt    string `json:"lastRecalculatedAt,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

// TenantResultDTO is one tenant's outcome within a recalculation run.
type TenantResultDTO struct {
	TenantID      int64            `json:"tenantId"`
	TenantName    string           `json:"tenantName"`
	WeekProcessed int              `json:"weekProcessed"`
	PreviousWeek  int              `json:"previousWeek"`
	Year          int              `json:"year"`
	Succeeded     bool             `json:"succeeded"`
	Data          *WeeklyRecordDTO `json:"data,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// RecalculationResponse is the trigger endpoint's success payload.
type RecalculationResponse struct {
	Success          bool              `json:"success"`
	Message          string            `json:"message"`
	WeekProcessed    int               `json:"weekProcessed"`
	Year             int               `json:"year"`
	PerTenantResults []TenantResultDTO `json:"perTenantResults"`
	Timestamp        string            `json:"timestamp"`
}

// ErrorResponse is the failure payload for every endpoint.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// TenantDTO is one tenant-registry row in API responses.
type TenantDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RunDTO is one recalculation-run audit row in API responses.
type RunDTO struct {
	ID          string `json:"id"`
	Year        int    `json:"year"`
	WeekNumber  int    `json:"weekNumber"`
	Tenants     int    `json:"tenants"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"startedAt"`
	CompletedAt string `json:"completedAt,omitempty"`
}

func toWeeklyRecordDTO(rec *engine.WeeklyRecord) *WeeklyRecordDTO {
	if rec == nil {
		return nil
	}
	dto := &WeeklyRecordDTO{
		TenantID:              rec.TenantID,
		Year:                  rec.Year,
		WeekNumber:            rec.WeekNumber,
		WeekStart:             rec.WeekStart.Format("2006-01-02"),
		WeekEnd:               rec.WeekEnd.Format("2006-01-02"),
		TotalRevenue:          rec.TotalRevenue.String(),
		AttractionCostPercent: rec.AttractionCostPercent.String(),
		LaborCost:             rec.LaborCost.String(),
		CustomersServed:       rec.CustomersServed,
		AverageTicket:         rec.AverageTicket.String(),
		NewCustomerPercent:    rec.NewCustomerPercent.String(),
		ActiveCustomerCount:   rec.ActiveCustomerCount,
		Notes:                 rec.Notes,
	}
	if !rec.LastRecalculatedAt.IsZero() {
		dto.LastRecalculatedAt = rec.LastRecalculatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toRunDTO(run engine.RecalculationRun) RunDTO {
	dto := RunDTO{
		ID:         run.ID,
		Year:       run.Year,
		WeekNumber: run.WeekNumber,
		Tenants:    run.Tenants,
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		Status:     run.Status,
		Error:      run.Error,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
