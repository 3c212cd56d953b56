/*
scheduler.go - In-process recalculation scheduler

PURPOSE:
  Periodically triggers the weekly rollover without an external scheduler.
  The primary trigger remains the HTTP endpoint; this ticker exists for
  deployments that have no cron in front of the service.

DESIGN:
  - Background goroutine with a configurable check interval
  - Runs once immediately on start
  - Recomputation is idempotent, so an interval much shorter than a week
    is safe - repeated runs within the same week converge on the same
    derived fields

USAGE:
  scheduler := NewScheduler(orchestrator, 6*time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRecalculation (manual trigger)
  - engine/rollover.go: the job being scheduled
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zykor/performance-engine/engine"
)

// Scheduler triggers the rollover job on a fixed interval.
type Scheduler struct {
	Orchestrator *engine.Orchestrator
	Interval     time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a scheduler around the orchestrator.
func NewScheduler(orch *engine.Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{
		Orchestrator: orch,
		Interval:     interval,
		stop:         make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)
	go s.run()

	log.Printf("[Scheduler] Started with interval: %v", s.Interval)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.runOnce()

	for {
		select {
		case <-s.ticker.C:
			s.runOnce()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) runOnce() {
	result, err := s.Orchestrator.Run(context.Background())
	if err != nil {
		log.Printf("[Scheduler] Run failed: %v", err)
		return
	}
	log.Printf("[Scheduler] Run completed: week %s, %d succeeded, %d failed",
		result.Week, result.Succeeded(), result.Failed())
}
