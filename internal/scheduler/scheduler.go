// Package scheduler wires up the cron job that periodically triggers an
// ingestion run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"jobmate/ingest-service/internal/pipeline"
)

// Runner executes one ingestion run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// Scheduler wraps robfig/cron and triggers the runner on a fixed interval.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string // e.g. "@every 6h"
	first  sync.WaitGroup
}

// New creates a Scheduler that fires every intervalHours hours.
func New(runner Runner, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		runner: runner,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Spec returns the cron expression the scheduler registers.
func (s *Scheduler) Spec() string { return s.spec }

// Start registers the job and starts the scheduler. One run is also started
// immediately so the stores are populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.trigger(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	s.first.Add(1)
	go func() {
		defer s.first.Done()
		s.trigger(ctx)
	}()
	return nil
}

// Stop stops the cron and waits for running jobs, including the startup run,
// to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.first.Wait()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) trigger(ctx context.Context) {
	log.Println("[scheduler] Run triggered")
	sum, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		log.Println("[scheduler] Previous run still in progress — tick skipped")
	case err != nil:
		log.Printf("[scheduler] Run error: %v", err)
	default:
		log.Printf("[scheduler] Run %s complete: processed=%d skipped=%d", sum.RunID, sum.Processed, sum.Skipped)
	}
}
