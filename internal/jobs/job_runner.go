package jobs

import (
	"time"

	"motorent-backend/internal/config"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
	"motorent-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store  repository.UnitOfWork
	engine service.RentalEngine
	events service.EventPublisher
	config *config.Config
	now    func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies. events may be nil.
func NewJobRunner(store repository.UnitOfWork, engine service.RentalEngine, events service.EventPublisher, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:  store,
		engine: engine,
		events: events,
		config: cfg,
		now:    time.Now,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireStaleReservations()
	jr.ReportOverdueRentals()
}
