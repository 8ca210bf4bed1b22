package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/config"
	"motorent-backend/internal/jobs"
	"motorent-backend/internal/repository/memory"
)

func TestNewScheduler_RegistersJobs(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		ExpireStaleReservations: "0 */15 * * * *",
		ReportOverdueRentals:    "0 0 8 * * *",
	}}
	runner := jobs.NewJobRunner(memory.NewStore(), nil, nil, cfg)

	s, err := NewScheduler(runner, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	s.Stop()
}

func TestNewScheduler_RejectsBadCronExpression(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		ExpireStaleReservations: "every fifteen minutes",
		ReportOverdueRentals:    "0 0 8 * * *",
	}}
	runner := jobs.NewJobRunner(memory.NewStore(), nil, nil, cfg)

	_, err := NewScheduler(runner, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ExpireStaleReservations")
}
