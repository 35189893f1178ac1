package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/services"
	"github.com/uniroutine/schedule-backend/shared"
)

// RoutineRefreshJob pre-warms the routine cache by walking every registered
// department source. Departments whose cached record is still valid are
// served from cache and cost nothing; expired or missing records trigger a
// fresh parse.
type RoutineRefreshJob struct {
	ScheduleService *services.ScheduleService
}

func NewRoutineRefreshJob(scheduleService *services.ScheduleService) *RoutineRefreshJob {
	return &RoutineRefreshJob{ScheduleService: scheduleService}
}

func (j *RoutineRefreshJob) Start() {
	logrus.Info("Starting Routine Refresh Job (runs every 24 hours)...")
	ticker := time.NewTicker(24 * time.Hour)

	go func() {
		// Run immediately on start
		j.Run()

		for range ticker.C {
			j.Run()
		}
	}()
}

func (j *RoutineRefreshJob) Run() {
	startTime := time.Now()
	logrus.Info("Running Routine Refresh Job...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	sources, err := j.ScheduleService.ListRoutineSources(ctx)
	if err != nil {
		logrus.Errorf("Routine Refresh Job failed: could not list routine sources: %v", err)
		return
	}

	if len(sources) == 0 {
		logrus.Warn("Routine Refresh Job: no routine sources registered")
		return
	}

	successCount := 0
	emptyCount := 0
	failureCount := 0

	for i, source := range sources {
		logrus.WithFields(logrus.Fields{
			"source_index":  i + 1,
			"total_sources": len(sources),
			"department":    source.Department,
		}).Infof("Refreshing routine %d/%d: %s", i+1, len(sources), source.Department)

		entries, err := j.ScheduleService.GetOrParse(ctx, source.Department, source.SourceURL, source.Version)
		switch {
		case err != nil && shared.IsNoEntriesFound(err):
			emptyCount++
			logrus.Warnf("Routine for %s contained no class entries", source.Department)
		case err != nil:
			failureCount++
			logrus.Errorf("Failed to refresh routine for %s: %v", source.Department, err)
		default:
			successCount++
			logrus.Infof("Routine for %s ready with %d entries", source.Department, len(entries))
		}

		// Be nice to the source host, and slow down further if failing
		if i < len(sources)-1 {
			sleepDuration := 2 * time.Second
			if failureCount > successCount {
				sleepDuration = 5 * time.Second
			}
			time.Sleep(sleepDuration)
		}
	}

	logrus.WithFields(logrus.Fields{
		"total_sources": len(sources),
		"refreshed":     successCount,
		"empty":         emptyCount,
		"failures":      failureCount,
		"duration":      time.Since(startTime),
	}).Infof("Routine Refresh Job completed: %d refreshed, %d empty, %d failed out of %d",
		successCount, emptyCount, failureCount, len(sources))
}
