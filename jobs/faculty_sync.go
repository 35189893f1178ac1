package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/services"
)

// FacultySyncJob keeps the faculty directory mirror fresh so routine
// responses can join teacher initials to full names and contact details.
type FacultySyncJob struct {
	FacultyService  *services.FacultyService
	ScheduleService *services.ScheduleService
}

func NewFacultySyncJob(facultyService *services.FacultyService, scheduleService *services.ScheduleService) *FacultySyncJob {
	return &FacultySyncJob{
		FacultyService:  facultyService,
		ScheduleService: scheduleService,
	}
}

func (j *FacultySyncJob) Start() {
	logrus.Info("Starting Faculty Sync Job (runs every 7 days)...")
	ticker := time.NewTicker(7 * 24 * time.Hour)

	go func() {
		// Run immediately on start
		j.Run()

		for range ticker.C {
			j.Run()
		}
	}()
}

func (j *FacultySyncJob) Run() {
	startTime := time.Now()
	logrus.Info("Running Faculty Sync Job...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	departments := j.departmentsToSync(ctx)

	totalSynced := 0
	failureCount := 0

	for i, department := range departments {
		synced, err := j.FacultyService.SyncFacultyDirectory(ctx, department)
		if err != nil {
			failureCount++
			logrus.Errorf("Failed to sync faculty directory for %q: %v", department, err)
		} else {
			totalSynced += synced
			logrus.Infof("Synced %d faculty members for %q", synced, department)
		}

		if i < len(departments)-1 {
			time.Sleep(2 * time.Second)
		}
	}

	logrus.WithFields(logrus.Fields{
		"departments": len(departments),
		"synced":      totalSynced,
		"failures":    failureCount,
		"duration":    time.Since(startTime),
	}).Infof("Faculty Sync Job completed: %d members synced across %d departments",
		totalSynced, len(departments))
}

// departmentsToSync derives the department list from the registered routine
// sources. When none are registered (or the database is down) it falls back
// to a single empty department, which crawls the whole directory.
func (j *FacultySyncJob) departmentsToSync(ctx context.Context) []string {
	sources, err := j.ScheduleService.ListRoutineSources(ctx)
	if err != nil {
		logrus.Warnf("Faculty Sync Job: could not list routine sources, syncing full directory: %v", err)
		return []string{""}
	}

	departments := make([]string, 0, len(sources))
	seen := make(map[string]bool)
	for _, source := range sources {
		if !seen[source.Department] {
			seen[source.Department] = true
			departments = append(departments, source.Department)
		}
	}

	if len(departments) == 0 {
		return []string{""}
	}
	return departments
}
