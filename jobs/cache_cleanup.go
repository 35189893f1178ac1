package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/services"
)

type CacheCleanupJob struct {
	CacheService *services.CacheService
}

func NewCacheCleanupJob(cacheService *services.CacheService) *CacheCleanupJob {
	return &CacheCleanupJob{CacheService: cacheService}
}

func (j *CacheCleanupJob) Start() {
	logrus.Info("Starting Cache Cleanup Job (runs every 1 hour)...")
	ticker := time.NewTicker(1 * time.Hour)

	go func() {
		for range ticker.C {
			j.Run()
		}
	}()
}

func (j *CacheCleanupJob) Run() {
	logrus.Info("Running Cache Cleanup Job")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	memoryRemoved := j.CacheService.CleanupExpiredEntries()
	if memoryRemoved > 0 {
		logrus.Infof("Cache Cleanup Job: removed %d expired in-memory entries", memoryRemoved)
	}

	if err := j.CacheService.CleanupExpiredDB(ctx); err != nil {
		logrus.Errorf("Cache Cleanup Job: database cleanup failed: %v", err)
		return
	}

	logrus.Info("Cache Cleanup Job completed")
}
