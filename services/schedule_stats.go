package services

import (
	"strings"

	"github.com/uniroutine/schedule-backend/models"
)

// AggregateScheduleStats summarizes entries across the academic week. The
// busiest day is the highest count, ties resolved in week order starting
// Saturday. The lightest day is the lowest non-zero count, so a day with no
// classes at all is never reported as lightest. A schedule with no entries
// reports the no-classes sentinel for both.
func AggregateScheduleStats(entries []models.ClassEntry) models.ScheduleStats {
	countsByDay := make(map[string]int, len(models.Weekdays))
	for _, day := range models.Weekdays {
		countsByDay[day] = 0
	}
	for _, entry := range entries {
		if _, known := countsByDay[entry.Day]; known {
			countsByDay[entry.Day]++
		}
	}

	stats := models.ScheduleStats{
		TotalClasses: len(entries),
		BusiestDay:   models.NoClassesLabel,
		LightestDay:  models.NoClassesLabel,
	}

	for _, day := range models.Weekdays {
		count := countsByDay[day]
		if count > stats.BusiestDayCount {
			stats.BusiestDay = day
			stats.BusiestDayCount = count
		}
		if count > 0 && (stats.LightestDayCount == 0 || count < stats.LightestDayCount) {
			stats.LightestDay = day
			stats.LightestDayCount = count
		}
	}

	return stats
}

// FilterByBatchSection returns the entries whose batch-section key matches
// exactly, e.g. "71_I".
func FilterByBatchSection(entries []models.ClassEntry, batchSection string) []models.ClassEntry {
	filtered := make([]models.ClassEntry, 0)
	for _, entry := range entries {
		if entry.BatchSection == batchSection {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// FilterByTeacher returns the entries taught by the given initials,
// case-insensitively.
func FilterByTeacher(entries []models.ClassEntry, teacherInitials string) []models.ClassEntry {
	filtered := make([]models.ClassEntry, 0)
	for _, entry := range entries {
		if strings.EqualFold(entry.TeacherInitials, teacherInitials) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// FilterByRoom returns the entries held in the given room, case-insensitively.
func FilterByRoom(entries []models.ClassEntry, room string) []models.ClassEntry {
	filtered := make([]models.ClassEntry, 0)
	for _, entry := range entries {
		if strings.EqualFold(entry.Room, room) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GroupByDay buckets entries by weekday. Every canonical weekday is present
// in the result, an empty slice when the day has no classes, so callers can
// render a full week without key-existence checks. Within a day, document
// order is preserved.
func GroupByDay(entries []models.ClassEntry) map[string][]models.ClassEntry {
	grouped := make(map[string][]models.ClassEntry, len(models.Weekdays))
	for _, day := range models.Weekdays {
		grouped[day] = []models.ClassEntry{}
	}
	for _, entry := range entries {
		if _, known := grouped[entry.Day]; known {
			grouped[entry.Day] = append(grouped[entry.Day], entry)
		}
	}
	return grouped
}
