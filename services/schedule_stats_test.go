package services

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/uniroutine/schedule-backend/models"
)

func makeEntry(day, batchSection, teacher, room string) models.ClassEntry {
	return models.ClassEntry{
		Day:             day,
		TimeStart:       "08:30",
		TimeEnd:         "10:00",
		CourseCode:      "CSE112",
		BatchSection:    batchSection,
		Room:            room,
		TeacherInitials: teacher,
	}
}

func TestAggregateScheduleStats(t *testing.T) {
	entries := []models.ClassEntry{
		makeEntry("Saturday", "71_I", "MB", "KT-222"),
		makeEntry("Saturday", "71_I", "AST", "KT-223"),
		makeEntry("Saturday", "68_A", "MB", "KT-222"),
		makeEntry("Sunday", "71_I", "MB", "KT-222"),
		makeEntry("Monday", "71_I", "RH", "G1-101"),
		makeEntry("Monday", "68_A", "RH", "G1-101"),
	}

	stats := AggregateScheduleStats(entries)
	if stats.TotalClasses != 6 {
		t.Errorf("Expected 6 total classes, got %d", stats.TotalClasses)
	}
	if stats.BusiestDay != "Saturday" || stats.BusiestDayCount != 3 {
		t.Errorf("Expected busiest Saturday with 3, got %s with %d", stats.BusiestDay, stats.BusiestDayCount)
	}
	if stats.LightestDay != "Sunday" || stats.LightestDayCount != 1 {
		t.Errorf("Expected lightest Sunday with 1, got %s with %d", stats.LightestDay, stats.LightestDayCount)
	}
}

func TestAggregateScheduleStatsTieBreaksInWeekOrder(t *testing.T) {
	// Sunday and Tuesday both have two classes. The academic week starts on
	// Saturday, so Sunday wins both titles.
	entries := []models.ClassEntry{
		makeEntry("Tuesday", "71_I", "MB", "KT-222"),
		makeEntry("Sunday", "71_I", "AST", "KT-223"),
		makeEntry("Tuesday", "68_A", "MB", "KT-222"),
		makeEntry("Sunday", "68_A", "RH", "G1-101"),
	}

	stats := AggregateScheduleStats(entries)
	if stats.BusiestDay != "Sunday" {
		t.Errorf("Tie must resolve in week order, expected Sunday, got %s", stats.BusiestDay)
	}
	if stats.LightestDay != "Sunday" {
		t.Errorf("Tie must resolve in week order, expected Sunday, got %s", stats.LightestDay)
	}
}

func TestAggregateScheduleStatsSkipsEmptyDaysForLightest(t *testing.T) {
	entries := []models.ClassEntry{
		makeEntry("Saturday", "71_I", "MB", "KT-222"),
		makeEntry("Saturday", "68_A", "AST", "KT-223"),
		makeEntry("Wednesday", "71_I", "MB", "KT-222"),
	}

	stats := AggregateScheduleStats(entries)
	if stats.LightestDay != "Wednesday" || stats.LightestDayCount != 1 {
		t.Errorf("Lightest must be the lowest non-zero day, got %s with %d",
			stats.LightestDay, stats.LightestDayCount)
	}
}

func TestAggregateScheduleStatsEmpty(t *testing.T) {
	stats := AggregateScheduleStats(nil)
	if stats.TotalClasses != 0 {
		t.Errorf("Expected 0 total classes, got %d", stats.TotalClasses)
	}
	if stats.BusiestDay != models.NoClassesLabel || stats.BusiestDayCount != 0 {
		t.Errorf("Empty schedule must report %s busiest, got %s with %d",
			models.NoClassesLabel, stats.BusiestDay, stats.BusiestDayCount)
	}
	if stats.LightestDay != models.NoClassesLabel || stats.LightestDayCount != 0 {
		t.Errorf("Empty schedule must report %s lightest, got %s with %d",
			models.NoClassesLabel, stats.LightestDay, stats.LightestDayCount)
	}
}

func TestScheduleFilters(t *testing.T) {
	entries := []models.ClassEntry{
		makeEntry("Saturday", "71_I", "MB", "KT-222"),
		makeEntry("Sunday", "71_J", "AST", "KT-223"),
		makeEntry("Monday", "71_I", "mb", "kt-222"),
	}

	byCohort := FilterByBatchSection(entries, "71_I")
	if len(byCohort) != 2 {
		t.Errorf("Expected 2 entries for 71_I, got %d", len(byCohort))
	}

	// Batch-section matching is exact, not case-folded.
	if got := FilterByBatchSection(entries, "71_i"); len(got) != 0 {
		t.Errorf("Batch-section filter must match exactly, got %d entries", len(got))
	}

	byTeacher := FilterByTeacher(entries, "MB")
	if len(byTeacher) != 2 {
		t.Errorf("Teacher filter must be case-insensitive, expected 2, got %d", len(byTeacher))
	}

	byRoom := FilterByRoom(entries, "KT-222")
	if len(byRoom) != 2 {
		t.Errorf("Room filter must be case-insensitive, expected 2, got %d", len(byRoom))
	}

	if got := FilterByTeacher(entries, "ZZ"); got == nil || len(got) != 0 {
		t.Errorf("A filter with no matches must return an empty slice, got %v", got)
	}
}

func TestGroupByDay(t *testing.T) {
	entries := []models.ClassEntry{
		makeEntry("Saturday", "71_I", "MB", "KT-222"),
		makeEntry("Monday", "71_I", "AST", "KT-223"),
		makeEntry("Saturday", "68_A", "RH", "G1-101"),
	}

	grouped := GroupByDay(entries)
	if len(grouped) != len(models.Weekdays) {
		t.Fatalf("Expected all %d weekday keys, got %d", len(models.Weekdays), len(grouped))
	}

	for _, day := range models.Weekdays {
		if _, present := grouped[day]; !present {
			t.Errorf("Weekday %s missing from grouped result", day)
		}
	}

	if len(grouped["Saturday"]) != 2 {
		t.Errorf("Expected 2 Saturday entries, got %d", len(grouped["Saturday"]))
	}
	if grouped["Saturday"][0].BatchSection != "71_I" {
		t.Error("Grouping must preserve in-day document order")
	}
	if len(grouped["Friday"]) != 0 || grouped["Friday"] == nil {
		t.Error("A day with no classes must be an empty, non-nil slice")
	}
}

func TestScheduleStatsProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	dayGen := gen.OneConstOf("Saturday", "Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday")
	cohortGen := gen.OneConstOf("71_I", "71_J", "68_A", "68_B")

	properties.Property("total classes equals the entry count", prop.ForAll(
		func(days []string) bool {
			entries := make([]models.ClassEntry, 0, len(days))
			for _, day := range days {
				entries = append(entries, makeEntry(day, "71_I", "MB", "KT-222"))
			}
			return AggregateScheduleStats(entries).TotalClasses == len(entries)
		},
		gen.SliceOf(dayGen),
	))

	properties.Property("grouping by day loses no entries", prop.ForAll(
		func(days []string) bool {
			entries := make([]models.ClassEntry, 0, len(days))
			for _, day := range days {
				entries = append(entries, makeEntry(day, "71_I", "MB", "KT-222"))
			}

			grouped := GroupByDay(entries)
			total := 0
			for _, day := range models.Weekdays {
				total += len(grouped[day])
			}
			return total == len(entries)
		},
		gen.SliceOf(dayGen),
	))

	properties.Property("batch-section filter returns exactly the matching subset", prop.ForAll(
		func(cohorts []string, wanted string) bool {
			entries := make([]models.ClassEntry, 0, len(cohorts))
			expected := 0
			for _, cohort := range cohorts {
				entries = append(entries, makeEntry("Saturday", cohort, "MB", "KT-222"))
				if cohort == wanted {
					expected++
				}
			}

			filtered := FilterByBatchSection(entries, wanted)
			if len(filtered) != expected {
				return false
			}
			for _, entry := range filtered {
				if entry.BatchSection != wanted {
					return false
				}
			}
			return true
		},
		gen.SliceOf(cohortGen),
		cohortGen,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
