package models

import (
	"strings"

	"github.com/google/uuid"
)

// Canonical weekday names in academic-week order. The university week starts
// on Saturday, so day-level aggregation and grouping follow this order rather
// than the ISO week.
var Weekdays = [7]string{
	"Saturday",
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
}

// NoClassesLabel is the sentinel day label reported when a schedule has no
// entries at all.
const NoClassesLabel = "N/A"

// NormalizeWeekday maps a raw day token to its canonical weekday name.
// Matching is case-insensitive and ignores surrounding whitespace.
func NormalizeWeekday(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, day := range Weekdays {
		if strings.EqualFold(trimmed, day) {
			return day, true
		}
	}
	return "", false
}

// ClassEntry represents one scheduled class extracted from a routine document.
// Entries are immutable once extracted; Department is denormalized onto the
// row at persist time so filtered reads need no join to the cache record.
type ClassEntry struct {
	// Primary identification
	ID         uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Department string    `json:"department" gorm:"type:varchar(50)"`

	// Slot placement
	Day       string `json:"day" gorm:"type:varchar(20);not null"`
	TimeStart string `json:"time_start" gorm:"type:varchar(10);not null"`
	TimeEnd   string `json:"time_end" gorm:"type:varchar(10)"`

	// Course identity
	CourseCode string `json:"course_code" gorm:"type:varchar(20);not null"`
	CourseName string `json:"course_name" gorm:"type:varchar(255)"`

	// Cohort identity
	Batch        string `json:"batch" gorm:"type:varchar(10)"`
	Section      string `json:"section" gorm:"type:varchar(5)"`
	BatchSection string `json:"batch_section" gorm:"type:varchar(20)"`

	// Location and instructor
	Room            string `json:"room" gorm:"type:varchar(30)"`
	IsLab           bool   `json:"is_lab"`
	TeacherInitials string `json:"teacher_initials" gorm:"type:varchar(20)"`

	// Extraction quality signal: set when room or teacher adjacency in the
	// source line was ambiguous and the assignment is positional best-effort.
	LowConfidence bool `json:"low_confidence"`
}

// CompositeKey returns the uniqueness key for an entry within one parse
// result. Two entries differing in any component are distinct classes; the
// same section taught by two instructors legitimately yields two entries.
func (e *ClassEntry) CompositeKey() string {
	return strings.Join([]string{
		e.Day,
		e.TimeStart,
		e.CourseCode,
		e.BatchSection,
		e.TeacherInitials,
		e.Room,
	}, "|")
}

// ScheduleStats summarizes a parsed schedule across the fixed weekday
// enumeration.
type ScheduleStats struct {
	TotalClasses     int    `json:"total_classes"`
	BusiestDay       string `json:"busiest_day"`
	BusiestDayCount  int    `json:"busiest_day_count"`
	LightestDay      string `json:"lightest_day"`
	LightestDayCount int    `json:"lightest_day_count"`
}

// ParseResult is the upward-facing output of one pipeline pass.
type ParseResult struct {
	Entries []ClassEntry  `json:"entries"`
	Stats   ScheduleStats `json:"stats"`
}
