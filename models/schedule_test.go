package models

import "testing"

func TestNormalizeWeekday(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"SATURDAY", "Saturday", true},
		{"saturday", "Saturday", true},
		{"Saturday", "Saturday", true},
		{"  sunday  ", "Sunday", true},
		{"ThUrSdAy", "Thursday", true},
		{"Mon", "", false},
		{"Weekend", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeWeekday(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeWeekday(%q) = (%q, %v), want (%q, %v)",
				tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWeekdaysStartOnSaturday(t *testing.T) {
	if Weekdays[0] != "Saturday" {
		t.Errorf("Academic week must start on Saturday, got %s", Weekdays[0])
	}
	if Weekdays[6] != "Friday" {
		t.Errorf("Academic week must end on Friday, got %s", Weekdays[6])
	}
}

func TestCompositeKey(t *testing.T) {
	base := ClassEntry{
		Day:             "Saturday",
		TimeStart:       "08:30",
		CourseCode:      "CSE112",
		BatchSection:    "71_I",
		TeacherInitials: "MB",
		Room:            "KT-222",
	}

	same := base
	if base.CompositeKey() != same.CompositeKey() {
		t.Error("Identical entries must share a composite key")
	}

	differing := []ClassEntry{}
	for _, mutate := range []func(*ClassEntry){
		func(e *ClassEntry) { e.Day = "Sunday" },
		func(e *ClassEntry) { e.TimeStart = "10:00" },
		func(e *ClassEntry) { e.CourseCode = "MAT101" },
		func(e *ClassEntry) { e.BatchSection = "71_J" },
		func(e *ClassEntry) { e.TeacherInitials = "AST" },
		func(e *ClassEntry) { e.Room = "KT-223" },
	} {
		entry := base
		mutate(&entry)
		differing = append(differing, entry)
	}

	for i, entry := range differing {
		if entry.CompositeKey() == base.CompositeKey() {
			t.Errorf("Variant %d must produce a distinct composite key", i)
		}
	}

	// Fields outside the key do not affect identity.
	variant := base
	variant.CourseName = "Computer Fundamentals"
	variant.IsLab = true
	variant.LowConfidence = true
	if variant.CompositeKey() != base.CompositeKey() {
		t.Error("Non-identity fields must not change the composite key")
	}
}
