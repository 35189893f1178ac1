package services

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func twoColumnFixture() ([]TimeSlotColumn, ColumnResolver) {
	timeRanges := []TimeRange{
		{Start: "08:30", End: "10:00", Offset: 0},
		{Start: "10:00", End: "11:30", Offset: 13},
	}
	anchorOffsets := []int{0, 22}
	return BuildMidpointColumnResolver(timeRanges, anchorOffsets)
}

func TestMidpointColumnBoundaries(t *testing.T) {
	columns, _ := twoColumnFixture()

	if len(columns) != 2 {
		t.Fatalf("Expected 2 columns, got %d", len(columns))
	}

	if columns[0].ColumnStart != 0 {
		t.Errorf("First column must start at offset 0, got %d", columns[0].ColumnStart)
	}
	if columns[0].ColumnEnd != 11 {
		t.Errorf("First column must end at the anchor midpoint 11, got %d", columns[0].ColumnEnd)
	}
	if columns[1].ColumnStart != 11 {
		t.Errorf("Second column must start at the anchor midpoint 11, got %d", columns[1].ColumnStart)
	}
	if columns[1].ColumnEnd != columnEndSentinel {
		t.Errorf("Last column must extend to the sentinel %d, got %d", columnEndSentinel, columns[1].ColumnEnd)
	}

	if columns[0].Start != "08:30" || columns[0].End != "10:00" {
		t.Errorf("First column carries wrong time range: %s-%s", columns[0].Start, columns[0].End)
	}
	if columns[1].Start != "10:00" || columns[1].End != "11:30" {
		t.Errorf("Second column carries wrong time range: %s-%s", columns[1].Start, columns[1].End)
	}
}

func TestMidpointColumnAssignment(t *testing.T) {
	_, resolver := twoColumnFixture()

	cases := []struct {
		name     string
		offset   int
		expected int
	}{
		{"start of first column", 0, 0},
		{"inside first column", 6, 0},
		{"last offset of first column", 10, 0},
		{"boundary belongs to second column", 11, 1},
		{"inside second column", 28, 1},
		{"far right still lands in last column", 2000, 1},
		{"beyond the sentinel falls back to first column", columnEndSentinel + 100, 0},
		{"negative offset falls back to first column", -5, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolver.Assign(tc.offset); got != tc.expected {
				t.Errorf("Assign(%d) = %d, expected %d", tc.offset, got, tc.expected)
			}
		})
	}
}

func TestMidpointColumnThreeSlots(t *testing.T) {
	timeRanges := []TimeRange{
		{Start: "08:30", End: "10:00", Offset: 0},
		{Start: "10:00", End: "11:30", Offset: 20},
		{Start: "11:30", End: "13:00", Offset: 40},
	}
	columns, resolver := BuildMidpointColumnResolver(timeRanges, []int{0, 20, 40})

	if len(columns) != 3 {
		t.Fatalf("Expected 3 columns, got %d", len(columns))
	}
	if columns[1].ColumnStart != 10 || columns[1].ColumnEnd != 30 {
		t.Errorf("Interior column boundaries wrong: [%d, %d), expected [10, 30)",
			columns[1].ColumnStart, columns[1].ColumnEnd)
	}

	if got := resolver.Assign(25); got != 1 {
		t.Errorf("Assign(25) = %d, expected interior column 1", got)
	}
	if got := resolver.Assign(35); got != 2 {
		t.Errorf("Assign(35) = %d, expected last column 2", got)
	}
}

func TestMidpointColumnCountMismatch(t *testing.T) {
	// Three time ranges but only two anchors: pair by index up to the
	// shorter count, drop the rest.
	timeRanges := []TimeRange{
		{Start: "08:30", End: "10:00", Offset: 0},
		{Start: "10:00", End: "11:30", Offset: 13},
		{Start: "11:30", End: "13:00", Offset: 26},
	}
	columns, _ := BuildMidpointColumnResolver(timeRanges, []int{0, 22})
	if len(columns) != 2 {
		t.Errorf("Expected 2 columns from 3 ranges and 2 anchors, got %d", len(columns))
	}

	// Two time ranges but three anchors: the extra anchor is ignored.
	columns, _ = BuildMidpointColumnResolver(timeRanges[:2], []int{0, 22, 44})
	if len(columns) != 2 {
		t.Errorf("Expected 2 columns from 2 ranges and 3 anchors, got %d", len(columns))
	}
	if columns[1].ColumnEnd != columnEndSentinel {
		t.Errorf("Last paired column must still end at the sentinel, got %d", columns[1].ColumnEnd)
	}
}

func TestMidpointColumnEmpty(t *testing.T) {
	columns, resolver := BuildMidpointColumnResolver(nil, nil)
	if len(columns) != 0 {
		t.Errorf("Expected no columns, got %d", len(columns))
	}
	if got := resolver.Assign(10); got != -1 {
		t.Errorf("Assign on an empty block must return -1, got %d", got)
	}

	columns, resolver = BuildMidpointColumnResolver(
		[]TimeRange{{Start: "08:30", End: "10:00", Offset: 0}}, nil)
	if len(columns) != 0 {
		t.Errorf("Time ranges without anchors must produce no columns, got %d", len(columns))
	}
	if got := resolver.Assign(0); got != -1 {
		t.Errorf("Assign without columns must return -1, got %d", got)
	}
}

func TestMidpointColumnAssignmentProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every in-range offset resolves to a valid column index", prop.ForAll(
		func(spacing, count, offset int) bool {
			anchorOffsets := make([]int, count)
			timeRanges := make([]TimeRange, count)
			for i := 0; i < count; i++ {
				anchorOffsets[i] = i * spacing
				timeRanges[i] = TimeRange{Start: "08:30", End: "10:00", Offset: i * spacing}
			}

			columns, resolver := BuildMidpointColumnResolver(timeRanges, anchorOffsets)
			if len(columns) != count {
				return false
			}

			index := resolver.Assign(offset)
			return index >= 0 && index < len(columns)
		},
		gen.IntRange(10, 40),  // spacing between anchors
		gen.IntRange(1, 6),    // column count
		gen.IntRange(0, 4095), // offset to assign
	))

	properties.Property("columns tile the line without gaps or overlap", prop.ForAll(
		func(spacing, count int) bool {
			anchorOffsets := make([]int, count)
			timeRanges := make([]TimeRange, count)
			for i := 0; i < count; i++ {
				anchorOffsets[i] = i * spacing
				timeRanges[i] = TimeRange{Offset: i * spacing}
			}

			columns, _ := BuildMidpointColumnResolver(timeRanges, anchorOffsets)
			if len(columns) == 0 {
				return false
			}

			if columns[0].ColumnStart != 0 {
				return false
			}
			for i := 1; i < len(columns); i++ {
				if columns[i].ColumnStart != columns[i-1].ColumnEnd {
					return false
				}
			}
			return columns[len(columns)-1].ColumnEnd == columnEndSentinel
		},
		gen.IntRange(10, 40),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
