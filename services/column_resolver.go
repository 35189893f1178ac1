package services

// TimeSlotColumn is the horizontal extent of one time slot within a day block.
// Columns exist only while that block is being extracted and are never
// persisted.
type TimeSlotColumn struct {
	Start       string // "HH:MM"
	End         string // "HH:MM"
	ColumnStart int    // inclusive character offset
	ColumnEnd   int    // exclusive character offset
}

// TimeRange is one "HH:MM-HH:MM" token found in a day-block header line,
// together with the character offset where it starts.
type TimeRange struct {
	Start  string
	End    string
	Offset int
}

// ColumnResolver assigns a character offset within a day block's lines to the
// owning time-slot column. Implementations return the column index, 0 when the
// offset falls outside every column (an unmatched offset must never drop an
// entry), and -1 only when the block has no columns at all.
type ColumnResolver interface {
	Assign(offset int) int
}

// ColumnResolverBuilder constructs the column list and resolver for one day
// block from the header's time ranges and anchor-token offsets. The boundary
// inference is a fragile layout heuristic, so it stays swappable behind this
// type without touching the extractor.
type ColumnResolverBuilder func(timeRanges []TimeRange, anchorOffsets []int) ([]TimeSlotColumn, ColumnResolver)

// columnEndSentinel is the generous right edge given to the last column so
// trailing entries on long lines always land in it.
const columnEndSentinel = 4096

type midpointColumnResolver struct {
	columns []TimeSlotColumn
}

// BuildMidpointColumnResolver infers column boundaries from anchor positions:
// the first column spans from offset 0 to the midpoint of the first two
// anchors, each interior column from midpoint to midpoint, and the last column
// to a generous sentinel. Time ranges and anchors are paired by index up to
// the shorter count; columns beyond that are dropped for the block.
func BuildMidpointColumnResolver(timeRanges []TimeRange, anchorOffsets []int) ([]TimeSlotColumn, ColumnResolver) {
	pairCount := len(timeRanges)
	if len(anchorOffsets) < pairCount {
		pairCount = len(anchorOffsets)
	}

	columns := make([]TimeSlotColumn, 0, pairCount)
	for i := 0; i < pairCount; i++ {
		column := TimeSlotColumn{
			Start: timeRanges[i].Start,
			End:   timeRanges[i].End,
		}

		if i == 0 {
			column.ColumnStart = 0
		} else {
			column.ColumnStart = midpoint(anchorOffsets[i-1], anchorOffsets[i])
		}

		if i == pairCount-1 {
			column.ColumnEnd = columnEndSentinel
		} else {
			column.ColumnEnd = midpoint(anchorOffsets[i], anchorOffsets[i+1])
		}

		columns = append(columns, column)
	}

	return columns, &midpointColumnResolver{columns: columns}
}

// Assign returns the index of the column whose [ColumnStart, ColumnEnd) range
// contains offset. Offsets outside every column resolve to the first column
// rather than dropping the candidate.
func (r *midpointColumnResolver) Assign(offset int) int {
	if len(r.columns) == 0 {
		return -1
	}

	for i, column := range r.columns {
		if offset >= column.ColumnStart && offset < column.ColumnEnd {
			return i
		}
	}

	return 0
}

func midpoint(a, b int) int {
	return (a + b) / 2
}
