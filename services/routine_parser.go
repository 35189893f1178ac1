package services

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/models"
	"github.com/uniroutine/schedule-backend/shared"
)

// Entry and layout token patterns for the fixed-layout routine text. A class
// entry is a course code (3 letters + 3 digits) followed by "(batch_section)",
// with the room code packed immediately before it and the teacher initials
// immediately after it on the same line.
var (
	courseEntryPattern     = regexp.MustCompile(`([A-Z]{3}\d{3})\((\d{2,3})_([A-Z]\d?)\)`)
	timeRangePattern       = regexp.MustCompile(`(\d{1,2}:\d{2})-(\d{1,2}:\d{2})`)
	roomCodePattern        = regexp.MustCompile(`G\d-\d{3}|[A-Z]{1,2}-?\d{2,3}[A-Z]?`)
	teacherInitialsPattern = regexp.MustCompile(`[A-Z]{1,4}(?:_\d+)?`)
)

const (
	// Scan windows around a course match for room and teacher tokens.
	roomScanWindow    = 14
	teacherScanWindow = 12

	// How many lines after a weekday header may hold the time-range and
	// anchor-token header lines.
	defaultHeaderLookahead = 6

	defaultAnchorToken     = "Room"
	defaultSharedLabMarker = "SHARED LAB"

	// Placeholder when a room or teacher token is absent near a match.
	unknownFieldPlaceholder = "TBA"
)

// RoutineParserConfig holds the layout markers and lookup tables the parser
// keys on. CourseTitles is copied at construction; later mutation by the
// caller does not affect the parser.
type RoutineParserConfig struct {
	AnchorToken     string
	SharedLabMarker string
	HeaderLookahead int
	CourseTitles    map[string]string
}

// RoutineParser turns the layout-preserving text of a routine document into
// deduplicated class entries. Parsing is a single linear pass over lines with
// a small state machine: outside any day block, or inside the block opened by
// the most recent weekday header.
type RoutineParser struct {
	anchorToken     string
	sharedLabMarker string
	headerLookahead int
	courseTitles    map[string]string
	buildResolver   ColumnResolverBuilder
	metrics         *shared.ExtractionMetrics
}

// NewRoutineParser creates a parser with the given configuration, applying
// defaults for any zero fields.
func NewRoutineParser(config RoutineParserConfig) *RoutineParser {
	if config.AnchorToken == "" {
		config.AnchorToken = defaultAnchorToken
	}
	if config.SharedLabMarker == "" {
		config.SharedLabMarker = defaultSharedLabMarker
	}
	if config.HeaderLookahead <= 0 {
		config.HeaderLookahead = defaultHeaderLookahead
	}

	courseTitles := make(map[string]string, len(config.CourseTitles))
	for code, title := range config.CourseTitles {
		courseTitles[code] = title
	}

	return &RoutineParser{
		anchorToken:     config.AnchorToken,
		sharedLabMarker: strings.ToUpper(config.SharedLabMarker),
		headerLookahead: config.HeaderLookahead,
		courseTitles:    courseTitles,
		buildResolver:   BuildMidpointColumnResolver,
		metrics:         shared.NewExtractionMetrics(),
	}
}

// WithColumnResolverBuilder swaps the column boundary inference strategy.
// The extractor is untouched by the substitution.
func (p *RoutineParser) WithColumnResolverBuilder(builder ColumnResolverBuilder) *RoutineParser {
	p.buildResolver = builder
	return p
}

// Metrics exposes the extraction counters for reporting endpoints.
func (p *RoutineParser) Metrics() *shared.ExtractionMetrics {
	return p.metrics
}

// dayBlock is the segmenter state for the weekday block currently being
// scanned: its canonical day, the inferred time-slot columns, and whether a
// shared-lab marker has been seen since the header.
type dayBlock struct {
	day      string
	columns  []TimeSlotColumn
	resolver ColumnResolver
	labFlag  bool
}

// Parse extracts all class entries from a routine document. Lines before the
// first weekday header are ignored; lines matching no entity pattern are
// silently skipped. The result is deduplicated by the entry composite key,
// first occurrence in document order winning.
func (p *RoutineParser) Parse(documentText string) []models.ClassEntry {
	logger := logrus.WithFields(logrus.Fields{
		"component": "RoutineParser",
		"method":    "Parse",
	})

	lines := strings.Split(documentText, "\n")

	var entries []models.ClassEntry
	seenKeys := make(map[string]struct{})
	var block *dayBlock
	duplicatesDiscarded := 0
	lowConfidenceCount := 0

	for lineIndex, line := range lines {
		if day, ok := models.NormalizeWeekday(line); ok {
			block = p.beginDayBlock(day, lines, lineIndex)
			continue
		}

		if block == nil {
			continue
		}

		if strings.Contains(strings.ToUpper(line), p.sharedLabMarker) {
			block.labFlag = true
		}

		for _, candidate := range p.extractEntries(line, block) {
			key := candidate.CompositeKey()
			if _, exists := seenKeys[key]; exists {
				duplicatesDiscarded++
				continue
			}
			seenKeys[key] = struct{}{}

			if candidate.LowConfidence {
				lowConfidenceCount++
			}
			entries = append(entries, candidate)
		}
	}

	p.metrics.RecordParse(len(entries), duplicatesDiscarded, lowConfidenceCount)

	logger.WithFields(logrus.Fields{
		"total_lines":            len(lines),
		"entries_extracted":      len(entries),
		"duplicates_discarded":   duplicatesDiscarded,
		"low_confidence_entries": lowConfidenceCount,
	}).Debug("Completed routine document parse")

	return entries
}

// beginDayBlock opens a fresh block for the given weekday and scans a bounded
// window of following lines for the time-range line and the anchor-token line
// that describe the block's columns. A new header always rebuilds the column
// list and clears the lab flag.
func (p *RoutineParser) beginDayBlock(day string, lines []string, headerIndex int) *dayBlock {
	var timeRanges []TimeRange
	var anchorOffsets []int

	lastLine := headerIndex + p.headerLookahead
	if lastLine > len(lines)-1 {
		lastLine = len(lines) - 1
	}

	for j := headerIndex + 1; j <= lastLine; j++ {
		line := lines[j]

		// The next weekday header ends this block's header region.
		if _, ok := models.NormalizeWeekday(line); ok {
			break
		}

		if len(timeRanges) == 0 {
			if found := findTimeRanges(line); len(found) > 0 {
				timeRanges = found
				continue
			}
		}

		if len(anchorOffsets) == 0 {
			anchorOffsets = findAnchorOffsets(line, p.anchorToken)
		}

		if len(timeRanges) > 0 && len(anchorOffsets) > 0 {
			break
		}
	}

	if len(timeRanges) != len(anchorOffsets) {
		p.metrics.RecordColumnPairMismatch()
		logrus.WithFields(logrus.Fields{
			"component":     "RoutineParser",
			"day":           day,
			"time_ranges":   len(timeRanges),
			"anchor_tokens": len(anchorOffsets),
		}).Warn("Time-range and anchor counts differ, pairing by index up to the shorter count")
	}

	columns, resolver := p.buildResolver(timeRanges, anchorOffsets)
	p.metrics.RecordDayBlock()

	return &dayBlock{day: day, columns: columns, resolver: resolver}
}

// extractEntries scans one line for class entries within the active day block.
// Room and teacher are resolved from bounded windows around each match; the
// windows never cross a neighboring match.
func (p *RoutineParser) extractEntries(line string, block *dayBlock) []models.ClassEntry {
	matches := courseEntryPattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return nil
	}

	entries := make([]models.ClassEntry, 0, len(matches))
	for matchIndex, match := range matches {
		matchStart, matchEnd := match[0], match[1]
		courseCode := line[match[2]:match[3]]
		batch := line[match[4]:match[5]]
		section := line[match[6]:match[7]]

		timeStart, timeEnd := "", ""
		if slotIndex := block.resolver.Assign(matchStart); slotIndex >= 0 && slotIndex < len(block.columns) {
			timeStart = block.columns[slotIndex].Start
			timeEnd = block.columns[slotIndex].End
		}

		roomWindowStart := matchStart - roomScanWindow
		if roomWindowStart < 0 {
			roomWindowStart = 0
		}
		if matchIndex > 0 && matches[matchIndex-1][1] > roomWindowStart {
			roomWindowStart = matches[matchIndex-1][1]
		}
		room, roomAmbiguous := extractRoomCode(line[roomWindowStart:matchStart])

		teacherWindowEnd := matchEnd + teacherScanWindow
		if teacherWindowEnd > len(line) {
			teacherWindowEnd = len(line)
		}
		if matchIndex+1 < len(matches) && matches[matchIndex+1][0] < teacherWindowEnd {
			teacherWindowEnd = matches[matchIndex+1][0]
		}
		teacher, teacherAmbiguous := extractTeacherInitials(line[matchEnd:teacherWindowEnd])

		courseName, known := p.courseTitles[courseCode]
		if !known {
			courseName = courseCode
		}

		entries = append(entries, models.ClassEntry{
			Day:             block.day,
			TimeStart:       timeStart,
			TimeEnd:         timeEnd,
			CourseCode:      courseCode,
			CourseName:      courseName,
			Batch:           batch,
			Section:         section,
			BatchSection:    batch + "_" + section,
			Room:            room,
			IsLab:           block.labFlag,
			TeacherInitials: teacher,
			LowConfidence:   roomAmbiguous || teacherAmbiguous,
		})
	}

	return entries
}

// findTimeRanges returns every "HH:MM-HH:MM" token on the line with its
// character offset, in order of appearance.
func findTimeRanges(line string) []TimeRange {
	matches := timeRangePattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return nil
	}

	ranges := make([]TimeRange, 0, len(matches))
	for _, match := range matches {
		ranges = append(ranges, TimeRange{
			Start:  line[match[2]:match[3]],
			End:    line[match[4]:match[5]],
			Offset: match[0],
		})
	}
	return ranges
}

// findAnchorOffsets returns the offset of every occurrence of the anchor
// token on the line, case-insensitively.
func findAnchorOffsets(line, anchorToken string) []int {
	if anchorToken == "" {
		return nil
	}

	loweredLine := strings.ToLower(line)
	loweredToken := strings.ToLower(anchorToken)

	var offsets []int
	searchFrom := 0
	for {
		found := strings.Index(loweredLine[searchFrom:], loweredToken)
		if found < 0 {
			break
		}
		offsets = append(offsets, searchFrom+found)
		searchFrom += found + len(loweredToken)
	}
	return offsets
}

// extractRoomCode picks the room token nearest the course match from the
// window before it. More than one room-shaped token in the window means the
// adjacency is ambiguous and the choice is positional, so the entry gets
// flagged rather than guessed at further.
func extractRoomCode(window string) (string, bool) {
	matches := roomCodePattern.FindAllString(window, -1)
	if len(matches) == 0 {
		return unknownFieldPlaceholder, false
	}
	return matches[len(matches)-1], len(matches) > 1
}

// extractTeacherInitials picks the first teacher-shaped token after the course
// match, rejecting tokens that are actually the letter prefix of a room code
// (uppercase letters glued to "-digits" or digits). Multiple acceptable
// candidates in the window flag the entry as ambiguous.
func extractTeacherInitials(window string) (string, bool) {
	matches := teacherInitialsPattern.FindAllStringIndex(window, -1)
	if len(matches) == 0 {
		return unknownFieldPlaceholder, false
	}

	var acceptable []string
	for _, match := range matches {
		if isRoomPrefix(window, match[1]) {
			continue
		}
		acceptable = append(acceptable, window[match[0]:match[1]])
	}

	if len(acceptable) == 0 {
		return unknownFieldPlaceholder, false
	}
	return acceptable[0], len(acceptable) > 1
}

// isRoomPrefix reports whether the token ending at tokenEnd is immediately
// followed by "-<digit>" or "<digit>", the shape of a room code's tail.
func isRoomPrefix(window string, tokenEnd int) bool {
	rest := window[tokenEnd:]
	if rest == "" {
		return false
	}
	if rest[0] >= '0' && rest[0] <= '9' {
		return true
	}
	return len(rest) >= 2 && rest[0] == '-' && rest[1] >= '0' && rest[1] <= '9'
}
