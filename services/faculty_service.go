package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/models"
	"github.com/uniroutine/schedule-backend/shared"
)

// Initials appear on faculty cards in parentheses, e.g. "John Doe (JD)" or
// "Jane Roe (JR_2)" when the department disambiguates repeated initials.
var facultyInitialsPattern = regexp.MustCompile(`\(([A-Z]{1,4}(?:_\d+)?)\)`)

// FacultyService scrapes the university faculty directory and answers
// initials lookups used to enrich schedule responses with instructor details.
type FacultyService struct {
	db             *sql.DB
	config         shared.ServiceConfig
	serviceMetrics *shared.ServiceMetrics
}

// NewFacultyService creates a faculty service. An empty baseURL falls back to
// the default directory host.
func NewFacultyService(db *sql.DB, baseURL string) *FacultyService {
	config := shared.NewFacultyScraperConfig()
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &FacultyService{
		db:             db,
		config:         config,
		serviceMetrics: shared.NewServiceMetrics("faculty-scraper"),
	}
}

// SyncFacultyDirectory crawls the directory listing for a department and
// upserts every parsed profile card. Returns the number of members stored.
// Pagination links are followed within the allowed domain; the crawl respects
// a politeness delay between requests.
func (s *FacultyService) SyncFacultyDirectory(ctx context.Context, department string) (int, error) {
	startTime := time.Now()
	logger := logrus.WithFields(logrus.Fields{
		"component":  "FacultyService",
		"method":     "SyncFacultyDirectory",
		"department": department,
	})

	listingURL, allowedDomain, err := s.directoryListingURL(department)
	if err != nil {
		return 0, err
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(allowedDomain),
	)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       s.config.RequestRateLimit,
		RandomDelay: s.config.RequestRateLimit / 2,
	}); err != nil {
		return 0, fmt.Errorf("failed to configure crawl limits: %w", err)
	}

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var members []models.FacultyMember
	collector.OnHTML("div.faculty-card, div.teacher-profile-card", func(e *colly.HTMLElement) {
		member := s.parseFacultyCard(e.DOM, department)
		if member == nil {
			return
		}
		if member.ProfileURL != "" {
			member.ProfileURL = e.Request.AbsoluteURL(member.ProfileURL)
		}
		members = append(members, *member)
	})

	collector.OnHTML(`a[rel="next"], li.next > a`, func(e *colly.HTMLElement) {
		if ctx.Err() != nil {
			return
		}
		e.Request.Visit(e.Attr("href"))
	})

	var crawlErr error
	collector.OnError(func(r *colly.Response, err error) {
		crawlErr = err
		logger.WithError(err).WithField("url", r.Request.URL.String()).Error("Faculty directory request failed")
	})

	if err := collector.Visit(listingURL); err != nil {
		s.serviceMetrics.RecordRequest(false, time.Since(startTime))
		return 0, shared.NewSourceFetchError(listingURL, "FacultyService", "SyncFacultyDirectory", err)
	}
	collector.Wait()

	if len(members) == 0 {
		s.serviceMetrics.RecordRequest(false, time.Since(startTime))
		if crawlErr != nil {
			return 0, shared.NewSourceFetchError(listingURL, "FacultyService", "SyncFacultyDirectory", crawlErr)
		}
		return 0, shared.NewExtractionError(listingURL, "FacultyService", "SyncFacultyDirectory",
			fmt.Errorf("no faculty cards found in directory listing"))
	}

	stored := 0
	for i := range members {
		if err := s.UpsertFacultyMember(ctx, &members[i]); err != nil {
			logger.WithError(err).WithField("initials", members[i].Initials).Error("Failed to store faculty member")
			continue
		}
		stored++
	}

	s.serviceMetrics.RecordRequest(true, time.Since(startTime))
	logger.WithFields(logrus.Fields{
		"members_found":  len(members),
		"members_stored": stored,
		"crawl_time":     time.Since(startTime),
	}).Info("Completed faculty directory sync")

	return stored, nil
}

// directoryListingURL builds the department listing URL and extracts the
// domain the crawl is restricted to.
func (s *FacultyService) directoryListingURL(department string) (string, string, error) {
	base := strings.TrimRight(s.config.BaseURL, "/")
	if base == "" {
		return "", "", fmt.Errorf("faculty directory base URL is not configured")
	}

	allowedDomain := strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://")
	if slash := strings.Index(allowedDomain, "/"); slash >= 0 {
		allowedDomain = allowedDomain[:slash]
	}

	listingURL := base
	if department != "" {
		listingURL = fmt.Sprintf("%s/faculty-list/%s", base, strings.ToLower(department))
	}
	return listingURL, allowedDomain, nil
}

// parseFacultyCard extracts a faculty member from one directory card. Cards
// without a recognizable name or initials are skipped.
func (s *FacultyService) parseFacultyCard(card *goquery.Selection, department string) *models.FacultyMember {
	name := strings.TrimSpace(card.Find(".faculty-name, h3, h4").First().Text())
	if name == "" {
		return nil
	}

	initials := ""
	if match := facultyInitialsPattern.FindStringSubmatch(card.Text()); len(match) > 1 {
		initials = match[1]
	}
	if initials == "" {
		initials = deriveInitialsFromName(name)
	}
	if initials == "" {
		return nil
	}

	// Strip the "(XX)" initials suffix from the display name
	name = strings.TrimSpace(facultyInitialsPattern.ReplaceAllString(name, ""))

	member := &models.FacultyMember{
		Initials:    initials,
		Name:        name,
		Designation: strings.TrimSpace(card.Find(".designation, .faculty-designation").First().Text()),
		Department:  department,
		Room:        strings.TrimSpace(card.Find(".room, .faculty-room").First().Text()),
		ScrapedAt:   time.Now(),
	}

	if href, exists := card.Find(`a[href^="mailto:"]`).First().Attr("href"); exists {
		member.Email = strings.TrimPrefix(href, "mailto:")
	}
	if href, exists := card.Find(`a[href^="tel:"]`).First().Attr("href"); exists {
		member.Phone = strings.TrimPrefix(href, "tel:")
	}
	if href, exists := card.Find("a").FilterFunction(func(_ int, link *goquery.Selection) bool {
		h, _ := link.Attr("href")
		return h != "" && !strings.HasPrefix(h, "mailto:") && !strings.HasPrefix(h, "tel:")
	}).First().Attr("href"); exists {
		member.ProfileURL = href
	}

	return member
}

// deriveInitialsFromName falls back to the first letter of each name part,
// capped at four, when a card carries no explicit initials.
func deriveInitialsFromName(name string) string {
	var initials strings.Builder
	for _, part := range strings.Fields(name) {
		first := rune(part[0])
		if first >= 'A' && first <= 'Z' {
			initials.WriteRune(first)
		}
		if initials.Len() >= 4 {
			break
		}
	}
	return initials.String()
}

// UpsertFacultyMember inserts or refreshes a faculty member keyed by initials.
func (s *FacultyService) UpsertFacultyMember(ctx context.Context, member *models.FacultyMember) error {
	if s.db == nil {
		return shared.NewCacheUnavailableError("FacultyService", "UpsertFacultyMember",
			fmt.Errorf("database not available"))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO faculty_members (
			initials, name, designation, department, email, phone, room, profile_url, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (initials) DO UPDATE SET
			name = EXCLUDED.name,
			designation = EXCLUDED.designation,
			department = EXCLUDED.department,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			room = EXCLUDED.room,
			profile_url = EXCLUDED.profile_url,
			scraped_at = EXCLUDED.scraped_at
	`,
		member.Initials, member.Name, member.Designation, member.Department,
		member.Email, member.Phone, member.Room, member.ProfileURL, member.ScrapedAt,
	)
	return err
}

// ListFaculty returns faculty members, optionally restricted to a department,
// ordered by name.
func (s *FacultyService) ListFaculty(ctx context.Context, department string) ([]models.FacultyMember, error) {
	if s.db == nil {
		return nil, shared.NewCacheUnavailableError("FacultyService", "ListFaculty",
			fmt.Errorf("database not available"))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, initials, name, designation, department, email, phone, room, profile_url, scraped_at
		FROM faculty_members
		WHERE $1 = '' OR department = $1
		ORDER BY name
	`, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faculty []models.FacultyMember
	for rows.Next() {
		var member models.FacultyMember
		err := rows.Scan(
			&member.ID, &member.Initials, &member.Name, &member.Designation, &member.Department,
			&member.Email, &member.Phone, &member.Room, &member.ProfileURL, &member.ScrapedAt,
		)
		if err != nil {
			return nil, err
		}
		faculty = append(faculty, member)
	}
	return faculty, rows.Err()
}

// GetFacultyByInitials looks up one faculty member, case-insensitively.
// Returns nil without error when no member matches.
func (s *FacultyService) GetFacultyByInitials(ctx context.Context, initials string) (*models.FacultyMember, error) {
	if s.db == nil {
		return nil, shared.NewCacheUnavailableError("FacultyService", "GetFacultyByInitials",
			fmt.Errorf("database not available"))
	}

	var member models.FacultyMember
	err := s.db.QueryRowContext(ctx, `
		SELECT id, initials, name, designation, department, email, phone, room, profile_url, scraped_at
		FROM faculty_members
		WHERE UPPER(initials) = UPPER($1)
	`, initials).Scan(
		&member.ID, &member.Initials, &member.Name, &member.Designation, &member.Department,
		&member.Email, &member.Phone, &member.Room, &member.ProfileURL, &member.ScrapedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}
