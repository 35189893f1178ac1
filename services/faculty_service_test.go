package services

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/uniroutine/schedule-backend/shared"
)

func facultyCardSelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse card HTML: %v", err)
	}
	return doc.Find("div.faculty-card").First()
}

func TestParseFacultyCardComplete(t *testing.T) {
	service := NewFacultyService(nil, "")
	card := facultyCardSelection(t, `
		<div class="faculty-card">
			<h3 class="faculty-name">Dr. Mohammad Badrul (MB)</h3>
			<p class="designation">Assistant Professor</p>
			<p class="room">KT-510</p>
			<a href="mailto:badrul@university.edu">Email</a>
			<a href="tel:+8801700000000">Call</a>
			<a href="/profile/mb">Profile</a>
		</div>`)

	member := service.parseFacultyCard(card, "CSE")
	if member == nil {
		t.Fatal("Expected a parsed faculty member")
	}
	if member.Initials != "MB" {
		t.Errorf("Expected initials MB, got %s", member.Initials)
	}
	if member.Name != "Dr. Mohammad Badrul" {
		t.Errorf("Initials suffix must be stripped from the name, got %q", member.Name)
	}
	if member.Designation != "Assistant Professor" {
		t.Errorf("Expected designation, got %q", member.Designation)
	}
	if member.Department != "CSE" {
		t.Errorf("Expected department CSE, got %s", member.Department)
	}
	if member.Room != "KT-510" {
		t.Errorf("Expected room KT-510, got %s", member.Room)
	}
	if member.Email != "badrul@university.edu" {
		t.Errorf("Expected email from mailto link, got %q", member.Email)
	}
	if member.Phone != "+8801700000000" {
		t.Errorf("Expected phone from tel link, got %q", member.Phone)
	}
	if member.ProfileURL != "/profile/mb" {
		t.Errorf("Expected profile link, got %q", member.ProfileURL)
	}
	if member.ScrapedAt.IsZero() {
		t.Error("Expected a scrape timestamp")
	}
}

func TestParseFacultyCardDisambiguatedInitials(t *testing.T) {
	service := NewFacultyService(nil, "")
	card := facultyCardSelection(t, `
		<div class="faculty-card">
			<h4>Jane Roe (JR_2)</h4>
		</div>`)

	member := service.parseFacultyCard(card, "CSE")
	if member == nil {
		t.Fatal("Expected a parsed faculty member")
	}
	if member.Initials != "JR_2" {
		t.Errorf("Expected disambiguated initials JR_2, got %s", member.Initials)
	}
	if member.Name != "Jane Roe" {
		t.Errorf("Expected name without suffix, got %q", member.Name)
	}
}

func TestParseFacultyCardDerivesInitials(t *testing.T) {
	service := NewFacultyService(nil, "")
	card := facultyCardSelection(t, `
		<div class="faculty-card">
			<h3>Abdul Sattar Tanvir</h3>
		</div>`)

	member := service.parseFacultyCard(card, "EEE")
	if member == nil {
		t.Fatal("Expected a parsed faculty member")
	}
	if member.Initials != "AST" {
		t.Errorf("Expected derived initials AST, got %s", member.Initials)
	}
}

func TestParseFacultyCardSkipsUnusable(t *testing.T) {
	service := NewFacultyService(nil, "")

	nameless := facultyCardSelection(t, `
		<div class="faculty-card">
			<p class="designation">Lecturer</p>
		</div>`)
	if member := service.parseFacultyCard(nameless, "CSE"); member != nil {
		t.Errorf("A card without a name must be skipped, got %+v", member)
	}

	noInitials := facultyCardSelection(t, `
		<div class="faculty-card">
			<h3>unlisted</h3>
		</div>`)
	if member := service.parseFacultyCard(noInitials, "CSE"); member != nil {
		t.Errorf("A card yielding no initials must be skipped, got %+v", member)
	}
}

func TestDeriveInitialsFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Abdul Sattar Tanvir", "AST"},
		{"Mohammad Badrul", "MB"},
		{"Dr. Khaled Hossain", "DKH"},
		{"Anna Belle Clara Dora Eve", "ABCD"},
		{"lowercase name", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := deriveInitialsFromName(tt.name); got != tt.want {
			t.Errorf("deriveInitialsFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDirectoryListingURL(t *testing.T) {
	service := NewFacultyService(nil, "https://faculty.university.edu")

	listing, domain, err := service.directoryListingURL("CSE")
	if err != nil {
		t.Fatalf("directoryListingURL failed: %v", err)
	}
	if listing != "https://faculty.university.edu/faculty-list/cse" {
		t.Errorf("Unexpected listing URL: %s", listing)
	}
	if domain != "faculty.university.edu" {
		t.Errorf("Unexpected allowed domain: %s", domain)
	}

	listing, domain, err = service.directoryListingURL("")
	if err != nil {
		t.Fatalf("directoryListingURL without department failed: %v", err)
	}
	if listing != "https://faculty.university.edu" {
		t.Errorf("Empty department must target the full directory, got %s", listing)
	}
	if domain != "faculty.university.edu" {
		t.Errorf("Unexpected allowed domain: %s", domain)
	}

	pathService := NewFacultyService(nil, "https://www.university.edu/academics/")
	listing, domain, err = pathService.directoryListingURL("EEE")
	if err != nil {
		t.Fatalf("directoryListingURL with base path failed: %v", err)
	}
	if listing != "https://www.university.edu/academics/faculty-list/eee" {
		t.Errorf("Unexpected listing URL: %s", listing)
	}
	if domain != "www.university.edu" {
		t.Errorf("Domain must exclude the base path, got %s", domain)
	}

	unconfigured := &FacultyService{config: shared.ServiceConfig{}}
	if _, _, err := unconfigured.directoryListingURL("CSE"); err == nil {
		t.Error("An empty base URL must be rejected")
	}
}
