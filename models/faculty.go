package models

import (
	"time"

	"github.com/google/uuid"
)

// FacultyMember is one scraped faculty-directory profile. Initials are the
// join key to ClassEntry.TeacherInitials.
type FacultyMember struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	Initials    string    `json:"initials" gorm:"uniqueIndex"`
	Name        string    `json:"name"`
	Designation string    `json:"designation"`
	Department  string    `json:"department"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Room        string    `json:"room,omitempty"`
	ProfileURL  string    `json:"profile_url,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// ClassEntryWithFaculty is a class entry joined with the instructor's
// directory profile. Faculty fields are nullable because initials in the
// routine do not always resolve to a scraped profile.
type ClassEntryWithFaculty struct {
	ClassEntry

	TeacherName        *string `json:"teacher_name,omitempty"`
	TeacherDesignation *string `json:"teacher_designation,omitempty"`
	TeacherEmail       *string `json:"teacher_email,omitempty"`
}
