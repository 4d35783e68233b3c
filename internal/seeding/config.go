// Package seeding generates a synthetic term of grade events, submits it to a
// running service and verifies the charts the service derives from it.
package seeding

import (
	"errors"
	"time"
)

// ErrVerification is returned when served data disagrees with what was seeded.
var ErrVerification = errors.New("verification failed")

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Students   int           // Number of synthetic students
	Courses    int           // Courses per student
	Weeks      int           // Weeks of history per course
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for events to be applied
	Seed       uint64        // Generator seed; equal seeds give equal grades
	Start      time.Time     // First week of the term; zero means Weeks before now
	OutputFile string        // Optional JSON dump of generated events
}

// Event is the wire shape of POST /events.
type Event struct {
	EventID    string      `json:"event_id"`
	StudentID  string      `json:"student_id"`
	CourseID   string      `json:"course_id"`
	Kind       string      `json:"kind"`
	Sample     *Sample     `json:"sample,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
}

// Sample is a grade snapshot payload.
type Sample struct {
	CurrentGrade float64 `json:"current_grade"`
	DueDate      string  `json:"due_date"`
	CalculatedAt string  `json:"calculated_at"`
}

// Assessment is an assessment payload. A nil Score is ungraded work.
type Assessment struct {
	ID           string   `json:"id"`
	CategoryID   string   `json:"category_id"`
	CategoryName string   `json:"category_name"`
	Score        *float64 `json:"score"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsFailed     int
	CoursesVerified  int
	Mismatches       []string
	StartTime        time.Time
	Duration         time.Duration
}
