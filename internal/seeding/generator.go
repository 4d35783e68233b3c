package seeding

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/completion"
	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/progression"
)

const (
	minGrade             = 1.5
	maxGrade             = 4.0
	maxStep              = 0.35
	daysBetweenSnapshots = 2
	maxPerWeek           = 3
)

var categories = []struct{ id, name string }{
	{"quizzes", "Quizzes"},
	{"exams", "Exams"},
}

// Expectation is what the service should serve for one seeded course.
type Expectation struct {
	StudentID  string
	CourseID   string
	Weeks      int
	Current    float64
	Completion float64
}

// Generate builds the events of a synthetic term and the expectations they
// imply. Event IDs are random; grades depend only on cfg.Seed.
func Generate(cfg *Config) ([]Event, []Expectation) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	start := cfg.Start
	if start.IsZero() {
		start = time.Now().UTC().AddDate(0, 0, -7*cfg.Weeks)
	}
	start = progression.WeekStart(start.UTC())

	var (
		events []Event
		expect []Expectation
	)
	for s := range cfg.Students {
		studentID := fmt.Sprintf("student-%04d", s+1)
		for c := range cfg.Courses {
			courseID := fmt.Sprintf("course-%02d", c+1)
			evs, exp := generateCourse(rng, start, cfg.Weeks, studentID, courseID)
			events = append(events, evs...)
			expect = append(expect, exp)
		}
	}
	return events, expect
}

func generateCourse(rng *rand.Rand, start time.Time, weeks int, studentID, courseID string) ([]Event, Expectation) {
	var (
		events []Event
		cats   = make([]model.Category, len(categories))
		grade  = minGrade + rng.Float64()*(maxGrade-minGrade)
		n      int
	)
	for i, c := range categories {
		cats[i] = model.Category{ID: c.id, Name: c.name}
	}

	for w := range weeks {
		perWeek := 1 + rng.IntN(maxPerWeek)
		for k := range perWeek {
			n++
			grade = math.Round(clamp(grade+(rng.Float64()*2-1)*maxStep)*100) / 100
			due := start.AddDate(0, 0, 7*w+k*daysBetweenSnapshots).Add(9 * time.Hour)
			events = append(events, Event{
				EventID:   uuid.NewString(),
				StudentID: studentID,
				CourseID:  courseID,
				Kind:      string(model.KindGradeSnapshot),
				Sample: &Sample{
					CurrentGrade: grade,
					DueDate:      due.Format(time.RFC3339),
					CalculatedAt: due.Add(time.Hour).Format(time.RFC3339),
				},
			})

			ci := rng.IntN(len(categories))
			score := math.Round(grade/maxGrade*100*10) / 10
			a := Assessment{
				ID:           fmt.Sprintf("%s-a%03d", courseID, n),
				CategoryID:   categories[ci].id,
				CategoryName: categories[ci].name,
				Score:        &score,
			}
			events = append(events, assessmentEvent(studentID, courseID, a))
			cats[ci].Assessments = append(cats[ci].Assessments, model.Assessment{
				ID: a.ID, CategoryID: a.CategoryID, Score: null.Float64FromPtr(a.Score),
			})
		}
	}

	// Upcoming, ungraded work keeps completion below 100.
	for i, c := range categories {
		a := Assessment{ID: fmt.Sprintf("%s-%s-final", courseID, c.id), CategoryID: c.id, CategoryName: c.name}
		events = append(events, assessmentEvent(studentID, courseID, a))
		cats[i].Assessments = append(cats[i].Assessments, model.Assessment{ID: a.ID, CategoryID: a.CategoryID})
	}

	return events, Expectation{
		StudentID:  studentID,
		CourseID:   courseID,
		Weeks:      weeks,
		Current:    grade,
		Completion: completion.Course(cats),
	}
}

func assessmentEvent(studentID, courseID string, a Assessment) Event {
	return Event{
		EventID:    uuid.NewString(),
		StudentID:  studentID,
		CourseID:   courseID,
		Kind:       string(model.KindAssessment),
		Assessment: &a,
	}
}

func clamp(v float64) float64 {
	return math.Max(minGrade, math.Min(maxGrade, v))
}
