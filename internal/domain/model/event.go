package model

import "time"

// EventKind tells workers how to apply a GradeEvent.
type EventKind string

// Supported grade event kinds.
const (
	KindGradeSnapshot EventKind = "grade_snapshot"
	KindAssessment    EventKind = "assessment"
)

// GradeEvent is the ingest envelope for a single backend record.
type GradeEvent struct {
	EventID      string    // unique id for idempotency
	StudentID    string    // owner of the record
	CourseID     string    // course the record belongs to
	Kind         EventKind // which payload is set
	Sample       ScoreSample
	CategoryName string // optional display name for Assessment.CategoryID
	Assessment   Assessment
	ReceivedAt   time.Time
}
