// Package review holds the grade review aggregate: a state rebuilt by
// folding the review's result events, and the commands that append to it.
package review

import (
	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// State is the snapshot of a grade review after applying its events.
type State struct {
	ID                string
	UserID            string
	UserCourseGradeID string
	Topic             string
	Description       string
	ExpectedGrade     float64
	Status            models.ReviewStatus

	Point     float64
	Feedback  string
	TeacherID string
	Version   int
	Results   int
}

// HasResult reports whether a teacher has answered the review at least once.
func (s State) HasResult() bool {
	return s.Results > 0
}

// InitialState copies the relational fields of a review. No event has been
// applied yet.
func InitialState(r models.GradeReview) State {
	status := r.Status
	if status == "" {
		status = models.ReviewStatusRequest
	}
	return State{
		ID:                r.ID,
		UserID:            r.UserID,
		UserCourseGradeID: r.UserCourseGradeID,
		Topic:             r.Topic,
		Description:       r.Description,
		ExpectedGrade:     r.ExpectedGrade,
		Status:            status,
	}
}

// Apply folds one event onto s. Every event overwrites the result fields;
// DONE also closes the review.
func Apply(s State, e models.GradeReviewResult) State {
	s.Point = e.Point
	s.Feedback = e.Feedback
	s.TeacherID = e.TeacherID
	s.Results++
	if e.Version > s.Version {
		s.Version = e.Version
	}
	if e.Event == models.ResultEventDone {
		s.Status = models.ReviewStatusDone
	}
	return s
}

// Fold applies events in order.
func Fold(s State, events []models.GradeReviewResult) State {
	for _, e := range events {
		s = Apply(s, e)
	}
	return s
}
