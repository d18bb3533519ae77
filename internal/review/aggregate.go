package review

import (
	"errors"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

var (
	ErrNoPriorResult = errors.New("no prior result")
	ErrInvalidPoint  = errors.New("point out of range")
)

// Aggregate buffers the events produced by commands until they are
// persisted.
type Aggregate struct {
	state       State
	version     int
	uncommitted []models.GradeReviewResult
	now         func() time.Time
}

// Load rebuilds the aggregate from its record and its persisted events.
func Load(record models.GradeReview, history []models.GradeReviewResult) *Aggregate {
	state := Fold(InitialState(record), history)
	return &Aggregate{
		state:   state,
		version: state.Version,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (a *Aggregate) ID() string {
	return a.state.ID
}

func (a *Aggregate) State() State {
	return a.state
}

// Version is the last persisted version the pending events were decided
// against.
func (a *Aggregate) Version() int {
	return a.version
}

// CreateResult records a teacher's answer: ASSIGN for the first one,
// REASSIGN afterwards.
func (a *Aggregate) CreateResult(point float64, teacherID, feedback string) (models.GradeReviewResult, error) {
	kind := models.ResultEventAssign
	if a.state.HasResult() {
		kind = models.ResultEventReassign
	}
	return a.raise(kind, point, teacherID, feedback)
}

// ReassignResult corrects an earlier answer.
func (a *Aggregate) ReassignResult(point float64, teacherID, feedback string) (models.GradeReviewResult, error) {
	if !a.state.HasResult() {
		return models.GradeReviewResult{}, ErrNoPriorResult
	}
	return a.raise(models.ResultEventReassign, point, teacherID, feedback)
}

// Finalize closes the review with the current result. Calling it again
// appends another DONE event.
func (a *Aggregate) Finalize(finalizedBy string) (models.GradeReviewResult, error) {
	if !a.state.HasResult() {
		return models.GradeReviewResult{}, ErrNoPriorResult
	}
	return a.raise(models.ResultEventDone, a.state.Point, finalizedBy, a.state.Feedback)
}

func (a *Aggregate) raise(kind models.ResultEvent, point float64, teacherID, feedback string) (models.GradeReviewResult, error) {
	if !models.ValidPoint(point) {
		return models.GradeReviewResult{}, fmt.Errorf("%w: %v", ErrInvalidPoint, point)
	}

	e := models.GradeReviewResult{
		GradeReviewID: a.state.ID,
		Version:       a.state.Version + 1,
		Event:         kind,
		Point:         point,
		TeacherID:     teacherID,
		Feedback:      feedback,
		CreatedAt:     a.now(),
	}
	a.state = Apply(a.state, e)
	a.uncommitted = append(a.uncommitted, e)
	return e, nil
}

// Uncommitted returns the events raised since the last commit, numbered
// after Version.
func (a *Aggregate) Uncommitted() []models.GradeReviewResult {
	out := make([]models.GradeReviewResult, len(a.uncommitted))
	copy(out, a.uncommitted)
	return out
}

// Commit clears the buffer once persisted holds the stored events.
func (a *Aggregate) Commit(persisted []models.GradeReviewResult) {
	for _, e := range persisted {
		if e.Version > a.state.Version {
			a.state.Version = e.Version
		}
	}
	a.version = a.state.Version
	a.uncommitted = nil
}
