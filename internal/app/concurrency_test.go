package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// laggingStore hands out transactions whose first `lag` loads of an event
// log miss the newest event, the way a writer sees the log when another
// one commits between its read and its append.
type laggingStore struct {
	store.Store
	lag   int
	loads int
}

func (s *laggingStore) RunInTx(ctx context.Context, timeout time.Duration, fn func(store.Tx) error) error {
	return s.Store.RunInTx(ctx, timeout, func(tx store.Tx) error {
		return fn(&laggingTx{Tx: tx, s: s})
	})
}

type laggingTx struct {
	store.Tx
	s *laggingStore
}

func (tx *laggingTx) LoadEvents(ctx context.Context, reviewID string) ([]models.GradeReviewResult, error) {
	events, err := tx.Tx.LoadEvents(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	tx.s.loads++
	if tx.s.lag > 0 && len(events) > 0 {
		tx.s.lag--
		return events[:len(events)-1], nil
	}
	return events, nil
}

func openReview(t *testing.T, s *Service, f *fixture, student string) *models.GradeReview {
	r, err := s.CreateReview(f.ctx, CreateReviewInput{
		UserID: "u-" + student, StudentID: student, GradeTypeID: f.final.ID, Topic: "recheck",
	})
	require.NoError(t, err)
	return r
}

func TestFinalizeAfterConcurrentReassign(t *testing.T) {
	s, pub := newTestService(t, "")
	f := seed(t, s)
	grade := f.score(t, s, f.final, "alice", 5)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	r := openReview(t, s, f, "alice")
	_, err := s.CreateResult(f.ctx, r.ID, ResultInput{TeacherID: "t1", Point: 7, Feedback: "first look"})
	require.NoError(t, err)
	_, err = s.ReassignResult(f.ctx, r.ID, ResultInput{TeacherID: "t2", Point: 9, Feedback: "second look"})
	require.NoError(t, err)

	// the finalizer first decides against v1 and must lose to v2
	lagging := &laggingStore{Store: s.Store, lag: 1}
	s.Store = lagging

	d, err := s.FinalizeReview(f.ctx, r.ID, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, lagging.loads, "finalize should decide again on the reloaded log")
	assert.Equal(t, models.ReviewStatusDone, d.Status)
	assert.Equal(t, 3, d.Version)
	assert.Equal(t, 9.0, d.Point)
	assert.Equal(t, "second look", d.Feedback)

	require.Len(t, d.Results, 3)
	assert.Equal(t, models.ResultEventDone, d.Results[2].Event)
	assert.Equal(t, 9.0, d.Results[2].Point)

	g, err := s.Store.GetGrade(f.ctx, grade.ID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, g.Point)
}

func TestRacedFirstResultBecomesReassign(t *testing.T) {
	s, pub := newTestService(t, "")
	f := seed(t, s)
	f.score(t, s, f.final, "bob", 4)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	r := openReview(t, s, f, "bob")
	_, err := s.CreateResult(f.ctx, r.ID, ResultInput{TeacherID: "t1", Point: 6})
	require.NoError(t, err)

	lagging := &laggingStore{Store: s.Store, lag: 1}
	s.Store = lagging

	e, err := s.CreateResult(f.ctx, r.ID, ResultInput{TeacherID: "t2", Point: 8})
	require.NoError(t, err)
	assert.Equal(t, 2, lagging.loads)
	assert.Equal(t, 2, e.Version)
	assert.Equal(t, models.ResultEventReassign, e.Event)

	events, err := s.Store.LoadEvents(f.ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.ResultEventAssign, events[0].Event)
	assert.Equal(t, models.ResultEventReassign, events[1].Event)
}

func TestStaleLogExhaustsAttempts(t *testing.T) {
	s, pub := newTestService(t, "")
	f := seed(t, s)
	f.score(t, s, f.final, "carol", 4)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	r := openReview(t, s, f, "carol")
	_, err := s.CreateResult(f.ctx, r.ID, ResultInput{TeacherID: "t1", Point: 6})
	require.NoError(t, err)

	s.Store = &laggingStore{Store: s.Store, lag: 100}

	_, err = s.FinalizeReview(f.ctx, r.ID, "t1")
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	stored, err := s.Store.GetReview(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRequest, stored.Status)
}

func TestEditRacingFinalize(t *testing.T) {
	s, pub := newTestService(t, "")
	f := seed(t, s)
	f.score(t, s, f.final, "alice", 5)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	r := openReview(t, s, f, "alice")
	_, err := s.CreateResult(f.ctx, r.ID, ResultInput{TeacherID: "t1", Point: 7})
	require.NoError(t, err)

	t.Run("edits before finalize survive it", func(t *testing.T) {
		topic, desc, expected := "recheck task 3", "the rubric says 2 points", 8.0
		_, err := s.UpdateReview(f.ctx, r.ID, UpdateReviewInput{Topic: &topic, Description: &desc, ExpectedGrade: &expected})
		require.NoError(t, err)

		d, err := s.FinalizeReview(f.ctx, r.ID, "t1")
		require.NoError(t, err)
		assert.Equal(t, topic, d.Topic)
		assert.Equal(t, desc, d.Description)
		assert.Equal(t, expected, d.ExpectedGrade)

		stored, err := s.Store.GetReview(f.ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, topic, stored.Topic)
		assert.Equal(t, models.ReviewStatusDone, stored.Status)
	})

	t.Run("edit read before finalize cannot reopen", func(t *testing.T) {
		// r still holds the REQUEST snapshot taken before finalize
		r.Topic = "late edit"
		r.Status = models.ReviewStatusRequest
		assert.ErrorIs(t, s.Store.UpdateReview(f.ctx, r), store.ErrNotFound)

		stored, err := s.Store.GetReview(f.ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusDone, stored.Status)
		assert.Equal(t, "recheck task 3", stored.Topic)

		scores, err := s.ListScores(f.ctx, f.final.ID)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, models.ReviewSummaryDone, scores[0].ReviewStatus)

		topic := "late edit"
		_, err = s.UpdateReview(f.ctx, r.ID, UpdateReviewInput{Topic: &topic})
		assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
	})
}

func TestListCourseReviews(t *testing.T) {
	s, pub := newTestService(t, "")
	f := seed(t, s)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	final := f.score(t, s, f.final, "alice", 5)
	theory := f.score(t, s, f.theory, "alice", 6)
	f.score(t, s, f.practice, "alice", 7)
	f.score(t, s, f.final, "bob", 4)

	open, err := s.CreateReview(f.ctx, CreateReviewInput{UserID: "u-alice", StudentID: "alice", GradeTypeID: f.final.ID, Topic: "final"})
	require.NoError(t, err)
	_, err = s.CreateReview(f.ctx, CreateReviewInput{UserID: "u-alice", StudentID: "alice", GradeTypeID: f.theory.ID, Topic: "theory"})
	require.NoError(t, err)
	_, err = s.CreateReview(f.ctx, CreateReviewInput{UserID: "u-bob", StudentID: "bob", GradeTypeID: f.final.ID, Topic: "bob"})
	require.NoError(t, err)

	reviewed, err := s.ListCourseReviews(f.ctx, "cs101", "alice")
	require.NoError(t, err)
	require.Len(t, reviewed, 2, "practice has no review")

	byGrade := map[string]Score{}
	for _, sc := range reviewed {
		assert.Equal(t, "alice", sc.StudentID)
		assert.Equal(t, models.ReviewSummaryRequest, sc.ReviewStatus)
		byGrade[sc.ID] = sc
	}
	assert.Equal(t, 5.0, byGrade[final.ID].Point)
	assert.Equal(t, 6.0, byGrade[theory.ID].Point)

	_, err = s.CreateResult(f.ctx, open.ID, ResultInput{TeacherID: "t1", Point: 9})
	require.NoError(t, err)
	_, err = s.FinalizeReview(f.ctx, open.ID, "t1")
	require.NoError(t, err)

	reviewed, err = s.ListCourseReviews(f.ctx, "cs101", "alice")
	require.NoError(t, err)
	for _, sc := range reviewed {
		if sc.ID == final.ID {
			assert.Equal(t, models.ReviewSummaryDone, sc.ReviewStatus)
			assert.Equal(t, 9.0, sc.Point)
		}
	}

	all, err := s.ListCourseReviews(f.ctx, "cs101", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.ListCourseReviews(f.ctx, "cs202", "alice")
	require.NoError(t, err)
	assert.Empty(t, none)
}
