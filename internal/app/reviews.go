package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/metrics"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/review"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// ReviewDetail is a review with its event log and the folded snapshot.
type ReviewDetail struct {
	models.GradeReview
	Point     float64 `json:"point"`
	Feedback  string  `json:"feedback"`
	TeacherID string  `json:"teacher_id"`
	Version   int     `json:"version"`
}

func detail(r models.GradeReview, events []models.GradeReviewResult) *ReviewDetail {
	state := review.Fold(review.InitialState(r), events)
	r.Results = events
	r.Status = state.Status
	return &ReviewDetail{
		GradeReview: r,
		Point:       state.Point,
		Feedback:    state.Feedback,
		TeacherID:   state.TeacherID,
		Version:     state.Version,
	}
}

// CreateReview files a student's request to re-check their grade at a
// grade type.
func (s *Service) CreateReview(ctx context.Context, in CreateReviewInput) (*models.GradeReview, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	g, err := s.Store.FindGrade(ctx, in.GradeTypeID, in.StudentID)
	if err != nil {
		return nil, translate(err, "grade of student %s", in.StudentID)
	}

	r := &models.GradeReview{
		UserCourseGradeID: g.ID,
		UserID:            in.UserID,
		Topic:             in.Topic,
		Description:       in.Description,
		ExpectedGrade:     in.ExpectedGrade,
		Status:            models.ReviewStatusRequest,
	}
	if err := r.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.Store.CreateReview(ctx, r); err != nil {
		return nil, translate(err, "grade review")
	}

	s.notify(ctx, models.Notification{
		SenderID:         in.UserID,
		RecipientIDs:     recipients(in.UserID, in.RecipientIDs),
		Title:            "New Grade Review",
		Content:          r.Topic,
		Type:             models.NotificationTypeMessage,
		RedirectEndpoint: fmt.Sprintf("/grade-reviews/%s", r.ID),
		Status:           string(r.Status),
	})
	return r, nil
}

// UpdateReview edits an open review.
func (s *Service) UpdateReview(ctx context.Context, id string, in UpdateReviewInput) (*models.GradeReview, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	var r *models.GradeReview
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		var err error
		if r, err = tx.GetReview(ctx, id); err != nil {
			return err
		}
		if r.Status == models.ReviewStatusDone {
			return apperr.InvalidState("grade review %s is closed", id)
		}
		if in.Topic != nil {
			r.Topic = *in.Topic
		}
		if in.Description != nil {
			r.Description = *in.Description
		}
		if in.ExpectedGrade != nil {
			r.ExpectedGrade = *in.ExpectedGrade
		}
		err = tx.UpdateReview(ctx, r)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.InvalidState("grade review %s is closed", id)
		}
		return err
	})
	if err != nil {
		return nil, translate(err, "grade review %s", id)
	}
	return r, nil
}

func (s *Service) GetReview(ctx context.Context, id string) (*ReviewDetail, error) {
	r, err := s.Store.GetReview(ctx, id)
	if err != nil {
		return nil, translate(err, "grade review %s", id)
	}
	events, err := s.Store.LoadEvents(ctx, id)
	if err != nil {
		return nil, translate(err, "events of grade review %s", id)
	}
	return detail(*r, events), nil
}

// ListReviews returns the reviews a student filed at a grade type.
func (s *Service) ListReviews(ctx context.Context, gradeTypeID, studentID string) ([]models.GradeReview, error) {
	reviews, err := s.Store.ListReviews(ctx, store.ReviewFilter{GradeTypeID: gradeTypeID, StudentID: studentID})
	return reviews, translate(err, "grade reviews")
}

// ListCourseReviews returns the grades of a student in a course that
// have at least one review, each with the summary of its reviews. An
// empty student id lists the whole course.
func (s *Service) ListCourseReviews(ctx context.Context, courseID, studentID string) ([]Score, error) {
	reviews, err := s.Store.ListReviews(ctx, store.ReviewFilter{CourseID: courseID, StudentID: studentID})
	if err != nil {
		return nil, translate(err, "grade reviews")
	}

	var order []string
	byGrade := make(map[string][]models.GradeReview)
	for _, r := range reviews {
		if _, ok := byGrade[r.UserCourseGradeID]; !ok {
			order = append(order, r.UserCourseGradeID)
		}
		byGrade[r.UserCourseGradeID] = append(byGrade[r.UserCourseGradeID], r)
	}

	out := make([]Score, 0, len(order))
	for _, id := range order {
		g, err := s.Store.GetGrade(ctx, id)
		if err != nil {
			return nil, translate(err, "grade %s", id)
		}
		out = append(out, Score{UserCourseGrade: *g, ReviewStatus: models.SummarizeReviews(byGrade[id])})
	}
	return out, nil
}

// DeleteReview removes a review and its whole event log.
func (s *Service) DeleteReview(ctx context.Context, id string) error {
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		return tx.DeleteReview(ctx, id)
	})
	return translate(err, "grade review %s", id)
}

// decide loads the review inside a transaction, runs cmd on its aggregate
// and appends what cmd raised at the version it was loaded at. also runs
// in the same transaction. When another writer got there first the whole
// unit runs again on the reloaded log, so cmd always sees current state.
func (s *Service) decide(
	ctx context.Context,
	reviewID string,
	cmd func(agg *review.Aggregate) error,
	also func(tx store.Tx, r *models.GradeReview, stored []models.GradeReviewResult) error,
) (*models.GradeReview, []models.GradeReviewResult, error) {
	var (
		r      *models.GradeReview
		stored []models.GradeReviewResult
	)
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		var err error
		if r, err = tx.GetReview(ctx, reviewID); err != nil {
			return err
		}
		history, err := tx.LoadEvents(ctx, reviewID)
		if err != nil {
			return err
		}

		agg := review.Load(*r, history)
		if err := cmd(agg); err != nil {
			return err
		}
		if stored, err = tx.AppendEvents(ctx, agg.ID(), agg.Version(), agg.Uncommitted()); err != nil {
			return err
		}
		agg.Commit(stored)

		if also != nil {
			return also(tx, r, stored)
		}
		return nil
	})
	if err != nil {
		return nil, nil, translate(err, "grade review %s", reviewID)
	}

	for _, e := range stored {
		metrics.ReviewEventsTotal.WithLabelValues(string(e.Event)).Inc()
	}
	return r, stored, nil
}

// CreateResult records a teacher's answer to a review.
func (s *Service) CreateResult(ctx context.Context, reviewID string, in ResultInput) (*models.GradeReviewResult, error) {
	return s.result(ctx, reviewID, in, (*review.Aggregate).CreateResult)
}

// ReassignResult corrects a previous answer.
func (s *Service) ReassignResult(ctx context.Context, reviewID string, in ResultInput) (*models.GradeReviewResult, error) {
	return s.result(ctx, reviewID, in, (*review.Aggregate).ReassignResult)
}

type resultCommand func(agg *review.Aggregate, point float64, teacherID, feedback string) (models.GradeReviewResult, error)

func (s *Service) result(ctx context.Context, reviewID string, in ResultInput, cmd resultCommand) (*models.GradeReviewResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	r, stored, err := s.decide(ctx, reviewID, func(agg *review.Aggregate) error {
		_, err := cmd(agg, in.Point, in.TeacherID, in.Feedback)
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	e := stored[len(stored)-1]

	s.notify(ctx, models.Notification{
		SenderID:         in.TeacherID,
		RecipientIDs:     recipients(in.TeacherID, []string{r.UserID}),
		Title:            "Grade Review Answered",
		Content:          fmt.Sprintf("%s: %g", r.Topic, e.Point),
		Type:             models.NotificationTypeEvent,
		RedirectEndpoint: fmt.Sprintf("/grade-reviews/%s", reviewID),
		Status:           string(e.Event),
	})
	return &e, nil
}

// FinalizeReview closes a review and copies its last point into the
// contested grade. The DONE event, the review status and the grade commit
// together or not at all.
func (s *Service) FinalizeReview(ctx context.Context, reviewID, finalizedBy string) (*ReviewDetail, error) {
	if finalizedBy == "" {
		return nil, apperr.Validation("finalizing user is required")
	}

	var (
		done     models.GradeReviewResult
		courseID string
	)
	r, _, err := s.decide(ctx, reviewID, func(agg *review.Aggregate) error {
		var err error
		done, err = agg.Finalize(finalizedBy)
		return err
	}, func(tx store.Tx, r *models.GradeReview, _ []models.GradeReviewResult) error {
		if err := tx.SetReviewStatus(ctx, r.ID, models.ReviewStatusDone); err != nil {
			return err
		}

		g, err := tx.GetGrade(ctx, r.UserCourseGradeID)
		if err != nil {
			return err
		}
		g.Point = done.Point
		courseID = g.CourseID
		return tx.UpdateGrade(ctx, g)
	})
	if err != nil {
		if apperr.Is(err, apperr.KindPersistence) {
			logger.Error.Printf("Finalize of grade review %s failed: %v", reviewID, err)
		}
		return nil, err
	}
	metrics.FinalPointHistogram.WithLabelValues(courseID).Observe(done.Point)

	s.notify(ctx, models.Notification{
		SenderID:         finalizedBy,
		RecipientIDs:     recipients(finalizedBy, []string{r.UserID}),
		Title:            "Grade Review Finalized",
		Content:          fmt.Sprintf("%s: final grade %g", r.Topic, done.Point),
		Type:             models.NotificationTypeEvent,
		RedirectEndpoint: fmt.Sprintf("/grade-reviews/%s", reviewID),
		Status:           string(models.ReviewStatusDone),
	})

	return s.GetReview(ctx, reviewID)
}
