package models

import "time"

type ReviewStatus string

const (
	ReviewStatusRequest ReviewStatus = "REQUEST"
	ReviewStatusDone    ReviewStatus = "DONE"
)

// ReviewSummary is the aggregated review state of a single score.
type ReviewSummary string

const (
	ReviewSummaryNone    ReviewSummary = "NOREVIEWS"
	ReviewSummaryRequest ReviewSummary = "REQUEST"
	ReviewSummaryDone    ReviewSummary = "DONE"
)

type ResultEvent string

const (
	ResultEventAssign   ResultEvent = "ASSIGN"
	ResultEventReassign ResultEvent = "REASSIGN"
	ResultEventDone     ResultEvent = "DONE"
)

// GradeReview is a student's request to re-check a UserCourseGrade.
type GradeReview struct {
	ID                string       `db:"id" json:"id"`
	UserCourseGradeID string       `db:"user_course_grade_id" json:"user_course_grade_id"`
	UserID            string       `db:"user_id" json:"user_id" validate:"required"`
	Topic             string       `db:"topic" json:"topic" validate:"required,max=255"`
	Description       string       `db:"description" json:"desc"`
	ExpectedGrade     float64      `db:"expected_grade" json:"expected_grade" validate:"gte=0,lte=10"`
	Status            ReviewStatus `db:"status" json:"status" validate:"required,oneof=REQUEST DONE"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`

	Results []GradeReviewResult `db:"-" json:"grade_review_results,omitempty"`
}

// GradeReviewResult is one immutable entry of a review's event log.
type GradeReviewResult struct {
	ID            string      `db:"id" json:"id"`
	GradeReviewID string      `db:"grade_review_id" json:"grade_review_id"`
	Version       int         `db:"version" json:"version"`
	Event         ResultEvent `db:"event" json:"event"`
	Point         float64     `db:"point" json:"point"`
	TeacherID     string      `db:"teacher_id" json:"teacher_id"`
	Feedback      string      `db:"feedback" json:"feedback"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

func (r *GradeReview) Validate() error {
	return validate.Struct(r)
}

// SummarizeReviews folds the statuses of all reviews on one score.
func SummarizeReviews(reviews []GradeReview) ReviewSummary {
	if len(reviews) == 0 {
		return ReviewSummaryNone
	}
	for _, r := range reviews {
		if r.Status != ReviewStatusDone {
			return ReviewSummaryRequest
		}
	}
	return ReviewSummaryDone
}
