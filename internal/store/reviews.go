package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

const reviewColumns = `r.id, r.user_course_grade_id, r.user_id, r.topic, r.description,
	r.expected_grade, r.status, r.created_at, r.updated_at`

func (s *BaseStore) CreateReview(ctx context.Context, r *models.GradeReview) error {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.Status == "" {
		r.Status = models.ReviewStatusRequest
	}
	r.CreatedAt = now()
	r.UpdatedAt = r.CreatedAt

	_, err := sqlx.NamedExecContext(ctx, s.ext(), `
		INSERT INTO grade_reviews (id, user_course_grade_id, user_id, topic, description,
			expected_grade, status, created_at, updated_at)
		VALUES (:id, :user_course_grade_id, :user_id, :topic, :description,
			:expected_grade, :status, :created_at, :updated_at)
	`, r)
	if err != nil {
		return fmt.Errorf("failed to create grade review: %w", err)
	}
	return nil
}

func (s *BaseStore) GetReview(ctx context.Context, id string) (*models.GradeReview, error) {
	var r models.GradeReview
	err := sqlx.GetContext(ctx, s.ext(), &r, s.q(`
		SELECT `+reviewColumns+`
		FROM grade_reviews r
		WHERE r.id = ?
	`), id)
	if err != nil {
		return nil, notFound(err, "grade review", id)
	}
	return &r, nil
}

func (s *BaseStore) UpdateReview(ctx context.Context, r *models.GradeReview) error {
	r.UpdatedAt = now()
	res, err := sqlx.NamedExecContext(ctx, s.ext(), `
		UPDATE grade_reviews
		SET topic = :topic, description = :description, expected_grade = :expected_grade,
			updated_at = :updated_at
		WHERE id = :id AND status <> 'DONE'
	`, r)
	if err != nil {
		return fmt.Errorf("failed to update grade review: %w", err)
	}
	return mustAffect(res, "open grade review", r.ID)
}

func (s *BaseStore) SetReviewStatus(ctx context.Context, id string, status models.ReviewStatus) error {
	res, err := s.ext().ExecContext(ctx, s.q(`
		UPDATE grade_reviews SET status = ?, updated_at = ? WHERE id = ?
	`), status, now(), id)
	if err != nil {
		return fmt.Errorf("failed to set grade review status: %w", err)
	}
	return mustAffect(res, "grade review", id)
}

// DeleteReview removes the review together with its event log.
func (s *BaseStore) DeleteReview(ctx context.Context, id string) error {
	if _, err := s.ext().ExecContext(ctx, s.q(`DELETE FROM grade_review_results WHERE grade_review_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete grade review results: %w", err)
	}
	res, err := s.ext().ExecContext(ctx, s.q(`DELETE FROM grade_reviews WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete grade review: %w", err)
	}
	return mustAffect(res, "grade review", id)
}

func (s *BaseStore) ListReviews(ctx context.Context, f ReviewFilter) ([]models.GradeReview, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond, value string) {
		if value != "" {
			where = append(where, cond)
			args = append(args, value)
		}
	}
	add("r.user_course_grade_id = ?", f.UserCourseGradeID)
	add("g.grade_type_id = ?", f.GradeTypeID)
	add("g.student_id = ?", f.StudentID)
	add("g.course_id = ?", f.CourseID)
	add("r.user_id = ?", f.UserID)

	query := `
		SELECT ` + reviewColumns + `
		FROM grade_reviews r
		JOIN user_course_grades g ON g.id = r.user_course_grade_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY r.created_at, r.id"

	reviews := []models.GradeReview{}
	if err := sqlx.SelectContext(ctx, s.ext(), &reviews, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list grade reviews: %w", err)
	}
	return reviews, nil
}
