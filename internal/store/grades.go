package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

const structureColumns = `id, course_id, name, status, created_at, updated_at`

func (s *BaseStore) CreateStructure(ctx context.Context, gs *models.GradeStructure) error {
	if gs.ID == "" {
		gs.ID = newID()
	}
	if gs.Status == "" {
		gs.Status = models.GradeStatusCreated
	}
	gs.CreatedAt = now()
	gs.UpdatedAt = gs.CreatedAt

	_, err := sqlx.NamedExecContext(ctx, s.ext(), `
		INSERT INTO grade_structures (id, course_id, name, status, created_at, updated_at)
		VALUES (:id, :course_id, :name, :status, :created_at, :updated_at)
	`, gs)
	if s.unique(err) {
		return fmt.Errorf("grade structure for course %s: %w", gs.CourseID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create grade structure: %w", err)
	}
	return nil
}

func (s *BaseStore) GetStructure(ctx context.Context, id string) (*models.GradeStructure, error) {
	var gs models.GradeStructure
	err := sqlx.GetContext(ctx, s.ext(), &gs, s.q(`
		SELECT `+structureColumns+`
		FROM grade_structures
		WHERE id = ?
	`), id)
	if err != nil {
		return nil, notFound(err, "grade structure", id)
	}
	return &gs, nil
}

func (s *BaseStore) GetStructureByCourse(ctx context.Context, courseID string) (*models.GradeStructure, error) {
	var gs models.GradeStructure
	err := sqlx.GetContext(ctx, s.ext(), &gs, s.q(`
		SELECT `+structureColumns+`
		FROM grade_structures
		WHERE course_id = ?
	`), courseID)
	if err != nil {
		return nil, notFound(err, "grade structure for course", courseID)
	}
	return &gs, nil
}

func (s *BaseStore) UpdateStructure(ctx context.Context, gs *models.GradeStructure) error {
	gs.UpdatedAt = now()
	res, err := sqlx.NamedExecContext(ctx, s.ext(), `
		UPDATE grade_structures
		SET name = :name, status = :status, updated_at = :updated_at
		WHERE id = :id
	`, gs)
	if err != nil {
		return fmt.Errorf("failed to update grade structure: %w", err)
	}
	return mustAffect(res, "grade structure", gs.ID)
}

func (s *BaseStore) DeleteStructure(ctx context.Context, id string) error {
	res, err := s.ext().ExecContext(ctx, s.q(`DELETE FROM grade_structures WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete grade structure: %w", err)
	}
	return mustAffect(res, "grade structure", id)
}

const typeColumns = `id, grade_structure_id, parent_id, label, description, percentage,
	kind, status, position, created_at, updated_at`

func (s *BaseStore) CreateType(ctx context.Context, t *models.GradeType) error {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Status == "" {
		t.Status = models.GradeStatusCreated
	}
	if t.ParentID != nil && *t.ParentID == "" {
		t.ParentID = nil
	}
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt

	_, err := sqlx.NamedExecContext(ctx, s.ext(), `
		INSERT INTO grade_types (`+typeColumns+`)
		VALUES (:id, :grade_structure_id, :parent_id, :label, :description, :percentage,
			:kind, :status, :position, :created_at, :updated_at)
	`, t)
	if s.unique(err) {
		return fmt.Errorf("grade type label %q: %w", t.Label, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create grade type: %w", err)
	}
	return nil
}

func (s *BaseStore) GetType(ctx context.Context, id string) (*models.GradeType, error) {
	var t models.GradeType
	err := sqlx.GetContext(ctx, s.ext(), &t, s.q(`
		SELECT `+typeColumns+`
		FROM grade_types
		WHERE id = ?
	`), id)
	if err != nil {
		return nil, notFound(err, "grade type", id)
	}
	return &t, nil
}

// ListTypes returns every grade type of a structure, flat, in display order.
func (s *BaseStore) ListTypes(ctx context.Context, structureID string) ([]models.GradeType, error) {
	types := []models.GradeType{}
	err := sqlx.SelectContext(ctx, s.ext(), &types, s.q(`
		SELECT `+typeColumns+`
		FROM grade_types
		WHERE grade_structure_id = ?
		ORDER BY position, created_at
	`), structureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grade types: %w", err)
	}
	return types, nil
}

func (s *BaseStore) UpdateType(ctx context.Context, t *models.GradeType) error {
	t.UpdatedAt = now()
	res, err := sqlx.NamedExecContext(ctx, s.ext(), `
		UPDATE grade_types
		SET label = :label, description = :description, percentage = :percentage,
			status = :status, position = :position, updated_at = :updated_at
		WHERE id = :id
	`, t)
	if s.unique(err) {
		return fmt.Errorf("grade type label %q: %w", t.Label, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update grade type: %w", err)
	}
	return mustAffect(res, "grade type", t.ID)
}

func (s *BaseStore) DeleteType(ctx context.Context, id string) error {
	res, err := s.ext().ExecContext(ctx, s.q(`DELETE FROM grade_types WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete grade type: %w", err)
	}
	return mustAffect(res, "grade type", id)
}

const gradeColumns = `id, grade_type_id, student_id, course_id, point, created_at, updated_at`

func (s *BaseStore) CreateGrade(ctx context.Context, g *models.UserCourseGrade) error {
	if g.ID == "" {
		g.ID = newID()
	}
	g.CreatedAt = now()
	g.UpdatedAt = g.CreatedAt

	_, err := sqlx.NamedExecContext(ctx, s.ext(), `
		INSERT INTO user_course_grades (`+gradeColumns+`)
		VALUES (:id, :grade_type_id, :student_id, :course_id, :point, :created_at, :updated_at)
	`, g)
	if s.unique(err) {
		return fmt.Errorf("grade of student %s: %w", g.StudentID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create grade: %w", err)
	}
	return nil
}

func (s *BaseStore) GetGrade(ctx context.Context, id string) (*models.UserCourseGrade, error) {
	var g models.UserCourseGrade
	err := sqlx.GetContext(ctx, s.ext(), &g, s.q(`
		SELECT `+gradeColumns+`
		FROM user_course_grades
		WHERE id = ?
	`), id)
	if err != nil {
		return nil, notFound(err, "grade", id)
	}
	return &g, nil
}

func (s *BaseStore) FindGrade(ctx context.Context, gradeTypeID, studentID string) (*models.UserCourseGrade, error) {
	var g models.UserCourseGrade
	err := sqlx.GetContext(ctx, s.ext(), &g, s.q(`
		SELECT `+gradeColumns+`
		FROM user_course_grades
		WHERE grade_type_id = ? AND student_id = ?
	`), gradeTypeID, studentID)
	if err != nil {
		return nil, notFound(err, "grade of student", studentID)
	}
	return &g, nil
}

func (s *BaseStore) UpdateGrade(ctx context.Context, g *models.UserCourseGrade) error {
	g.UpdatedAt = now()
	res, err := sqlx.NamedExecContext(ctx, s.ext(), `
		UPDATE user_course_grades
		SET point = :point, updated_at = :updated_at
		WHERE id = :id
	`, g)
	if err != nil {
		return fmt.Errorf("failed to update grade: %w", err)
	}
	return mustAffect(res, "grade", g.ID)
}

func (s *BaseStore) DeleteGrade(ctx context.Context, id string) error {
	res, err := s.ext().ExecContext(ctx, s.q(`DELETE FROM user_course_grades WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete grade: %w", err)
	}
	return mustAffect(res, "grade", id)
}

func (s *BaseStore) ListGradesByType(ctx context.Context, gradeTypeID string) ([]models.UserCourseGrade, error) {
	grades := []models.UserCourseGrade{}
	err := sqlx.SelectContext(ctx, s.ext(), &grades, s.q(`
		SELECT `+gradeColumns+`
		FROM user_course_grades
		WHERE grade_type_id = ?
		ORDER BY student_id
	`), gradeTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	return grades, nil
}

func (s *BaseStore) ListGradesByStructure(ctx context.Context, structureID string) ([]models.UserCourseGrade, error) {
	grades := []models.UserCourseGrade{}
	err := sqlx.SelectContext(ctx, s.ext(), &grades, s.q(`
		SELECT g.id, g.grade_type_id, g.student_id, g.course_id, g.point, g.created_at, g.updated_at
		FROM user_course_grades g
		JOIN grade_types t ON t.id = g.grade_type_id
		WHERE t.grade_structure_id = ?
		ORDER BY g.student_id, g.grade_type_id
	`), structureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list structure grades: %w", err)
	}
	return grades, nil
}
