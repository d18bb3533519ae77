package app

import (
	"context"
	"errors"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/scoring"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// Score is a student's grade with the state of its reviews.
type Score struct {
	models.UserCourseGrade
	ReviewStatus models.ReviewSummary `json:"status"`
}

// StudentGrade is what a student sees of a finalized grade type.
type StudentGrade struct {
	GradeTypeID  string               `json:"grade_type_id"`
	Label        string               `json:"label"`
	Percentage   float64              `json:"percentage"`
	Point        *float64             `json:"point"`
	ReviewStatus models.ReviewSummary `json:"status"`
	SubTypes     []StudentGrade       `json:"grade_sub_types,omitempty"`
}

func (s *Service) courseOf(ctx context.Context, db store.Tx, gradeTypeID string) (*models.GradeType, string, error) {
	gt, err := db.GetType(ctx, gradeTypeID)
	if err != nil {
		return nil, "", err
	}
	gs, err := db.GetStructure(ctx, gt.GradeStructureID)
	if err != nil {
		return nil, "", err
	}
	return gt, gs.CourseID, nil
}

// AddScore records the first grade of a student at a grade type.
func (s *Service) AddScore(ctx context.Context, gradeTypeID string, in ScoreInput) (*models.UserCourseGrade, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	_, courseID, err := s.courseOf(ctx, s.Store, gradeTypeID)
	if err != nil {
		return nil, translate(err, "grade type %s", gradeTypeID)
	}

	g := &models.UserCourseGrade{
		GradeTypeID: gradeTypeID,
		StudentID:   in.StudentID,
		CourseID:    courseID,
		Point:       in.Point,
	}
	if err := s.Store.CreateGrade(ctx, g); err != nil {
		return nil, translate(err, "grade of student %s", in.StudentID)
	}
	return g, nil
}

func (s *Service) UpdateScore(ctx context.Context, id string, point float64) (*models.UserCourseGrade, error) {
	if !models.ValidPoint(point) {
		return nil, apperr.Validation("point must be between %d and %d", models.MinPoint, models.MaxPoint)
	}

	g, err := s.Store.GetGrade(ctx, id)
	if err != nil {
		return nil, translate(err, "grade %s", id)
	}
	g.Point = point
	if err := s.Store.UpdateGrade(ctx, g); err != nil {
		return nil, translate(err, "grade %s", id)
	}
	return g, nil
}

// UpsertStudentScores sets one student's points across many grade types of
// a course in a single transaction.
func (s *Service) UpsertStudentScores(ctx context.Context, courseID, studentID string, in []TypePointInput) ([]models.UserCourseGrade, error) {
	if studentID == "" {
		return nil, apperr.Validation("student id is required")
	}
	for _, p := range in {
		if err := validate.Struct(p); err != nil {
			return nil, invalid(err)
		}
	}

	out := make([]models.UserCourseGrade, 0, len(in))
	err := s.Store.RunInTx(ctx, s.Config.ImportTxTimeout(), func(tx store.Tx) error {
		out = out[:0]
		for _, p := range in {
			_, course, err := s.courseOf(ctx, tx, p.GradeTypeID)
			if err != nil {
				return err
			}
			if course != courseID {
				return apperr.Validation("grade type %s does not belong to course %s", p.GradeTypeID, courseID)
			}

			g, err := tx.FindGrade(ctx, p.GradeTypeID, studentID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				g = &models.UserCourseGrade{GradeTypeID: p.GradeTypeID, StudentID: studentID, CourseID: courseID, Point: p.Point}
				err = tx.CreateGrade(ctx, g)
			case err == nil:
				g.Point = p.Point
				err = tx.UpdateGrade(ctx, g)
			}
			if err != nil {
				return err
			}
			out = append(out, *g)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "grades of student %s", studentID)
	}
	return out, nil
}

func (s *Service) DeleteScore(ctx context.Context, id string) error {
	return translate(s.Store.DeleteGrade(ctx, id), "grade %s", id)
}

// ListScores returns every grade recorded at a grade type with a summary
// of the reviews filed against it.
func (s *Service) ListScores(ctx context.Context, gradeTypeID string) ([]Score, error) {
	if _, err := s.Store.GetType(ctx, gradeTypeID); err != nil {
		return nil, translate(err, "grade type %s", gradeTypeID)
	}

	grades, err := s.Store.ListGradesByType(ctx, gradeTypeID)
	if err != nil {
		return nil, translate(err, "grades of grade type %s", gradeTypeID)
	}
	reviews, err := s.Store.ListReviews(ctx, store.ReviewFilter{GradeTypeID: gradeTypeID})
	if err != nil {
		return nil, translate(err, "reviews of grade type %s", gradeTypeID)
	}

	byGrade := make(map[string][]models.GradeReview)
	for _, r := range reviews {
		byGrade[r.UserCourseGradeID] = append(byGrade[r.UserCourseGradeID], r)
	}

	out := make([]Score, 0, len(grades))
	for _, g := range grades {
		out = append(out, Score{UserCourseGrade: g, ReviewStatus: models.SummarizeReviews(byGrade[g.ID])})
	}
	return out, nil
}

// StudentView shows a student their grade at a finalized grade type. A
// parent's point is the rollup of its sub types.
func (s *Service) StudentView(ctx context.Context, gradeTypeID, studentID string) (*StudentGrade, error) {
	gt, err := s.Store.GetType(ctx, gradeTypeID)
	if err != nil {
		return nil, translate(err, "grade type %s", gradeTypeID)
	}
	if gt.Status != models.GradeStatusDone {
		return nil, apperr.InvalidState("grade type %s is not finalized yet", gt.Label)
	}

	tree, err := s.loadTree(ctx, s.Store, gt.GradeStructureID)
	if err != nil {
		return nil, err
	}
	node, ok := tree.Find(gradeTypeID)
	if !ok {
		return nil, apperr.NotFound("grade type %s not found", gradeTypeID)
	}

	grades, err := s.Store.ListGradesByStructure(ctx, gt.GradeStructureID)
	if err != nil {
		return nil, translate(err, "grades of structure %s", gt.GradeStructureID)
	}
	scores := scoring.NewScores(nil)
	gradeIDs := make(map[string]string)
	for _, g := range grades {
		if g.StudentID == studentID {
			scores.Set(g.GradeTypeID, g.StudentID, g.Point)
			gradeIDs[g.GradeTypeID] = g.ID
		}
	}
	if len(gradeIDs) == 0 {
		return nil, apperr.NotFound("no grades of student %s", studentID)
	}

	reviews, err := s.Store.ListReviews(ctx, store.ReviewFilter{CourseID: grades[0].CourseID, StudentID: studentID})
	if err != nil {
		return nil, translate(err, "reviews of student %s", studentID)
	}
	byGrade := make(map[string][]models.GradeReview)
	for _, r := range reviews {
		byGrade[r.UserCourseGradeID] = append(byGrade[r.UserCourseGradeID], r)
	}

	var view func(n *scoring.Node) StudentGrade
	view = func(n *scoring.Node) StudentGrade {
		sg := StudentGrade{
			GradeTypeID:  n.Type.ID,
			Label:        n.Type.Label,
			Percentage:   n.Type.Percentage,
			ReviewStatus: models.SummarizeReviews(byGrade[gradeIDs[n.Type.ID]]),
		}
		if p, err := scoring.Rollup(n, studentID, scores); err == nil {
			sg.Point = &p
		}
		for _, c := range n.Children {
			sg.SubTypes = append(sg.SubTypes, view(c))
		}
		return sg
	}

	out := view(node)
	if out.Point == nil {
		return nil, apperr.NotFound("grade of student %s at %s not found", studentID, gt.Label)
	}
	return &out, nil
}

func (s *Service) structureScores(ctx context.Context, structureID string) (scoring.Scores, error) {
	grades, err := s.Store.ListGradesByStructure(ctx, structureID)
	if err != nil {
		return nil, translate(err, "grades of structure %s", structureID)
	}
	return scoring.NewScores(grades), nil
}
