package app

import (
	"context"
	"sort"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/board"
	"github.com/shrimpsizemoose/gradebook/internal/export"
	"github.com/shrimpsizemoose/gradebook/internal/metrics"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// ImportScores applies an uploaded StudentId/Grade sheet to one grade
// type. Rows are split once into inserts and updates by whether the
// student already has a grade there, then committed together.
func (s *Service) ImportScores(ctx context.Context, gradeTypeID string, data []byte) (*ImportResult, error) {
	rows, err := export.ParseImport(data)
	if err != nil {
		return nil, translate(err, "import")
	}

	_, courseID, err := s.courseOf(ctx, s.Store, gradeTypeID)
	if err != nil {
		return nil, translate(err, "grade type %s", gradeTypeID)
	}

	existing, err := s.Store.ListGradesByType(ctx, gradeTypeID)
	if err != nil {
		return nil, translate(err, "grades of grade type %s", gradeTypeID)
	}
	byStudent := make(map[string]models.UserCourseGrade, len(existing))
	for _, g := range existing {
		byStudent[g.StudentID] = g
	}

	var inserts, updates []models.UserCourseGrade
	for _, r := range rows {
		if g, ok := byStudent[r.StudentID]; ok {
			g.Point = r.Grade
			updates = append(updates, g)
			continue
		}
		inserts = append(inserts, models.UserCourseGrade{
			GradeTypeID: gradeTypeID,
			StudentID:   r.StudentID,
			CourseID:    courseID,
			Point:       r.Grade,
		})
	}

	err = s.Store.RunInTx(ctx, s.Config.ImportTxTimeout(), func(tx store.Tx) error {
		for i := range inserts {
			g := inserts[i]
			if err := tx.CreateGrade(ctx, &g); err != nil {
				return err
			}
		}
		for i := range updates {
			g := updates[i]
			if err := tx.UpdateGrade(ctx, &g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error.Printf("Import into grade type %s failed: %v", gradeTypeID, err)
		return nil, apperr.Wrap(err, apperr.KindPersistence, "import into grade type %s failed", gradeTypeID)
	}

	importCount("insert", len(inserts))
	importCount("update", len(updates))
	logger.Info.Printf("Imported %d new and %d updated grades into %s", len(inserts), len(updates), gradeTypeID)

	return &ImportResult{Inserted: len(inserts), Updated: len(updates)}, nil
}

func importCount(op string, n int) {
	if n > 0 {
		metrics.ImportedRows.WithLabelValues(op).Add(float64(n))
	}
}

// ImportTemplate lists every student known to the course with an empty
// Grade column.
func (s *Service) ImportTemplate(ctx context.Context, gradeTypeID string) ([]byte, error) {
	gt, err := s.Store.GetType(ctx, gradeTypeID)
	if err != nil {
		return nil, translate(err, "grade type %s", gradeTypeID)
	}

	grades, err := s.Store.ListGradesByStructure(ctx, gt.GradeStructureID)
	if err != nil {
		return nil, translate(err, "grades of structure %s", gt.GradeStructureID)
	}
	seen := make(map[string]struct{})
	var students []string
	for _, g := range grades {
		if _, ok := seen[g.StudentID]; ok {
			continue
		}
		seen[g.StudentID] = struct{}{}
		students = append(students, g.StudentID)
	}
	sort.Strings(students)

	data, err := export.WriteTemplate(board.Template(students))
	if err != nil {
		return nil, translate(err, "import template")
	}
	return data, nil
}

// GradeBoard renders the board of a course's structure.
func (s *Service) GradeBoard(ctx context.Context, courseID string) ([]byte, error) {
	gs, err := s.Store.GetStructureByCourse(ctx, courseID)
	if err != nil {
		return nil, translate(err, "grade structure for course %s", courseID)
	}
	return s.GradeBoardByStructure(ctx, gs.ID)
}

func (s *Service) GradeBoardByStructure(ctx context.Context, structureID string) ([]byte, error) {
	if _, err := s.Store.GetStructure(ctx, structureID); err != nil {
		return nil, translate(err, "grade structure %s", structureID)
	}
	tree, err := s.loadTree(ctx, s.Store, structureID)
	if err != nil {
		return nil, err
	}
	scores, err := s.structureScores(ctx, structureID)
	if err != nil {
		return nil, err
	}

	data, err := export.WriteBoard(board.BuildHeader(tree), board.BuildRows(tree, scores))
	if err != nil {
		return nil, translate(err, "grade board")
	}
	return data, nil
}
