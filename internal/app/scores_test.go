package app

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/export"
	"github.com/shrimpsizemoose/gradebook/internal/models"
)

func TestScores(t *testing.T) {
	s, _ := newTestService(t, "")
	f := seed(t, s)
	g := f.score(t, s, f.theory, "alice", 7)
	assert.Equal(t, "cs101", g.CourseID)

	t.Run("one grade per student and type", func(t *testing.T) {
		_, err := s.AddScore(f.ctx, f.theory.ID, ScoreInput{StudentID: "alice", Point: 3})
		assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	})

	t.Run("point out of range", func(t *testing.T) {
		_, err := s.AddScore(f.ctx, f.theory.ID, ScoreInput{StudentID: "bob", Point: 10.5})
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

		_, err = s.UpdateScore(f.ctx, g.ID, -1)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := s.UpdateScore(f.ctx, g.ID, 9)
		require.NoError(t, err)
		assert.Equal(t, 9.0, updated.Point)

		scores, err := s.ListScores(f.ctx, f.theory.ID)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, 9.0, scores[0].Point)
		assert.Equal(t, models.ReviewSummaryNone, scores[0].ReviewStatus)
	})

	t.Run("unknown grade type", func(t *testing.T) {
		_, err := s.AddScore(f.ctx, "nope", ScoreInput{StudentID: "bob", Point: 3})
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteScore(f.ctx, g.ID))
		assert.True(t, apperr.Is(s.DeleteScore(f.ctx, g.ID), apperr.KindNotFound))
	})
}

func TestUpsertStudentScores(t *testing.T) {
	s, _ := newTestService(t, "")
	f := seed(t, s)
	existing := f.score(t, s, f.theory, "alice", 2)

	grades, err := s.UpsertStudentScores(f.ctx, "cs101", "alice", []TypePointInput{
		{GradeTypeID: f.theory.ID, Point: 8},
		{GradeTypeID: f.practice.ID, Point: 5},
	})
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, existing.ID, grades[0].ID)
	assert.Equal(t, 8.0, grades[0].Point)
	assert.Equal(t, 5.0, grades[1].Point)

	t.Run("grade type of another course rolls back", func(t *testing.T) {
		other, err := s.CreateStructure(f.ctx, CreateStructureInput{
			CourseID: "cs200", Name: "other",
			GradeTypes: []GradeTypeInput{{Label: "Exam", Percentage: 100}},
		})
		require.NoError(t, err)

		_, err = s.UpsertStudentScores(f.ctx, "cs101", "alice", []TypePointInput{
			{GradeTypeID: f.final.ID, Point: 6},
			{GradeTypeID: other.GradeTypes[0].ID, Point: 6},
		})
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

		_, err = s.Store.FindGrade(f.ctx, f.final.ID, "alice")
		assert.Error(t, err)
	})

	t.Run("student required", func(t *testing.T) {
		_, err := s.UpsertStudentScores(f.ctx, "cs101", "", nil)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
	})
}

func TestStudentView(t *testing.T) {
	s, pub := newTestService(t, "")
	f := seed(t, s)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.score(t, s, f.theory, "alice", 8)
	f.score(t, s, f.practice, "alice", 5)
	f.score(t, s, f.theory, "bob", 2)

	_, err := s.StudentView(f.ctx, f.midterm.ID, "alice")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)

	by := FinalizeInput{UserID: "teacher"}
	for _, gt := range []string{f.theory.ID, f.practice.ID, f.midterm.ID} {
		_, err := s.FinalizeType(f.ctx, gt, by)
		require.NoError(t, err)
	}

	_, err = s.CreateReview(f.ctx, CreateReviewInput{UserID: "u-alice", StudentID: "alice", GradeTypeID: f.practice.ID, Topic: "recheck"})
	require.NoError(t, err)

	view, err := s.StudentView(f.ctx, f.midterm.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, view.Point)
	assert.InDelta(t, 6.8, *view.Point, 1e-9)
	require.Len(t, view.SubTypes, 2)
	assert.Equal(t, "Theory", view.SubTypes[0].Label)
	assert.Equal(t, 8.0, *view.SubTypes[0].Point)
	assert.Equal(t, models.ReviewSummaryNone, view.SubTypes[0].ReviewStatus)
	assert.Equal(t, models.ReviewSummaryRequest, view.SubTypes[1].ReviewStatus)

	_, err = s.StudentView(f.ctx, f.midterm.ID, "carol")
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func importFile(t *testing.T, rows [][]string) []byte {
	data, err := export.WriteTemplate(rows)
	require.NoError(t, err)
	return data
}

func TestImportScores(t *testing.T) {
	s, _ := newTestService(t, "")
	f := seed(t, s)
	f.score(t, s, f.final, "alice", 3)

	result, err := s.ImportScores(f.ctx, f.final.ID, importFile(t, [][]string{
		{"StudentId", "Grade"},
		{"alice", "7"},
		{"", "4"},
		{"bob", "9.5"},
		{"carol", "1"},
		{"carol", "6"},
	}))
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Inserted: 2, Updated: 1}, result)

	scores, err := s.ListScores(f.ctx, f.final.ID)
	require.NoError(t, err)
	points := make(map[string]float64)
	for _, sc := range scores {
		points[sc.StudentID] = sc.Point
	}
	assert.Equal(t, map[string]float64{"alice": 7, "bob": 9.5, "carol": 6}, points)

	t.Run("unsupported template", func(t *testing.T) {
		_, err := s.ImportScores(f.ctx, f.final.ID, importFile(t, [][]string{{"Student", "Points"}, {"alice", "1"}}))
		assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
	})

	t.Run("bad grade rejects the file", func(t *testing.T) {
		_, err := s.ImportScores(f.ctx, f.final.ID, importFile(t, [][]string{
			{"StudentId", "Grade"},
			{"alice", "2"},
			{"dave", "eleven"},
		}))
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

		g, err := s.Store.FindGrade(f.ctx, f.final.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, 7.0, g.Point)
	})

	t.Run("not a spreadsheet", func(t *testing.T) {
		_, err := s.ImportScores(f.ctx, f.final.ID, []byte("StudentId,Grade\nalice,1\n"))
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
	})
}

func TestImportTemplate(t *testing.T) {
	s, _ := newTestService(t, "")
	f := seed(t, s)
	f.score(t, s, f.final, "bob", 3)
	f.score(t, s, f.theory, "alice", 5)
	f.score(t, s, f.practice, "alice", 5)

	data, err := s.ImportTemplate(f.ctx, f.final.ID)
	require.NoError(t, err)

	rows, err := export.ParseImport(data)
	assert.Error(t, err, "template has empty grades")
	assert.Nil(t, rows)

	sheet, err := export.ReadRows(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, sheet, 3)
	assert.Equal(t, []string{"StudentId", "Grade"}, sheet[0])
	students := []string{sheet[1][0], sheet[2][0]}
	assert.True(t, sort.StringsAreSorted(students))
	assert.Equal(t, []string{"alice", "bob"}, students)
}

func TestGradeBoard(t *testing.T) {
	s, _ := newTestService(t, "")
	f := seed(t, s)
	f.score(t, s, f.theory, "alice", 8)
	f.score(t, s, f.final, "alice", 9)

	data, err := s.GradeBoard(f.ctx, "cs101")
	require.NoError(t, err)
	rows, err := export.ReadRows(bytes.NewReader(data))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "alice", rows[len(rows)-1][0])

	_, err = s.GradeBoard(f.ctx, "cs999")
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}
