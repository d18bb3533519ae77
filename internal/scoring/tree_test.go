package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

func ptr(s string) *string { return &s }

func gradeType(id string, parent *string, label string, pct float64, kind models.GradeKind, status models.GradeStatus, pos int) models.GradeType {
	return models.GradeType{
		ID:         id,
		ParentID:   parent,
		Label:      label,
		Percentage: pct,
		Kind:       kind,
		Status:     status,
		Position:   pos,
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, pos, 0, time.UTC),
	}
}

// midterm(40) -> [theory(60), practice(40)], final(60)
func sampleTypes() []models.GradeType {
	return []models.GradeType{
		gradeType("final", nil, "Final", 60, models.GradeKindParent, models.GradeStatusCreated, 1),
		gradeType("mid", nil, "Midterm", 40, models.GradeKindParent, models.GradeStatusCreated, 0),
		gradeType("practice", ptr("mid"), "Practice", 40, models.GradeKindSub, models.GradeStatusCreated, 1),
		gradeType("theory", ptr("mid"), "Theory", 60, models.GradeKindSub, models.GradeStatusCreated, 0),
	}
}

func TestBuildTree(t *testing.T) {
	tree, err := BuildTree(sampleTypes())
	require.NoError(t, err)

	require.Len(t, tree.Roots, 2)
	assert.Equal(t, "mid", tree.Roots[0].Type.ID)
	assert.Equal(t, "final", tree.Roots[1].Type.ID)
	require.Len(t, tree.Roots[0].Children, 2)
	assert.Equal(t, "theory", tree.Roots[0].Children[0].Type.ID)
	assert.Equal(t, 2, tree.Depth())

	n, ok := tree.Find("practice")
	require.True(t, ok)
	assert.True(t, n.IsLeaf())

	var visited []string
	tree.Walk(func(n *Node, _ int) bool {
		visited = append(visited, n.Type.ID)
		return true
	})
	assert.Equal(t, []string{"mid", "theory", "practice", "final"}, visited)
}

func TestBuildTreeRejectsMalformedHierarchy(t *testing.T) {
	testCases := []struct {
		name  string
		types []models.GradeType
		err   error
	}{
		{
			name: "unknown parent",
			types: []models.GradeType{
				gradeType("a", ptr("missing"), "A", 100, models.GradeKindSub, models.GradeStatusCreated, 0),
			},
			err: ErrUnknownParent,
		},
		{
			name: "sub under sub",
			types: []models.GradeType{
				gradeType("p", nil, "P", 100, models.GradeKindParent, models.GradeStatusCreated, 0),
				gradeType("s", ptr("p"), "S", 100, models.GradeKindSub, models.GradeStatusCreated, 1),
				gradeType("ss", ptr("s"), "SS", 100, models.GradeKindSub, models.GradeStatusCreated, 2),
			},
			err: ErrInvalidParent,
		},
		{
			name: "top level sub",
			types: []models.GradeType{
				gradeType("s", nil, "S", 100, models.GradeKindSub, models.GradeStatusCreated, 0),
			},
			err: ErrInvalidParent,
		},
		{
			name: "duplicate sibling label",
			types: []models.GradeType{
				gradeType("a", nil, "Lab", 50, models.GradeKindParent, models.GradeStatusCreated, 0),
				gradeType("b", nil, "Lab", 50, models.GradeKindParent, models.GradeStatusCreated, 1),
			},
			err: ErrDuplicateLabel,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildTree(tc.types)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestBuildTreeAllowsSameLabelUnderDifferentParents(t *testing.T) {
	_, err := BuildTree([]models.GradeType{
		gradeType("a", nil, "A", 50, models.GradeKindParent, models.GradeStatusCreated, 0),
		gradeType("b", nil, "B", 50, models.GradeKindParent, models.GradeStatusCreated, 1),
		gradeType("a1", ptr("a"), "Quiz", 100, models.GradeKindSub, models.GradeStatusCreated, 0),
		gradeType("b1", ptr("b"), "Quiz", 100, models.GradeKindSub, models.GradeStatusCreated, 0),
	})
	assert.NoError(t, err)
}

func TestWarnings(t *testing.T) {
	types := sampleTypes()
	types[0].Percentage = 50 // final

	tree, err := BuildTree(types)
	require.NoError(t, err)

	assert.Equal(t, []string{"weights under structure sum to 90.00%"}, tree.Warnings())
}
