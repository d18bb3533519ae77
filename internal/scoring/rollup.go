package scoring

import (
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

var ErrNoScore = errors.New("no score recorded")

// Scores indexes points by grade type id, then student id.
type Scores map[string]map[string]float64

func NewScores(grades []models.UserCourseGrade) Scores {
	s := make(Scores)
	for _, g := range grades {
		s.Set(g.GradeTypeID, g.StudentID, g.Point)
	}
	return s
}

func (s Scores) Set(gradeTypeID, studentID string, point float64) {
	if s[gradeTypeID] == nil {
		s[gradeTypeID] = make(map[string]float64)
	}
	s[gradeTypeID][studentID] = point
}

func (s Scores) Get(gradeTypeID, studentID string) (float64, bool) {
	p, ok := s[gradeTypeID][studentID]
	return p, ok
}

type rolled struct {
	value float64
	ok    bool
}

// Rollup computes the weighted score of n for a student. A leaf without a
// score is an error; a parent skips children without a score instead of
// counting them as zero.
func Rollup(n *Node, studentID string, scores Scores) (float64, error) {
	r := Fold(n,
		func(leaf *Node) rolled {
			p, ok := scores.Get(leaf.Type.ID, studentID)
			return rolled{value: p, ok: ok}
		},
		func(parent *Node, children []rolled) rolled {
			var out rolled
			for i, c := range children {
				if !c.ok {
					continue
				}
				out.value += c.value * parent.Children[i].Type.Percentage / 100
				out.ok = true
			}
			return out
		},
	)
	if !r.ok {
		return 0, fmt.Errorf("%w: grade type %s, student %s", ErrNoScore, n.Type.ID, studentID)
	}
	return r.value, nil
}

// Total is the final weighted score of a student over the whole tree. ok is
// false when the student has no score anywhere in it.
func (t *Tree) Total(studentID string, scores Scores) (total float64, ok bool) {
	for _, r := range t.Roots {
		v, err := Rollup(r, studentID, scores)
		if err != nil {
			continue
		}
		total += v * r.Type.Percentage / 100
		ok = true
	}
	return total, ok
}

// CanFinalize reports whether n or any node below it is DONE.
func CanFinalize(n *Node) bool {
	if n.Type.Status == models.GradeStatusDone {
		return true
	}
	for _, c := range n.Children {
		if CanFinalize(c) {
			return true
		}
	}
	return false
}

// Complete reports whether n is DONE, or every child subtree of n is
// complete.
func Complete(n *Node) bool {
	if n.Type.Status == models.GradeStatusDone {
		return true
	}
	if n.IsLeaf() {
		return false
	}
	for _, c := range n.Children {
		if !Complete(c) {
			return false
		}
	}
	return true
}
