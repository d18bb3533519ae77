package board

import (
	"sort"

	"github.com/shrimpsizemoose/gradebook/internal/scoring"
)

// Row holds one student's leaf points in header column order. A nil point
// means the student has no score there.
type Row struct {
	StudentID string
	Points    []*float64
	Finalize  *float64
}

// BuildRows emits a row for every student with a score on any leaf of the
// tree, sorted by student id. Finalize sums each top-level rollup times its
// percentage, without renormalising over missing parts.
func BuildRows(t *scoring.Tree, scores scoring.Scores) []Row {
	var leaves []*scoring.Node
	for _, r := range t.Roots {
		leaves = append(leaves, scoring.Leaves(r)...)
	}

	seen := make(map[string]struct{})
	for _, l := range leaves {
		for student := range scores[l.Type.ID] {
			seen[student] = struct{}{}
		}
	}
	students := make([]string, 0, len(seen))
	for s := range seen {
		students = append(students, s)
	}
	sort.Strings(students)

	rows := make([]Row, 0, len(students))
	for _, student := range students {
		row := Row{StudentID: student, Points: make([]*float64, len(leaves))}
		for i, l := range leaves {
			if p, ok := scores.Get(l.Type.ID, student); ok {
				row.Points[i] = &p
			}
		}
		if total, ok := t.Total(student, scores); ok {
			row.Finalize = &total
		}
		rows = append(rows, row)
	}
	return rows
}

// Values renders the row in header column order, blanks for missing points.
func (r Row) Values() []interface{} {
	out := make([]interface{}, 0, len(r.Points)+2)
	out = append(out, r.StudentID)
	for _, p := range r.Points {
		if p == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, *p)
	}
	if r.Finalize == nil {
		out = append(out, nil)
	} else {
		out = append(out, *r.Finalize)
	}
	return out
}
