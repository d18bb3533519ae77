package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

var (
	ErrUnsupportedTemplate = errors.New("unsupported import template")
	ErrInvalidGrade        = errors.New("invalid grade")
)

// TemplateHeader is the exact first row of an import sheet.
var TemplateHeader = []string{StudentIDColumn, GradeColumn}

type ImportRow struct {
	StudentID string
	Grade     float64
}

// Template lists the students with empty grades, ready to be filled in.
func Template(students []string) [][]string {
	out := make([][]string, 0, len(students)+1)
	out = append(out, TemplateHeader)
	for _, s := range students {
		out = append(out, []string{s, ""})
	}
	return out
}

// ParseImport reads an uploaded sheet. The first row must be the template
// header. Rows with an empty first cell are skipped; a later row for the
// same student replaces an earlier one. Any grade that is not a number in
// 0..10 rejects the whole sheet.
func ParseImport(rows [][]string) ([]ImportRow, error) {
	if len(rows) == 0 || len(rows[0]) < 2 ||
		strings.TrimSpace(rows[0][0]) != StudentIDColumn ||
		strings.TrimSpace(rows[0][1]) != GradeColumn {
		return nil, ErrUnsupportedTemplate
	}

	var out []ImportRow
	index := make(map[string]int)
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		student := strings.TrimSpace(row[0])
		if student == "" {
			continue
		}

		raw := ""
		if len(row) > 1 {
			raw = strings.TrimSpace(row[1])
		}
		grade, err := strconv.ParseFloat(raw, 64)
		if err != nil || !models.ValidPoint(grade) {
			return nil, fmt.Errorf("%w: row %d, student %s: %q", ErrInvalidGrade, i+2, student, raw)
		}

		if at, ok := index[student]; ok {
			out[at].Grade = grade
			continue
		}
		index[student] = len(out)
		out = append(out, ImportRow{StudentID: student, Grade: grade})
	}
	return out, nil
}
