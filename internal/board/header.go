// Package board projects a grade tree onto a flat student-by-grade-type
// sheet: a merged multi-row header, one row per student and a Finalize
// column holding the weighted total.
package board

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/shrimpsizemoose/gradebook/internal/scoring"
)

const (
	StudentIDColumn = "StudentId"
	FinalizeColumn  = "Finalize"
	GradeColumn     = "Grade"

	MinColumnWidth = 20
)

// Cell is one header cell. Row and Col are zero based inside the header
// block; spans are at least 1.
type Cell struct {
	ID      string
	Text    string
	Row     int
	Col     int
	RowSpan int
	ColSpan int
	Width   int
}

// Column is a data column of the sheet.
type Column struct {
	ID    string
	Text  string
	Width int
}

type Header struct {
	Rows    int
	Cells   []Cell
	Columns []Column
}

func CellText(label string, percentage float64) string {
	return fmt.Sprintf("%s (%s%%)", label, strconv.FormatFloat(percentage, 'f', -1, 64))
}

func Width(text string) int {
	if n := utf8.RuneCountInString(text); n > MinColumnWidth {
		return n
	}
	return MinColumnWidth
}

// BuildHeader lays out one header row per tree level. A node with children
// spans its leaf columns; a leaf spans the remaining rows downwards.
// StudentId leads and Finalize closes the columns.
func BuildHeader(t *scoring.Tree) Header {
	rows := t.Depth()
	if rows == 0 {
		rows = 1
	}

	h := Header{Rows: rows}
	h.add(Cell{ID: StudentIDColumn, Text: StudentIDColumn, RowSpan: rows, ColSpan: 1, Width: MinColumnWidth})

	col := 1
	t.Walk(func(n *scoring.Node, depth int) bool {
		text := CellText(n.Type.Label, n.Type.Percentage)
		cell := Cell{ID: n.Type.ID, Text: text, Row: depth, Col: col, RowSpan: 1, Width: Width(text)}
		if n.IsLeaf() {
			cell.ColSpan = 1
			cell.RowSpan = rows - depth
			col++
		} else {
			cell.ColSpan = len(scoring.Leaves(n))
		}
		h.add(cell)
		return true
	})

	h.add(Cell{ID: FinalizeColumn, Text: FinalizeColumn, Col: col, RowSpan: rows, ColSpan: 1, Width: MinColumnWidth})
	return h
}

func (h *Header) add(c Cell) {
	h.Cells = append(h.Cells, c)
	if c.Row+c.RowSpan == h.Rows && c.ColSpan == 1 {
		h.Columns = append(h.Columns, Column{ID: c.ID, Text: c.Text, Width: c.Width})
	}
}
