// Package export turns board projections into xlsx workbooks and reads
// uploaded import sheets back.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/shrimpsizemoose/gradebook/internal/board"
)

const (
	BoardSheet    = "grade-board"
	TemplateSheet = "grade"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrInvalidFile = errors.New("invalid spreadsheet file")

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func newSheet(name string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	return f, nil
}

func finish(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTemplate renders an import template: a bold StudentId, Grade header
// followed by the given rows.
func WriteTemplate(rows [][]string) ([]byte, error) {
	f, err := newSheet(TemplateSheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	style, err := headerStyle(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for i, row := range rows {
		for j, v := range row {
			if v == "" {
				continue
			}
			if err := f.SetCellStr(TemplateSheet, cellName(j+1, i+1), v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}
	if err := f.SetColWidth(TemplateSheet, "A", "B", board.MinColumnWidth); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetCellStyle(TemplateSheet, "A1", "B1", style); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	return finish(f)
}

// WriteBoard renders the header block with its merged cells and one line
// per row underneath.
func WriteBoard(h board.Header, rows []board.Row) ([]byte, error) {
	f, err := newSheet(BoardSheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	style, err := headerStyle(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for _, c := range h.Cells {
		top := cellName(c.Col+1, c.Row+1)
		bottom := cellName(c.Col+c.ColSpan, c.Row+c.RowSpan)
		if err := f.SetCellValue(BoardSheet, top, c.Text); err != nil {
			return nil, fmt.Errorf("failed to write header %s: %w", c.Text, err)
		}
		if top != bottom {
			if err := f.MergeCell(BoardSheet, top, bottom); err != nil {
				return nil, fmt.Errorf("failed to merge header %s: %w", c.Text, err)
			}
		}
		if err := f.SetCellStyle(BoardSheet, top, bottom, style); err != nil {
			return nil, fmt.Errorf("failed to style header %s: %w", c.Text, err)
		}
	}

	for i, col := range h.Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(BoardSheet, name, name, float64(col.Width)); err != nil {
			return nil, fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}

	for i, row := range rows {
		line := h.Rows + i + 1
		for j, v := range row.Values() {
			if v == nil {
				continue
			}
			if err := f.SetCellValue(BoardSheet, cellName(j+1, line), v); err != nil {
				return nil, fmt.Errorf("failed to write row of %s: %w", row.StudentID, err)
			}
		}
	}

	return finish(f)
}

// ReadRows returns the cell text of the first sheet of an uploaded workbook.
func ReadRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrInvalidFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

// ParseImport reads an uploaded import sheet into student grades.
func ParseImport(data []byte) ([]board.ImportRow, error) {
	rows, err := ReadRows(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return board.ParseImport(rows)
}
