// Copyright (c) 2026 Envision Co., Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	headerFill = "4472C4"
	fontColor  = "FFFFFF"

	// Column widths fit the longest cell, bounded so a long reason never
	// produces an unreadable sheet.
	minColumnWidth = 8
	maxColumnWidth = 50
)

// Encode renders an assembled report as xlsx bytes.
func Encode(spec ReportSpec) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Font: &excelize.Font{Bold: true, Color: fontColor},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("cell style: %w", err)
	}

	for _, sheet := range spec.Sheets {
		if err := writeSheet(f, sheet, headerStyle, cellStyle); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}

	// The implicit first sheet is replaced by the summary.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if len(spec.Sheets) > 0 {
		idx, err := f.GetSheetIndex(spec.Sheets[0].Name)
		if err != nil {
			return nil, err
		}
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle, cellStyle int) error {
	if _, err := f.NewSheet(sheet.Name); err != nil {
		return err
	}

	widths := make([]int, len(sheet.Columns))
	for col, name := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet.Name, cell, name); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet.Name, cell, cell, headerStyle); err != nil {
			return err
		}
		widths[col] = cellWidth(name)
	}

	for row, values := range sheet.Rows {
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet.Name, cell, cell, cellStyle); err != nil {
				return err
			}
			if col < len(widths) && cellWidth(value) > widths[col] {
				widths[col] = cellWidth(value)
			}
		}
	}

	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet.Name, name, name, float64(width)); err != nil {
			return err
		}
	}
	return nil
}

// cellWidth approximates display width; Korean glyphs are double width.
func cellWidth(s string) int {
	width := 2
	for _, r := range s {
		if utf8.RuneLen(r) > 1 {
			width += 2
		} else {
			width++
		}
	}
	return width
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	out := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		out = append(out, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return out
}
