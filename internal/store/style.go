package store

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 10
	maxColWidth = 60
)

// applyStyles mirrors the workbook presentation: bold filterable header,
// verdict-colored first column, clickable links, clamped column widths.
func applyStyles(f *excelize.File, set *ResultSet) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "G1", bold); err != nil {
		return err
	}

	if err := f.AutoFilter(sheetName, fmt.Sprintf("A1:G%d", set.Len()+1), nil); err != nil {
		return err
	}

	fills := map[string]int{}
	for name, color := range map[string]string{
		"red":    "FFCCCC",
		"green":  "CCFFCC",
		"yellow": "FFFFCC",
	} {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		fills[name] = style
	}

	for i, row := range set.Rows {
		cell := fmt.Sprintf("A%d", i+2)

		fill := fills["yellow"]
		switch strings.ToLower(row.AIRecommendation) {
		case "no":
			fill = fills["red"]
		case "yes", "maybe+":
			fill = fills["green"]
		}
		if err := f.SetCellStyle(sheetName, cell, cell, fill); err != nil {
			return err
		}

		if row.Link != "" {
			linkCell := fmt.Sprintf("D%d", i+2)
			if err := f.SetCellHyperLink(sheetName, linkCell, row.Link, "External"); err != nil {
				return err
			}
		}
	}

	return sizeColumns(f, set)
}

func sizeColumns(f *excelize.File, set *ResultSet) error {
	widths := make([]int, len(columns))
	for i, name := range columns {
		widths[i] = len(name)
	}

	for _, row := range set.Rows {
		for i, value := range row.values() {
			if s, ok := value.(string); ok && len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}

		w := width + 2
		if w < minColWidth {
			w = minColWidth
		}
		if w > maxColWidth {
			w = maxColWidth
		}

		if err := f.SetColWidth(sheetName, col, col, float64(w)); err != nil {
			return err
		}
	}

	return nil
}
