// Package report exports batch rank results as a spreadsheet.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"serprank/checker"
)

const sheetName = "순위"

var headers = []string{"키워드", "순위", "제목", "작성자", "날짜", "섹션", "통합검색 노출", "URL", "성공", "메시지"}

// WriteXLSX writes one row per result to w.
func WriteXLSX(w io.Writer, results []checker.RankResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0EBF5"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("style headers: %w", err)
	}

	for i, r := range results {
		rank := any(r.Rank)
		if r.Rank == 0 {
			rank = "-"
		}
		date := r.Date
		if r.PostedOn != "" {
			date = r.PostedOn
		}
		row := []any{
			r.Keyword, rank, r.Title, r.Author, date, r.Section,
			yesNo(r.Exposed), r.URL, yesNo(r.Success), r.Message,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "C", "C", 48); err != nil {
		return err
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "O"
	}
	return "X"
}
