package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/balkashynov/checkmaster/internal/models"
)

// Sheet names of the full-data workbook
const (
	SessionsSheet = "Sessions"
	DetailsSheet  = "Details"
)

// WriteWorkbook writes every session to an XLSX workbook with a summary
// sheet and one row per item on the details sheet.
func WriteWorkbook(w io.Writer, sessions []models.Session) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SessionsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	if err := setRow(f, SessionsSheet, 1, "ID", "Project", "Date", "ItemsCount"); err != nil {
		return err
	}
	if err := setRow(f, DetailsSheet, 1, "SessionID", "Project", "Date", "No", "Question", "Note"); err != nil {
		return err
	}

	detailRow := 2
	for i, s := range sessions {
		date := ""
		if !s.Created.IsZero() {
			date = s.Created.Local().Format(DateLayout)
		}
		if err := setRow(f, SessionsSheet, i+2, s.ID, s.Title, date, len(s.Items)); err != nil {
			return err
		}
		for j, it := range s.Items {
			if err := setRow(f, DetailsSheet, detailRow, s.ID, s.Title, date, j+1, it.Q, it.A); err != nil {
				return err
			}
			detailRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
