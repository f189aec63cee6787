package service

import (
	"fmt"

	"familytree-backend/internal/domains/person/model"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "People"

var exportHeaders = []string{
	"Person ID",
	"First Name",
	"Father Last Name",
	"Mother Last Name",
	"Gender",
	"Birthday",
	"Photo",
	"Created At",
	"Updated At",
}

func buildPeopleExcelFile(people []model.Person) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for colIdx, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
		_ = f.SetCellStyle(exportSheetName, "A1", lastCol+"1", headerStyle)
	}

	for i, p := range people {
		row := []interface{}{
			p.PersonID.String(),
			p.FirstName,
			deref(p.FatherLastName),
			deref(p.MotherLastName),
			deref(p.Gender),
			nil,
			deref(p.Photo),
			p.CreatedAt.Format("2006-01-02 15:04:05"),
			p.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if p.Birthday != nil {
			row[5] = p.Birthday.Format("2006-01-02")
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetPanes(exportSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
