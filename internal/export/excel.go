package export

import (
	"fmt"

	"demobook/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{
	"ID", "Customer", "Country", "Product", "Requested By", "Purpose",
	"Date of Event", "User", "Competitor", "Submitted By", "Submitted On",
}

// BuildWorkbook renders the full booking list as an Excel workbook.
// The caller owns the file and must Close it.
func BuildWorkbook(bookings []*models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, style)

	for i, b := range bookings {
		row := i + 2
		values := []any{
			b.ID, b.CustomerName, b.Country, b.ProductName, b.RequestedBy,
			b.Purpose, b.DateOfEvent, b.User, b.CompetitorName,
			b.SubmittedBy, b.SubmittedOn,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "B", "K", 20)
	_ = f.DeleteSheet("Sheet1")

	return f, nil
}
