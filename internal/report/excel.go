// Package report exports a restaurant's reservations, as an Excel
// workbook on disk and as rows appended to a Google Sheet.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"resavox/internal/models"
)

// sheetNames maps reservation statuses to workbook sheets, in the
// order the sheets appear.
var sheetOrder = []string{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusCompleted,
	models.StatusCancelled,
	models.StatusNoShow,
}

var sheetNames = map[string]string{
	models.StatusPending:   "En attente",
	models.StatusConfirmed: "Confirmées",
	models.StatusCompleted: "Terminées",
	models.StatusCancelled: "Annulées",
	models.StatusNoShow:    "Non venus",
}

var headerColumns = []string{
	"ID", "Nom", "Téléphone", "Date", "Heure", "Couverts", "Demandes", "Source", "Créée le",
}

// BuildWorkbook renders one sheet per status bucket. Every bucket gets
// a sheet even when empty so the owner sees a stable layout.
func BuildWorkbook(reservations []models.Reservation) (*excelize.File, error) {
	f := excelize.NewFile()

	byStatus := make(map[string][]models.Reservation)
	for _, r := range reservations {
		byStatus[r.Status] = append(byStatus[r.Status], r)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, status := range sheetOrder {
		name := sheetNames[status]
		if i == 0 {
			f.SetSheetName("Sheet1", name)
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("create sheet %s: %w", name, err)
			}
		}

		if err := writeSheet(f, name, headerStyle, byStatus[status]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, rows []models.Reservation) error {
	for col, title := range headerColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
	}
	startCell, _ := excelize.CoordinatesToCellName(1, 1)
	endCell, _ := excelize.CoordinatesToCellName(len(headerColumns), 1)
	_ = f.SetCellStyle(sheet, startCell, endCell, headerStyle)

	for i, r := range rows {
		values := reservationRowValues(&r)
		for col, val := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func reservationRowValues(r *models.Reservation) []interface{} {
	return []interface{}{
		r.ID,
		r.CustomerName,
		r.CustomerPhone,
		r.Date,
		r.Time,
		r.Guests,
		r.SpecialRequests,
		r.Source,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
