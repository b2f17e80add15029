package reports

import (
	"fmt"

	"github.com/boxworkshq/boxtrack_backend/models"
	"github.com/xuri/excelize/v2"
)

const weekFormat = "2006-01-02"

// BuildWeeklyWorkbook renders all weekly sales and production rows into a
// two-sheet workbook for offline review.
func BuildWeeklyWorkbook(sales []models.WeeklySalesRecord, production []models.WeeklyProductionRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", "Sales"); err != nil {
		return nil, err
	}
	f.SetCellValue("Sales", "A1", "WeekCommencing")
	f.SetCellValue("Sales", "B1", "BoxesSold")
	f.SetCellValue("Sales", "C1", "InstallsSold")
	f.SetCellValue("Sales", "D1", "BoxRevenue")
	f.SetCellValue("Sales", "E1", "ExtrasRevenue")
	f.SetCellValue("Sales", "F1", "InstallRevenue")
	f.SetCellValue("Sales", "G1", "Note")
	for i, r := range sales {
		row := fmt.Sprint(i + 2)
		f.SetCellValue("Sales", "A"+row, r.WeekCommencing.Format(weekFormat))
		f.SetCellValue("Sales", "B"+row, r.BoxesSold)
		f.SetCellValue("Sales", "C"+row, r.InstallsSold)
		f.SetCellValue("Sales", "D"+row, r.BoxRevenue.InexactFloat64())
		f.SetCellValue("Sales", "E"+row, r.ExtrasRevenue.InexactFloat64())
		f.SetCellValue("Sales", "F"+row, r.InstallRevenue.InexactFloat64())
		f.SetCellValue("Sales", "G"+row, r.Note)
	}

	if _, err := f.NewSheet("Production"); err != nil {
		return nil, err
	}
	f.SetCellValue("Production", "A1", "WeekCommencing")
	f.SetCellValue("Production", "B1", "BoxesProduced")
	f.SetCellValue("Production", "C1", "InstallsCompleted")
	f.SetCellValue("Production", "D1", "BoxesOverCost")
	f.SetCellValue("Production", "E1", "ReworkHours")
	f.SetCellValue("Production", "F1", "RightFirstTimePct")
	f.SetCellValue("Production", "G1", "Note")
	for i, r := range production {
		row := fmt.Sprint(i + 2)
		f.SetCellValue("Production", "A"+row, r.WeekCommencing.Format(weekFormat))
		f.SetCellValue("Production", "B"+row, r.BoxesProduced)
		f.SetCellValue("Production", "C"+row, r.InstallsCompleted)
		f.SetCellValue("Production", "D"+row, r.BoxesOverCost)
		f.SetCellValue("Production", "E"+row, r.ReworkHours.InexactFloat64())
		if r.RightFirstTimePct != nil {
			f.SetCellValue("Production", "F"+row, r.RightFirstTimePct.InexactFloat64())
		}
		f.SetCellValue("Production", "G"+row, r.Note)
	}

	return f, nil
}
