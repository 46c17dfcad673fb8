package export

import (
	"bytes"
	"fmt"
	"strconv"

	"debtster_routes/internal/models"
	"debtster_routes/internal/timeutil"

	"github.com/xuri/excelize/v2"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var sheetHeader = []any{
	"#", "Client", "Address", "Debt", "Installment", "Due", "Expected", "Paid", "Outstanding", "Status", "Collected", "Signature",
}

// RenderRouteSheet lays out a worklist as a printable sheet: one row per
// installment line, grouped by stop, with a totals row per client.
func RenderRouteSheet(w models.Worklist) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Route " + timeutil.FormatDate(w.Date)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Collector %d, %s", w.CollectorID, timeutil.FormatDate(w.Date))
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A3", &sheetHeader); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 3, 3, bold); err != nil {
		return nil, err
	}

	row := 4
	for i, e := range w.Entries {
		for _, l := range e.Lines {
			cells := []any{
				i + 1,
				e.ClientName,
				e.Address,
				l.DebtNumber,
				l.Seq,
				timeutil.FormatDate(l.DueOn),
				l.Expected.StringFixed(2),
				l.Paid.StringFixed(2),
				l.Outstanding.StringFixed(2),
				string(l.Status),
			}
			if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &cells); err != nil {
				return nil, err
			}
			row++
		}
		totals := []any{
			i + 1, e.ClientName, "", "", "", "total",
			e.Expected.StringFixed(2), e.Paid.StringFixed(2), e.Outstanding.StringFixed(2), string(e.Status),
		}
		if e.Credit.IsPositive() {
			totals = append(totals, "credit "+e.Credit.StringFixed(2))
		}
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &totals); err != nil {
			return nil, err
		}
		if err := f.SetRowStyle(sheet, row, row, bold); err != nil {
			return nil, err
		}
		row += 2
	}

	_ = f.SetColWidth(sheet, "B", "C", 32)
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SheetKey is where a collector's sheet for date is stored.
func SheetKey(collectorID int64, date string) string {
	return fmt.Sprintf("route-sheets/%s/%d.xlsx", date, collectorID)
}
