package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary = "summary"
	SheetDues    = "dues"
	SheetBlocks  = "blocks"
)

// WorkbookMeta labels a morosity workbook.
type WorkbookMeta struct {
	Market      string
	Currency    string
	Scope       string
	GeneratedAt time.Time
}

var dueHeaders = []string{
	"Stand", "Block", "Number", "Category", "Period", "Due date",
	"Amount due", "Amount paid", "Balance", "Status", "Method", "Reference", "Payment date",
}

// MorosityWorkbook renders indicators and the dues behind them into an XLSX
// workbook with a summary, a dues listing and a per-block breakdown.
func MorosityWorkbook(ind domain.Indicators, dues []domain.DueView, meta WorkbookMeta) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetDues); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetBlocks); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	summary := [][2]any{
		{"Market", meta.Market},
		{"Scope", meta.Scope},
		{"Period", periodLabel(ind.Period)},
		{"As of", ind.AsOf},
		{"Generated at", meta.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Currency", meta.Currency},
		{"Total dues", ind.Total},
		{"Paid", ind.Counts.Paid},
		{"Partial", ind.Counts.Partial},
		{"Pending", ind.Counts.Pending},
		{"Overdue", ind.Counts.Overdue},
		{"Overdue %", ind.PercentOverdue},
		{"Collection %", ind.CollectionRate},
		{"Total billed", ind.TotalBilled.InexactFloat64()},
		{"Total collected", ind.TotalCollected.InexactFloat64()},
		{"Total outstanding", ind.TotalOutstanding.InexactFloat64()},
		{"Overdue amount", ind.OverdueAmount.InexactFloat64()},
		{fmt.Sprintf("Due in next %d days", ind.UpcomingWindowDays), ind.UpcomingCount},
	}
	_ = f.SetCellValue(SheetSummary, "A1", "Morosity report")
	_ = f.SetCellStyle(SheetSummary, "A1", "A1", bold)
	for i, row := range summary {
		r := i + 3
		_ = f.SetCellValue(SheetSummary, cell("A", r), row[0])
		_ = f.SetCellValue(SheetSummary, cell("B", r), row[1])
	}

	methodRow := len(summary) + 5
	_ = f.SetCellValue(SheetSummary, cell("A", methodRow), "Method")
	_ = f.SetCellValue(SheetSummary, cell("B", methodRow), "Count")
	_ = f.SetCellValue(SheetSummary, cell("C", methodRow), "Amount")
	_ = f.SetCellValue(SheetSummary, cell("D", methodRow), "Share %")
	_ = f.SetCellStyle(SheetSummary, cell("A", methodRow), cell("D", methodRow), bold)
	for i, m := range ind.MethodDistribution {
		r := methodRow + 1 + i
		_ = f.SetCellValue(SheetSummary, cell("A", r), m.Method)
		_ = f.SetCellValue(SheetSummary, cell("B", r), m.Count)
		_ = f.SetCellValue(SheetSummary, cell("C", r), m.Amount.InexactFloat64())
		_ = f.SetCellValue(SheetSummary, cell("D", r), m.Percent)
	}

	for i, h := range dueHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetCellValue(SheetDues, cell(col, 1), h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(dueHeaders))
	_ = f.SetCellStyle(SheetDues, "A1", cell(lastCol, 1), bold)
	for i, d := range dues {
		values := []any{
			d.StandName, d.Block, d.StandNumber, d.Category, d.Period, deref(d.DueDate),
			d.AmountDue.InexactFloat64(), d.AmountPaid.InexactFloat64(), d.Balance.InexactFloat64(),
			d.Status, deref(d.PaymentMethod), deref(d.PaymentReference), deref(d.PaymentDate),
		}
		if err := f.SetSheetRow(SheetDues, cell("A", i+2), &values); err != nil {
			return nil, err
		}
	}
	_ = f.AutoFilter(SheetDues, "A1:"+cell(lastCol, len(dues)+1), nil)

	blockHeaders := []any{"Block", "Total", "Paid", "Partial", "Pending", "Overdue", "Overdue %", "Billed", "Outstanding", "Overdue amount"}
	if err := f.SetSheetRow(SheetBlocks, "A1", &blockHeaders); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(SheetBlocks, "A1", "J1", bold)
	for i, b := range ind.Blocks {
		values := []any{
			b.Block, b.Total, b.Counts.Paid, b.Counts.Partial, b.Counts.Pending, b.Counts.Overdue,
			b.PercentOverdue, b.TotalBilled.InexactFloat64(), b.TotalOutstanding.InexactFloat64(), b.OverdueAmount.InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetBlocks, cell("A", i+2), &values); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func periodLabel(p string) string {
	if p == "" {
		return "all"
	}
	return p
}
