package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleView() domain.DueView {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	paidAt := time.Date(2025, 3, 12, 15, 4, 5, 0, time.UTC)
	method := domain.MethodBankTransfer
	ref := "OP-77"
	return domain.NewDueView(domain.Due{
		ID: 11, StandID: 3, StandName: "Abarrotes Rosa", Block: "A", StandNumber: "07",
		Period: "2025-03", DueDate: &due,
		AmountDue: decimal.NewFromInt(250), AmountPaid: decimal.NewFromInt(100),
		PaymentMethod: &method, PaymentReference: &ref, PaymentDate: &paidAt,
	}, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "morosidad-2025-03-bloque-a.xlsx", FileName("xlsx", "Morosidad", "2025-03", "", "Bloque A"))
	assert.Equal(t, "export.pdf", FileName(".pdf"))
}

func TestMorosityWorkbookReadsBack(t *testing.T) {
	view := sampleView()
	ind := domain.Indicators{
		Period: "2025-03", AsOf: "2025-03-20", Total: 1,
		Counts:         domain.StatusCounts{Overdue: 1},
		PercentOverdue: 100,
		TotalBilled:    decimal.NewFromInt(250), TotalCollected: decimal.NewFromInt(100),
		TotalOutstanding: decimal.NewFromInt(150), OverdueAmount: decimal.NewFromInt(150),
		MethodDistribution: []domain.MethodShare{{Method: "TRANSFERENCIA", Count: 1, Amount: decimal.NewFromInt(100), Percent: 100}},
		Blocks:             []domain.BlockBreakdown{{Block: "A", Total: 1, Counts: domain.StatusCounts{Overdue: 1}, PercentOverdue: 100}},
	}

	data, err := MorosityWorkbook(ind, []domain.DueView{view}, WorkbookMeta{Market: "Mercado Central", Currency: "PEN", GeneratedAt: time.Now()})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetDues, SheetBlocks}, f.GetSheetList())

	rows, err := f.GetRows(SheetDues)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Stand", rows[0][0])
	assert.Equal(t, "Abarrotes Rosa", rows[1][0])
	assert.Equal(t, "VENCIDO", rows[1][9])
	assert.Equal(t, "TRANSFERENCIA", rows[1][10])

	block, err := f.GetCellValue(SheetBlocks, "A2")
	require.NoError(t, err)
	assert.Equal(t, "A", block)
}

func TestReceiptProducesPDF(t *testing.T) {
	data, err := Receipt(ReceiptData{Market: "Mercado Central", Currency: "PEN", Due: sampleView(), IssuedAt: time.Now()})
	require.NoError(t, err)
	require.True(t, len(data) > 4)
	assert.Equal(t, "%PDF", string(data[:4]))
}
