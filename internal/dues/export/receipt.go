package export

import (
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/mercado/internal/dues/domain"
)

// ReceiptData is what a payment receipt shows. Due is the view after the
// payment was applied.
type ReceiptData struct {
	Market   string
	Currency string
	Due      domain.DueView
	IssuedAt time.Time
}

// Receipt renders the latest payment of a due as a one-page PDF.
func Receipt(data ReceiptData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	d := data.Due

	m.AddRow(20,
		text.NewCol(8, "Payment receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.Market, props.Text{
			Size:  11,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Receipt for due "+d.ID, props.Text{Top: 0}),
			text.New("Issued: "+data.IssuedAt.UTC().Format(time.RFC3339), props.Text{Top: 5}),
			text.New("Period: "+d.Period, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New(d.StandName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New("Block "+d.Block+" / Stand "+d.StandNumber, props.Text{Top: 5, Align: align.Right}),
		),
	)
	m.AddRow(4, line.NewCol(12))

	rows := [][2]string{
		{"Due date", deref(d.DueDate)},
		{"Payment date", deref(d.PaymentDate)},
		{"Method", deref(d.PaymentMethod)},
		{"Reference", deref(d.PaymentReference)},
		{"Notes", deref(d.PaymentNotes)},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		m.AddRow(7,
			text.NewCol(4, r[0], props.Text{Size: 9, Style: fontstyle.Bold}),
			text.NewCol(8, r[1], props.Text{Size: 9}),
		)
	}

	m.AddRow(6)
	money := func(label, value string) {
		m.AddRow(8,
			col.New(6),
			text.NewCol(3, label, props.Text{Size: 10}),
			text.NewCol(3, data.Currency+" "+value, props.Text{Size: 10, Align: align.Right}),
		)
	}
	money("Amount due", d.AmountDue.StringFixed(2))
	money("Total paid", d.AmountPaid.StringFixed(2))
	money("Balance", d.Balance.StringFixed(2))

	m.AddRow(12,
		text.NewCol(12, "Status: "+d.Status, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
