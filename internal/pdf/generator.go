package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	types "github.com/meridianerp/quotes-backend/internal/domain"
)

// Generator renders a quote as a printable A4 document.
type Generator struct{}

func New() *Generator { return &Generator{} }

func (g *Generator) Generate(q *types.Quote) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Quote %d", q.Number), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Commercial Quote")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("No. %d (%s/%s), issued %s", q.Number, q.Company, q.Branch, q.CreatedAt.Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Customer: %s    Salesperson: %s", q.Customer, q.Salesperson))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s    Price table: %s", q.Status, q.PriceTable))
	pdf.Ln(6)
	if q.ExpiresAt != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Valid until %s", q.ExpiresAt.Format("2006-01-02")))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(15, 7, "#")
	pdf.Cell(95, 7, "Product")
	pdf.Cell(20, 7, "Qty")
	pdf.Cell(30, 7, "Unit")
	pdf.Cell(30, 7, "Total")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	var total int64
	for _, it := range q.Items {
		pdf.Cell(15, 6, fmt.Sprintf("%d", it.Sequence))
		pdf.Cell(95, 6, fmt.Sprintf("%s %s", it.ProductType, it.ProductCode))
		pdf.Cell(20, 6, fmt.Sprintf("%d", it.Quantity))
		pdf.Cell(30, 6, money(it.UnitPrice))
		pdf.Cell(30, 6, money(it.LineTotal()))
		pdf.Ln(6)
		total += it.LineTotal()
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(130, 7, "")
	pdf.Cell(30, 7, "Total")
	pdf.Cell(30, 7, money(total))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
