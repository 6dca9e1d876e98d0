package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// StatementData carries everything printed on a refund statement.
type StatementData struct {
	AuditID          string
	MappingID        string
	Kind             string
	ClientName       string
	ConsultantName   string
	PackageName      string
	RefundedSessions int
	PerSessionPrice  int64
	RefundedAmount   int64
	Reason           string
	IssuedAt         time.Time
}

// StatementGenerator renders refund statements as PDF documents.
type StatementGenerator struct {
	title string
}

// NewStatementGenerator constructs a generator with the business title
// printed on every statement.
func NewStatementGenerator(title string) *StatementGenerator {
	if title == "" {
		title = "Refund Statement"
	}
	return &StatementGenerator{title: title}
}

// Generate renders the statement and returns the PDF bytes.
func (g *StatementGenerator) Generate(data StatementData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(g.title, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, g.title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Statement no. %s", data.AuditID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued %s", data.IssuedAt.Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Mapping", data.MappingID},
		{"Client", data.ClientName},
		{"Consultant", data.ConsultantName},
		{"Package", data.PackageName},
		{"Refund type", data.Kind},
		{"Sessions refunded", fmt.Sprintf("%d", data.RefundedSessions)},
		{"Price per session", formatAmount(data.PerSessionPrice)},
		{"Amount refunded", formatAmount(data.RefundedAmount)},
		{"Reason", data.Reason},
	}

	pdf.SetFont("Arial", "", 11)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(130, 8, row[1], "1", "L", false)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This statement was generated automatically and is valid without a signature.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render refund statement: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}
