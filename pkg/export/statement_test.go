package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementGeneratorGenerate(t *testing.T) {
	gen := NewStatementGenerator("Counseling Refund Statement")

	pdf, err := gen.Generate(StatementData{
		AuditID:          "ref-1",
		MappingID:        "m1",
		Kind:             "PARTIAL",
		ClientName:       "Client Lee",
		ConsultantName:   "Dr. Kim",
		PackageName:      "Standard 10",
		RefundedSessions: 3,
		PerSessionPrice:  50000,
		RefundedAmount:   150000,
		Reason:           "relocation",
		IssuedAt:         time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestStatementGeneratorDefaultTitle(t *testing.T) {
	gen := NewStatementGenerator("")
	assert.Equal(t, "Refund Statement", gen.title)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1500.00", formatAmount(150000))
	assert.Equal(t, "0.00", formatAmount(0))
}
