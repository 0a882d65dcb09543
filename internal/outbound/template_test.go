package outbound

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-cli/internal/config"
	"github.com/sells-group/rfp-cli/internal/model"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestSubject_CarriesRFPMarker(t *testing.T) {
	rfp := &model.Rfp{ID: "11111111-2222-3333-4444-555555555555", Title: "Office Laptops"}
	got := Subject(rfp)
	assert.Equal(t, "Request for Proposal: Office Laptops - RFP #11111111-2222-3333-4444-555555555555", got)
}

func TestRenderRfpEmail(t *testing.T) {
	rfp := &model.Rfp{
		ID:     "r1",
		Title:  "Office Laptops",
		Status: model.RfpStatusDraft,
		Budget: f64(30000),
		Requirements: model.Requirements{
			LineItems: []model.LineItem{
				{Item: "Laptop", Quantity: 20, Specs: "16GB RAM"},
			},
			DeliveryDate: str("2026-10-01"),
			PaymentTerms: str("Net 30"),
		},
	}

	html, err := renderRfpEmail(rfp)

	require.NoError(t, err)
	assert.Contains(t, html, "Office Laptops")
	assert.Contains(t, html, "r1")
	assert.Contains(t, html, "Laptop")
	assert.Contains(t, html, "16GB RAM")
	assert.Contains(t, html, "$30000.00")
	assert.Contains(t, html, "2026-10-01")
	assert.Contains(t, html, "Net 30")
	assert.Contains(t, html, "keep the RFP number in the subject line")
}

func TestRenderRfpEmail_MissingTermsRenderPlaceholders(t *testing.T) {
	rfp := &model.Rfp{ID: "r1", Title: "Desks", Status: model.RfpStatusDraft}

	html, err := renderRfpEmail(rfp)

	require.NoError(t, err)
	assert.Contains(t, html, "No line items specified.")
	assert.Contains(t, html, "To be discussed")
}

func TestRenderRfpEmail_BudgetFallsBackToRequirements(t *testing.T) {
	rfp := &model.Rfp{
		ID:           "r1",
		Title:        "Desks",
		Requirements: model.Requirements{Budget: f64(1234.5)},
	}

	html, err := renderRfpEmail(rfp)

	require.NoError(t, err)
	assert.Contains(t, html, "$1234.50")
}

func TestSendRFP_NoVendors(t *testing.T) {
	s := NewSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "rfp@example.com"})
	report, err := s.SendRFP(context.Background(), &model.Rfp{ID: "r1", Title: "Desks"}, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalSent)
	assert.Equal(t, 0, report.TotalFailed)
	assert.Empty(t, report.Successful)
	assert.Empty(t, report.Failed)
}
