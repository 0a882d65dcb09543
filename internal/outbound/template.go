package outbound

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-cli/internal/model"
)

// rfpEmailTemplate renders the HTML body of an outbound RFP. The subject
// carries the machine-readable marker; the body is for humans.
var rfpEmailTemplate = template.Must(template.New("rfp").Funcs(template.FuncMap{
	"money": func(v *float64) string {
		if v == nil {
			return "To be discussed"
		}
		return fmt.Sprintf("$%.2f", *v)
	},
	"orDiscuss": func(v *string) string {
		if v == nil || *v == "" {
			return "To be discussed"
		}
		return *v
	},
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1>Request for Proposal</h1>
  <h2>{{.Rfp.Title}}</h2>
  <p><strong>RFP ID:</strong> {{.Rfp.ID}}<br>
     <strong>Status:</strong> {{.Rfp.Status}}</p>

  <h3>Required Items</h3>
  {{if .Rfp.Requirements.LineItems}}
  <table border="1" cellpadding="8" cellspacing="0" style="border-collapse: collapse; width: 100%;">
    <thead>
      <tr><th>Item</th><th>Quantity</th><th>Specifications</th></tr>
    </thead>
    <tbody>
      {{range .Rfp.Requirements.LineItems}}
      <tr><td>{{.Item}}</td><td>{{.Quantity}}</td><td>{{.Specs}}</td></tr>
      {{end}}
    </tbody>
  </table>
  {{else}}
  <p>No line items specified.</p>
  {{end}}

  <h3>Budget &amp; Terms</h3>
  <p><strong>Budget:</strong> {{money .Budget}}<br>
     <strong>Delivery Date:</strong> {{orDiscuss .Rfp.Requirements.DeliveryDate}}<br>
     <strong>Payment Terms:</strong> {{orDiscuss .Rfp.Requirements.PaymentTerms}}</p>

  <p><strong>Next Steps:</strong> Please review the requirements above and submit your proposal at your earliest convenience.</p>
  <hr>
  <p style="font-size: 12px; color: #6b7280;">This is an automated message from the RFP Management System. Please keep the RFP number in the subject line when replying.</p>
</body>
</html>
`))

type templateData struct {
	Rfp    *model.Rfp
	Budget *float64
}

// renderRfpEmail produces the HTML body for an RFP.
func renderRfpEmail(rfp *model.Rfp) (string, error) {
	budget := rfp.Budget
	if budget == nil {
		budget = rfp.Requirements.Budget
	}

	var buf bytes.Buffer
	if err := rfpEmailTemplate.Execute(&buf, templateData{Rfp: rfp, Budget: budget}); err != nil {
		return "", eris.Wrap(err, "outbound: render rfp email")
	}
	return buf.String(), nil
}
