// Package outbound sends RFP announcement emails to vendors over SMTP.
// The subject line embeds the RFP identifier that inbound correlation
// later matches on.
package outbound

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rfp-cli/internal/config"
	"github.com/sells-group/rfp-cli/internal/model"
)

// maxSendConcurrency bounds parallel SMTP sessions per SendRFP call.
const maxSendConcurrency = 4

// SendResult records the outcome for one vendor.
type SendResult struct {
	VendorID    string `json:"vendorId"`
	VendorEmail string `json:"vendorEmail"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// SendReport aggregates the per-vendor outcomes of one SendRFP call.
type SendReport struct {
	TotalSent   int          `json:"totalSent"`
	TotalFailed int          `json:"totalFailed"`
	Successful  []SendResult `json:"successful"`
	Failed      []SendResult `json:"failed"`
}

// Sender delivers RFP emails.
type Sender struct {
	cfg config.SMTPConfig
}

// NewSender creates a Sender from SMTP configuration.
func NewSender(cfg config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Subject builds the outbound subject carrying the RFP marker.
func Subject(rfp *model.Rfp) string {
	return fmt.Sprintf("Request for Proposal: %s - RFP #%s", rfp.Title, rfp.ID)
}

// SendRFP emails the RFP to every vendor, a few in parallel. One vendor
// failing never aborts the rest; per-vendor outcomes are collected in the
// report. The returned error covers only render and setup failures.
func (s *Sender) SendRFP(ctx context.Context, rfp *model.Rfp, vendors []model.Vendor) (*SendReport, error) {
	if len(vendors) == 0 {
		return &SendReport{}, nil
	}

	html, err := renderRfpEmail(rfp)
	if err != nil {
		return nil, err
	}
	subject := Subject(rfp)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxSendConcurrency)

	var mu sync.Mutex
	report := &SendReport{}

	for _, vendor := range vendors {
		g.Go(func() error {
			res := SendResult{VendorID: vendor.ID, VendorEmail: vendor.Email, Success: true}
			if err := s.sendOne(gCtx, vendor.Email, subject, html); err != nil {
				zap.L().Warn("outbound: send failed",
					zap.String("vendor_id", vendor.ID),
					zap.String("vendor_email", vendor.Email),
					zap.Error(err),
				)
				res.Success = false
				res.Error = err.Error()
			}

			mu.Lock()
			if res.Success {
				report.TotalSent++
				report.Successful = append(report.Successful, res)
			} else {
				report.TotalFailed++
				report.Failed = append(report.Failed, res)
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	zap.L().Info("outbound: rfp sent",
		zap.String("rfp_id", rfp.ID),
		zap.Int("sent", report.TotalSent),
		zap.Int("failed", report.TotalFailed),
	)
	return report, nil
}

func (s *Sender) sendOne(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.User); err != nil {
		return eris.Wrap(err, "outbound: set from")
	}
	if err := msg.To(to); err != nil {
		return eris.Wrapf(err, "outbound: set recipient %s", to)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	timeout := time.Duration(s.cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return eris.Wrap(err, "outbound: create smtp client")
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return eris.Wrapf(err, "outbound: send to %s", to)
	}
	return nil
}
