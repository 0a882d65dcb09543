// Package ingest turns unread mailbox messages into stored proposals.
// One orchestrator run is the unit of work behind both the async refresh
// job and the synchronous refresh endpoint.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/correlate"
	"github.com/sells-group/rfp-cli/internal/mailbox"
	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/score"
	"github.com/sells-group/rfp-cli/internal/store"
)

// ExtractClient is the slice of the extraction client the orchestrator
// uses per message.
type ExtractClient interface {
	ParseProposal(ctx context.Context, emailBody string) (*model.ExtractedTerms, error)
	SummarizeProposal(ctx context.Context, terms *model.ExtractedTerms, emailBody string) string
}

// Result accumulates the counters of one ingestion run.
type Result struct {
	TotalMessages int                 `json:"total_messages"`
	Processed     int                 `json:"processed"`
	Created       int                 `json:"created"`
	Skipped       int                 `json:"skipped"`
	Errors        []model.IngestError `json:"errors"`
	Message       string              `json:"message"`
}

// Progress is invoked after every state change with the current status
// and a copy of the counters. Callers must not retain the slice.
type Progress func(status model.JobStatus, r Result)

// Orchestrator runs the mailbox-to-proposal pipeline.
type Orchestrator struct {
	gateway  mailbox.Gateway
	resolver *correlate.Resolver
	ai       ExtractClient
	store    store.Store
}

// New creates an Orchestrator.
func New(gw mailbox.Gateway, resolver *correlate.Resolver, ai ExtractClient, st store.Store) *Orchestrator {
	return &Orchestrator{gateway: gw, resolver: resolver, ai: ai, store: st}
}

// Run executes one full ingestion pass: list unread candidates, process
// each message independently, then mark the handled ones read. A message
// that fails stays unread and is recorded in the result errors; only
// infrastructure failures (mailbox listing) fail the run itself.
func (o *Orchestrator) Run(ctx context.Context, progress Progress) (*Result, error) {
	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	res := &Result{}
	report := func(status model.JobStatus) {
		if progress != nil {
			progress(status, *res)
		}
	}

	report(model.JobStatusFetching)
	messages, err := o.gateway.ListCandidates(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list candidates")
	}

	res.TotalMessages = len(messages)
	if len(messages) == 0 {
		res.Message = "No new proposal emails found"
		report(model.JobStatusCompleted)
		return res, nil
	}

	report(model.JobStatusProcessing)

	var handledUIDs []uint32
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "ingest: canceled")
		}

		res.Processed++
		messagesProcessed.Inc()

		handled := o.processMessage(ctx, msg, res)
		if handled {
			handledUIDs = append(handledUIDs, msg.UID)
		}
		report(model.JobStatusProcessing)
	}

	// Failed messages keep their unread flag so the next run retries them.
	if len(handledUIDs) > 0 {
		if err := o.gateway.MarkRead(ctx, handledUIDs); err != nil {
			zap.L().Error("ingest: mark read failed",
				zap.Int("count", len(handledUIDs)),
				zap.Error(err),
			)
		}
	}

	res.Message = fmt.Sprintf("Processed %d emails, created %d proposals", res.Processed, res.Created)
	report(model.JobStatusCompleted)

	zap.L().Info("ingest: run complete",
		zap.Int("total", res.TotalMessages),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// processMessage handles one candidate end to end. It returns true when
// the message should be marked read (created or skipped as duplicate);
// failures return false and append to the result errors.
func (o *Orchestrator) processMessage(ctx context.Context, msg mailbox.RawMessage, res *Result) bool {
	fail := func(reason string) bool {
		res.Errors = append(res.Errors, model.IngestError{Subject: msg.Subject, Reason: reason})
		messageErrors.Inc()
		return false
	}

	existing, err := o.store.GetProposalByMessageID(ctx, msg.MessageID)
	if err != nil {
		return fail(fmt.Sprintf("duplicate check failed: %v", err))
	}
	if existing != nil {
		zap.L().Debug("ingest: skipping already processed message",
			zap.String("message_id", msg.MessageID),
		)
		res.Skipped++
		messagesSkipped.Inc()
		return true
	}

	rfp, err := o.resolver.ResolveRfp(ctx, msg.Subject)
	if err != nil {
		return fail(fmt.Sprintf("rfp lookup failed: %v", err))
	}
	if rfp == nil {
		return fail("Could not find matching RFP")
	}

	vendor, err := o.resolver.ResolveVendor(ctx, msg.From)
	if err != nil {
		return fail(fmt.Sprintf("vendor lookup failed: %v", err))
	}
	if vendor == nil {
		return fail(fmt.Sprintf("Unknown vendor: %s", msg.From))
	}

	body := msg.Body()
	terms, err := o.ai.ParseProposal(ctx, body)
	if err != nil {
		zap.L().Warn("ingest: parse proposal failed",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return fail("AI parsing failed")
	}

	summary := o.ai.SummarizeProposal(ctx, terms, body)

	receivedAt := msg.Date
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	proposal := &model.Proposal{
		RfpID:          rfp.ID,
		VendorID:       vendor.ID,
		EmailContent:   body,
		ExtractedTerms: terms,
		Score:          score.PriceRatio(effectiveBudget(rfp), terms.TotalPrice),
		Summary:        &summary,
		ReceivedAt:     receivedAt,
		EmailMessageID: msg.MessageID,
	}

	created, err := o.store.CreateProposal(ctx, proposal)
	if err != nil {
		// A concurrent run got there first; the unique index is the
		// source of truth, the pre-check above is only a fast path.
		if store.IsDuplicate(err) {
			res.Skipped++
			messagesSkipped.Inc()
			return true
		}
		return fail(fmt.Sprintf("persist failed: %v", err))
	}

	zap.L().Info("ingest: created proposal",
		zap.String("proposal_id", created.ID),
		zap.String("rfp_id", rfp.ID),
		zap.String("vendor_id", vendor.ID),
	)
	res.Created++
	proposalsCreated.Inc()
	return true
}

// effectiveBudget prefers the RFP's top-level budget, falling back to the
// budget inside the structured requirements.
func effectiveBudget(rfp *model.Rfp) *float64 {
	if rfp.Budget != nil {
		return rfp.Budget
	}
	return rfp.Requirements.Budget
}
