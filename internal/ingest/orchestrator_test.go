package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-cli/internal/correlate"
	"github.com/sells-group/rfp-cli/internal/mailbox"
	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/store"
)

const rfpID = "11111111-2222-3333-4444-555555555555"

func f64(v float64) *float64 { return &v }

type testEnv struct {
	gateway *mockGateway
	vendors *mockVendorLookup
	rfps    *mockRfpLookup
	ai      *mockExtract
	store   *mockStore
	orch    *Orchestrator
}

func newTestEnv() *testEnv {
	e := &testEnv{
		gateway: &mockGateway{},
		vendors: &mockVendorLookup{},
		rfps:    &mockRfpLookup{},
		ai:      &mockExtract{},
		store:   &mockStore{},
	}
	resolver := correlate.NewResolver(e.vendors, e.rfps)
	e.orch = New(e.gateway, resolver, e.ai, e.store)
	return e
}

func proposalMessage(uid uint32, messageID string) mailbox.RawMessage {
	return mailbox.RawMessage{
		UID:       uid,
		MessageID: messageID,
		From:      "sales@acme.com",
		Subject:   "Re: Request for Proposal: Laptops - RFP #" + rfpID,
		Date:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Text:      "We quote $9,500 total.",
	}
}

func TestRun_NoMessages(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{}, nil).Once()

	var statuses []model.JobStatus
	res, err := e.orch.Run(ctx, func(status model.JobStatus, _ Result) {
		statuses = append(statuses, status)
	})

	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalMessages)
	assert.Equal(t, "No new proposal emails found", res.Message)
	assert.Equal(t, []model.JobStatus{model.JobStatusFetching, model.JobStatusCompleted}, statuses)
	e.gateway.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestRun_ListFailureFailsTheRun(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	e.gateway.On("ListCandidates", ctx).Return(nil, errors.New("imap down")).Once()

	_, err := e.orch.Run(ctx, nil)
	require.Error(t, err)
}

func TestRun_CreatesProposal(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(7, "<m1@acme.com>")
	terms := &model.ExtractedTerms{TotalPrice: f64(9500)}

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<m1@acme.com>").Return(nil, nil).Once()
	e.rfps.On("GetRfp", ctx, rfpID).Return(&model.Rfp{ID: rfpID, Budget: f64(19000)}, nil).Once()
	e.vendors.On("GetVendorByEmail", ctx, "sales@acme.com").Return(&model.Vendor{ID: "v1"}, nil).Once()
	e.ai.On("ParseProposal", ctx, msg.Text).Return(terms, nil).Once()
	e.ai.On("SummarizeProposal", ctx, terms, msg.Text).Return("A $9,500 quote.").Once()
	e.store.On("CreateProposal", ctx, mock.MatchedBy(func(p *model.Proposal) bool {
		return p.RfpID == rfpID &&
			p.VendorID == "v1" &&
			p.EmailMessageID == "<m1@acme.com>" &&
			p.Score != nil && *p.Score == 100 &&
			p.Summary != nil && *p.Summary == "A $9,500 quote." &&
			p.ReceivedAt.Equal(msg.Date)
	})).Return(&model.Proposal{ID: "p1"}, nil).Once()
	e.gateway.On("MarkRead", ctx, []uint32{7}).Return(nil).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalMessages)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "Processed 1 emails, created 1 proposals", res.Message)
	e.gateway.AssertExpectations(t)
	e.store.AssertExpectations(t)
}

func TestRun_SkipsAlreadyProcessedMessage(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(3, "<dup@acme.com>")

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<dup@acme.com>").
		Return(&model.Proposal{ID: "p1"}, nil).Once()
	e.gateway.On("MarkRead", ctx, []uint32{3}).Return(nil).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, res.Errors)
	e.ai.AssertNotCalled(t, "ParseProposal", mock.Anything, mock.Anything)
	e.gateway.AssertExpectations(t)
}

func TestRun_NoMatchingRfpStaysUnread(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(5, "<m2@acme.com>")
	msg.Subject = "Re: your proposal request"

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<m2@acme.com>").Return(nil, nil).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Could not find matching RFP", res.Errors[0].Reason)
	assert.Equal(t, msg.Subject, res.Errors[0].Subject)
	e.gateway.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestRun_UnknownVendorStaysUnread(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(5, "<m3@acme.com>")

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<m3@acme.com>").Return(nil, nil).Once()
	e.rfps.On("GetRfp", ctx, rfpID).Return(&model.Rfp{ID: rfpID}, nil).Once()
	e.vendors.On("GetVendorByEmail", ctx, "sales@acme.com").Return(nil, nil).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Unknown vendor: sales@acme.com", res.Errors[0].Reason)
	e.gateway.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestRun_ParseFailureStaysUnread(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(5, "<m4@acme.com>")

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<m4@acme.com>").Return(nil, nil).Once()
	e.rfps.On("GetRfp", ctx, rfpID).Return(&model.Rfp{ID: rfpID}, nil).Once()
	e.vendors.On("GetVendorByEmail", ctx, "sales@acme.com").Return(&model.Vendor{ID: "v1"}, nil).Once()
	e.ai.On("ParseProposal", ctx, msg.Text).Return(nil, errors.New("all models failed")).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "AI parsing failed", res.Errors[0].Reason)
	e.gateway.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestRun_ConcurrentDuplicateCountsAsSkip(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(9, "<race@acme.com>")
	terms := &model.ExtractedTerms{}

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<race@acme.com>").Return(nil, nil).Once()
	e.rfps.On("GetRfp", ctx, rfpID).Return(&model.Rfp{ID: rfpID}, nil).Once()
	e.vendors.On("GetVendorByEmail", ctx, "sales@acme.com").Return(&model.Vendor{ID: "v1"}, nil).Once()
	e.ai.On("ParseProposal", ctx, msg.Text).Return(terms, nil).Once()
	e.ai.On("SummarizeProposal", ctx, terms, msg.Text).Return("summary").Once()
	e.store.On("CreateProposal", ctx, mock.Anything).Return(nil, store.ErrDuplicateMessage).Once()
	e.gateway.On("MarkRead", ctx, []uint32{9}).Return(nil).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, res.Errors)
	e.gateway.AssertExpectations(t)
}

func TestRun_MarkReadFailureDoesNotFailRun(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(2, "<m5@acme.com>")

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<m5@acme.com>").
		Return(&model.Proposal{ID: "p1"}, nil).Once()
	e.gateway.On("MarkRead", ctx, []uint32{2}).Return(errors.New("flag update failed")).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
}

func TestRun_MixedBatch(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	good := proposalMessage(1, "<good@acme.com>")
	bad := proposalMessage(2, "<bad@acme.com>")
	bad.Subject = "no identifier"
	terms := &model.ExtractedTerms{}

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{good, bad}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<good@acme.com>").Return(nil, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<bad@acme.com>").Return(nil, nil).Once()
	e.rfps.On("GetRfp", ctx, rfpID).Return(&model.Rfp{ID: rfpID}, nil).Once()
	e.vendors.On("GetVendorByEmail", ctx, "sales@acme.com").Return(&model.Vendor{ID: "v1"}, nil).Once()
	e.ai.On("ParseProposal", ctx, good.Text).Return(terms, nil).Once()
	e.ai.On("SummarizeProposal", ctx, terms, good.Text).Return("summary").Once()
	e.store.On("CreateProposal", ctx, mock.Anything).Return(&model.Proposal{ID: "p1"}, nil).Once()
	e.gateway.On("MarkRead", ctx, []uint32{1}).Return(nil).Once()

	res, err := e.orch.Run(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalMessages)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Processed 2 emails, created 1 proposals", res.Message)
	e.gateway.AssertExpectations(t)
}

func TestRun_ZeroDateFallsBackToNow(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	msg := proposalMessage(4, "<nodate@acme.com>")
	msg.Date = time.Time{}
	terms := &model.ExtractedTerms{}

	e.gateway.On("ListCandidates", ctx).Return([]mailbox.RawMessage{msg}, nil).Once()
	e.store.On("GetProposalByMessageID", ctx, "<nodate@acme.com>").Return(nil, nil).Once()
	e.rfps.On("GetRfp", ctx, rfpID).Return(&model.Rfp{ID: rfpID}, nil).Once()
	e.vendors.On("GetVendorByEmail", ctx, "sales@acme.com").Return(&model.Vendor{ID: "v1"}, nil).Once()
	e.ai.On("ParseProposal", ctx, msg.Text).Return(terms, nil).Once()
	e.ai.On("SummarizeProposal", ctx, terms, msg.Text).Return("summary").Once()
	e.store.On("CreateProposal", ctx, mock.MatchedBy(func(p *model.Proposal) bool {
		return !p.ReceivedAt.IsZero()
	})).Return(&model.Proposal{ID: "p1"}, nil).Once()
	e.gateway.On("MarkRead", ctx, []uint32{4}).Return(nil).Once()

	_, err := e.orch.Run(ctx, nil)
	require.NoError(t, err)
	e.store.AssertExpectations(t)
}
