// Package mailbox reads candidate proposal replies from an IMAP mailbox.
// Fetching never flags messages; read marking is a separate, explicit
// operation so failed messages stay unread for the next run.
package mailbox

import (
	"context"
	"strings"
	"time"
)

// RawMessage is one unread mailbox message, decoded enough for the
// ingestion pipeline to correlate and extract from.
type RawMessage struct {
	UID       uint32
	MessageID string
	From      string
	FromName  string
	Subject   string
	Date      time.Time
	Text      string
	HTML      string
}

// Body returns the best available content for extraction: the plain text
// part when present, otherwise the HTML part.
func (m RawMessage) Body() string {
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	return m.HTML
}

// Gateway is the mailbox access interface used by the ingestion
// orchestrator.
type Gateway interface {
	// ListCandidates returns unread messages that look like proposal
	// replies, without marking anything read.
	ListCandidates(ctx context.Context) ([]RawMessage, error)

	// MarkRead flags the given messages as seen.
	MarkRead(ctx context.Context, uids []uint32) error
}

// looksLikeProposalReply reports whether a subject plausibly belongs to a
// vendor reply: mentions of RFPs or proposals. The server-side SUBJECT
// search already narrows the candidate set; this filters stragglers that
// matched only the token.
func looksLikeProposalReply(subject string) bool {
	s := strings.ToLower(subject)
	return strings.Contains(s, "rfp") || strings.Contains(s, "proposal")
}
