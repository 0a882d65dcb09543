package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/config"
)

// IMAPGateway implements Gateway over an IMAP server. Each operation
// dials a fresh connection and logs out when done; runs are minutes
// apart, so holding a connection open buys nothing.
type IMAPGateway struct {
	cfg config.IMAPConfig
}

// NewIMAP creates an IMAPGateway from configuration.
func NewIMAP(cfg config.IMAPConfig) *IMAPGateway {
	return &IMAPGateway{cfg: cfg}
}

func (g *IMAPGateway) connect(ctx context.Context) (*imapclient.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "mailbox: connect")
	}

	addr := fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port)
	c, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "mailbox: dial %s", addr)
	}

	if err := c.Login(g.cfg.User, g.cfg.Password).Wait(); err != nil {
		c.Close()
		return nil, eris.Wrap(err, "mailbox: login")
	}

	if _, err := c.Select(g.cfg.Mailbox, nil).Wait(); err != nil {
		c.Close()
		return nil, eris.Wrapf(err, "mailbox: select %s", g.cfg.Mailbox)
	}

	return c, nil
}

func disconnect(c *imapclient.Client) {
	if err := c.Logout().Wait(); err != nil {
		zap.L().Debug("mailbox: logout", zap.Error(err))
	}
	c.Close()
}

// ListCandidates searches the mailbox for unread messages whose subject
// carries the configured token, fetches them with body peek so nothing
// gets flagged, and decodes the text and HTML parts.
func (g *IMAPGateway) ListCandidates(ctx context.Context) ([]RawMessage, error) {
	c, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer disconnect(c)

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	if g.cfg.SubjectToken != "" {
		criteria.Header = []imap.SearchCriteriaHeaderField{
			{Key: "Subject", Value: g.cfg.SubjectToken},
		}
	}

	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, eris.Wrap(err, "mailbox: search")
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	var uidSet imap.UIDSet
	uidSet.AddNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	buffers, err := c.Fetch(uidSet, fetchOpts).Collect()
	if err != nil {
		return nil, eris.Wrap(err, "mailbox: fetch")
	}

	var messages []RawMessage
	for _, buf := range buffers {
		if buf.Envelope == nil {
			zap.L().Warn("mailbox: message without envelope", zap.Uint32("uid", uint32(buf.UID)))
			continue
		}
		if !looksLikeProposalReply(buf.Envelope.Subject) {
			continue
		}

		msg := RawMessage{
			UID:       uint32(buf.UID),
			MessageID: buf.Envelope.MessageID,
			Subject:   buf.Envelope.Subject,
			Date:      buf.Envelope.Date,
		}
		if len(buf.Envelope.From) > 0 {
			msg.From = buf.Envelope.From[0].Addr()
			msg.FromName = buf.Envelope.From[0].Name
		}

		raw := buf.FindBodySection(bodySection)
		if len(raw) > 0 {
			text, html, err := decodeParts(raw)
			if err != nil {
				zap.L().Warn("mailbox: decode message body",
					zap.Uint32("uid", msg.UID),
					zap.Error(err),
				)
			}
			msg.Text = text
			msg.HTML = html
		}

		messages = append(messages, msg)
	}

	zap.L().Info("mailbox: listed candidates",
		zap.Int("searched", len(uids)),
		zap.Int("candidates", len(messages)),
	)
	return messages, nil
}

// MarkRead adds the \Seen flag to the given messages.
func (g *IMAPGateway) MarkRead(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	c, err := g.connect(ctx)
	if err != nil {
		return err
	}
	defer disconnect(c)

	var uidSet imap.UIDSet
	for _, uid := range uids {
		uidSet.AddNum(imap.UID(uid))
	}

	storeFlags := &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}
	if err := c.Store(uidSet, storeFlags, nil).Close(); err != nil {
		return eris.Wrap(err, "mailbox: mark read")
	}
	return nil
}

// decodeParts walks a raw RFC 822 message and returns its text/plain and
// text/html bodies. Attachments are skipped.
func decodeParts(raw []byte) (text, html string, err error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", "", eris.Wrap(err, "mailbox: create mail reader")
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return text, html, eris.Wrap(err, "mailbox: next part")
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, err := h.ContentType()
			if err != nil {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch ct {
			case "text/plain":
				if text == "" {
					text = string(body)
				}
			case "text/html":
				if html == "" {
					html = string(body)
				}
			}
		case *mail.AttachmentHeader:
			// Attachments carry no proposal terms worth parsing here.
		}
	}

	return text, html, nil
}
