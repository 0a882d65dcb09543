// Package correlate resolves raw mailbox messages to the RFP and vendor
// records they belong to. Subject parsing is pure and deterministic; vendor
// resolution is an exact case-folded email lookup.
package correlate

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/store"
)

// markerPattern matches the explicit RFP marker written by the outbound
// mailer, e.g. "Re: Request for Proposal: Laptops - RFP #<uuid>".
var markerPattern = regexp.MustCompile(`(?i)RFP[:\s#]+([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)

// uuidPattern matches any UUID-shaped substring, used as a fallback when
// the marker is absent.
var uuidPattern = regexp.MustCompile(`(?i)([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)

// ExtractRFPID scans an email subject for an RFP identifier. The marker
// pattern takes precedence over the bare-UUID fallback; in the fallback,
// multiple distinct UUIDs make the subject ambiguous and yield no match.
// Returns "" when no identifier can be resolved.
func ExtractRFPID(subject string) string {
	if m := markerPattern.FindStringSubmatch(subject); m != nil {
		if id := normalizeUUID(m[1]); id != "" {
			return id
		}
	}

	matches := uuidPattern.FindAllStringSubmatch(subject, -1)
	if len(matches) == 0 {
		return ""
	}

	first := normalizeUUID(matches[0][1])
	if first == "" {
		return ""
	}
	for _, m := range matches[1:] {
		if normalizeUUID(m[1]) != first {
			// Ambiguous subject: refuse to guess.
			return ""
		}
	}
	return first
}

func normalizeUUID(raw string) string {
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}

// VendorLookup is the slice of the record store the resolver needs.
type VendorLookup interface {
	GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error)
}

// RfpLookup fetches an RFP by identifier.
type RfpLookup interface {
	GetRfp(ctx context.Context, id string) (*model.Rfp, error)
}

// Resolver correlates sender addresses and subjects against stored records.
type Resolver struct {
	vendors VendorLookup
	rfps    RfpLookup
}

// NewResolver creates a Resolver backed by the given lookups.
func NewResolver(vendors VendorLookup, rfps RfpLookup) *Resolver {
	return &Resolver{vendors: vendors, rfps: rfps}
}

// ResolveVendor returns the vendor whose email exactly matches the
// case-folded sender address, or nil when the sender is unknown.
func (r *Resolver) ResolveVendor(ctx context.Context, senderAddress string) (*model.Vendor, error) {
	addr := strings.ToLower(strings.TrimSpace(senderAddress))
	if addr == "" {
		return nil, nil
	}
	v, err := r.vendors.GetVendorByEmail(ctx, addr)
	if err != nil {
		return nil, eris.Wrap(err, "correlate: vendor lookup")
	}
	return v, nil
}

// ResolveRfp extracts an RFP identifier from the subject and loads the
// matching record. Returns nil when the subject has no identifier or the
// identifier matches no stored RFP.
func (r *Resolver) ResolveRfp(ctx context.Context, subject string) (*model.Rfp, error) {
	id := ExtractRFPID(subject)
	if id == "" {
		return nil, nil
	}
	rfp, err := r.rfps.GetRfp(ctx, id)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "correlate: rfp lookup")
	}
	return rfp, nil
}
