package store

import (
	"context"
	"errors"

	"github.com/sells-group/rfp-cli/internal/model"
)

// Sentinel errors surfaced by every driver. Wrapped with eris; check with
// errors.Is / IsNotFound / IsDuplicate.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateMessage  = errors.New("duplicate email message id")
	ErrDuplicateEmail    = errors.New("duplicate vendor email")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// IsNotFound reports whether err is a not-found error from any driver.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate reports whether err is a uniqueness violation from any driver.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateMessage) || errors.Is(err, ErrDuplicateEmail)
}

// ProposalFilter specifies criteria for listing proposals.
type ProposalFilter struct {
	RfpID    string `json:"rfp_id,omitempty"`
	VendorID string `json:"vendor_id,omitempty"`
}

// Store defines the persistence interface for RFPs, vendors, and proposals.
//
// Uniqueness of Proposal.EmailMessageID and Vendor.Email (case-insensitive)
// is enforced by the driver at write time; a pre-existence check alone is
// not sufficient under concurrent ingestion runs.
type Store interface {
	// RFPs
	CreateRfp(ctx context.Context, rfp *model.Rfp) (*model.Rfp, error)
	GetRfp(ctx context.Context, id string) (*model.Rfp, error)
	ListRfps(ctx context.Context) ([]model.Rfp, error)
	UpdateRfpStatus(ctx context.Context, id string, status model.RfpStatus) error

	// Vendors. GetVendorByEmail is a lookup: it returns (nil, nil) when no
	// vendor matches the case-folded address.
	CreateVendor(ctx context.Context, vendor *model.Vendor) (*model.Vendor, error)
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
	GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error)
	ListVendors(ctx context.Context) ([]model.Vendor, error)
	UpdateVendor(ctx context.Context, vendor *model.Vendor) error
	DeleteVendor(ctx context.Context, id string) error

	// Proposals. GetProposalByMessageID is a lookup: it returns (nil, nil)
	// when no proposal has the given external message id.
	CreateProposal(ctx context.Context, p *model.Proposal) (*model.Proposal, error)
	GetProposal(ctx context.Context, id string) (*model.Proposal, error)
	GetProposalByMessageID(ctx context.Context, messageID string) (*model.Proposal, error)
	ListProposals(ctx context.Context, filter ProposalFilter) ([]model.Proposal, error)
	UpdateProposalScore(ctx context.Context, id string, score float64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
