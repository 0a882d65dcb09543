// Package score holds the deterministic scoring rules and the proposal
// comparator. Model-produced scores are always clamped into [0, 100]
// before they are stored or returned.
package score

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/extract"
	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/store"
)

// defaultSingleScore is used when the only proposal for an RFP has no
// stored score yet.
const defaultSingleScore = 50

// Clamp bounds a score into [0, 100].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// PriceRatio computes the preliminary price-competitiveness score
// (budget / price) * 50, clamped into [0, 100]. A proposal priced exactly
// at budget scores 50; cheaper proposals score higher. Returns nil when
// either input is missing or the price is not positive: no score beats a
// fabricated one.
func PriceRatio(budget, totalPrice *float64) *float64 {
	if budget == nil || totalPrice == nil {
		return nil
	}
	if *totalPrice <= 0 || *budget <= 0 {
		return nil
	}
	s := Clamp((*budget / *totalPrice) * 50)
	return &s
}

// CompareClient is the slice of the extraction client the comparator uses.
type CompareClient interface {
	CompareProposals(ctx context.Context, rfp *model.Rfp, proposals []extract.ComparisonInput) (*model.Comparison, error)
}

// Result is a full comparison response: the RFP, its proposals, and the
// evaluation. Comparison is nil when there is nothing to compare.
type Result struct {
	Rfp        *model.Rfp        `json:"rfp"`
	Proposals  []model.Proposal  `json:"proposals"`
	Comparison *model.Comparison `json:"comparison"`
	Message    string            `json:"message,omitempty"`
}

// Comparator evaluates all proposals received for an RFP.
type Comparator struct {
	store store.Store
	ai    CompareClient
}

// NewComparator creates a Comparator.
func NewComparator(st store.Store, ai CompareClient) *Comparator {
	return &Comparator{store: st, ai: ai}
}

// Compare loads the RFP and its proposals and evaluates them. Zero
// proposals yield a nil comparison; a single proposal is recommended
// without a model call; two or more go through the comparison model, and
// the returned scores are clamped and persisted.
func (c *Comparator) Compare(ctx context.Context, rfpID string) (*Result, error) {
	rfp, err := c.store.GetRfp(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	proposals, err := c.store.ListProposals(ctx, store.ProposalFilter{RfpID: rfpID})
	if err != nil {
		return nil, err
	}

	if len(proposals) == 0 {
		return &Result{
			Rfp:       rfp,
			Proposals: []model.Proposal{},
			Message:   "No proposals received yet for this RFP",
		}, nil
	}

	vendorNames := c.vendorNames(ctx, proposals)

	if len(proposals) == 1 {
		return &Result{
			Rfp:        rfp,
			Proposals:  proposals,
			Comparison: singleProposalComparison(proposals[0], vendorNames[proposals[0].VendorID]),
			Message:    "Only one proposal received",
		}, nil
	}

	inputs := make([]extract.ComparisonInput, 0, len(proposals))
	for _, p := range proposals {
		inputs = append(inputs, extract.ComparisonInput{
			ProposalID:     p.ID,
			VendorName:     vendorNames[p.VendorID],
			VendorID:       p.VendorID,
			ExtractedTerms: p.ExtractedTerms,
			Summary:        p.Summary,
		})
	}

	cmp, err := c.ai.CompareProposals(ctx, rfp, inputs)
	if err != nil {
		return nil, eris.Wrap(err, "score: compare proposals")
	}

	known := make(map[string]bool, len(proposals))
	for _, p := range proposals {
		known[p.ID] = true
	}
	for i, s := range cmp.Scores {
		cmp.Scores[i].Score = Clamp(s.Score)
		if !known[s.ProposalID] {
			zap.L().Warn("score: comparison referenced unknown proposal",
				zap.String("proposal_id", s.ProposalID),
			)
			continue
		}
		if err := c.store.UpdateProposalScore(ctx, s.ProposalID, cmp.Scores[i].Score); err != nil {
			return nil, eris.Wrapf(err, "score: persist score for %s", s.ProposalID)
		}
	}

	return &Result{
		Rfp:        rfp,
		Proposals:  proposals,
		Comparison: cmp,
	}, nil
}

// vendorNames resolves vendor display names for a set of proposals.
// Lookup failures degrade to "Unknown Vendor" rather than failing the
// comparison.
func (c *Comparator) vendorNames(ctx context.Context, proposals []model.Proposal) map[string]string {
	names := make(map[string]string)
	for _, p := range proposals {
		if _, ok := names[p.VendorID]; ok {
			continue
		}
		v, err := c.store.GetVendor(ctx, p.VendorID)
		if err != nil {
			zap.L().Warn("score: vendor lookup failed",
				zap.String("vendor_id", p.VendorID),
				zap.Error(err),
			)
			names[p.VendorID] = "Unknown Vendor"
			continue
		}
		names[p.VendorID] = v.Name
	}
	return names
}

func singleProposalComparison(p model.Proposal, vendorName string) *model.Comparison {
	s := float64(defaultSingleScore)
	if p.Score != nil {
		s = Clamp(*p.Score)
	}
	return &model.Comparison{
		Scores: []model.ProposalScore{{
			ProposalID: p.ID,
			VendorName: vendorName,
			Score:      s,
			Strengths:  []string{"Only proposal received"},
			Weaknesses: []string{"No other proposals to compare"},
		}},
		RecommendedProposalID: p.ID,
		RecommendedVendorName: vendorName,
		Summary:               "This is the only proposal received. Review the terms carefully before making a decision.",
		ComparisonNotes:       "Single proposal - no comparison available.",
	}
}
