package model

// ProposalScore is one proposal's evaluation inside a comparison.
type ProposalScore struct {
	ProposalID string   `json:"proposalId"`
	VendorName string   `json:"vendorName"`
	Score      float64  `json:"score"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Comparison is the ranked evaluation of all proposals for one RFP.
// RecommendedProposalID may be empty, meaning no recommendation.
type Comparison struct {
	Scores                []ProposalScore `json:"scores"`
	RecommendedProposalID string          `json:"recommendedProposalId"`
	RecommendedVendorName string          `json:"recommendedVendorName"`
	Summary               string          `json:"summary"`
	ComparisonNotes       string          `json:"comparisonNotes"`
}
