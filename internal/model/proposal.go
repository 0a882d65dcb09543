package model

import "time"

// LineItemPrice is a per-line price quoted in a vendor proposal.
type LineItemPrice struct {
	Item  string  `json:"item"`
	Price float64 `json:"price"`
}

// ExtractedTerms holds the commercial terms pulled out of a proposal
// email by the extraction model. Every field is nullable: absence means
// the email did not state it, never zero.
type ExtractedTerms struct {
	TotalPrice      *float64        `json:"total_price"`
	LineItemPrices  []LineItemPrice `json:"line_item_prices"`
	WarrantyTerms   *string         `json:"warranty_terms"`
	DeliveryTime    *string         `json:"delivery_time"`
	AdditionalNotes *string         `json:"additional_notes"`
}

// Proposal is a vendor's reply to an RFP, created exactly once per unique
// email message ID. Immutable after creation except for score updates.
type Proposal struct {
	ID             string          `json:"id"`
	RfpID          string          `json:"rfp_id"`
	VendorID       string          `json:"vendor_id"`
	EmailContent   string          `json:"email_content"`
	ExtractedTerms *ExtractedTerms `json:"extracted_terms,omitempty"`
	Score          *float64        `json:"score,omitempty"`
	Summary        *string         `json:"summary,omitempty"`
	ReceivedAt     time.Time       `json:"received_at"`
	EmailMessageID string          `json:"email_message_id"`
	CreatedAt      time.Time       `json:"created_at"`
}
