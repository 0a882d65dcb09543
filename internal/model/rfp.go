package model

import "time"

// RfpStatus represents the lifecycle state of an RFP.
type RfpStatus string

const (
	RfpStatusDraft  RfpStatus = "draft"
	RfpStatusSent   RfpStatus = "sent"
	RfpStatusActive RfpStatus = "active"
	RfpStatusClosed RfpStatus = "closed"
)

// statusRank orders statuses for the monotone-transition check.
var statusRank = map[RfpStatus]int{
	RfpStatusDraft:  0,
	RfpStatusSent:   1,
	RfpStatusActive: 2,
	RfpStatusClosed: 3,
}

// CanTransition reports whether moving from s to next is a forward move
// in the draft → sent → active → closed lifecycle. Same-status updates
// are allowed.
func (s RfpStatus) CanTransition(next RfpStatus) bool {
	from, ok1 := statusRank[s]
	to, ok2 := statusRank[next]
	if !ok1 || !ok2 {
		return false
	}
	return to >= from
}

// LineItem is a single requested item in an RFP requirements document.
type LineItem struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Specs    string `json:"specs,omitempty"`
}

// Requirements is the structured requirements document attached to an RFP.
type Requirements struct {
	LineItems    []LineItem `json:"lineItems"`
	Budget       *float64   `json:"budget,omitempty"`
	DeliveryDate *string    `json:"deliveryDate,omitempty"`
	PaymentTerms *string    `json:"paymentTerms,omitempty"`
}

// Rfp is a request for proposals sent out to vendors.
type Rfp struct {
	ID                   string       `json:"id"`
	Title                string       `json:"title"`
	NaturalLanguageQuery string       `json:"natural_language_query,omitempty"`
	Requirements         Requirements `json:"requirements"`
	Budget               *float64     `json:"budget,omitempty"`
	Status               RfpStatus    `json:"status"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}
