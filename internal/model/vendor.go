package model

import "time"

// Vendor is a known counterparty that can receive RFPs and reply with
// proposals. Email is unique case-insensitively; inbound mail is matched
// against it after case folding.
type Vendor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	ContactInfo map[string]string `json:"contact_info,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
