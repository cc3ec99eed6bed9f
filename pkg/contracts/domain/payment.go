package domain

import "time"

// PaymentStatus is the processing state of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentRequest is the card payment submitted for a ticket. Card data is
// forwarded to the backend and never stored or logged.
type PaymentRequest struct {
	CardNumber     string `json:"card_number"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardholder_name"`
	AmountCents    int64  `json:"amount_cents"`
	BillingZip     string `json:"billing_zip,omitempty"`
}

// Payment is the backend's receipt for a ticket payment
type Payment struct {
	ID          string        `json:"id"`
	TicketID    string        `json:"ticket_id"`
	AmountCents int64         `json:"amount_cents"`
	Status      PaymentStatus `json:"status"`
	CardLast4   string        `json:"card_last4,omitempty"`
	PaidAt      time.Time     `json:"paid_at"`
}

// DisputeStatus is the review state of a dispute
type DisputeStatus string

const (
	DisputeStatusSubmitted DisputeStatus = "submitted"
	DisputeStatusInReview  DisputeStatus = "in_review"
	DisputeStatusAccepted  DisputeStatus = "accepted"
	DisputeStatusRejected  DisputeStatus = "rejected"
)

// DisputeRequest contests a ticket
type DisputeRequest struct {
	Reason       string   `json:"reason"`
	ContactEmail string   `json:"contact_email,omitempty"`
	DocumentIDs  []string `json:"document_ids,omitempty"`
}

// Dispute is the backend record of a contested ticket
type Dispute struct {
	ID          string        `json:"id"`
	TicketID    string        `json:"ticket_id"`
	Reason      string        `json:"reason"`
	Status      DisputeStatus `json:"status"`
	SubmittedAt time.Time     `json:"submitted_at"`
}
