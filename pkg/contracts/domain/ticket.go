// Package domain contains the parking domain models shared by the gateway,
// its services and the wire contracts exposed to the mobile client.
package domain

import (
	"time"
)

// TicketStatus is the lifecycle state of a parking ticket
type TicketStatus string

const (
	TicketStatusUnpaid    TicketStatus = "unpaid"
	TicketStatusPaid      TicketStatus = "paid"
	TicketStatusDisputed  TicketStatus = "disputed"
	TicketStatusDismissed TicketStatus = "dismissed"
	TicketStatusOverdue   TicketStatus = "overdue"
)

// Ticket is a parking citation issued against a vehicle
type Ticket struct {
	ID           string       `json:"id"`
	TicketNumber string       `json:"ticket_number"`
	LicensePlate string       `json:"license_plate"`
	State        string       `json:"state,omitempty"`
	Violation    string       `json:"violation"`
	Location     string       `json:"location"`
	IssuedAt     time.Time    `json:"issued_at"`
	DueDate      time.Time    `json:"due_date"`
	AmountCents  int64        `json:"amount_cents"`
	Status       TicketStatus `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	VehicleID    string       `json:"vehicle_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsPayable reports whether the ticket can still be paid
func (t Ticket) IsPayable() bool {
	return t.Status == TicketStatusUnpaid || t.Status == TicketStatusOverdue
}

// IsDisputable reports whether a dispute can be filed
func (t Ticket) IsDisputable() bool {
	return t.Status == TicketStatusUnpaid || t.Status == TicketStatusOverdue
}

// TicketFilter narrows a ticket listing
type TicketFilter struct {
	Status       TicketStatus `json:"status,omitempty"`
	LicensePlate string       `json:"license_plate,omitempty"`
	Page         int          `json:"page,omitempty"`
	PageSize     int          `json:"page_size,omitempty"`
}

// TicketInput carries the mutable fields of a ticket
type TicketInput struct {
	TicketNumber string    `json:"ticket_number"`
	LicensePlate string    `json:"license_plate"`
	State        string    `json:"state,omitempty"`
	Violation    string    `json:"violation"`
	Location     string    `json:"location"`
	IssuedAt     time.Time `json:"issued_at"`
	AmountCents  int64     `json:"amount_cents"`
	Notes        string    `json:"notes,omitempty"`
	VehicleID    string    `json:"vehicle_id,omitempty"`
}
