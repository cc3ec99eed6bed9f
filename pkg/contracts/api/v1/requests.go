// Package api contains the HTTP request contracts of the parking gateway.
// Version v1 is the current API version.
//
// Tags here only bound the shape of a request body. Field rules with
// user-facing messages are applied by the services after sanitization.
package api

import (
	"time"

	"parkingapp/pkg/contracts/domain"
)

// Auth API Requests

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password" validate:"max=128"`
}

// ToDomain converts the request into login credentials
func (r LoginRequest) ToDomain() domain.Credentials {
	return domain.Credentials{Email: r.Email, Password: r.Password}
}

// SignupRequest is the body of POST /api/auth/signup
type SignupRequest struct {
	Email     string `json:"email" validate:"max=254"`
	Password  string `json:"password" validate:"max=128"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone,omitempty" validate:"max=32"`
}

// ToDomain converts the request into a registration
func (r SignupRequest) ToDomain() domain.Registration {
	return domain.Registration{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
	}
}

// PasswordResetRequest is the body of POST /api/auth/password-reset
type PasswordResetRequest struct {
	Email string `json:"email" validate:"max=254"`
}

// Ticket API Requests

// TicketRequest is the body of POST /api/tickets and PUT /api/tickets/{id}
type TicketRequest struct {
	TicketNumber string    `json:"ticket_number" validate:"max=32"`
	LicensePlate string    `json:"license_plate" validate:"max=16"`
	State        string    `json:"state,omitempty" validate:"omitempty,len=2,alpha"`
	Violation    string    `json:"violation" validate:"max=200"`
	Location     string    `json:"location" validate:"max=200"`
	IssuedAt     time.Time `json:"issued_at"`
	AmountCents  int64     `json:"amount_cents" validate:"gte=0"`
	Notes        string    `json:"notes,omitempty" validate:"max=1000"`
	VehicleID    string    `json:"vehicle_id,omitempty" validate:"max=64"`
}

// ToDomain converts the request into ticket input
func (r TicketRequest) ToDomain() domain.TicketInput {
	return domain.TicketInput{
		TicketNumber: r.TicketNumber,
		LicensePlate: r.LicensePlate,
		State:        r.State,
		Violation:    r.Violation,
		Location:     r.Location,
		IssuedAt:     r.IssuedAt,
		AmountCents:  r.AmountCents,
		Notes:        r.Notes,
		VehicleID:    r.VehicleID,
	}
}

// PaymentRequest is the body of POST /api/tickets/{id}/pay. Card fields are
// never logged.
type PaymentRequest struct {
	CardNumber     string `json:"card_number" validate:"max=23"`
	ExpiryMonth    int    `json:"expiry_month" validate:"gte=0,lte=12"`
	ExpiryYear     int    `json:"expiry_year" validate:"gte=0"`
	CVV            string `json:"cvv" validate:"max=4"`
	CardholderName string `json:"cardholder_name" validate:"max=100"`
	AmountCents    int64  `json:"amount_cents" validate:"gte=0"`
	BillingZip     string `json:"billing_zip,omitempty" validate:"max=10"`
}

// ToDomain converts the request into a payment
func (r PaymentRequest) ToDomain() domain.PaymentRequest {
	return domain.PaymentRequest{
		CardNumber:     r.CardNumber,
		ExpiryMonth:    r.ExpiryMonth,
		ExpiryYear:     r.ExpiryYear,
		CVV:            r.CVV,
		CardholderName: r.CardholderName,
		AmountCents:    r.AmountCents,
		BillingZip:     r.BillingZip,
	}
}

// DisputeRequest is the body of POST /api/tickets/{id}/dispute
type DisputeRequest struct {
	Reason       string   `json:"reason" validate:"max=2000"`
	ContactEmail string   `json:"contact_email,omitempty" validate:"max=254"`
	DocumentIDs  []string `json:"document_ids,omitempty" validate:"max=10,dive,max=64"`
}

// ToDomain converts the request into a dispute
func (r DisputeRequest) ToDomain() domain.DisputeRequest {
	return domain.DisputeRequest{
		Reason:       r.Reason,
		ContactEmail: r.ContactEmail,
		DocumentIDs:  r.DocumentIDs,
	}
}

// Vehicle API Requests

// VehicleRequest is the body of POST /api/vehicles and PUT /api/vehicles/{id}
type VehicleRequest struct {
	LicensePlate string `json:"license_plate" validate:"omitempty,plate"`
	State        string `json:"state" validate:"max=2"`
	Make         string `json:"make,omitempty" validate:"max=50"`
	Model        string `json:"model,omitempty" validate:"max=50"`
	Color        string `json:"color,omitempty" validate:"max=30"`
	Nickname     string `json:"nickname,omitempty" validate:"max=50"`
}

// ToDomain converts the request into vehicle input
func (r VehicleRequest) ToDomain() domain.VehicleInput {
	return domain.VehicleInput{
		LicensePlate: r.LicensePlate,
		State:        r.State,
		Make:         r.Make,
		Model:        r.Model,
		Color:        r.Color,
		Nickname:     r.Nickname,
	}
}

// Profile API Requests

// ProfileRequest is the body of PUT /api/profile
type ProfileRequest struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone,omitempty" validate:"max=32"`
	Address   string `json:"address,omitempty" validate:"max=300"`
}

// ToDomain converts the request into a profile update
func (r ProfileRequest) ToDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Address:   r.Address,
	}
}

// DocumentUpload describes the file part of POST /api/profile/documents
type DocumentUpload struct {
	FileName string `json:"file_name" validate:"required,max=255,filename"`
}

// Validation API Requests

// FieldSpec names the rule a single form field is checked against
type FieldSpec struct {
	Kind     string `json:"kind" validate:"required,oneof=required email password phone license_plate card_number dispute_reason"`
	Value    string `json:"value" validate:"max=2000"`
	Required bool   `json:"required,omitempty"`
	// State qualifies license_plate fields
	State string `json:"state,omitempty" validate:"max=2"`
}

// ValidateFormRequest is the body of POST /api/validate. When Category is
// set the form also passes through the security gate for that category.
type ValidateFormRequest struct {
	Category string               `json:"category,omitempty" validate:"omitempty,category"`
	Fields   map[string]FieldSpec `json:"fields" validate:"required,min=1,max=20,dive,keys,max=64,endkeys"`
}
