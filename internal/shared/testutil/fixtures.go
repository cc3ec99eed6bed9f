package testutil

import (
	"time"

	"parkingapp/pkg/contracts/domain"
)

// Fixtures provides parking domain data for tests. All timestamps derive
// from Now so assertions stay stable.
type Fixtures struct {
	Now time.Time
}

// NewFixtures creates fixtures anchored at a fixed instant
func NewFixtures() *Fixtures {
	return &Fixtures{Now: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)}
}

// UnpaidTicket returns an open ticket that can be paid or disputed
func (f *Fixtures) UnpaidTicket() domain.Ticket {
	return domain.Ticket{
		ID:           "tkt-1001",
		TicketNumber: "PK-2024-1001",
		LicensePlate: "ABC1234",
		State:        "CA",
		Violation:    "Expired meter",
		Location:     "400 Market St",
		IssuedAt:     f.Now.Add(-48 * time.Hour),
		DueDate:      f.Now.Add(19 * 24 * time.Hour),
		AmountCents:  6500,
		Status:       domain.TicketStatusUnpaid,
		CreatedAt:    f.Now.Add(-48 * time.Hour),
		UpdatedAt:    f.Now.Add(-48 * time.Hour),
	}
}

// PaidTicket returns a settled ticket
func (f *Fixtures) PaidTicket() domain.Ticket {
	t := f.UnpaidTicket()
	t.ID = "tkt-1002"
	t.TicketNumber = "PK-2024-1002"
	t.Status = domain.TicketStatusPaid
	return t
}

// TicketInput returns a valid ticket submission
func (f *Fixtures) TicketInput() domain.TicketInput {
	return domain.TicketInput{
		TicketNumber: "PK-2024-2001",
		LicensePlate: "XYZ789",
		State:        "CA",
		Violation:    "No parking zone",
		Location:     "1 Ferry Building",
		IssuedAt:     f.Now.Add(-time.Hour),
		AmountCents:  9500,
	}
}

// Vehicle returns a registered vehicle
func (f *Fixtures) Vehicle() domain.Vehicle {
	return domain.Vehicle{
		ID:           "veh-1",
		LicensePlate: "ABC1234",
		State:        "CA",
		Make:         "Toyota",
		Model:        "Prius",
		Color:        "Silver",
		CreatedAt:    f.Now.Add(-30 * 24 * time.Hour),
		UpdatedAt:    f.Now.Add(-30 * 24 * time.Hour),
	}
}

// VehicleInput returns a valid vehicle submission
func (f *Fixtures) VehicleInput() domain.VehicleInput {
	return domain.VehicleInput{
		LicensePlate: "new 42 ev",
		State:        "CA",
		Make:         "Tesla",
		Model:        "Model 3",
	}
}

// User returns the account holder used by auth and profile tests
func (f *Fixtures) User() domain.User {
	return domain.User{
		ID:        "usr-1",
		Email:     "driver@example.com",
		FirstName: "Jordan",
		LastName:  "Rivera",
		Phone:     "(415) 555-0134",
		CreatedAt: f.Now.Add(-90 * 24 * time.Hour),
		UpdatedAt: f.Now.Add(-90 * 24 * time.Hour),
	}
}

// Session returns a session for User
func (f *Fixtures) Session() domain.Session {
	return domain.Session{
		Token:     "session-token-1",
		ExpiresAt: f.Now.Add(24 * time.Hour),
		User:      f.User(),
	}
}

// Credentials returns login credentials matching User
func (f *Fixtures) Credentials() domain.Credentials {
	return domain.Credentials{Email: "  Driver@Example.com ", Password: "Str0ng!Pass"}
}

// Registration returns a valid sign-up submission
func (f *Fixtures) Registration() domain.Registration {
	return domain.Registration{
		Email:     "new.driver@example.com",
		Password:  "An0ther!Secret",
		FirstName: "Sam",
		LastName:  "O'Neil",
		Phone:     "415-555-0199",
	}
}

// PaymentRequest returns a card payment for UnpaidTicket using a Luhn-valid test card
func (f *Fixtures) PaymentRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		CardNumber:     "4539 5787 6362 1486",
		ExpiryMonth:    12,
		ExpiryYear:     f.Now.Year() + 2,
		CVV:            "123",
		CardholderName: "Jordan Rivera",
		AmountCents:    6500,
		BillingZip:     "94105",
	}
}

// DisputeRequest returns a valid dispute
func (f *Fixtures) DisputeRequest() domain.DisputeRequest {
	return domain.DisputeRequest{
		Reason:       "The meter was broken and would not accept payment.",
		ContactEmail: "driver@example.com",
	}
}
