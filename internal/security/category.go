package security

import (
	"fmt"
	"time"

	"parkingapp/internal/config"
)

// Category names a protected action. Each category has its own attempt,
// window and block policy owned by the oracle.
type Category string

const (
	CategoryLogin         Category = "login"
	CategoryRegistration  Category = "registration"
	CategoryPasswordReset Category = "password-reset"
	CategoryTicketCreate  Category = "ticket-create"
	CategoryTicketUpdate  Category = "ticket-update"
	CategoryPaymentSubmit Category = "payment-submit"
	CategoryDisputeSubmit Category = "dispute-submit"
	CategoryVehicleCreate Category = "vehicle-create"
	CategoryFileUpload    Category = "file-upload"
	CategoryFormSubmit    Category = "form-submit"
	CategorySearchQuery   Category = "search-query"
	CategoryProfileUpdate Category = "profile-update"
)

// Categories lists every protected action in a stable order
var Categories = []Category{
	CategoryLogin,
	CategoryRegistration,
	CategoryPasswordReset,
	CategoryTicketCreate,
	CategoryTicketUpdate,
	CategoryPaymentSubmit,
	CategoryDisputeSubmit,
	CategoryVehicleCreate,
	CategoryFileUpload,
	CategoryFormSubmit,
	CategorySearchQuery,
	CategoryProfileUpdate,
}

// ParseCategory validates a category name
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown security category %q", name)
}

// Policy limits an action to Attempts within Window. A client that exceeds
// it is blocked for BlockDuration; zero means the window itself.
type Policy struct {
	Attempts      int           `json:"attempts"`
	Window        time.Duration `json:"window"`
	BlockDuration time.Duration `json:"block_duration"`
}

// Block returns how long a client stays blocked after exceeding the policy
func (p Policy) Block() time.Duration {
	if p.BlockDuration > 0 {
		return p.BlockDuration
	}
	return p.Window
}

// DefaultPolicies returns the built-in policy table
func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		CategoryLogin:         {Attempts: 5, Window: 15 * time.Minute, BlockDuration: 15 * time.Minute},
		CategoryRegistration:  {Attempts: 3, Window: time.Hour, BlockDuration: time.Hour},
		CategoryPasswordReset: {Attempts: 3, Window: time.Hour, BlockDuration: time.Hour},
		CategoryTicketCreate:  {Attempts: 10, Window: time.Minute},
		CategoryTicketUpdate:  {Attempts: 20, Window: time.Minute},
		CategoryPaymentSubmit: {Attempts: 5, Window: 5 * time.Minute, BlockDuration: 30 * time.Minute},
		CategoryDisputeSubmit: {Attempts: 3, Window: time.Hour},
		CategoryVehicleCreate: {Attempts: 10, Window: time.Hour},
		CategoryFileUpload:    {Attempts: 10, Window: 10 * time.Minute},
		CategoryFormSubmit:    {Attempts: 20, Window: time.Minute},
		CategorySearchQuery:   {Attempts: 60, Window: time.Minute},
		CategoryProfileUpdate: {Attempts: 10, Window: 10 * time.Minute},
	}
}

// PoliciesFromConfig overlays configured policies onto the defaults.
// Unknown category names are rejected so a typo cannot silently disable a limit.
func PoliciesFromConfig(overrides map[string]config.PolicyConfig) (map[Category]Policy, error) {
	policies := DefaultPolicies()
	for name, o := range overrides {
		cat, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		p := policies[cat]
		if o.Attempts > 0 {
			p.Attempts = o.Attempts
		}
		if o.Window > 0 {
			p.Window = o.Window
		}
		if o.BlockDuration > 0 {
			p.BlockDuration = o.BlockDuration
		}
		policies[cat] = p
	}
	return policies, nil
}
