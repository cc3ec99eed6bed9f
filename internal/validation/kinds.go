package validation

import (
	"fmt"
	"strings"

	"parkingapp/internal/sanitize"
)

// Field kinds understood by RuleFor
const (
	KindRequired      = "required"
	KindEmail         = "email"
	KindPassword      = "password"
	KindPhone         = "phone"
	KindLicensePlate  = "license_plate"
	KindCardNumber    = "card_number"
	KindDisputeReason = "dispute_reason"
)

// FieldOptions qualifies a field kind
type FieldOptions struct {
	// Required applies to email and phone; the other kinds are always required
	Required bool
	// State qualifies license plates
	State string
	// Label names the field in "is required" messages
	Label string
}

var kindSanitizers = map[string]sanitize.Func{
	KindRequired:      sanitize.UserContent,
	KindEmail:         sanitize.Email,
	KindPassword:      sanitize.Password,
	KindPhone:         sanitize.Phone,
	KindLicensePlate:  sanitize.LicensePlate,
	KindCardNumber:    strings.TrimSpace,
	KindDisputeReason: sanitize.UserContent,
}

// Kinds lists the field kinds RuleFor accepts
func Kinds() []string {
	return []string{KindRequired, KindEmail, KindPassword, KindPhone, KindLicensePlate, KindCardNumber, KindDisputeReason}
}

// SanitizerFor returns the sanitizer applied to a kind before validation
func SanitizerFor(kind string) sanitize.Func {
	if fn, ok := kindSanitizers[kind]; ok {
		return fn
	}
	return sanitize.UserContent
}

// RuleFor returns the rule for a named field kind
func (v *Validator) RuleFor(kind string, opts FieldOptions) (Rule, error) {
	switch kind {
	case KindRequired:
		label := opts.Label
		if label == "" {
			label = "This field"
		}
		return RequiredRule(label), nil

	case KindEmail:
		emailOpts := DefaultEmailOptions()
		emailOpts.Required = opts.Required
		return v.EmailRule(emailOpts), nil

	case KindPassword:
		pwOpts := DefaultPasswordOptions()
		return StringRule(func(s string) Result { return Password(s, pwOpts) }), nil

	case KindPhone:
		phoneOpts := DefaultPhoneOptions()
		phoneOpts.Required = opts.Required
		return StringRule(func(s string) Result { return Phone(s, phoneOpts) }), nil

	case KindLicensePlate:
		state := opts.State
		return StringRule(func(s string) Result { return LicensePlate(s, state) }), nil

	case KindCardNumber:
		return StringRule(CreditCard), nil

	case KindDisputeReason:
		return StringRule(DisputeReason), nil
	}
	return nil, fmt.Errorf("unknown field kind %q", kind)
}
