package validation

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"unicode"
)

// PasswordOptions controls Password
type PasswordOptions struct {
	MinLength            int
	RequireUppercase     bool
	RequireLowercase     bool
	RequireNumbers       bool
	RequireSpecialChars  bool
	BlacklistedPasswords []string
}

// DefaultPasswordOptions requires eight characters from all four character classes
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{
		MinLength:           8,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
		BlacklistedPasswords: []string{
			"password", "password1", "password123", "12345678", "123456789",
			"qwerty123", "iloveyou", "letmein1", "welcome1", "admin123",
		},
	}
}

// Password checks every rule and reports all violations at once
func Password(password string, opts PasswordOptions) Result {
	result := Valid()

	if opts.MinLength <= 0 {
		opts.MinLength = 8
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			hasSpecial = true
		}
	}

	length := len([]rune(password))
	if length < opts.MinLength {
		result.addError(fmt.Sprintf("Password must be at least %d characters long", opts.MinLength))
	}
	if opts.RequireUppercase && !hasUpper {
		result.addError("Password must contain at least one uppercase letter")
	}
	if opts.RequireLowercase && !hasLower {
		result.addError("Password must contain at least one lowercase letter")
	}
	if opts.RequireNumbers && !hasNumber {
		result.addError("Password must contain at least one number")
	}
	if opts.RequireSpecialChars && !hasSpecial {
		result.addError("Password must contain at least one special character")
	}
	for _, banned := range opts.BlacklistedPasswords {
		if strings.EqualFold(password, banned) {
			result.addError("This password is too common. Please choose a stronger password")
			break
		}
	}

	// Advisory only
	if length < 12 {
		result.addWarning("Consider using at least 12 characters for a stronger password")
	}
	if hasRepeatedRun(password, 3) {
		result.addWarning("Avoid repeating the same character three or more times in a row")
	}

	return result
}

func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// PhoneOptions controls Phone
type PhoneOptions struct {
	Required           bool
	AllowInternational bool
	// Country is an ISO 3166 alpha-2 code. Empty means US.
	Country string
}

// DefaultPhoneOptions returns options for a required US number
func DefaultPhoneOptions() PhoneOptions {
	return PhoneOptions{Required: true, Country: "US"}
}

var (
	phoneCharsPattern = regexp.MustCompile(`^[\d\s\-().+]+$`)
	nonDigitPattern   = regexp.MustCompile(`\D`)
)

// Phone validates digit counts by country. US numbers need ten digits, or
// eleven with a leading 1, and an area code that does not start with 0 or 1.
func Phone(phone string, opts PhoneOptions) Result {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		if opts.Required {
			return Invalid("Phone number is required")
		}
		return Valid()
	}

	if !phoneCharsPattern.MatchString(phone) {
		return Invalid("Phone number can only contain digits, spaces, dashes, parentheses and a plus sign")
	}

	digits := nonDigitPattern.ReplaceAllString(phone, "")
	country := strings.ToUpper(opts.Country)
	if country == "" {
		country = "US"
	}

	if country != "US" {
		if !opts.AllowInternational {
			return Invalid("International phone numbers are not supported")
		}
		if len(digits) < 7 || len(digits) > 15 {
			return Invalid("Phone number must be between 7 and 15 digits")
		}
		return Valid()
	}

	var areaCode string
	switch {
	case len(digits) == 10:
		areaCode = digits[:3]
	case len(digits) == 11 && digits[0] == '1':
		areaCode = digits[1:4]
	default:
		return Invalid("Please enter a valid 10-digit phone number")
	}

	if areaCode[0] == '0' || areaCode[0] == '1' {
		return Invalid("Invalid area code")
	}
	return Valid()
}

var licensePlatePattern = regexp.MustCompile(`^[A-Z0-9]{2,}$`)

// maxPlateLength is the usual upper bound on plate characters
const maxPlateLength = 8

// LicensePlate validates a plate after removing spaces and uppercasing. Only
// letters and digits are accepted. A plate longer than eight characters is
// valid with a warning when a state is given, since some jurisdictions issue
// longer vanity plates.
func LicensePlate(plate, state string) Result {
	cleaned := strings.ToUpper(strings.Join(strings.Fields(plate), ""))
	if cleaned == "" {
		return Invalid("License plate is required")
	}
	if !licensePlatePattern.MatchString(cleaned) {
		return Invalid("License plate must be 2 to 8 letters or numbers")
	}
	if len(cleaned) <= maxPlateLength {
		return Valid()
	}
	if state == "" {
		return Invalid("License plate must be 2 to 8 letters or numbers")
	}

	result := Valid()
	result.addWarning(fmt.Sprintf("License plate is longer than usual for %s. Please double-check it", strings.ToUpper(state)))
	return result
}

// Required fails for nil, empty strings and empty slices or maps
func Required(value any, fieldName string) Result {
	if isEmpty(value) {
		return Invalid(fmt.Sprintf("%s is required", fieldName))
	}
	return Valid()
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isEmpty(rv.Elem().Interface())
	}
	return false
}

// DisputeReason requires a free-text explanation of a reasonable size. The
// reason may arrive entity-escaped; its length is that of the decoded text.
func DisputeReason(reason string) Result {
	n := len([]rune(html.UnescapeString(strings.TrimSpace(reason))))
	switch {
	case n == 0:
		return Invalid("Dispute reason is required")
	case n < 10:
		return Invalid("Please describe the reason for your dispute in at least 10 characters")
	case n > 1000:
		return Invalid("Dispute reason must be 1000 characters or less")
	}
	return Valid()
}
