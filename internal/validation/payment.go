package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	digitsOnlyPattern = regexp.MustCompile(`^\d+$`)
	cardSeparators    = strings.NewReplacer(" ", "", "-", "")
)

// CreditCard checks that a card number is 13 to 19 digits and passes the Luhn checksum
func CreditCard(number string) Result {
	cleaned := cardSeparators.Replace(number)
	if cleaned == "" {
		return Invalid("Card number is required")
	}
	if !digitsOnlyPattern.MatchString(cleaned) {
		return Invalid("Card number must contain only digits")
	}
	if len(cleaned) < 13 || len(cleaned) > 19 {
		return Invalid("Card number must be between 13 and 19 digits")
	}
	if !luhn(cleaned) {
		return Invalid("Invalid card number")
	}
	return Valid()
}

// luhn doubles every second digit from the right, folds values over 9 and
// requires the sum to be a multiple of 10. digits must be ASCII digits only.
func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// CardType guesses the card brand from its number prefix
func CardType(number string) string {
	cleaned := cardSeparators.Replace(number)
	switch {
	case strings.HasPrefix(cleaned, "34"), strings.HasPrefix(cleaned, "37"):
		return "amex"
	case strings.HasPrefix(cleaned, "4"):
		return "visa"
	case len(cleaned) >= 2 && cleaned[0] == '5' && cleaned[1] >= '1' && cleaned[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(cleaned, "2"):
		return "mastercard"
	case strings.HasPrefix(cleaned, "6011"), strings.HasPrefix(cleaned, "65"):
		return "discover"
	}
	return "unknown"
}

// CVV requires four digits for amex cards and three for everything else
func CVV(cvv, cardType string) Result {
	cvv = strings.TrimSpace(cvv)
	if cvv == "" {
		return Invalid("CVV is required")
	}
	if !digitsOnlyPattern.MatchString(cvv) {
		return Invalid("CVV must contain only digits")
	}
	want := 3
	if strings.EqualFold(cardType, "amex") {
		want = 4
	}
	if len(cvv) != want {
		return Invalid(fmt.Sprintf("CVV must be %d digits", want))
	}
	return Valid()
}

// Amount requires a positive payment amount in cents that does not exceed max
func Amount(cents, max int64) Result {
	if cents <= 0 {
		return Invalid("Payment amount must be greater than zero")
	}
	if max > 0 && cents > max {
		return Invalid(fmt.Sprintf("Payment amount cannot exceed %d.%02d", max/100, max%100))
	}
	return Valid()
}

// CardExpiry requires a month between 1 and 12 and a card that has not
// expired by now. A card is valid through the last day of its expiry month.
func CardExpiry(month, year int, now time.Time) Result {
	if month < 1 || month > 12 {
		return Invalid("Expiry month must be between 1 and 12")
	}
	if year < 100 {
		year += 2000
	}
	expires := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(expires) {
		return Invalid("Card has expired")
	}
	if year > now.Year()+20 {
		return Invalid("Expiry year is too far in the future")
	}
	return Valid()
}
