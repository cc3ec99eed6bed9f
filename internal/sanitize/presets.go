package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Field length limits applied by the presets.
const (
	MaxEmailLength        = 254
	MaxNameLength         = 100
	MaxAddressLength      = 200
	MaxLicensePlateLength = 12
	MaxFileNameLength     = 255
	MaxUserContentLength  = 1000
	MaxSearchQueryLength  = 100
)

// Func is a field sanitizer.
type Func func(string) string

var (
	nameDisallowed    = regexp.MustCompile(`[^\p{L}\s\-']`)
	phoneDisallowed   = regexp.MustCompile(`[^\d\s\-()+]`)
	addressDisallowed = regexp.MustCompile(`[^\p{L}\p{N}\s,.#\-/']`)
	plateDisallowed   = regexp.MustCompile(`[^A-Za-z0-9]`)
	fileDisallowed    = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

	upperCaser = cases.Upper(language.Und)
)

// Email lowercases an address and strips any markup.
func Email(raw string) string {
	return Input(raw, Options{
		StripTags:          true,
		ConvertToLowercase: true,
		MaxLength:          MaxEmailLength,
	})
}

// Password removes NUL and other control bytes and nothing else.
func Password(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
}

// Name keeps letters, spaces, hyphens and apostrophes.
func Name(raw string) string {
	return Input(raw, Options{
		StripTags:  true,
		Disallowed: nameDisallowed,
		MaxLength:  MaxNameLength,
	})
}

// Phone keeps digits, spaces, hyphens, parentheses and plus signs.
func Phone(raw string) string {
	return Input(raw, Options{
		StripTags:  true,
		Disallowed: phoneDisallowed,
	})
}

// Address keeps letters, digits and the punctuation found in street addresses.
func Address(raw string) string {
	return Input(raw, Options{
		StripTags:  true,
		Disallowed: addressDisallowed,
		MaxLength:  MaxAddressLength,
	})
}

// LicensePlate uppercases and keeps ASCII letters and digits, capped at
// MaxLicensePlateLength so long vanity plates still reach validation.
func LicensePlate(raw string) string {
	return upperCaser.String(Input(raw, Options{
		StripTags:  true,
		Disallowed: plateDisallowed,
		MaxLength:  MaxLicensePlateLength,
	}))
}

// FileName removes characters that are unsafe on common filesystems and any
// leading dots.
func FileName(raw string) string {
	s := Input(raw, Options{
		AllowHTML:  true,
		Disallowed: fileDisallowed,
	})
	s = strings.TrimLeft(s, ".")
	return truncate(strings.TrimSpace(s), MaxFileNameLength)
}

// UserContent escapes free-form text such as dispute reasons. Emoji are kept.
func UserContent(raw string) string {
	return Input(raw, Options{
		MaxLength: MaxUserContentLength,
	})
}

// SearchQuery escapes a ticket search term.
func SearchQuery(raw string) string {
	return Input(raw, Options{
		MaxLength: MaxSearchQueryLength,
	})
}

// Fields sanitizes each value with the sanitizer registered for its key.
// Keys without a sanitizer fall back to UserContent.
func Fields(values map[string]string, sanitizers map[string]Func) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		fn, ok := sanitizers[key]
		if !ok {
			fn = UserContent
		}
		out[key] = fn(value)
	}
	return out
}

// Presets maps preset names to field sanitizers.
var Presets = map[string]Func{
	"email":         Email,
	"password":      Password,
	"name":          Name,
	"phone":         Phone,
	"address":       Address,
	"license-plate": LicensePlate,
	"file-name":     FileName,
	"user-content":  UserContent,
	"search-query":  SearchQuery,
}
