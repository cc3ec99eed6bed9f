package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options parameterizes the Input pipeline.
type Options struct {
	// AllowHTML skips HTML neutralization entirely.
	AllowHTML bool
	// MaxLength truncates the result to this many runes when positive. An
	// escaped entity counts as the one character it stands for.
	MaxLength    int
	RemoveEmojis bool
	// TrimWhitespace defaults to true when nil.
	TrimWhitespace     *bool
	ConvertToLowercase bool
	RemoveSpecialChars bool
	// Disallowed removes every match from the value.
	Disallowed *regexp.Regexp
	// StripTags removes markup instead of escaping it.
	StripTags bool
}

// Bool returns a pointer to b, for use with Options.TrimWhitespace.
func Bool(b bool) *bool {
	return &b
}

// maxStripPasses bounds tag stripping of entity-encoded markup such as &lt;b&gt;.
const maxStripPasses = 3

var (
	strictPolicy = bluemonday.StrictPolicy()

	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)

	scriptBlockPattern  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	javascriptPattern   = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon\w+\s*=`)

	emojiPattern = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE0F}\x{200D}]`)

	specialCharsPattern = regexp.MustCompile(`[^\w\s]`)

	lowerCaser = cases.Lower(language.Und)
)

// Input runs raw through the sanitization pipeline described in the package
// documentation. It never panics and returns "" for empty input.
func Input(raw string, opts Options) string {
	if raw == "" {
		return ""
	}
	s := raw

	if opts.TrimWhitespace == nil || *opts.TrimWhitespace {
		s = strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "\x00", "")

	escaped := false
	if !opts.AllowHTML {
		if opts.StripTags {
			s = stripTags(s)
		} else {
			s = htmlEscaper.Replace(s)
			escaped = true
		}
	}

	s = scriptBlockPattern.ReplaceAllString(s, "")
	s = javascriptPattern.ReplaceAllString(s, "")
	s = eventHandlerPattern.ReplaceAllString(s, "")

	if opts.RemoveEmojis {
		s = emojiPattern.ReplaceAllString(s, "")
	}

	if opts.ConvertToLowercase {
		s = lowerCaser.String(s)
	}

	if opts.RemoveSpecialChars {
		s = specialCharsPattern.ReplaceAllString(s, "")
	}

	if opts.Disallowed != nil {
		s = opts.Disallowed.ReplaceAllString(s, "")
	}

	if opts.MaxLength > 0 {
		if escaped {
			s = truncateEscaped(s, opts.MaxLength)
		} else {
			s = truncate(s, opts.MaxLength)
		}
	}

	return s
}

// Value sanitizes v when it is a string and returns "" for anything else.
func Value(v any, opts Options) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Input(s, opts)
}

// stripTags removes all markup and returns plain text. Entity-encoded markup
// is decoded and stripped again so it cannot survive as literal tags.
func stripTags(s string) string {
	for i := 0; i < maxStripPasses; i++ {
		next := html.UnescapeString(strictPolicy.Sanitize(s))
		if next == s {
			break
		}
		s = next
	}
	if strings.ContainsAny(s, "<>") {
		s = strings.NewReplacer("<", "", ">", "").Replace(s)
	}
	return s
}

// maxEntityLength bounds the entities htmlEscaper emits, "&#x27;" being the longest
const maxEntityLength = 6

// truncateEscaped cuts escaped text to at most n characters. Each entity
// counts as one character and is kept or dropped whole.
func truncateEscaped(s string, n int) string {
	count := 0
	for i := 0; i < len(s); {
		if count == n {
			return s[:i]
		}
		size := entityLength(s[i:])
		if size == 0 {
			_, size = utf8.DecodeRuneInString(s[i:])
		}
		i += size
		count++
	}
	return s
}

// entityLength returns the byte length of the entity at the start of s, or
// 0 if s does not start with one.
func entityLength(s string) int {
	if len(s) < 3 || s[0] != '&' {
		return 0
	}
	end := strings.IndexByte(s[:min(len(s), maxEntityLength)], ';')
	if end < 2 {
		return 0
	}
	return end + 1
}

// truncate cuts s to at most n runes without splitting a multi-byte sequence.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
