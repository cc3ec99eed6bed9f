package sanitize

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     Options
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "trims whitespace by default",
			input:    "  hello  ",
			expected: "hello",
		},
		{
			name:     "trim disabled",
			input:    "  hello  ",
			opts:     Options{TrimWhitespace: Bool(false), AllowHTML: true},
			expected: "  hello  ",
		},
		{
			name:     "removes null bytes",
			input:    "ab\x00cd",
			expected: "abcd",
		},
		{
			name:     "escapes html by default",
			input:    `<b>"hi" & 'bye'</b>`,
			expected: "&lt;b&gt;&quot;hi&quot; &amp; &#x27;bye&#x27;&lt;&#x2F;b&gt;",
		},
		{
			name:     "strips tags",
			input:    "<p>Hello <b>world</b></p>",
			opts:     Options{StripTags: true},
			expected: "Hello world",
		},
		{
			name:     "strips entity encoded tags",
			input:    "&lt;b&gt;bold&lt;/b&gt;",
			opts:     Options{StripTags: true},
			expected: "bold",
		},
		{
			name:     "removes script blocks when html allowed",
			input:    "a<script>alert(1)</script>b",
			opts:     Options{AllowHTML: true},
			expected: "ab",
		},
		{
			name:     "removes javascript uri",
			input:    "javascript:alert(1)",
			opts:     Options{AllowHTML: true},
			expected: "alert(1)",
		},
		{
			name:     "removes event handlers",
			input:    `<img src=x onerror=alert(1)>`,
			opts:     Options{AllowHTML: true},
			expected: `<img src=x alert(1)>`,
		},
		{
			name:     "removes emoji",
			input:    "ok 👍 done ✅",
			opts:     Options{RemoveEmojis: true},
			expected: "ok  done ",
		},
		{
			name:     "lowercases",
			input:    "MiXeD",
			opts:     Options{ConvertToLowercase: true},
			expected: "mixed",
		},
		{
			name:     "removes special characters",
			input:    "a-b_c!d e",
			opts:     Options{AllowHTML: true, RemoveSpecialChars: true},
			expected: "ab_cd e",
		},
		{
			name:     "applies disallowed pattern",
			input:    "abc123",
			opts:     Options{Disallowed: regexp.MustCompile(`\d`)},
			expected: "abc",
		},
		{
			name:     "truncates by rune",
			input:    "héllo wörld",
			opts:     Options{MaxLength: 5},
			expected: "héllo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Input(tt.input, tt.opts))
		})
	}
}

func TestInput_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"\x00\x00",
		"\xff\xfe\xfd",
		strings.Repeat("<", 5000),
		"<script><script>alert(1)</script>",
		"&&&&;;;;",
		"🚗🅿️🎫",
	}
	optionSets := []Options{
		{},
		{StripTags: true, RemoveEmojis: true, ConvertToLowercase: true, RemoveSpecialChars: true, MaxLength: 3},
		{AllowHTML: true, TrimWhitespace: Bool(false)},
	}

	for _, in := range inputs {
		for _, opts := range optionSets {
			assert.NotPanics(t, func() {
				_ = Input(in, opts)
			})
		}
	}
}

func TestValue(t *testing.T) {
	assert.Equal(t, "abc", Value(" abc ", Options{}))
	assert.Equal(t, "", Value(42, Options{}))
	assert.Equal(t, "", Value(nil, Options{}))
	assert.Equal(t, "", Value([]string{"a"}, Options{}))
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name     string
		fn       Func
		input    string
		expected string
	}{
		{"email lowercased and trimmed", Email, "  USER@Example.COM ", "user@example.com"},
		{"email strips tags", Email, "<b>a@b.co</b>", "a@b.co"},
		{"email keeps apostrophe", Email, "o'neil@example.com", "o'neil@example.com"},
		{"password keeps script tag", Password, "<script>Pa55!", "<script>Pa55!"},
		{"password keeps case and spaces", Password, " My Pass ", " My Pass "},
		{"password removes control bytes", Password, "pa\x00ss\x07word\n", "password"},
		{"name keeps apostrophe and hyphen", Name, "Mary-Jane O'Brien", "Mary-Jane O'Brien"},
		{"name removes digits and symbols", Name, "J0hn $mith", "Jhn mith"},
		{"phone keeps formatting", Phone, "+1 (555) 123-4567 ext", "+1 (555) 123-4567 "},
		{"address keeps punctuation", Address, "12 Main St., Apt #4", "12 Main St., Apt #4"},
		{"address removes markup", Address, "1 Elm <i>Rd</i>!", "1 Elm Rd"},
		{"license plate normalized", LicensePlate, "ab-12 cd!", "AB12CD"},
		{"license plate keeps vanity length", LicensePlate, "abcdefghij", "ABCDEFGHIJ"},
		{"license plate capped", LicensePlate, "abcdefghijklmnop", "ABCDEFGHIJKL"},
		{"file name unsafe chars", FileName, `../..\evil:name?.pdf`, "evilname.pdf"},
		{"file name leading dots", FileName, "...hidden.txt", "hidden.txt"},
		{"user content escaped", UserContent, "<i>hi</i> 🙂", "&lt;i&gt;hi&lt;&#x2F;i&gt; 🙂"},
		{"search query escaped", SearchQuery, "  a&b ", "a&amp;b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn(tt.input))
		})
	}
}

func TestEscapedTruncationKeepsEntities(t *testing.T) {
	tests := []struct {
		name     string
		fn       Func
		input    string
		expected string
	}{
		{"ampersand at the limit", UserContent, strings.Repeat("a", MaxUserContentLength-1) + "&b",
			strings.Repeat("a", MaxUserContentLength-1) + "&amp;"},
		{"apostrophe at the limit", UserContent, strings.Repeat("a", MaxUserContentLength-1) + "''",
			strings.Repeat("a", MaxUserContentLength-1) + "&#x27;"},
		{"only ampersands", UserContent, strings.Repeat("&", MaxUserContentLength+5),
			strings.Repeat("&amp;", MaxUserContentLength)},
		{"tag at the search limit", SearchQuery, strings.Repeat("q", MaxSearchQueryLength-1) + "<<",
			strings.Repeat("q", MaxSearchQueryLength-1) + "&lt;"},
		{"literal entity text", SearchQuery, "&amp;", "&amp;amp;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.NotRegexp(t, `&[#\w]*$`, got, "no entity is cut short")
		})
	}
}

func TestPresetLengthLimits(t *testing.T) {
	long := strings.Repeat("a", 2000)

	assert.Len(t, Email(long), MaxEmailLength)
	assert.Len(t, Name(long), MaxNameLength)
	assert.Len(t, Address(long), MaxAddressLength)
	assert.Len(t, FileName(long), MaxFileNameLength)
	assert.Len(t, UserContent(long), MaxUserContentLength)
	assert.Len(t, SearchQuery(long), MaxSearchQueryLength)
}

func TestFields(t *testing.T) {
	out := Fields(map[string]string{
		"email": " A@B.COM ",
		"plate": "xy 12",
		"notes": "<b>x</b>",
	}, map[string]Func{
		"email": Email,
		"plate": LicensePlate,
	})

	assert.Equal(t, "a@b.com", out["email"])
	assert.Equal(t, "XY12", out["plate"])
	assert.Equal(t, "&lt;b&gt;x&lt;&#x2F;b&gt;", out["notes"])
}
