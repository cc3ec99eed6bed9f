// Package redact removes credentials, payment card data and government or
// bank identifiers from payloads before they reach a log sink.
package redact

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Placeholder replaces every redacted value
const Placeholder = "[REDACTED]"

// maxDepth stops recursion into pathologically nested payloads
const maxDepth = 16

var (
	// Keys are compared after lowercasing and removing '_' and '-'
	sensitiveKeyParts = []string{
		"password", "passwd", "secret", "token", "apikey", "authorization",
		"cardnumber", "creditcard", "bankaccount", "accountnumber",
		"routingnumber", "socialsecurity",
	}
	sensitiveKeys = map[string]struct{}{
		"pin": {}, "cvv": {}, "cvc": {}, "ssn": {}, "iban": {}, "card": {}, "pan": {},
	}

	cardValuePattern  = regexp.MustCompile(`^\d(?:[ -]?\d){12,18}$`)
	ssnValuePattern   = regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`)
	cardInTextPattern = regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`)
)

// IsSensitiveKey reports whether values under key must never be logged
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// Map returns a deep copy of payload with sensitive keys and card or SSN
// shaped string values replaced by Placeholder. The input is not modified.
func Map(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	return redactMap(payload, 0)
}

func redactMap(in map[string]any, depth int) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if IsSensitiveKey(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = redactValue(v, depth+1)
	}
	return out
}

func redactValue(v any, depth int) any {
	if depth > maxDepth {
		return Placeholder
	}
	switch val := v.(type) {
	case map[string]any:
		return redactMap(val, depth)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return redactMap(m, depth)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item, depth+1)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item, depth+1)
		}
		return out
	case string:
		return String(val)
	}
	return v
}

// String redacts a lone value that looks like a card number or SSN
func String(s string) string {
	trimmed := strings.TrimSpace(s)
	if cardValuePattern.MatchString(trimmed) || ssnValuePattern.MatchString(trimmed) {
		return Placeholder
	}
	return s
}

// JSON redacts a raw request body. JSON objects are redacted field by field.
// Anything else has card-like digit runs masked.
func JSON(body []byte) string {
	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		if sanitized, err := json.Marshal(redactValue(data, 0)); err == nil {
			return string(sanitized)
		}
	}
	return cardInTextPattern.ReplaceAllString(string(body), Placeholder)
}
