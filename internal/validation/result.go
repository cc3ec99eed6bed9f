package validation

import "strings"

// Result describes the outcome of validating a single value
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// Valid returns a passing result
func Valid() Result {
	return Result{IsValid: true, Errors: []string{}}
}

// Invalid returns a failing result carrying the given messages
func Invalid(messages ...string) Result {
	return Result{IsValid: false, Errors: append([]string{}, messages...)}
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Message joins the errors into a single user-facing string
func (r Result) Message() string {
	return strings.Join(r.Errors, ", ")
}

// Merge combines several results. The merged result is valid only if all are.
func Merge(results ...Result) Result {
	merged := Valid()
	for _, r := range results {
		for _, e := range r.Errors {
			merged.addError(e)
		}
		if !r.IsValid {
			merged.IsValid = false
		}
		merged.Warnings = append(merged.Warnings, r.Warnings...)
	}
	return merged
}
