package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MsgValidationFailed replaces the output of a rule that errored or panicked
const MsgValidationFailed = "Validation failed"

// maxConcurrentRules bounds the goroutines started by one Form call
const maxConcurrentRules = 8

// Rule validates a single form field
type Rule func(ctx context.Context, value any) (Result, error)

// FormResult aggregates per-field results. Only fields with errors or
// warnings appear in the maps.
type FormResult struct {
	IsValid  bool                `json:"isValid"`
	Errors   map[string][]string `json:"errors"`
	Warnings map[string][]string `json:"warnings,omitempty"`
}

// FirstErrors returns the first error of each failing field, ordered by field name
func (f FormResult) FirstErrors() []string {
	fields := make([]string, 0, len(f.Errors))
	for field := range f.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if errs := f.Errors[field]; len(errs) > 0 {
			out = append(out, errs[0])
		}
	}
	return out
}

// Message joins the first error of each failing field
func (f FormResult) Message() string {
	return strings.Join(f.FirstErrors(), ", ")
}

// StringRule adapts a synchronous string validator into a Rule. Missing
// values are validated as "".
func StringRule(fn func(string) Result) Rule {
	return func(_ context.Context, value any) (Result, error) {
		if value == nil {
			return fn(""), nil
		}
		s, ok := value.(string)
		if !ok {
			return Result{}, fmt.Errorf("expected string, got %T", value)
		}
		return fn(s), nil
	}
}

// RequiredRule adapts Required into a Rule
func RequiredRule(fieldName string) Rule {
	return func(_ context.Context, value any) (Result, error) {
		return Required(value, fieldName), nil
	}
}

// Form runs every rule against its field concurrently. A rule that returns
// an error or panics yields MsgValidationFailed for its field and never
// affects other fields.
func (v *Validator) Form(ctx context.Context, data map[string]any, rules map[string]Rule) FormResult {
	out := FormResult{
		IsValid:  true,
		Errors:   make(map[string][]string),
		Warnings: make(map[string][]string),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRules)

	for field, rule := range rules {
		g.Go(func() error {
			res := v.runRule(gctx, field, rule, data[field])

			mu.Lock()
			defer mu.Unlock()
			if len(res.Errors) > 0 {
				out.Errors[field] = res.Errors
			} else if !res.IsValid {
				out.Errors[field] = []string{MsgValidationFailed}
			}
			if len(res.Warnings) > 0 {
				out.Warnings[field] = res.Warnings
			}
			return nil
		})
	}
	_ = g.Wait()

	out.IsValid = len(out.Errors) == 0
	return out
}

func (v *Validator) runRule(ctx context.Context, field string, rule Rule, value any) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			v.logger.ErrorContext(ctx, "validation rule panicked",
				slog.String("field", field),
				slog.Any("panic", rec))
			res = Invalid(MsgValidationFailed)
		}
	}()

	if rule == nil {
		return Valid()
	}

	res, err := rule(ctx, value)
	if err != nil {
		v.logger.WarnContext(ctx, "validation rule failed",
			slog.String("field", field),
			slog.String("error", err.Error()))
		return Invalid(MsgValidationFailed)
	}
	return res
}
