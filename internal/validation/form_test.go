package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/shared/testutil"
)

func TestValidator_Form(t *testing.T) {
	v := NewValidator(&stubEmailOracle{verdict: EmailVerdict{FormatValid: true, Score: 1}}, nil)
	ctx := context.Background()

	t.Run("all fields valid", func(t *testing.T) {
		result := v.Form(ctx, map[string]any{
			"email": "driver@example.com",
			"plate": "ABC123",
		}, map[string]Rule{
			"email": v.EmailRule(DefaultEmailOptions()),
			"plate": StringRule(func(s string) Result { return LicensePlate(s, "") }),
		})

		assert.True(t, result.IsValid)
		assert.Empty(t, result.Errors)
	})

	t.Run("aggregates errors and warnings per field", func(t *testing.T) {
		result := v.Form(ctx, map[string]any{
			"password": "abc",
			"plate":    "ABCDEFGHIJ",
		}, map[string]Rule{
			"password": StringRule(func(s string) Result { return Password(s, DefaultPasswordOptions()) }),
			"plate":    StringRule(func(s string) Result { return LicensePlate(s, "NY") }),
			"name":     RequiredRule("Name"),
		})

		assert.False(t, result.IsValid)
		assert.Len(t, result.Errors["password"], 4)
		assert.Equal(t, []string{"Name is required"}, result.Errors["name"])
		assert.NotContains(t, result.Errors, "plate")
		assert.NotEmpty(t, result.Warnings["plate"])
	})

	t.Run("panicking rule is contained", func(t *testing.T) {
		result := v.Form(ctx, map[string]any{"field": "x", "other": "ok"}, map[string]Rule{
			"field": func(context.Context, any) (Result, error) {
				panic("boom")
			},
			"other": RequiredRule("Other"),
		})

		assert.False(t, result.IsValid)
		assert.Equal(t, map[string][]string{"field": {MsgValidationFailed}}, result.Errors)
	})

	t.Run("erroring rule becomes generic failure", func(t *testing.T) {
		result := v.Form(ctx, map[string]any{"field": "x"}, map[string]Rule{
			"field": func(context.Context, any) (Result, error) {
				return Result{}, errors.New("lookup failed")
			},
		})

		assert.Equal(t, FormResult{
			IsValid:  false,
			Errors:   map[string][]string{"field": {MsgValidationFailed}},
			Warnings: map[string][]string{},
		}, result)
	})

	t.Run("wrong value type", func(t *testing.T) {
		result := v.Form(ctx, map[string]any{"plate": 42}, map[string]Rule{
			"plate": StringRule(func(s string) Result { return LicensePlate(s, "") }),
		})
		assert.Equal(t, []string{MsgValidationFailed}, result.Errors["plate"])
	})
}

func TestValidator_Form_LogsPanics(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	v := NewValidator(nil, logger)

	v.Form(context.Background(), map[string]any{}, map[string]Rule{
		"card": func(context.Context, any) (Result, error) { panic("bad rule") },
	})

	require.True(t, handler.ContainsMessage("validation rule panicked"))
	assert.True(t, handler.ContainsAttr("field", "card"))
}

func TestFormResult_FirstErrors(t *testing.T) {
	f := FormResult{Errors: map[string][]string{"a": {"first", "second"}}}
	assert.Equal(t, []string{"first"}, f.FirstErrors())
}
