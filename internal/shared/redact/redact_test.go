package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key       string
		sensitive bool
	}{
		{"password", true},
		{"confirmPassword", true},
		{"new_password", true},
		{"card_number", true},
		{"cardNumber", true},
		{"cvv", true},
		{"CVV", true},
		{"ssn", true},
		{"bank_account", true},
		{"routing-number", true},
		{"api_key", true},
		{"access_token", true},
		{"email", false},
		{"license_plate", false},
		{"shipping", false},
		{"amount_cents", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.sensitive, IsSensitiveKey(tt.key))
		})
	}
}

func TestMap(t *testing.T) {
	payload := map[string]any{
		"email":    "driver@example.com",
		"password": "Str0ng!Pass",
		"payment": map[string]any{
			"card_number":  "4539578763621486",
			"cvv":          "123",
			"amount_cents": 4500,
		},
		"notes":    "card was 4539 5787 6362 1486",
		"lookup":   "4539-5787-6362-1486",
		"ssn_like": []any{"123-45-6789", "ok"},
	}

	out := Map(payload)

	assert.Equal(t, "driver@example.com", out["email"])
	assert.Equal(t, Placeholder, out["password"])
	nested := out["payment"].(map[string]any)
	assert.Equal(t, Placeholder, nested["card_number"])
	assert.Equal(t, Placeholder, nested["cvv"])
	assert.Equal(t, 4500, nested["amount_cents"])
	assert.Equal(t, "card was 4539 5787 6362 1486", out["notes"])
	assert.Equal(t, Placeholder, out["lookup"])
	assert.Equal(t, []any{Placeholder, "ok"}, out["ssn_like"])

	// input untouched
	assert.Equal(t, "Str0ng!Pass", payload["password"])
	assert.Equal(t, "4539578763621486", payload["payment"].(map[string]any)["card_number"])
}

func TestMap_Nil(t *testing.T) {
	assert.Nil(t, Map(nil))
}

func TestJSON(t *testing.T) {
	out := JSON([]byte(`{"email":"a@b.co","password":"secret","nested":{"token":"abc"}}`))
	assert.Contains(t, out, `"password":"[REDACTED]"`)
	assert.Contains(t, out, `"token":"[REDACTED]"`)
	assert.Contains(t, out, `"email":"a@b.co"`)

	raw := JSON([]byte("number=4539578763621486&name=x"))
	assert.Equal(t, "number=[REDACTED]&name=x", raw)
}
