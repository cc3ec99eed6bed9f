package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/pkg/contracts"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "plate", args: []string{"sanitize", "license-plate", " abc-1234 "}, want: "ABC1234\n"},
		{name: "email", args: []string{"sanitize", "email", "  Driver@Example.COM "}, want: "driver@example.com\n"},
		{name: "markup stripped", args: []string{"sanitize", "name", "<b>Jordan</b>"}, want: "Jordan\n"},
		{name: "unknown preset", args: []string{"sanitize", "shout", "x"}, wantErr: true},
		{name: "missing value", args: []string{"sanitize", "email"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  error
		contains string
	}{
		{name: "valid email", args: []string{"validate", "email", "driver@example.com"}, contains: "valid:"},
		{name: "invalid email", args: []string{"validate", "email", "not-an-email"}, wantErr: errInvalid, contains: "invalid:"},
		{name: "luhn card", args: []string{"validate", "card_number", "4539 5787 6362 1486"}, contains: "valid:"},
		{name: "bad card", args: []string{"validate", "card_number", "4539 5787 6362 1487"}, wantErr: errInvalid},
		{name: "plate with state", args: []string{"validate", "license_plate", "abc-1234", "--state", "CA"}, contains: `"ABC1234"`},
		{name: "required empty", args: []string{"validate", "required", "   "}, wantErr: errInvalid, contains: "error:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.contains != "" {
				assert.Contains(t, out, tt.contains)
			}
		})
	}

	_, err := execute(t, "validate", "telepathy", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errInvalid)
}

func TestValidateCommandJSON(t *testing.T) {
	out, err := execute(t, "validate", "phone", "12", "--required", "--json")
	assert.ErrorIs(t, err, errInvalid)

	var got struct {
		Value   string   `json:"value"`
		IsValid bool     `json:"isValid"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.IsValid)
	assert.NotEmpty(t, got.Errors)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, contracts.Version)

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info contracts.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, contracts.Version, info.Version)
	assert.Equal(t, contracts.APIVersion, info.APIVersion)
}
