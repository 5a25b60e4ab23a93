package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidForm(t *testing.T) {
	assert.NoError(t, validForm().Validate())
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Form)
		expected string
	}{
		{"missing first name", func(f *Form) { f.FirstName = "" }, "firstName"},
		{"blank last name", func(f *Form) { f.LastName = "   " }, "lastName"},
		{"missing address", func(f *Form) { f.Address = "" }, "address"},
		{"missing country", func(f *Form) { f.Country = "" }, "country"},
		{"missing state", func(f *Form) { f.State = "" }, "state"},
		{"missing zip", func(f *Form) { f.Zip = "" }, "zip"},
		{"missing email", func(f *Form) { f.Email = "" }, "email"},
		{"malformed email", func(f *Form) { f.Email = "ada@" }, "email"},
		{"display name email", func(f *Form) { f.Email = "Ada <ada@example.com>" }, "email"},
		{"missing payment", func(f *Form) { f.PaymentMethod = "" }, "paymentMethod"},
		{"unknown payment", func(f *Form) { f.PaymentMethod = "bitcoin" }, "paymentMethod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			err := form.Validate()

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Len(t, vErr.Fields, 1)
			assert.Contains(t, vErr.Fields, tt.expected)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := (&Form{}).Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid checkout form: address: is required;")
}
