package checkout

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/example/lakehouse-shop/internal/domain/order"
)

// Payment methods offered at checkout
const (
	PaymentCredit = "credit"
	PaymentDebit  = "debit"
	PaymentPayPal = "paypal"
)

var paymentMethods = map[string]bool{
	PaymentCredit: true,
	PaymentDebit:  true,
	PaymentPayPal: true,
}

// Form is the customer-entered part of an order
type Form struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	Country       string `json:"country"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	PaymentMethod string `json:"paymentMethod"`
}

// ValidationError lists every invalid field, keyed by its JSON name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "invalid checkout form: " + strings.Join(parts, "; ")
}

// Validate returns a *ValidationError when any field is missing or malformed
func (f Form) Validate() error {
	fields := map[string]string{}

	required := []struct {
		name  string
		value string
	}{
		{"firstName", f.FirstName},
		{"lastName", f.LastName},
		{"email", f.Email},
		{"address", f.Address},
		{"country", f.Country},
		{"state", f.State},
		{"zip", f.Zip},
		{"paymentMethod", f.PaymentMethod},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields[r.name] = "is required"
		}
	}

	if _, ok := fields["email"]; !ok {
		if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != strings.TrimSpace(f.Email) {
			fields["email"] = "is not a valid email address"
		}
	}
	if _, ok := fields["paymentMethod"]; !ok && !paymentMethods[f.PaymentMethod] {
		fields["paymentMethod"] = "is not a supported payment method"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (f Form) customer() order.Customer {
	return order.Customer{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
	}
}

func (f Form) shipping() order.Shipping {
	return order.Shipping{
		Address: strings.TrimSpace(f.Address),
		Country: strings.TrimSpace(f.Country),
		State:   strings.TrimSpace(f.State),
		Zip:     strings.TrimSpace(f.Zip),
	}
}
