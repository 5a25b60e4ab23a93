package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Summary builds the plain-text confirmation shown after a successful order
func (r *Record) Summary() string {
	var b strings.Builder

	b.WriteString("Order Placed Successfully!\n")
	b.WriteString("Your order has been received and will be processed soon.\n\n")
	fmt.Fprintf(&b, "Order ID:     %s\n", r.ID)
	fmt.Fprintf(&b, "Total Amount: $%s\n", FormatMoney(r.Total))
	fmt.Fprintf(&b, "Order Date:   %s\n\n", r.Timestamp.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("Ordered Items:\n")
	for _, item := range r.Items {
		fmt.Fprintf(&b, "  %s × %d  $%s\n", item.ProductName, item.Quantity, FormatMoney(item.Subtotal))
	}

	b.WriteString("\nShipping to:\n")
	fmt.Fprintf(&b, "  %s %s\n", r.Customer.FirstName, r.Customer.LastName)
	fmt.Fprintf(&b, "  %s\n", r.Shipping.Address)
	fmt.Fprintf(&b, "  %s, %s\n", r.Shipping.State, r.Shipping.Zip)
	fmt.Fprintf(&b, "  %s\n", r.Shipping.Country)

	return b.String()
}

// FormatMoney formats d with two decimals and comma separators, e.g. 1,299.99
func FormatMoney(d decimal.Decimal) string {
	str := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(str, ".")

	var result strings.Builder
	if d.IsNegative() {
		result.WriteString("-")
	}

	remainder := len(intPart) % 3
	if remainder > 0 {
		result.WriteString(intPart[:remainder])
		if len(intPart) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(intPart); i += 3 {
		result.WriteString(intPart[i : i+3])
		if i+3 < len(intPart) {
			result.WriteString(",")
		}
	}

	result.WriteString(".")
	result.WriteString(frac)
	return result.String()
}
