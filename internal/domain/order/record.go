package order

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const EventType = "order"

type Status string

const StatusPending Status = "PENDING"

var ErrEmptyOrder = errors.New("order must have at least one item")

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type Shipping struct {
	Address string `json:"address"`
	Country string `json:"country"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

type LineItem struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Record is the order event handed to the submission gateway. It is built
// once per checkout attempt and never modified.
type Record struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`
	Customer      Customer        `json:"customer"`
	Shipping      Shipping        `json:"shipping"`
	Items         []LineItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	OrderDate     string          `json:"order_date"` // YYYY-MM-DD, for partitioning downstream
}

// NewID returns a time-derived order id. Two ids built in the same
// millisecond collide; callers accept that.
func NewID(t time.Time) string {
	return "order_" + strconv.FormatInt(t.UnixMilli(), 10)
}

// Build creates a pending order record. Subtotals and the total are
// computed from each item's price and quantity; any Subtotal passed in is
// ignored.
func Build(now time.Time, items []LineItem, customer Customer, shipping Shipping, paymentMethod string) (*Record, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	lineItems := make([]LineItem, len(items))
	total := decimal.Zero
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: quantity must be positive", item.ProductID)
		}
		item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)
		lineItems[i] = item
	}

	now = now.UTC()
	return &Record{
		ID:            NewID(now),
		Type:          EventType,
		Timestamp:     now,
		Customer:      customer,
		Shipping:      shipping,
		Items:         lineItems,
		Total:         total,
		Status:        StatusPending,
		PaymentMethod: paymentMethod,
		OrderDate:     now.Format(time.DateOnly),
	}, nil
}

// LookupQuery returns the Trino query that finds this order on the events topic
func (r *Record) LookupQuery(topic string) string {
	return fmt.Sprintf("SELECT * FROM kafka.default.%s WHERE _message LIKE '%%%s%%' LIMIT 10;", topic, r.ID)
}
