package projection

import (
	"fmt"

	"github.com/example/lakehouse-shop/internal/domain/cart"
)

const emptyMessage = "Your cart is empty"

// LineView is one row of the main cart panel
type LineView struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// CartView is the main cart panel
type CartView struct {
	Lines           []LineView `json:"items"`
	ItemCount       int        `json:"item_count"`
	Total           string     `json:"total"`
	Empty           bool       `json:"empty"`
	Message         string     `json:"message,omitempty"`
	CheckoutEnabled bool       `json:"checkout_enabled"`
}

// CompactLineView is one row of the overlay, e.g. "249.99 × 2"
type CompactLineView struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	LineTotal string `json:"line_total"`
}

// CompactView is the overlay cart
type CompactView struct {
	Lines           []CompactLineView `json:"items"`
	Total           string            `json:"total"`
	Empty           bool              `json:"empty"`
	Message         string            `json:"message,omitempty"`
	CheckoutEnabled bool              `json:"checkout_enabled"`
}

// Views is the pair rendered from a single snapshot
type Views struct {
	Full    CartView    `json:"full"`
	Compact CompactView `json:"compact"`
}

// Render builds both views from the same snapshot so their totals agree
func Render(snap cart.Snapshot) Views {
	return Views{
		Full:    Full(snap),
		Compact: Compact(snap),
	}
}

func Full(snap cart.Snapshot) CartView {
	view := CartView{
		Lines:           make([]LineView, 0, len(snap.Lines)),
		ItemCount:       snap.ItemCount(),
		Total:           money(snap),
		Empty:           snap.IsEmpty(),
		CheckoutEnabled: !snap.IsEmpty(),
	}
	if view.Empty {
		view.Message = emptyMessage
	}
	for _, line := range snap.Lines {
		view.Lines = append(view.Lines, LineView{
			ProductID: line.Item.ID,
			Name:      line.Item.Name,
			UnitPrice: line.Item.Price.StringFixed(2),
			Quantity:  line.Quantity,
			LineTotal: line.Subtotal().StringFixed(2),
		})
	}
	return view
}

func Compact(snap cart.Snapshot) CompactView {
	view := CompactView{
		Lines:           make([]CompactLineView, 0, len(snap.Lines)),
		Total:           money(snap),
		Empty:           snap.IsEmpty(),
		CheckoutEnabled: !snap.IsEmpty(),
	}
	if view.Empty {
		view.Message = emptyMessage
	}
	for _, line := range snap.Lines {
		view.Lines = append(view.Lines, CompactLineView{
			ProductID: line.Item.ID,
			Name:      line.Item.Name,
			Label:     fmt.Sprintf("%s × %d", line.Item.Price.StringFixed(2), line.Quantity),
			LineTotal: line.Subtotal().StringFixed(2),
		})
	}
	return view
}

func money(snap cart.Snapshot) string {
	return snap.Total().StringFixed(2)
}
