package catalog

import "github.com/shopspring/decimal"

// Item is a purchasable product. Items never change after the catalog is built.
type Item struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

// Catalog is the fixed set of items known to the shop
type Catalog struct {
	items []Item
	byID  map[int]int // itemID -> index in items
}

// New builds a catalog. When two items share an id the first one wins.
func New(items ...Item) *Catalog {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[int]int, len(items)),
	}
	for _, item := range items {
		if _, exists := c.byID[item.ID]; exists {
			continue
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c
}

// Get returns the item with the given id
func (c *Catalog) Get(id int) (Item, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

func (c *Catalog) Contains(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// Items returns a copy of all items in catalog order
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int { return len(c.items) }

// Default returns the demo shop's product list
func Default() *Catalog {
	return New(
		Item{
			ID:          1,
			Name:        "Laptop Pro X",
			Description: "Powerful laptop for professionals with high-performance specs",
			Price:       decimal.RequireFromString("1299.99"),
			Image:       "https://images.unsplash.com/photo-1496181133206-80ce9b88a853?q=80&w=500",
		},
		Item{
			ID:          2,
			Name:        "Smartphone Z",
			Description: "Latest smartphone with cutting-edge camera and battery life",
			Price:       decimal.RequireFromString("899.99"),
			Image:       "https://images.unsplash.com/photo-1598327105666-5b89351aff97?q=80&w=500",
		},
		Item{
			ID:          3,
			Name:        "Wireless Headphones",
			Description: "Premium noise-canceling wireless headphones",
			Price:       decimal.RequireFromString("249.99"),
			Image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?q=80&w=500",
		},
		Item{
			ID:          4,
			Name:        "Smart Watch",
			Description: "Track fitness and stay connected with this smartwatch",
			Price:       decimal.RequireFromString("199.99"),
			Image:       "https://images.unsplash.com/photo-1579586337278-3befd40fd17a?q=80&w=500",
		},
		Item{
			ID:          5,
			Name:        "Tablet Ultra",
			Description: "Thin and light tablet with stunning display",
			Price:       decimal.RequireFromString("499.99"),
			Image:       "https://images.unsplash.com/photo-1544244015-0df4b3ffc6b0?q=80&w=500",
		},
		Item{
			ID:          6,
			Name:        "Wireless Earbuds",
			Description: "Compact earbuds with amazing sound quality",
			Price:       decimal.RequireFromString("129.99"),
			Image:       "https://images.unsplash.com/photo-1606220588913-b3aacb4d2f37?q=80&w=500",
		},
	)
}
