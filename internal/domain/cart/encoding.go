package cart

import (
	"encoding/json"

	"github.com/example/lakehouse-shop/internal/domain/catalog"
)

// savedLine is what decodeLines reads back. The product is written in full
// but only its id is trusted on load.
type savedLine struct {
	Product struct {
		ID int `json:"id"`
	} `json:"product"`
	Quantity int `json:"quantity"`
}

func encodeLines(lines []Line) (string, error) {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeLines parses a stored cart and validates it against c. Entries
// whose id is not in the catalog or whose quantity is not positive are
// dropped; repeated ids are folded into the first line.
func decodeLines(raw string, c *catalog.Catalog) ([]Line, int, error) {
	var saved []savedLine
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, 0, err
	}

	lines := make([]Line, 0, len(saved))
	seen := make(map[int]int, len(saved)) // itemID -> index in lines
	dropped := 0
	for _, entry := range saved {
		item, ok := c.Get(entry.Product.ID)
		if !ok || entry.Quantity <= 0 {
			dropped++
			continue
		}
		if idx, dup := seen[item.ID]; dup {
			lines[idx].Quantity += entry.Quantity
			dropped++
			continue
		}
		seen[item.ID] = len(lines)
		lines = append(lines, Line{Item: item, Quantity: entry.Quantity})
	}
	return lines, dropped, nil
}
