package scheduler

import (
	"maps"
	"slices"
)

// Inventory maps equipment labels to fixed stock counts. It is immutable once built.
type Inventory struct {
	stock map[string]int
}

// NewInventory copies stock into a new Inventory.
func NewInventory(stock map[string]int) Inventory {
	return Inventory{stock: maps.Clone(stock)}
}

// DefaultInventory returns the stock the rehearsal studio ships with.
func DefaultInventory() Inventory {
	return NewInventory(map[string]int{
		"ベーアン":   3,
		"キーボード":  3,
		"スプラッシュ": 3,
		"ハイハット":  3,
	})
}

// Stock returns the stock for item; unknown items have zero stock.
func (i Inventory) Stock(item string) int {
	return i.stock[item]
}

// Items lists the known equipment labels in sorted order.
func (i Inventory) Items() []string {
	return slices.Sorted(maps.Keys(i.stock))
}

// Len returns the number of known equipment labels.
func (i Inventory) Len() int {
	return len(i.stock)
}
