// Package recipe expands sold menu items into the raw-ingredient quantities a
// sale must take from stock. It is pure computation; persistence and stock
// checks belong to the store.
package recipe

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
)

// Line is one sold menu item with its recipe edges already loaded.
type Line struct {
	Menu     domain.MenuItem
	Edges    []domain.MenuItemIngredient
	Quantity int
}

// Deductions expands sale lines into per-ingredient stock deductions. The same
// ingredient across several lines is summed into one deduction, so a sale of
// adobo plus fried rice takes garlic once with the combined quantity.
//
// A unit-kind item with no edges maps one-for-one onto the inventory item with
// the same ID. A recipe-kind item with no edges is a configuration fault and
// fails hard rather than silently skipping the deduction.
func Deductions(lines []Line) ([]store.StockDeduction, error) {
	totals := make(map[string]decimal.Decimal)

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %q must be positive", store.ErrValidation, line.Menu.Name)
		}
		sold := decimal.NewFromInt(int64(line.Quantity))

		if len(line.Edges) == 0 {
			if line.Menu.Kind == domain.MenuKindRecipe {
				return nil, fmt.Errorf("%w: %s", store.ErrMissingRecipe, line.Menu.Name)
			}
			totals[line.Menu.ID] = totals[line.Menu.ID].Add(sold)
			continue
		}

		for _, edge := range line.Edges {
			if edge.QuantityPerMenu.Sign() <= 0 {
				return nil, fmt.Errorf("%w: recipe edge %s->%s has non-positive quantity", store.ErrValidation, line.Menu.ID, edge.InventoryItemID)
			}
			totals[edge.InventoryItemID] = totals[edge.InventoryItemID].Add(edge.QuantityPerMenu.Mul(sold))
		}
	}

	out := make([]store.StockDeduction, 0, len(totals))
	for id, qty := range totals {
		out = append(out, store.StockDeduction{InventoryItemID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InventoryItemID < out[j].InventoryItemID })
	return out, nil
}
