package recipe

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
)

func edge(menuID, invID, qty string) domain.MenuItemIngredient {
	return domain.MenuItemIngredient{
		MenuItemID:      menuID,
		InventoryItemID: invID,
		QuantityPerMenu: decimal.RequireFromString(qty),
	}
}

func TestDeductionsSumsSharedIngredients(t *testing.T) {
	adobo := domain.MenuItem{ID: "menu-adobo", Name: "Chicken Adobo", Kind: domain.MenuKindRecipe}
	friedRice := domain.MenuItem{ID: "menu-rice", Name: "Garlic Fried Rice", Kind: domain.MenuKindRecipe}

	out, err := Deductions([]Line{
		{Menu: adobo, Quantity: 2, Edges: []domain.MenuItemIngredient{
			edge("menu-adobo", "inv-chicken", "300"),
			edge("menu-adobo", "inv-garlic", "15"),
		}},
		{Menu: friedRice, Quantity: 1, Edges: []domain.MenuItemIngredient{
			edge("menu-rice", "inv-rice", "1.5"),
			edge("menu-rice", "inv-garlic", "10"),
		}},
	})
	if err != nil {
		t.Fatalf("deductions failed: %v", err)
	}

	want := map[string]string{
		"inv-chicken": "600",
		"inv-garlic":  "40",
		"inv-rice":    "1.5",
	}
	if len(out) != len(want) {
		t.Fatalf("expected %d deductions, got %d", len(want), len(out))
	}
	for _, ded := range out {
		expected, ok := want[ded.InventoryItemID]
		if !ok {
			t.Fatalf("unexpected deduction for %s", ded.InventoryItemID)
		}
		if !ded.Quantity.Equal(decimal.RequireFromString(expected)) {
			t.Fatalf("expected %s of %s, got %s", expected, ded.InventoryItemID, ded.Quantity)
		}
	}
}

func TestDeductionsUnitItemMapsToOwnID(t *testing.T) {
	coke := domain.MenuItem{ID: "menu-coke", Name: "Coke in Can", Kind: domain.MenuKindUnit}

	out, err := Deductions([]Line{{Menu: coke, Quantity: 3}})
	if err != nil {
		t.Fatalf("deductions failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 deduction, got %d", len(out))
	}
	if out[0].InventoryItemID != "menu-coke" || !out[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3 units of menu-coke, got %s of %s", out[0].Quantity, out[0].InventoryItemID)
	}
}

func TestDeductionsFailsForRecipeItemWithoutEdges(t *testing.T) {
	dish := domain.MenuItem{ID: "menu-x", Name: "Mystery Ulam", Kind: domain.MenuKindRecipe}

	_, err := Deductions([]Line{{Menu: dish, Quantity: 1}})
	if !errors.Is(err, store.ErrMissingRecipe) {
		t.Fatalf("expected ErrMissingRecipe, got %v", err)
	}
}

func TestDeductionsRejectsNonPositiveQuantities(t *testing.T) {
	dish := domain.MenuItem{ID: "menu-adobo", Name: "Chicken Adobo", Kind: domain.MenuKindRecipe}

	_, err := Deductions([]Line{{Menu: dish, Quantity: 0, Edges: []domain.MenuItemIngredient{
		edge("menu-adobo", "inv-chicken", "300"),
	}}})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero quantity, got %v", err)
	}

	_, err = Deductions([]Line{{Menu: dish, Quantity: 1, Edges: []domain.MenuItemIngredient{
		edge("menu-adobo", "inv-chicken", "-5"),
	}}})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for negative edge, got %v", err)
	}
}
