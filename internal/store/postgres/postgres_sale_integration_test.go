package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
)

func TestSaleVoidRestoresStock(t *testing.T) {
	databaseURL := os.Getenv("KUSINAPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set KUSINAPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	invID := fmt.Sprintf("inv-it-%d", stamp)
	menuID := fmt.Sprintf("menu-it-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)
	receipt := fmt.Sprintf("OR-IT-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_transactions WHERE inventory_item_id = $1`, invID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM menu_item_ingredients WHERE menu_item_id = $1`, menuID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, menuID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, invID)
	})

	opening := decimal.RequireFromString("1000")
	item := domain.InventoryItem{
		ID:             invID,
		Name:           fmt.Sprintf("Chicken Cuts IT %d", stamp),
		Unit:           "g",
		QuantityOnHand: opening,
		CostPerUnit:    decimal.RequireFromString("0.35"),
		ReorderLevel:   decimal.RequireFromString("200"),
	}
	if _, err := s.CreateInventoryItem(ctx, item, &domain.InventoryTransaction{
		QuantityChange:    opening,
		CostAtTransaction: item.CostPerUnit,
		Remarks:           "integration opening stock",
		PerformedBy:       "system",
	}); err != nil {
		t.Fatalf("create inventory item: %v", err)
	}

	menu := domain.MenuItem{
		ID:         menuID,
		Name:       fmt.Sprintf("Adobo IT %d", stamp),
		Category:   "ulam",
		PriceCents: 12000,
		Kind:       domain.MenuKindRecipe,
	}
	edges := []domain.MenuItemIngredient{
		{MenuItemID: menuID, InventoryItemID: invID, QuantityPerMenu: decimal.RequireFromString("300")},
	}
	if _, err := s.CreateMenuItem(ctx, menu, edges); err != nil {
		t.Fatalf("create menu item: %v", err)
	}

	sale := domain.Sale{
		ID:              saleID,
		ReceiptNumber:   receipt,
		CashierName:     "maria",
		SubtotalCents:   24000,
		TotalCents:      24000,
		PaymentMethod:   "cash",
		AmountPaidCents: 25000,
		ChangeCents:     1000,
		Items: []domain.SaleItem{
			{MenuItemID: menuID, MenuItemName: menu.Name, Quantity: 2, UnitPriceCents: 12000, LineTotalCents: 24000},
		},
	}
	deductions := []store.StockDeduction{
		{InventoryItemID: invID, Quantity: decimal.RequireFromString("600")},
	}
	if _, err := s.CompleteSale(ctx, sale, deductions, true); err != nil {
		t.Fatalf("complete sale: %v", err)
	}

	got, err := s.GetInventoryItem(ctx, invID)
	if err != nil {
		t.Fatalf("get inventory item: %v", err)
	}
	if want := decimal.RequireFromString("400"); !got.QuantityOnHand.Equal(want) {
		t.Fatalf("expected %s on hand after sale, got %s", want, got.QuantityOnHand)
	}

	// Same receipt number again must be rejected without touching stock.
	dup := sale
	dup.ID = ""
	if _, err := s.CompleteSale(ctx, dup, deductions, true); !errors.Is(err, store.ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt, got %v", err)
	}

	at := time.Now().UTC()
	voided, err := s.VoidSale(ctx, saleID, "integration test void", "admin", at)
	if err != nil {
		t.Fatalf("void sale: %v", err)
	}
	if voided.Status != domain.SaleStatusVoided {
		t.Fatalf("expected status voided, got %s", voided.Status)
	}

	got, err = s.GetInventoryItem(ctx, invID)
	if err != nil {
		t.Fatalf("get inventory item after void: %v", err)
	}
	if !got.QuantityOnHand.Equal(opening) {
		t.Fatalf("expected stock restored to %s after void, got %s", opening, got.QuantityOnHand)
	}

	// Ledger must reconcile: on-hand equals the sum of its entries.
	balances, err := s.LedgerBalances(ctx)
	if err != nil {
		t.Fatalf("ledger balances: %v", err)
	}
	for _, b := range balances {
		if b.InventoryItemID == invID && !b.Drift.IsZero() {
			t.Fatalf("ledger drift for %s: %s", invID, b.Drift)
		}
	}

	if _, err := s.VoidSale(ctx, saleID, "second void", "admin", at); !errors.Is(err, store.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on double void, got %v", err)
	}
}
