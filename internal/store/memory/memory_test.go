package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
)

func TestCreateInventoryItemRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateInventoryItem(ctx, domain.InventoryItem{
		Name: "CHICKEN cuts", Unit: "g",
	}, nil)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected duplicate name to be rejected, got %v", err)
	}
}

func TestGetInventoryItemByNameIsCaseInsensitive(t *testing.T) {
	s := NewSeeded()

	item, err := s.GetInventoryItemByName(context.Background(), "chicken CUTS")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if item.ID != "inv-chicken-01" {
		t.Fatalf("expected inv-chicken-01, got %s", item.ID)
	}
}

func TestUpdateInventoryItemNeverMovesStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	current, err := s.GetInventoryItem(ctx, "inv-rice-01")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	edited := *current
	edited.Name = "Steamed Rice (Jasmine)"
	edited.QuantityOnHand = decimal.RequireFromString("99999")
	updated, err := s.UpdateInventoryItem(ctx, edited)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.QuantityOnHand.Equal(current.QuantityOnHand) {
		t.Fatalf("expected quantity untouched by metadata update, got %s", updated.QuantityOnHand)
	}
	if updated.Name != "Steamed Rice (Jasmine)" {
		t.Fatalf("expected renamed item, got %s", updated.Name)
	}
}

func TestVoidRestoresEveryLedgeredDeduction(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		ReceiptNumber: "OR-M-1",
		CashierName:   "ana",
		TotalCents:    12000,
		PaymentMethod: "cash",
		Items: []domain.SaleItem{
			{MenuItemID: "menu-adobo-01", MenuItemName: "Chicken Adobo", Quantity: 1, UnitPriceCents: 12000, LineTotalCents: 12000},
		},
	}
	deductions := []store.StockDeduction{
		{InventoryItemID: "inv-chicken-01", Quantity: decimal.RequireFromString("300")},
		{InventoryItemID: "inv-garlic-01", Quantity: decimal.RequireFromString("15")},
	}
	created, err := s.CompleteSale(ctx, sale, deductions, true)
	if err != nil {
		t.Fatalf("complete sale failed: %v", err)
	}

	if _, err := s.VoidSale(ctx, created.ID, "test", "manager", time.Now().UTC()); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	chicken, _ := s.GetInventoryItem(ctx, "inv-chicken-01")
	if !chicken.QuantityOnHand.Equal(decimal.RequireFromString("8000")) {
		t.Fatalf("expected chicken restored, got %s", chicken.QuantityOnHand)
	}
	garlic, _ := s.GetInventoryItem(ctx, "inv-garlic-01")
	if !garlic.QuantityOnHand.Equal(decimal.RequireFromString("900")) {
		t.Fatalf("expected garlic restored, got %s", garlic.QuantityOnHand)
	}

	entries, err := s.ListInventoryTransactions(ctx, store.LedgerFilter{SaleID: created.ID, Reason: domain.ReasonVoid})
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if len(entries) != len(deductions) {
		t.Fatalf("expected %d void entries, got %d", len(deductions), len(entries))
	}
}

// TestReconciliationHoldsUnderRandomOperationMix drives a fixed-seed random
// sequence of sales, voids and bulk adjustments and asserts the invariant the
// ledger exists for: per item, sum of entries equals quantity on hand.
func TestReconciliationHoldsUnderRandomOperationMix(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(20260831))

	completed := make([]string, 0, 32)
	for i := 0; i < 200; i++ {
		switch rng.Intn(4) {
		case 0, 1: // sale of 1-2 adobo, shortage-blocked
			qty := int64(1 + rng.Intn(2))
			sale := domain.Sale{
				ReceiptNumber: fmt.Sprintf("OR-RAND-%d", i),
				CashierName:   "ana",
				TotalCents:    12000 * qty,
				PaymentMethod: "cash",
				Items: []domain.SaleItem{
					{MenuItemID: "menu-adobo-01", MenuItemName: "Chicken Adobo", Quantity: int(qty), UnitPriceCents: 12000, LineTotalCents: 12000 * qty},
				},
			}
			deductions := []store.StockDeduction{
				{InventoryItemID: "inv-chicken-01", Quantity: decimal.NewFromInt(300 * qty)},
				{InventoryItemID: "inv-garlic-01", Quantity: decimal.NewFromInt(15 * qty)},
			}
			created, err := s.CompleteSale(ctx, sale, deductions, true)
			if err != nil {
				if errors.Is(err, store.ErrInsufficientStock) {
					continue
				}
				t.Fatalf("op %d: sale failed: %v", i, err)
			}
			completed = append(completed, created.ID)
		case 2: // void a previously completed sale
			if len(completed) == 0 {
				continue
			}
			idx := rng.Intn(len(completed))
			_, err := s.VoidSale(ctx, completed[idx], "random mix", "manager", time.Now().UTC())
			if err != nil && !errors.Is(err, store.ErrInvalidStateTransition) {
				t.Fatalf("op %d: void failed: %v", i, err)
			}
		case 3: // restock chicken
			chicken, err := s.GetInventoryItem(ctx, "inv-chicken-01")
			if err != nil {
				t.Fatalf("op %d: get chicken failed: %v", i, err)
			}
			count := chicken.QuantityOnHand.Add(decimal.NewFromInt(int64(100 + rng.Intn(500))))
			_, _, err = s.ApplyInventoryChanges(ctx, []store.InventoryChange{
				{InventoryItemID: "inv-chicken-01", NewQuantityOnHand: count},
			}, domain.ReasonStockIn, "random mix", "admin")
			if err != nil {
				t.Fatalf("op %d: stock_in failed: %v", i, err)
			}
		}
	}

	balances, err := s.LedgerBalances(ctx)
	if err != nil {
		t.Fatalf("ledger balances failed: %v", err)
	}
	for _, b := range balances {
		if !b.Drift.IsZero() {
			t.Fatalf("drift for %s after random mix: %s (on hand %s, ledger %s)", b.Name, b.Drift, b.QuantityOnHand, b.LedgerTotal)
		}
	}
}

func TestApplyInventoryChangesRefusesNegativeCount(t *testing.T) {
	s := NewSeeded()

	_, _, err := s.ApplyInventoryChanges(context.Background(), []store.InventoryChange{
		{InventoryItemID: "inv-egg-01", NewQuantityOnHand: decimal.RequireFromString("-100")},
	}, domain.ReasonWaste, "", "admin")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected negative count to be refused, got %v", err)
	}
}

// TestApplyInventoryChangesDiffsAgainstCurrentStock pins the counted quantity
// as the value that persists: stock moved by a sale after the count was
// submitted must not leak into the result.
func TestApplyInventoryChangesDiffsAgainstCurrentStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		ReceiptNumber: "OR-M-2",
		CashierName:   "ana",
		TotalCents:    12000,
		PaymentMethod: "cash",
		Items: []domain.SaleItem{
			{MenuItemID: "menu-adobo-01", MenuItemName: "Chicken Adobo", Quantity: 1, UnitPriceCents: 12000, LineTotalCents: 12000},
		},
	}
	deductions := []store.StockDeduction{
		{InventoryItemID: "inv-garlic-01", Quantity: decimal.RequireFromString("15")},
	}
	if _, err := s.CompleteSale(ctx, sale, deductions, true); err != nil {
		t.Fatalf("complete sale failed: %v", err)
	}

	// Garlic was counted at 1500 before the sale took its 15g. The store
	// diffs against the post-sale 885, so the ledger delta is 615 and the
	// persisted quantity is exactly the count.
	applied, _, err := s.ApplyInventoryChanges(ctx, []store.InventoryChange{
		{InventoryItemID: "inv-garlic-01", NewQuantityOnHand: decimal.RequireFromString("1500")},
	}, domain.ReasonStockIn, "weekly count", "admin")
	if err != nil {
		t.Fatalf("bulk change failed: %v", err)
	}
	if len(applied) != 1 || !applied[0].QuantityChange.Equal(decimal.RequireFromString("615")) {
		t.Fatalf("expected ledger delta 615, got %+v", applied)
	}

	garlic, err := s.GetInventoryItem(ctx, "inv-garlic-01")
	if err != nil {
		t.Fatalf("get garlic failed: %v", err)
	}
	if !garlic.QuantityOnHand.Equal(decimal.RequireFromString("1500")) {
		t.Fatalf("expected counted quantity 1500 to persist, got %s", garlic.QuantityOnHand)
	}

	balances, err := s.LedgerBalances(ctx)
	if err != nil {
		t.Fatalf("ledger balances failed: %v", err)
	}
	for _, b := range balances {
		if b.Name == "Garlic" && !b.Drift.IsZero() {
			t.Fatalf("drift for garlic after count: %s", b.Drift)
		}
	}
}
