package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/xid"
)

// Store is an in-memory Repository for dev, demo and tests. A single mutex
// per store makes every mutating method one atomic unit, mirroring the
// serializable transactions of the postgres store.
type Store struct {
	mu              sync.RWMutex
	itemsByID       map[string]domain.InventoryItem
	itemIDByName    map[string]string
	menuByID        map[string]domain.MenuItem
	recipesByMenuID map[string][]domain.MenuItemIngredient
	salesByID       map[string]*domain.Sale
	saleIDByReceipt map[string]string
	ledger          []domain.InventoryTransaction
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		itemsByID:       make(map[string]domain.InventoryItem),
		itemIDByName:    make(map[string]string),
		menuByID:        make(map[string]domain.MenuItem),
		recipesByMenuID: make(map[string][]domain.MenuItemIngredient),
		salesByID:       make(map[string]*domain.Sale),
		saleIDByReceipt: make(map[string]string),
		ledger:          make([]domain.InventoryTransaction, 0, 256),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These credentials
// are never used in production (the server uses PostgreSQL when DATABASE_URL
// is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store preloaded with a small carinderia dataset:
// raw ingredients, recipe dishes and unit-sold drinks. Each opening stock
// gets an "initial" ledger entry so reconciliation starts balanced.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	ingredients := []struct {
		id      string
		name    string
		unit    string
		qty     string
		cost    string
		reorder string
	}{
		{"inv-chicken-01", "Chicken Cuts", "g", "8000", "0.35", "2000"},
		{"inv-pork-01", "Pork Belly", "g", "5000", "0.42", "1500"},
		{"inv-rice-01", "Steamed Rice", "cup", "120", "8", "30"},
		{"inv-garlic-01", "Garlic", "g", "900", "0.20", "200"},
		{"inv-onion-01", "Onion", "g", "1200", "0.15", "300"},
		{"inv-soy-01", "Soy Sauce", "ml", "3000", "0.09", "800"},
		{"inv-vinegar-01", "Cane Vinegar", "ml", "2500", "0.07", "700"},
		{"inv-oil-01", "Cooking Oil", "ml", "4000", "0.11", "1000"},
		{"inv-egg-01", "Egg", "pc", "60", "9", "24"},
		{"menu-coke-01", "Coke in Can", "can", "48", "28", "12"},
		{"menu-water-01", "Bottled Water 500ml", "bottle", "72", "12", "24"},
	}
	for _, ing := range ingredients {
		qty := decimal.RequireFromString(ing.qty)
		item := domain.InventoryItem{
			ID:             ing.id,
			Name:           ing.name,
			Unit:           ing.unit,
			QuantityOnHand: qty,
			CostPerUnit:    decimal.RequireFromString(ing.cost),
			ReorderLevel:   decimal.RequireFromString(ing.reorder),
			Active:         true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.itemsByID[item.ID] = item
		s.itemIDByName[strings.ToLower(item.Name)] = item.ID
		s.ledger = append(s.ledger, domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   item.ID,
			QuantityChange:    qty,
			CostAtTransaction: item.CostPerUnit,
			Reason:            domain.ReasonInitial,
			Remarks:           "seed opening stock",
			PerformedBy:       "system",
			CreatedAt:         now,
		})
	}

	menu := []domain.MenuItem{
		{ID: "menu-adobo-01", Name: "Chicken Adobo", Category: "ulam", PriceCents: 12000, Kind: domain.MenuKindRecipe, Active: true, CreatedAt: now},
		{ID: "menu-sisig-01", Name: "Pork Sisig", Category: "ulam", PriceCents: 14500, Kind: domain.MenuKindRecipe, Active: true, CreatedAt: now},
		{ID: "menu-silog-01", Name: "Tapsilog Rice Bowl", Category: "silog", PriceCents: 11000, Kind: domain.MenuKindRecipe, Active: true, CreatedAt: now},
		{ID: "menu-coke-01", Name: "Coke in Can", Category: "drinks", PriceCents: 4500, Kind: domain.MenuKindUnit, Active: true, CreatedAt: now},
		{ID: "menu-water-01", Name: "Bottled Water 500ml", Category: "drinks", PriceCents: 2500, Kind: domain.MenuKindUnit, Active: true, CreatedAt: now},
	}
	for _, m := range menu {
		s.menuByID[m.ID] = m
	}

	s.recipesByMenuID["menu-adobo-01"] = []domain.MenuItemIngredient{
		{MenuItemID: "menu-adobo-01", InventoryItemID: "inv-chicken-01", QuantityPerMenu: decimal.RequireFromString("300")},
		{MenuItemID: "menu-adobo-01", InventoryItemID: "inv-garlic-01", QuantityPerMenu: decimal.RequireFromString("15")},
		{MenuItemID: "menu-adobo-01", InventoryItemID: "inv-onion-01", QuantityPerMenu: decimal.RequireFromString("50")},
		{MenuItemID: "menu-adobo-01", InventoryItemID: "inv-soy-01", QuantityPerMenu: decimal.RequireFromString("60")},
		{MenuItemID: "menu-adobo-01", InventoryItemID: "inv-vinegar-01", QuantityPerMenu: decimal.RequireFromString("45")},
		{MenuItemID: "menu-adobo-01", InventoryItemID: "inv-rice-01", QuantityPerMenu: decimal.RequireFromString("1")},
	}
	s.recipesByMenuID["menu-sisig-01"] = []domain.MenuItemIngredient{
		{MenuItemID: "menu-sisig-01", InventoryItemID: "inv-pork-01", QuantityPerMenu: decimal.RequireFromString("250")},
		{MenuItemID: "menu-sisig-01", InventoryItemID: "inv-onion-01", QuantityPerMenu: decimal.RequireFromString("60")},
		{MenuItemID: "menu-sisig-01", InventoryItemID: "inv-oil-01", QuantityPerMenu: decimal.RequireFromString("30")},
		{MenuItemID: "menu-sisig-01", InventoryItemID: "inv-egg-01", QuantityPerMenu: decimal.RequireFromString("1")},
	}
	s.recipesByMenuID["menu-silog-01"] = []domain.MenuItemIngredient{
		{MenuItemID: "menu-silog-01", InventoryItemID: "inv-pork-01", QuantityPerMenu: decimal.RequireFromString("180")},
		{MenuItemID: "menu-silog-01", InventoryItemID: "inv-rice-01", QuantityPerMenu: decimal.RequireFromString("1.5")},
		{MenuItemID: "menu-silog-01", InventoryItemID: "inv-egg-01", QuantityPerMenu: decimal.RequireFromString("1")},
		{MenuItemID: "menu-silog-01", InventoryItemID: "inv-garlic-01", QuantityPerMenu: decimal.RequireFromString("10")},
	}

	return s
}

func (s *Store) CreateInventoryItem(_ context.Context, item domain.InventoryItem, opening *domain.InventoryTransaction) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || strings.TrimSpace(item.Unit) == "" {
		return nil, fmt.Errorf("%w: name and unit are required", store.ErrValidation)
	}
	if item.QuantityOnHand.Sign() < 0 {
		return nil, fmt.Errorf("%w: opening stock for %q is negative", store.ErrValidation, item.Name)
	}
	nameKey := strings.ToLower(item.Name)
	if _, exists := s.itemIDByName[nameKey]; exists {
		return nil, fmt.Errorf("%w: inventory item %q already exists", store.ErrValidation, item.Name)
	}
	if item.ID == "" {
		item.ID = xid.New("inv")
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	item.Active = true

	s.itemsByID[item.ID] = item
	s.itemIDByName[nameKey] = item.ID

	if opening != nil && opening.QuantityChange.Sign() != 0 {
		entry := *opening
		entry.InventoryItemID = item.ID
		if entry.ID == "" {
			entry.ID = xid.New("ivt")
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.Reason = domain.ReasonInitial
		s.ledger = append(s.ledger, entry)
	}

	created := item
	return &created, nil
}

func (s *Store) GetInventoryItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.itemsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) GetInventoryItemByName(_ context.Context, name string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.itemIDByName[strings.ToLower(strings.TrimSpace(name))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := s.itemsByID[id]
	return &copyItem, nil
}

// UpdateInventoryItem touches metadata only. QuantityOnHand is owned by the
// sale and adjustment paths and is never written here.
func (s *Store) UpdateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.itemsByID[item.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || strings.TrimSpace(item.Unit) == "" {
		return nil, fmt.Errorf("%w: name and unit are required", store.ErrValidation)
	}
	nameKey := strings.ToLower(item.Name)
	if existingID, taken := s.itemIDByName[nameKey]; taken && existingID != item.ID {
		return nil, fmt.Errorf("%w: inventory item %q already exists", store.ErrValidation, item.Name)
	}

	delete(s.itemIDByName, strings.ToLower(current.Name))
	item.QuantityOnHand = current.QuantityOnHand
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	s.itemsByID[item.ID] = item
	s.itemIDByName[nameKey] = item.ID

	updated := item
	return &updated, nil
}

func (s *Store) ListInventoryItems(_ context.Context, includeInactive bool) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.itemsByID))
	for _, item := range s.itemsByID {
		if !includeInactive && !item.Active {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		return cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return items, nil
}

func (s *Store) CreateMenuItem(_ context.Context, item domain.MenuItem, edges []domain.MenuItemIngredient) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || strings.TrimSpace(item.Category) == "" || item.PriceCents < 0 {
		return nil, fmt.Errorf("%w: menu item name, category and price are required", store.ErrValidation)
	}
	if item.Kind != domain.MenuKindUnit && item.Kind != domain.MenuKindRecipe {
		return nil, fmt.Errorf("%w: unknown menu kind %q", store.ErrValidation, item.Kind)
	}
	if item.ID == "" {
		item.ID = xid.New("menu")
	}
	if _, exists := s.menuByID[item.ID]; exists {
		return nil, fmt.Errorf("%w: menu item %s already exists", store.ErrValidation, item.ID)
	}
	if item.Kind == domain.MenuKindUnit {
		if _, exists := s.itemsByID[item.ID]; !exists {
			return nil, fmt.Errorf("%w: unit menu item %s needs an inventory item with the same id", store.ErrValidation, item.ID)
		}
	}
	if err := s.validateEdgesLocked(item.ID, edges); err != nil {
		return nil, err
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.Active = true
	s.menuByID[item.ID] = item
	if len(edges) > 0 {
		s.recipesByMenuID[item.ID] = cloneEdges(edges)
	}

	created := item
	return &created, nil
}

func (s *Store) GetMenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.menuByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) ListMenuItems(_ context.Context, includeInactive bool) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.MenuItem, 0, len(s.menuByID))
	for _, item := range s.menuByID {
		if !includeInactive && !item.Active {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.MenuItem) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return items, nil
}

func (s *Store) SetMenuItemRecipe(_ context.Context, menuItemID string, edges []domain.MenuItemIngredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	menu, exists := s.menuByID[menuItemID]
	if !exists {
		return store.ErrNotFound
	}
	if menu.Kind != domain.MenuKindRecipe {
		return fmt.Errorf("%w: %s is not a recipe menu item", store.ErrValidation, menu.Name)
	}
	if len(edges) == 0 {
		return fmt.Errorf("%w: %s", store.ErrMissingRecipe, menu.Name)
	}
	if err := s.validateEdgesLocked(menuItemID, edges); err != nil {
		return err
	}
	s.recipesByMenuID[menuItemID] = cloneEdges(edges)
	return nil
}

func (s *Store) GetMenuItemRecipe(_ context.Context, menuItemID string) ([]domain.MenuItemIngredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.menuByID[menuItemID]; !exists {
		return nil, store.ErrNotFound
	}
	return cloneEdges(s.recipesByMenuID[menuItemID]), nil
}

func (s *Store) validateEdgesLocked(menuItemID string, edges []domain.MenuItemIngredient) error {
	seen := make(map[string]struct{}, len(edges))
	for _, edge := range edges {
		if _, exists := s.itemsByID[edge.InventoryItemID]; !exists {
			return fmt.Errorf("%w: inventory item %s for recipe %s", store.ErrNotFound, edge.InventoryItemID, menuItemID)
		}
		if edge.QuantityPerMenu.Sign() <= 0 {
			return fmt.Errorf("%w: recipe edge %s->%s has non-positive quantity", store.ErrValidation, menuItemID, edge.InventoryItemID)
		}
		if _, dup := seen[edge.InventoryItemID]; dup {
			return fmt.Errorf("%w: duplicate recipe edge for %s", store.ErrValidation, edge.InventoryItemID)
		}
		seen[edge.InventoryItemID] = struct{}{}
	}
	return nil
}

// CompleteSale persists the sale and applies all stock deductions in one
// atomic unit. With blockOnShortage, any ingredient short of the requirement
// aborts the whole sale with no partial writes; otherwise stock is clamped at
// zero and the ledger records the actual movement.
func (s *Store) CompleteSale(_ context.Context, sale domain.Sale, deductions []store.StockDeduction, blockOnShortage bool) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(sale.ReceiptNumber) == "" || len(sale.Items) == 0 {
		return nil, fmt.Errorf("%w: receipt number and items are required", store.ErrValidation)
	}
	if _, exists := s.saleIDByReceipt[sale.ReceiptNumber]; exists {
		return nil, fmt.Errorf("%w: %s", store.ErrDuplicateReceipt, sale.ReceiptNumber)
	}

	// Validate every deduction before touching any stock.
	for _, ded := range deductions {
		item, exists := s.itemsByID[ded.InventoryItemID]
		if !exists {
			return nil, fmt.Errorf("%w: inventory item %s", store.ErrNotFound, ded.InventoryItemID)
		}
		if blockOnShortage && item.QuantityOnHand.LessThan(ded.Quantity) {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, item.Name)
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := time.Now().UTC()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.Status = domain.SaleStatusCompleted
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}

	for _, ded := range deductions {
		item := s.itemsByID[ded.InventoryItemID]
		taken := ded.Quantity
		if item.QuantityOnHand.LessThan(taken) {
			taken = item.QuantityOnHand
		}
		if taken.Sign() <= 0 {
			continue
		}
		item.QuantityOnHand = item.QuantityOnHand.Sub(taken)
		item.UpdatedAt = now
		s.itemsByID[ded.InventoryItemID] = item
		s.ledger = append(s.ledger, domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   ded.InventoryItemID,
			SaleID:            sale.ID,
			QuantityChange:    taken.Neg(),
			CostAtTransaction: item.CostPerUnit,
			Reason:            domain.ReasonSale,
			PerformedBy:       sale.CashierName,
			CreatedAt:         now,
		})
	}

	saved := cloneSale(&sale)
	s.salesByID[sale.ID] = saved
	s.saleIDByReceipt[sale.ReceiptNumber] = sale.ID
	return cloneSale(saved), nil
}

// VoidSale reverses a completed sale: status flips to voided and every sale
// ledger entry is mirrored back with a positive void entry.
func (s *Store) VoidSale(_ context.Context, saleID string, reason string, authorizedBy string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: sale %s is %s", store.ErrInvalidStateTransition, saleID, sale.Status)
	}

	for _, entry := range s.ledger {
		if entry.SaleID != saleID || entry.Reason != domain.ReasonSale {
			continue
		}
		item := s.itemsByID[entry.InventoryItemID]
		restored := entry.QuantityChange.Neg()
		item.QuantityOnHand = item.QuantityOnHand.Add(restored)
		item.UpdatedAt = at
		s.itemsByID[entry.InventoryItemID] = item
		s.ledger = append(s.ledger, domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   entry.InventoryItemID,
			SaleID:            saleID,
			QuantityChange:    restored,
			CostAtTransaction: item.CostPerUnit,
			Reason:            domain.ReasonVoid,
			Remarks:           reason,
			PerformedBy:       authorizedBy,
			CreatedAt:         at,
		})
	}

	sale.Status = domain.SaleStatusVoided
	sale.StatusReason = reason
	sale.AuthorizedBy = authorizedBy
	sale.VoidedAt = &at
	return cloneSale(sale), nil
}

// RefundSale is financial only: the sale flips to refunded but prepared food
// cannot return to stock, so no inventory moves. A zero-quantity refund ledger
// entry per ingredient keeps the audit trail explicit.
func (s *Store) RefundSale(_ context.Context, saleID string, refundedCents int64, customerName string, customerContact string, reason string, authorizedBy string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: sale %s is %s", store.ErrInvalidStateTransition, saleID, sale.Status)
	}
	if refundedCents <= 0 || refundedCents > sale.TotalCents {
		return nil, fmt.Errorf("%w: refund amount out of range", store.ErrValidation)
	}

	for _, entry := range s.ledger {
		if entry.SaleID != saleID || entry.Reason != domain.ReasonSale {
			continue
		}
		s.ledger = append(s.ledger, domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   entry.InventoryItemID,
			SaleID:            saleID,
			QuantityChange:    decimal.Zero,
			CostAtTransaction: entry.CostAtTransaction,
			Reason:            domain.ReasonRefund,
			Remarks:           reason,
			PerformedBy:       authorizedBy,
			CreatedAt:         at,
		})
	}

	sale.Status = domain.SaleStatusRefunded
	sale.StatusReason = reason
	sale.AuthorizedBy = authorizedBy
	sale.RefundedAmountCents = refundedCents
	sale.CustomerName = customerName
	sale.CustomerContact = customerContact
	sale.RefundedAt = &at
	return cloneSale(sale), nil
}

func (s *Store) FindSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) FindSaleByReceipt(_ context.Context, receiptNumber string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.saleIDByReceipt[receiptNumber]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(s.salesByID[id]), nil
}

func (s *Store) ListSales(_ context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !sale.CreatedAt.Before(filter.To) {
			continue
		}
		result = append(result, *cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// ApplyInventoryChanges is the bulk adjustment path. Each counted quantity is
// diffed against the on-hand value under the store lock, sign rules per reason
// are enforced per line, and the whole batch aborts on the first invalid line
// so a partial batch never commits. Zero-delta lines get a metadata-only
// update inside the same batch and are reported as skipped.
func (s *Store) ApplyInventoryChanges(_ context.Context, changes []store.InventoryChange, reason string, remarks string, performedBy string) ([]domain.InventoryTransaction, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(changes) == 0 {
		return nil, nil, fmt.Errorf("%w: no changes supplied", store.ErrValidation)
	}
	if err := validateChangeReason(reason); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	staged := make(map[string]domain.InventoryItem, len(changes))
	applied := make([]domain.InventoryTransaction, 0, len(changes))
	skipped := make([]string, 0, 4)

	for _, change := range changes {
		item, seen := staged[change.InventoryItemID]
		if !seen {
			stored, exists := s.itemsByID[change.InventoryItemID]
			if !exists {
				return nil, nil, fmt.Errorf("%w: inventory item %s", store.ErrNotFound, change.InventoryItemID)
			}
			item = stored
		}
		if change.NewQuantityOnHand.Sign() < 0 {
			return nil, nil, fmt.Errorf("%w: counted quantity for %q is negative", store.ErrValidation, item.Name)
		}

		delta := change.NewQuantityOnHand.Sub(item.QuantityOnHand)
		if change.NewCostPerUnit != nil {
			item.CostPerUnit = *change.NewCostPerUnit
		}
		if change.NewReorderLevel != nil {
			item.ReorderLevel = *change.NewReorderLevel
		}
		item.UpdatedAt = now

		if delta.IsZero() {
			skipped = append(skipped, item.ID)
			staged[change.InventoryItemID] = item
			continue
		}
		if err := validateChangeSign(reason, delta, item.Name); err != nil {
			return nil, nil, err
		}
		item.QuantityOnHand = change.NewQuantityOnHand
		staged[change.InventoryItemID] = item

		applied = append(applied, domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   item.ID,
			QuantityChange:    delta,
			CostAtTransaction: item.CostPerUnit,
			Reason:            reason,
			Remarks:           remarks,
			PerformedBy:       performedBy,
			CreatedAt:         now,
		})
	}

	for id, item := range staged {
		s.itemsByID[id] = item
	}
	s.ledger = append(s.ledger, applied...)
	return applied, skipped, nil
}

func validateChangeReason(reason string) error {
	switch reason {
	case domain.ReasonStockIn, domain.ReasonWaste, domain.ReasonAdjustment:
		return nil
	default:
		return fmt.Errorf("%w: unknown change reason %q", store.ErrValidation, reason)
	}
}

func validateChangeSign(reason string, delta decimal.Decimal, itemName string) error {
	switch reason {
	case domain.ReasonStockIn:
		if delta.Sign() <= 0 {
			return fmt.Errorf("%w: stock_in for %q must increase stock", store.ErrValidation, itemName)
		}
	case domain.ReasonWaste:
		if delta.Sign() >= 0 {
			return fmt.Errorf("%w: waste for %q must decrease stock", store.ErrValidation, itemName)
		}
	case domain.ReasonAdjustment:
		if delta.Sign() == 0 {
			return fmt.Errorf("%w: adjustment for %q has zero delta", store.ErrValidation, itemName)
		}
	default:
		return fmt.Errorf("%w: unknown change reason %q", store.ErrValidation, reason)
	}
	return nil
}

func (s *Store) ListInventoryTransactions(_ context.Context, filter store.LedgerFilter) ([]domain.InventoryTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryTransaction, 0, 64)
	for _, entry := range s.ledger {
		if filter.InventoryItemID != "" && entry.InventoryItemID != filter.InventoryItemID {
			continue
		}
		if filter.SaleID != "" && entry.SaleID != filter.SaleID {
			continue
		}
		if filter.Reason != "" && entry.Reason != filter.Reason {
			continue
		}
		if !filter.From.IsZero() && entry.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !entry.CreatedAt.Before(filter.To) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.InventoryTransaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) LedgerBalances(_ context.Context) ([]domain.LedgerBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal, len(s.itemsByID))
	for _, entry := range s.ledger {
		totals[entry.InventoryItemID] = totals[entry.InventoryItemID].Add(entry.QuantityChange)
	}

	balances := make([]domain.LedgerBalance, 0, len(s.itemsByID))
	for _, item := range s.itemsByID {
		ledgerTotal := totals[item.ID]
		balances = append(balances, domain.LedgerBalance{
			InventoryItemID: item.ID,
			Name:            item.Name,
			QuantityOnHand:  item.QuantityOnHand,
			LedgerTotal:     ledgerTotal,
			Drift:           item.QuantityOnHand.Sub(ledgerTotal),
		})
	}
	slices.SortFunc(balances, func(a, b domain.LedgerBalance) int {
		return cmpString(a.InventoryItemID, b.InventoryItemID)
	})
	return balances, nil
}

func (s *Store) SalesSummary(_ context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{
		From:      from.Format(time.RFC3339),
		To:        to.Format(time.RFC3339),
		ByPayment: make([]domain.PaymentBreakdown, 0, 4),
	}
	byPayment := map[string]*domain.PaymentBreakdown{}

	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		// Voided sales never existed financially; refunded sales count as
		// revenue less the refunded amount.
		if sale.Status == domain.SaleStatusVoided {
			continue
		}
		summary.Sales++
		summary.GrossCents += sale.SubtotalCents
		summary.DiscountCents += sale.DiscountCents
		summary.TaxCents += sale.TaxCents
		net := sale.TotalCents
		if sale.Status == domain.SaleStatusRefunded {
			net -= sale.RefundedAmountCents
		}
		summary.NetCents += net

		entry := byPayment[sale.PaymentMethod]
		if entry == nil {
			entry = &domain.PaymentBreakdown{PaymentMethod: sale.PaymentMethod}
			byPayment[sale.PaymentMethod] = entry
		}
		entry.Sales++
		entry.TotalCents += net
	}

	for _, entry := range byPayment {
		summary.ByPayment = append(summary.ByPayment, *entry)
	}
	slices.SortFunc(summary.ByPayment, func(a, b domain.PaymentBreakdown) int {
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})
	return summary, nil
}

func (s *Store) TopMenuItems(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.MenuItemSales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 10
	}
	totals := map[string]*domain.MenuItemSales{}
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		if sale.Status == domain.SaleStatusVoided {
			continue
		}
		for _, line := range sale.Items {
			entry := totals[line.MenuItemID]
			if entry == nil {
				entry = &domain.MenuItemSales{MenuItemID: line.MenuItemID, MenuItemName: line.MenuItemName}
				totals[line.MenuItemID] = entry
			}
			entry.QuantitySold += int64(line.Quantity)
			entry.GrossCents += line.LineTotalCents
		}
	}

	result := make([]domain.MenuItemSales, 0, len(totals))
	for _, entry := range totals {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.MenuItemSales) int {
		if a.QuantitySold == b.QuantitySold {
			return cmpString(a.MenuItemID, b.MenuItemID)
		}
		if a.QuantitySold > b.QuantitySold {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: user %q already exists", store.ErrValidation, username)
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.SaleItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}

func cloneEdges(src []domain.MenuItemIngredient) []domain.MenuItemIngredient {
	dup := make([]domain.MenuItemIngredient, len(src))
	copy(dup, src)
	return dup
}
