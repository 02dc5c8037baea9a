package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateReceipt       = errors.New("duplicate receipt number")
	ErrMissingRecipe          = errors.New("menu item has no recipe")
	ErrAuthorizationFailed    = errors.New("authorization failed")
)

// StockDeduction is a resolved ingredient requirement for one sale: take
// Quantity of the inventory item before the sale may complete.
type StockDeduction struct {
	InventoryItemID string
	Quantity        decimal.Decimal
}

// InventoryChange is one line of a bulk stock change. NewQuantityOnHand is
// the counted quantity; the store diffs it against the current on-hand value
// inside the same transaction that applies the movement, so the delta is
// never computed from a stale read. The store enforces that the delta's sign
// matches the reason (stock_in positive, waste negative) and applies
// zero-delta lines as metadata-only updates.
type InventoryChange struct {
	InventoryItemID   string
	NewQuantityOnHand decimal.Decimal
	NewCostPerUnit    *decimal.Decimal
	NewReorderLevel   *decimal.Decimal
}

// LedgerFilter narrows ListInventoryTransactions; zero values mean "any".
type LedgerFilter struct {
	InventoryItemID string
	SaleID          string
	Reason          string
	From            time.Time
	To              time.Time
	Limit           int
}

type SaleFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int
}

// Repository is the persistence boundary. Every mutating method is a single
// atomic unit: stock movement, ledger append and sale/status writes inside it
// either all commit or all roll back.
type Repository interface {
	CreateInventoryItem(ctx context.Context, item domain.InventoryItem, opening *domain.InventoryTransaction) (*domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	GetInventoryItemByName(ctx context.Context, name string) (*domain.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	ListInventoryItems(ctx context.Context, includeInactive bool) ([]domain.InventoryItem, error)

	CreateMenuItem(ctx context.Context, item domain.MenuItem, edges []domain.MenuItemIngredient) (*domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	ListMenuItems(ctx context.Context, includeInactive bool) ([]domain.MenuItem, error)
	SetMenuItemRecipe(ctx context.Context, menuItemID string, edges []domain.MenuItemIngredient) error
	GetMenuItemRecipe(ctx context.Context, menuItemID string) ([]domain.MenuItemIngredient, error)

	CompleteSale(ctx context.Context, sale domain.Sale, deductions []StockDeduction, blockOnShortage bool) (*domain.Sale, error)
	VoidSale(ctx context.Context, saleID string, reason string, authorizedBy string, at time.Time) (*domain.Sale, error)
	RefundSale(ctx context.Context, saleID string, refundedCents int64, customerName string, customerContact string, reason string, authorizedBy string, at time.Time) (*domain.Sale, error)
	FindSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	FindSaleByReceipt(ctx context.Context, receiptNumber string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)

	ApplyInventoryChanges(ctx context.Context, changes []InventoryChange, reason string, remarks string, performedBy string) (applied []domain.InventoryTransaction, skipped []string, err error)
	ListInventoryTransactions(ctx context.Context, filter LedgerFilter) ([]domain.InventoryTransaction, error)
	LedgerBalances(ctx context.Context) ([]domain.LedgerBalance, error)

	SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error)
	TopMenuItems(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.MenuItemSales, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
