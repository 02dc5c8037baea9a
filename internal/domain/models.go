package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a stockable raw ingredient or unit-sold good. Quantity is
// decimal because kitchen stock is tracked in grams, milliliters and cups, not
// whole units. QuantityOnHand is never written directly by callers; it moves
// only through the sale and adjustment engines, each move explained by an
// InventoryTransaction.
type InventoryItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	CostPerUnit    decimal.Decimal `json:"cost_per_unit"`
	ReorderLevel   decimal.Decimal `json:"reorder_level"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MenuItem is a sellable product. Kind decides how a sale maps to stock:
// a unit item deducts the inventory item sharing its ID one-for-one, a recipe
// item deducts every ingredient edge of its recipe.
type MenuItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	Kind        string    `json:"kind"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// MenuItemIngredient is one recipe edge: selling one unit of the menu item
// consumes QuantityPerMenu of the inventory item.
type MenuItemIngredient struct {
	MenuItemID      string          `json:"menu_item_id"`
	InventoryItemID string          `json:"inventory_item_id"`
	QuantityPerMenu decimal.Decimal `json:"quantity_per_menu"`
}

type SaleItem struct {
	SaleID         string `json:"sale_id"`
	MenuItemID     string `json:"menu_item_id"`
	MenuItemName   string `json:"menu_item_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Sale is immutable after completion except for its status, which only moves
// forward: completed -> voided or completed -> refunded, both terminal.
type Sale struct {
	ID                  string     `json:"id"`
	ReceiptNumber       string     `json:"receipt_number"`
	CashierName         string     `json:"cashier_name"`
	SubtotalCents       int64      `json:"subtotal_cents"`
	DiscountCents       int64      `json:"discount_cents"`
	TaxCents            int64      `json:"tax_cents"`
	TotalCents          int64      `json:"total_cents"`
	PaymentMethod       string     `json:"payment_method"`
	AmountPaidCents     int64      `json:"amount_paid_cents"`
	ChangeCents         int64      `json:"change_cents"`
	Status              string     `json:"status"`
	StatusReason        string     `json:"status_reason,omitempty"`
	AuthorizedBy        string     `json:"authorized_by,omitempty"`
	RefundedAmountCents int64      `json:"refunded_amount_cents,omitempty"`
	CustomerName        string     `json:"customer_name,omitempty"`
	CustomerContact     string     `json:"customer_contact,omitempty"`
	VoidedAt            *time.Time `json:"voided_at,omitempty"`
	RefundedAt          *time.Time `json:"refunded_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	Items               []SaleItem `json:"items"`
}

// InventoryTransaction is one append-only ledger entry. The running sum of
// QuantityChange for an item always equals its QuantityOnHand; that is the
// auditability invariant the whole core exists to protect.
type InventoryTransaction struct {
	ID                string          `json:"id"`
	InventoryItemID   string          `json:"inventory_item_id"`
	SaleID            string          `json:"sale_id,omitempty"`
	QuantityChange    decimal.Decimal `json:"quantity_change"`
	CostAtTransaction decimal.Decimal `json:"cost_at_transaction"`
	Reason            string          `json:"reason"`
	Remarks           string          `json:"remarks,omitempty"`
	PerformedBy       string          `json:"performed_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserAccount holds auth credentials; Password is the bcrypt hash.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type InventoryItemCreateRequest struct {
	Name         string          `json:"name" validate:"required"`
	Unit         string          `json:"unit" validate:"required"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

type InventoryItemUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	Unit         *string          `json:"unit,omitempty"`
	CostPerUnit  *decimal.Decimal `json:"cost_per_unit,omitempty"`
	ReorderLevel *decimal.Decimal `json:"reorder_level,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}

type MenuItemCreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
	Kind        string `json:"kind" validate:"required,oneof=unit recipe"`
	// Unit-kind items deduct the inventory item with this ID; when empty the
	// menu item's own ID is used.
	InventoryItemID string              `json:"inventory_item_id,omitempty"`
	Ingredients     []RecipeEdgeRequest `json:"ingredients,omitempty" validate:"dive"`
}

type RecipeEdgeRequest struct {
	InventoryItemID string          `json:"inventory_item_id" validate:"required"`
	QuantityPerMenu decimal.Decimal `json:"quantity_per_menu"`
}

type SaleLineRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type CompleteSaleRequest struct {
	ReceiptNumber            string            `json:"receipt_number"`
	CashierName              string            `json:"cashier_name"`
	PaymentMethod            string            `json:"payment_method" validate:"required,oneof=cash gcash card"`
	AmountPaidCents          int64             `json:"amount_paid_cents" validate:"gte=0"`
	DiscountCents            int64             `json:"discount_cents" validate:"gte=0"`
	TaxRatePercent           float64           `json:"tax_rate_percent" validate:"gte=0,lte=100"`
	BlockOnInsufficientStock bool              `json:"block_on_insufficient_stock"`
	Items                    []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
}

type VoidSaleRequest struct {
	Reason       string `json:"reason"`
	AuthorizedBy string `json:"authorized_by"`
	ManagerPIN   string `json:"manager_pin"`
}

type RefundSaleRequest struct {
	RefundedAmountCents int64  `json:"refunded_amount_cents" validate:"required,gt=0"`
	CustomerName        string `json:"customer_name"`
	CustomerContact     string `json:"customer_contact"`
	Reason              string `json:"reason"`
	AuthorizedBy        string `json:"authorized_by"`
	ManagerPIN          string `json:"manager_pin"`
}

type BulkChangeItem struct {
	InventoryItemID   string           `json:"inventory_item_id" validate:"required"`
	NewQuantityOnHand decimal.Decimal  `json:"new_quantity_on_hand"`
	NewCostPerUnit    *decimal.Decimal `json:"new_cost_per_unit,omitempty"`
	NewReorderLevel   *decimal.Decimal `json:"new_reorder_level,omitempty"`
}

type BulkChangeRequest struct {
	Reason  string           `json:"reason" validate:"required,oneof=stock_in adjustment waste"`
	Remarks string           `json:"remarks"`
	Items   []BulkChangeItem `json:"items" validate:"required,min=1,dive"`
}

type BulkChangeResponse struct {
	Applied []InventoryTransaction `json:"applied"`
	// Skipped lists items whose quantity did not move; they get a metadata
	// update but no ledger entry.
	Skipped []string `json:"skipped,omitempty"`
}

type PaymentBreakdown struct {
	PaymentMethod string `json:"payment_method"`
	Sales         int64  `json:"sales"`
	TotalCents    int64  `json:"total_cents"`
}

type SalesSummary struct {
	From          string             `json:"from"`
	To            string             `json:"to"`
	Sales         int64              `json:"sales"`
	GrossCents    int64              `json:"gross_cents"`
	DiscountCents int64              `json:"discount_cents"`
	TaxCents      int64              `json:"tax_cents"`
	NetCents      int64              `json:"net_cents"`
	ByPayment     []PaymentBreakdown `json:"by_payment"`
}

type MenuItemSales struct {
	MenuItemID   string `json:"menu_item_id"`
	MenuItemName string `json:"menu_item_name"`
	QuantitySold int64  `json:"quantity_sold"`
	GrossCents   int64  `json:"gross_cents"`
}

// LedgerBalance compares an item's stored quantity against the sum of its
// ledger entries. Drift should always be zero.
type LedgerBalance struct {
	InventoryItemID string          `json:"inventory_item_id"`
	Name            string          `json:"name"`
	QuantityOnHand  decimal.Decimal `json:"quantity_on_hand"`
	LedgerTotal     decimal.Decimal `json:"ledger_total"`
	Drift           decimal.Decimal `json:"drift"`
}

const (
	SaleStatusCompleted = "completed"
	SaleStatusVoided    = "voided"
	SaleStatusRefunded  = "refunded"
)

const (
	MenuKindUnit   = "unit"
	MenuKindRecipe = "recipe"
)

const (
	ReasonSale       = "sale"
	ReasonVoid       = "void"
	ReasonRefund     = "refund"
	ReasonStockIn    = "stock_in"
	ReasonAdjustment = "adjustment"
	ReasonWaste      = "waste"
	ReasonInitial    = "initial"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)
