package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem, opening *domain.InventoryTransaction) (*domain.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || strings.TrimSpace(item.Unit) == "" {
		return nil, fmt.Errorf("%w: name and unit are required", store.ErrValidation)
	}
	if item.QuantityOnHand.Sign() < 0 {
		return nil, fmt.Errorf("%w: opening stock for %q is negative", store.ErrValidation, item.Name)
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory_items (id, name, unit, quantity_on_hand, cost_per_unit, reorder_level, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, item.ID, item.Name, item.Unit, item.QuantityOnHand, item.CostPerUnit, item.ReorderLevel, item.Active, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: inventory item %q already exists", store.ErrValidation, item.Name)
		}
		return nil, err
	}

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
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return s.findInventoryItem(ctx, `id = $1`, id)
}

func (s *Store) GetInventoryItemByName(ctx context.Context, name string) (*domain.InventoryItem, error) {
	return s.findInventoryItem(ctx, `lower(name) = lower($1)`, strings.TrimSpace(name))
}

func (s *Store) findInventoryItem(ctx context.Context, where string, arg any) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, unit, quantity_on_hand, cost_per_unit, reorder_level, active, created_at, updated_at
		FROM inventory_items
		WHERE `+where, arg).Scan(
		&item.ID, &item.Name, &item.Unit, &item.QuantityOnHand, &item.CostPerUnit,
		&item.ReorderLevel, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || strings.TrimSpace(item.Unit) == "" {
		return nil, fmt.Errorf("%w: name and unit are required", store.ErrValidation)
	}

	// quantity_on_hand is deliberately absent: metadata edits never move stock.
	var updated domain.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET name = $2, unit = $3, cost_per_unit = $4, reorder_level = $5, active = $6, updated_at = now()
		WHERE id = $1
		RETURNING id, name, unit, quantity_on_hand, cost_per_unit, reorder_level, active, created_at, updated_at
	`, item.ID, item.Name, item.Unit, item.CostPerUnit, item.ReorderLevel, item.Active).Scan(
		&updated.ID, &updated.Name, &updated.Unit, &updated.QuantityOnHand, &updated.CostPerUnit,
		&updated.ReorderLevel, &updated.Active, &updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: inventory item %q already exists", store.ErrValidation, item.Name)
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) ListInventoryItems(ctx context.Context, includeInactive bool) ([]domain.InventoryItem, error) {
	query := `
		SELECT id, name, unit, quantity_on_hand, cost_per_unit, reorder_level, active, created_at, updated_at
		FROM inventory_items
	`
	if !includeInactive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY lower(name)`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Unit, &item.QuantityOnHand, &item.CostPerUnit,
			&item.ReorderLevel, &item.Active, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item domain.MenuItem, edges []domain.MenuItemIngredient) (*domain.MenuItem, error) {
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
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.Active = true

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if item.Kind == domain.MenuKindUnit {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM inventory_items WHERE id = $1)`, item.ID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: unit menu item %s needs an inventory item with the same id", store.ErrValidation, item.ID)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, description, category, price_cents, kind, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, item.ID, item.Name, item.Description, item.Category, item.PriceCents, item.Kind, item.Active, item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: menu item %s already exists", store.ErrValidation, item.ID)
		}
		return nil, err
	}

	if err := insertRecipeEdges(ctx, tx, item.ID, edges); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, price_cents, kind, active, created_at
		FROM menu_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.PriceCents, &item.Kind, &item.Active, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) ListMenuItems(ctx context.Context, includeInactive bool) ([]domain.MenuItem, error) {
	query := `
		SELECT id, name, description, category, price_cents, kind, active, created_at
		FROM menu_items
	`
	if !includeInactive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY category, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 64)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.PriceCents, &item.Kind, &item.Active, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SetMenuItemRecipe(ctx context.Context, menuItemID string, edges []domain.MenuItemIngredient) error {
	if len(edges) == 0 {
		return fmt.Errorf("%w: %s", store.ErrMissingRecipe, menuItemID)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var kind string
	err = tx.QueryRowContext(ctx, `SELECT kind FROM menu_items WHERE id = $1 FOR UPDATE`, menuItemID).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if kind != domain.MenuKindRecipe {
		return fmt.Errorf("%w: %s is not a recipe menu item", store.ErrValidation, menuItemID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_item_ingredients WHERE menu_item_id = $1`, menuItemID); err != nil {
		return err
	}
	if err := insertRecipeEdges(ctx, tx, menuItemID, edges); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRecipeEdges(ctx context.Context, tx *sql.Tx, menuItemID string, edges []domain.MenuItemIngredient) error {
	seen := make(map[string]struct{}, len(edges))
	for _, edge := range edges {
		if edge.QuantityPerMenu.Sign() <= 0 {
			return fmt.Errorf("%w: recipe edge %s->%s has non-positive quantity", store.ErrValidation, menuItemID, edge.InventoryItemID)
		}
		if _, dup := seen[edge.InventoryItemID]; dup {
			return fmt.Errorf("%w: duplicate recipe edge for %s", store.ErrValidation, edge.InventoryItemID)
		}
		seen[edge.InventoryItemID] = struct{}{}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO menu_item_ingredients (menu_item_id, inventory_item_id, quantity_per_menu)
			VALUES ($1,$2,$3)
		`, menuItemID, edge.InventoryItemID, edge.QuantityPerMenu)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return fmt.Errorf("%w: inventory item %s for recipe %s", store.ErrNotFound, edge.InventoryItemID, menuItemID)
			}
			return err
		}
	}
	return nil
}

func (s *Store) GetMenuItemRecipe(ctx context.Context, menuItemID string) ([]domain.MenuItemIngredient, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM menu_items WHERE id = $1)`, menuItemID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT menu_item_id, inventory_item_id, quantity_per_menu
		FROM menu_item_ingredients
		WHERE menu_item_id = $1
		ORDER BY inventory_item_id
	`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]domain.MenuItemIngredient, 0, 8)
	for rows.Next() {
		var edge domain.MenuItemIngredient
		if err := rows.Scan(&edge.MenuItemID, &edge.InventoryItemID, &edge.QuantityPerMenu); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return edges, nil
}

// CompleteSale runs the whole sale in one serializable transaction: ingredient
// rows are locked FOR UPDATE, stock is checked, then the sale row, its items
// and the ledger entries are written together. Any failure rolls the lot back.
func (s *Store) CompleteSale(ctx context.Context, sale domain.Sale, deductions []store.StockDeduction, blockOnShortage bool) (*domain.Sale, error) {
	if strings.TrimSpace(sale.ReceiptNumber) == "" || len(sale.Items) == 0 {
		return nil, fmt.Errorf("%w: receipt number and items are required", store.ErrValidation)
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := time.Now().UTC()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.Status = domain.SaleStatusCompleted

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	type lockedItem struct {
		name string
		qty  decimal.Decimal
		cost decimal.Decimal
	}
	locked := make(map[string]lockedItem, len(deductions))
	for _, ded := range deductions {
		var li lockedItem
		err := tx.QueryRowContext(ctx, `
			SELECT name, quantity_on_hand, cost_per_unit
			FROM inventory_items
			WHERE id = $1
			FOR UPDATE
		`, ded.InventoryItemID).Scan(&li.name, &li.qty, &li.cost)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: inventory item %s", store.ErrNotFound, ded.InventoryItemID)
			}
			return nil, err
		}
		if blockOnShortage && li.qty.LessThan(ded.Quantity) {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, li.name)
		}
		locked[ded.InventoryItemID] = li
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, receipt_number, cashier_name, subtotal_cents, discount_cents, tax_cents,
			total_cents, payment_method, amount_paid_cents, change_cents, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.ReceiptNumber, sale.CashierName, sale.SubtotalCents, sale.DiscountCents,
		sale.TaxCents, sale.TotalCents, sale.PaymentMethod, sale.AmountPaidCents, sale.ChangeCents,
		sale.Status, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateReceipt, sale.ReceiptNumber)
		}
		return nil, err
	}

	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
		line := sale.Items[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, menu_item_id, menu_item_name, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, line.SaleID, line.MenuItemID, line.MenuItemName, line.Quantity, line.UnitPriceCents, line.LineTotalCents)
		if err != nil {
			return nil, err
		}
	}

	for _, ded := range deductions {
		li := locked[ded.InventoryItemID]
		taken := ded.Quantity
		if li.qty.LessThan(taken) {
			taken = li.qty
		}
		if taken.Sign() <= 0 {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET quantity_on_hand = quantity_on_hand - $2, updated_at = now()
			WHERE id = $1
		`, ded.InventoryItemID, taken)
		if err != nil {
			return nil, err
		}
		entry := domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   ded.InventoryItemID,
			SaleID:            sale.ID,
			QuantityChange:    taken.Neg(),
			CostAtTransaction: li.cost,
			Reason:            domain.ReasonSale,
			PerformedBy:       sale.CashierName,
			CreatedAt:         now,
		}
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) VoidSale(ctx context.Context, saleID string, reason string, authorizedBy string, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM sales WHERE id = $1 FOR UPDATE`, saleID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: sale %s is %s", store.ErrInvalidStateTransition, saleID, status)
	}

	// Mirror every sale deduction back as a positive void entry.
	rows, err := tx.QueryContext(ctx, `
		SELECT inventory_item_id, quantity_change
		FROM inventory_transactions
		WHERE sale_id = $1 AND reason = $2
	`, saleID, domain.ReasonSale)
	if err != nil {
		return nil, err
	}
	type saleEntry struct {
		itemID string
		change decimal.Decimal
	}
	entries := make([]saleEntry, 0, 8)
	for rows.Next() {
		var e saleEntry
		if err := rows.Scan(&e.itemID, &e.change); err != nil {
			_ = rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, e := range entries {
		restored := e.change.Neg()
		var cost decimal.Decimal
		err := tx.QueryRowContext(ctx, `
			UPDATE inventory_items
			SET quantity_on_hand = quantity_on_hand + $2, updated_at = $3
			WHERE id = $1
			RETURNING cost_per_unit
		`, e.itemID, restored, at).Scan(&cost)
		if err != nil {
			return nil, err
		}
		entry := domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   e.itemID,
			SaleID:            saleID,
			QuantityChange:    restored,
			CostAtTransaction: cost,
			Reason:            domain.ReasonVoid,
			Remarks:           reason,
			PerformedBy:       authorizedBy,
			CreatedAt:         at,
		}
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, status_reason = $3, authorized_by = $4, voided_at = $5
		WHERE id = $1 AND status = $6
	`, saleID, domain.SaleStatusVoided, reason, authorizedBy, at, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.FindSaleByID(ctx, saleID)
}

// RefundSale is financial only: status changes, inventory does not. A
// zero-quantity ledger entry per ingredient records the refund decision.
func (s *Store) RefundSale(ctx context.Context, saleID string, refundedCents int64, customerName string, customerContact string, reason string, authorizedBy string, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	var totalCents int64
	err = tx.QueryRowContext(ctx, `SELECT status, total_cents FROM sales WHERE id = $1 FOR UPDATE`, saleID).Scan(&status, &totalCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: sale %s is %s", store.ErrInvalidStateTransition, saleID, status)
	}
	if refundedCents <= 0 || refundedCents > totalCents {
		return nil, fmt.Errorf("%w: refund amount out of range", store.ErrValidation)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT inventory_item_id, cost_at_transaction
		FROM inventory_transactions
		WHERE sale_id = $1 AND reason = $2
	`, saleID, domain.ReasonSale)
	if err != nil {
		return nil, err
	}
	type saleEntry struct {
		itemID string
		cost   decimal.Decimal
	}
	entries := make([]saleEntry, 0, 8)
	for rows.Next() {
		var e saleEntry
		if err := rows.Scan(&e.itemID, &e.cost); err != nil {
			_ = rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, e := range entries {
		entry := domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   e.itemID,
			SaleID:            saleID,
			QuantityChange:    decimal.Zero,
			CostAtTransaction: e.cost,
			Reason:            domain.ReasonRefund,
			Remarks:           reason,
			PerformedBy:       authorizedBy,
			CreatedAt:         at,
		}
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, status_reason = $3, authorized_by = $4, refunded_amount_cents = $5,
			customer_name = $6, customer_contact = $7, refunded_at = $8
		WHERE id = $1 AND status = $9
	`, saleID, domain.SaleStatusRefunded, reason, authorizedBy, refundedCents,
		customerName, customerContact, at, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.FindSaleByID(ctx, saleID)
}

func (s *Store) FindSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	return s.findSale(ctx, "id", id)
}

func (s *Store) FindSaleByReceipt(ctx context.Context, receiptNumber string) (*domain.Sale, error) {
	return s.findSale(ctx, "receipt_number", receiptNumber)
}

func (s *Store) findSale(ctx context.Context, column string, value string) (*domain.Sale, error) {
	if column != "id" && column != "receipt_number" {
		return nil, fmt.Errorf("unsupported lookup column")
	}

	var sale domain.Sale
	var statusReason, authorizedBy, customerName, customerContact sql.NullString
	var refundedCents sql.NullInt64
	var voidedAt, refundedAt sql.NullTime

	query := fmt.Sprintf(`
		SELECT id, receipt_number, cashier_name, subtotal_cents, discount_cents, tax_cents,
			total_cents, payment_method, amount_paid_cents, change_cents, status,
			status_reason, authorized_by, refunded_amount_cents, customer_name,
			customer_contact, voided_at, refunded_at, created_at
		FROM sales
		WHERE %s = $1
	`, column)

	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&sale.ID, &sale.ReceiptNumber, &sale.CashierName, &sale.SubtotalCents, &sale.DiscountCents,
		&sale.TaxCents, &sale.TotalCents, &sale.PaymentMethod, &sale.AmountPaidCents, &sale.ChangeCents,
		&sale.Status, &statusReason, &authorizedBy, &refundedCents, &customerName,
		&customerContact, &voidedAt, &refundedAt, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if statusReason.Valid {
		sale.StatusReason = statusReason.String
	}
	if authorizedBy.Valid {
		sale.AuthorizedBy = authorizedBy.String
	}
	if refundedCents.Valid {
		sale.RefundedAmountCents = refundedCents.Int64
	}
	if customerName.Valid {
		sale.CustomerName = customerName.String
	}
	if customerContact.Valid {
		sale.CustomerContact = customerContact.String
	}
	if voidedAt.Valid {
		at := voidedAt.Time.UTC()
		sale.VoidedAt = &at
	}
	if refundedAt.Valid {
		at := refundedAt.Time.UTC()
		sale.RefundedAt = &at
	}
	sale.CreatedAt = sale.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, menu_item_id, menu_item_name, qty, unit_price_cents, line_total_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.SaleID, &item.MenuItemID, &item.MenuItemName, &item.Quantity, &item.UnitPriceCents, &item.LineTotalCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 100
	}
	from := filter.From
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := filter.To
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM sales
		WHERE ($1 = '' OR status = $1)
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, filter.Status, from, to, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	sales := make([]domain.Sale, 0, len(ids))
	for _, id := range ids {
		sale, err := s.FindSaleByID(ctx, id)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, nil
}

// ApplyInventoryChanges diffs each counted quantity against the row's on-hand
// value while holding its FOR UPDATE lock, so a sale committed after the
// count was submitted cannot stale the delta. Zero-delta lines get a
// metadata-only update inside the same transaction.
func (s *Store) ApplyInventoryChanges(ctx context.Context, changes []store.InventoryChange, reason string, remarks string, performedBy string) ([]domain.InventoryTransaction, []string, error) {
	if len(changes) == 0 {
		return nil, nil, fmt.Errorf("%w: no changes supplied", store.ErrValidation)
	}
	if err := validateChangeReason(reason); err != nil {
		return nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	applied := make([]domain.InventoryTransaction, 0, len(changes))
	skipped := make([]string, 0, 4)
	for _, change := range changes {
		var name string
		var qty decimal.Decimal
		err := tx.QueryRowContext(ctx, `
			SELECT name, quantity_on_hand
			FROM inventory_items
			WHERE id = $1
			FOR UPDATE
		`, change.InventoryItemID).Scan(&name, &qty)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, fmt.Errorf("%w: inventory item %s", store.ErrNotFound, change.InventoryItemID)
			}
			return nil, nil, err
		}
		if change.NewQuantityOnHand.Sign() < 0 {
			return nil, nil, fmt.Errorf("%w: counted quantity for %q is negative", store.ErrValidation, name)
		}
		delta := change.NewQuantityOnHand.Sub(qty)
		if !delta.IsZero() {
			if err := validateChangeSign(reason, delta, name); err != nil {
				return nil, nil, err
			}
		}

		set := `quantity_on_hand = $2, updated_at = $3`
		args := []any{change.InventoryItemID, change.NewQuantityOnHand, now}
		if change.NewCostPerUnit != nil {
			set += fmt.Sprintf(`, cost_per_unit = $%d`, len(args)+1)
			args = append(args, *change.NewCostPerUnit)
		}
		if change.NewReorderLevel != nil {
			set += fmt.Sprintf(`, reorder_level = $%d`, len(args)+1)
			args = append(args, *change.NewReorderLevel)
		}
		var cost decimal.Decimal
		err = tx.QueryRowContext(ctx, `
			UPDATE inventory_items SET `+set+` WHERE id = $1 RETURNING cost_per_unit
		`, args...).Scan(&cost)
		if err != nil {
			return nil, nil, err
		}

		if delta.IsZero() {
			skipped = append(skipped, change.InventoryItemID)
			continue
		}
		entry := domain.InventoryTransaction{
			ID:                xid.New("ivt"),
			InventoryItemID:   change.InventoryItemID,
			QuantityChange:    delta,
			CostAtTransaction: cost,
			Reason:            reason,
			Remarks:           remarks,
			PerformedBy:       performedBy,
			CreatedAt:         now,
		}
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return nil, nil, err
		}
		applied = append(applied, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
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

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, entry domain.InventoryTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_transactions (
			id, inventory_item_id, sale_id, quantity_change, cost_at_transaction,
			reason, remarks, performed_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.InventoryItemID, nullIfEmpty(entry.SaleID), entry.QuantityChange,
		entry.CostAtTransaction, entry.Reason, entry.Remarks, entry.PerformedBy, entry.CreatedAt)
	return err
}

func (s *Store) ListInventoryTransactions(ctx context.Context, filter store.LedgerFilter) ([]domain.InventoryTransaction, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 200
	}
	from := filter.From
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := filter.To
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inventory_item_id, COALESCE(sale_id,''), quantity_change, cost_at_transaction,
			reason, remarks, performed_by, created_at
		FROM inventory_transactions
		WHERE ($1 = '' OR inventory_item_id = $1)
			AND ($2 = '' OR sale_id = $2)
			AND ($3 = '' OR reason = $3)
			AND created_at >= $4
			AND created_at < $5
		ORDER BY created_at DESC, id DESC
		LIMIT $6
	`, filter.InventoryItemID, filter.SaleID, filter.Reason, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.InventoryTransaction, 0, limit)
	for rows.Next() {
		var entry domain.InventoryTransaction
		if err := rows.Scan(&entry.ID, &entry.InventoryItemID, &entry.SaleID, &entry.QuantityChange,
			&entry.CostAtTransaction, &entry.Reason, &entry.Remarks, &entry.PerformedBy, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) LedgerBalances(ctx context.Context) ([]domain.LedgerBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.name, i.quantity_on_hand, COALESCE(SUM(t.quantity_change), 0)
		FROM inventory_items i
		LEFT JOIN inventory_transactions t ON t.inventory_item_id = i.id
		GROUP BY i.id, i.name, i.quantity_on_hand
		ORDER BY i.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make([]domain.LedgerBalance, 0, 64)
	for rows.Next() {
		var b domain.LedgerBalance
		if err := rows.Scan(&b.InventoryItemID, &b.Name, &b.QuantityOnHand, &b.LedgerTotal); err != nil {
			return nil, err
		}
		b.Drift = b.QuantityOnHand.Sub(b.LedgerTotal)
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

func (s *Store) SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	summary := domain.SalesSummary{
		From:      from.Format(time.RFC3339),
		To:        to.Format(time.RFC3339),
		ByPayment: make([]domain.PaymentBreakdown, 0, 4),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::bigint,
			COALESCE(SUM(subtotal_cents),0)::bigint,
			COALESCE(SUM(discount_cents),0)::bigint,
			COALESCE(SUM(tax_cents),0)::bigint,
			COALESCE(SUM(total_cents - CASE WHEN status = $4 THEN refunded_amount_cents ELSE 0 END),0)::bigint
		FROM sales
		WHERE created_at >= $1
			AND created_at < $2
			AND status <> $3
	`, from, to, domain.SaleStatusVoided, domain.SaleStatusRefunded).Scan(
		&summary.Sales,
		&summary.GrossCents,
		&summary.DiscountCents,
		&summary.TaxCents,
		&summary.NetCents,
	)
	if err != nil {
		return summary, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*)::bigint,
			COALESCE(SUM(total_cents - CASE WHEN status = $4 THEN refunded_amount_cents ELSE 0 END),0)::bigint
		FROM sales
		WHERE created_at >= $1
			AND created_at < $2
			AND status <> $3
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to, domain.SaleStatusVoided, domain.SaleStatusRefunded)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.PaymentBreakdown
		if err := rows.Scan(&row.PaymentMethod, &row.Sales, &row.TotalCents); err != nil {
			return summary, err
		}
		summary.ByPayment = append(summary.ByPayment, row)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Store) TopMenuItems(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.MenuItemSales, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.menu_item_id, MAX(si.menu_item_name),
			COALESCE(SUM(si.qty),0)::bigint, COALESCE(SUM(si.line_total_cents),0)::bigint
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.created_at >= $1
			AND s.created_at < $2
			AND s.status <> $3
		GROUP BY si.menu_item_id
		ORDER BY SUM(si.qty) DESC, si.menu_item_id
		LIMIT $4
	`, from, to, domain.SaleStatusVoided, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.MenuItemSales, 0, limit)
	for rows.Next() {
		var row domain.MenuItemSales
		if err := rows.Scan(&row.MenuItemID, &row.MenuItemName, &row.QuantitySold, &row.GrossCents); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %q already exists", store.ErrValidation, username)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
