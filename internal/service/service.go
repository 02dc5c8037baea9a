package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/cache"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/recipe"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/validate"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// CredentialVerifier answers whether a submitted manager PIN is valid. Void
// and refund require it before any state changes.
type CredentialVerifier interface {
	ValidateManagerPIN(pin string) bool
}

const summaryKeyPrefix = "reports:summary:"

type Service struct {
	repo       store.Repository
	reports    cache.ReportCache
	verifier   CredentialVerifier
	summaryTTL time.Duration
}

func New(repo store.Repository, reports cache.ReportCache, verifier CredentialVerifier, summaryTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Second
	}

	return &Service{
		repo:       repo,
		reports:    reports,
		verifier:   verifier,
		summaryTTL: summaryTTL,
	}
}

func (s *Service) ListInventoryItems(ctx context.Context, includeInactive bool) ([]domain.InventoryItem, error) {
	return s.repo.ListInventoryItems(ctx, includeInactive)
}

func (s *Service) GetInventoryItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	item, err := s.repo.GetInventoryItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

// FindInventoryItemByName looks an item up by its case-insensitive name, the
// way stock-count sheets reference items.
func (s *Service) FindInventoryItemByName(ctx context.Context, name string) (domain.InventoryItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	item, err := s.repo.GetInventoryItemByName(ctx, name)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

func (s *Service) CreateInventoryItem(ctx context.Context, req domain.InventoryItemCreateRequest) (domain.InventoryItem, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.InventoryItem{}, err
	}
	if req.OpeningStock.Sign() < 0 || req.CostPerUnit.Sign() < 0 || req.ReorderLevel.Sign() < 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: opening stock, cost and reorder level must not be negative", store.ErrValidation)
	}

	item := domain.InventoryItem{
		Name:           strings.TrimSpace(req.Name),
		Unit:           strings.TrimSpace(req.Unit),
		QuantityOnHand: req.OpeningStock,
		CostPerUnit:    req.CostPerUnit,
		ReorderLevel:   req.ReorderLevel,
	}

	var opening *domain.InventoryTransaction
	if req.OpeningStock.Sign() > 0 {
		opening = &domain.InventoryTransaction{
			QuantityChange:    req.OpeningStock,
			CostAtTransaction: req.CostPerUnit,
			Reason:            domain.ReasonInitial,
			Remarks:           "opening stock",
			PerformedBy:       actor.Username,
		}
	}

	created, err := s.repo.CreateInventoryItem(ctx, item, opening)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "inventory_item_create", "inventory_item", created.ID, fmt.Sprintf("name=%s,opening=%s", created.Name, req.OpeningStock))
	return *created, nil
}

func (s *Service) UpdateInventoryItem(ctx context.Context, id string, req domain.InventoryItemUpdateRequest) (domain.InventoryItem, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.InventoryItem{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: inventory item id is required", store.ErrValidation)
	}

	existing, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.InventoryItem{}, fmt.Errorf("%w: name must not be empty", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return domain.InventoryItem{}, fmt.Errorf("%w: unit must not be empty", store.ErrValidation)
		}
		updated.Unit = unit
	}
	if req.CostPerUnit != nil {
		if req.CostPerUnit.Sign() < 0 {
			return domain.InventoryItem{}, fmt.Errorf("%w: cost per unit must not be negative", store.ErrValidation)
		}
		updated.CostPerUnit = *req.CostPerUnit
	}
	if req.ReorderLevel != nil {
		if req.ReorderLevel.Sign() < 0 {
			return domain.InventoryItem{}, fmt.Errorf("%w: reorder level must not be negative", store.ErrValidation)
		}
		updated.ReorderLevel = *req.ReorderLevel
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateInventoryItem(ctx, updated)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "inventory_item_update", "inventory_item", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.Name, saved.Active))
	return *saved, nil
}

func (s *Service) ListMenuItems(ctx context.Context, includeInactive bool) ([]domain.MenuItem, error) {
	return s.repo.ListMenuItems(ctx, includeInactive)
}

func (s *Service) GetMenuItem(ctx context.Context, id string) (domain.MenuItem, []domain.MenuItemIngredient, error) {
	item, err := s.repo.GetMenuItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.MenuItem{}, nil, err
	}
	edges, err := s.repo.GetMenuItemRecipe(ctx, item.ID)
	if err != nil {
		return domain.MenuItem{}, nil, err
	}
	return *item, edges, nil
}

func (s *Service) CreateMenuItem(ctx context.Context, req domain.MenuItemCreateRequest) (domain.MenuItem, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.MenuItem{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.MenuItem{}, err
	}

	item := domain.MenuItem{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		PriceCents:  req.PriceCents,
		Kind:        req.Kind,
	}

	var edges []domain.MenuItemIngredient
	switch req.Kind {
	case domain.MenuKindUnit:
		if len(req.Ingredients) > 0 {
			return domain.MenuItem{}, fmt.Errorf("%w: unit menu items carry no recipe", store.ErrValidation)
		}
		// Unit items share their ID with the inventory item they deplete.
		item.ID = strings.TrimSpace(req.InventoryItemID)
		if item.ID == "" {
			return domain.MenuItem{}, fmt.Errorf("%w: unit menu item needs inventory_item_id", store.ErrValidation)
		}
	case domain.MenuKindRecipe:
		edges = make([]domain.MenuItemIngredient, 0, len(req.Ingredients))
		for _, edge := range req.Ingredients {
			edges = append(edges, domain.MenuItemIngredient{
				InventoryItemID: strings.TrimSpace(edge.InventoryItemID),
				QuantityPerMenu: edge.QuantityPerMenu,
			})
		}
	}

	created, err := s.repo.CreateMenuItem(ctx, item, edges)
	if err != nil {
		return domain.MenuItem{}, err
	}

	s.logAudit(ctx, "menu_item_create", "menu_item", created.ID, fmt.Sprintf("name=%s,kind=%s,price=%d", created.Name, created.Kind, created.PriceCents))
	return *created, nil
}

func (s *Service) SetMenuItemRecipe(ctx context.Context, menuItemID string, reqEdges []domain.RecipeEdgeRequest) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	menuItemID = strings.TrimSpace(menuItemID)
	if menuItemID == "" {
		return fmt.Errorf("%w: menu item id is required", store.ErrValidation)
	}

	edges := make([]domain.MenuItemIngredient, 0, len(reqEdges))
	for _, edge := range reqEdges {
		edges = append(edges, domain.MenuItemIngredient{
			MenuItemID:      menuItemID,
			InventoryItemID: strings.TrimSpace(edge.InventoryItemID),
			QuantityPerMenu: edge.QuantityPerMenu,
		})
	}

	if err := s.repo.SetMenuItemRecipe(ctx, menuItemID, edges); err != nil {
		return err
	}

	s.logAudit(ctx, "menu_item_recipe_set", "menu_item", menuItemID, fmt.Sprintf("edges=%d", len(edges)))
	return nil
}

// CompleteSale resolves the order's recipes into stock deductions, totals the
// money, and hands the whole thing to the store as one atomic unit. A blocked
// shortage or duplicate receipt leaves no partial writes behind.
func (s *Service) CompleteSale(ctx context.Context, req domain.CompleteSaleRequest) (domain.Sale, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Sale{}, err
	}
	req.ReceiptNumber = strings.TrimSpace(req.ReceiptNumber)
	if req.ReceiptNumber == "" {
		return domain.Sale{}, fmt.Errorf("%w: receipt number is required", store.ErrValidation)
	}

	actor, _ := ActorFromContext(ctx)
	cashier := strings.TrimSpace(req.CashierName)
	if cashier == "" {
		cashier = actor.Username
	}
	if cashier == "" {
		return domain.Sale{}, fmt.Errorf("%w: cashier name is required", store.ErrValidation)
	}

	// Duplicate menu items in the order collapse into one line.
	qtyByMenu := make(map[string]int, len(req.Items))
	order := make([]string, 0, len(req.Items))
	for _, line := range req.Items {
		menuID := strings.TrimSpace(line.MenuItemID)
		if menuID == "" || line.Quantity < 1 {
			return domain.Sale{}, fmt.Errorf("%w: every line needs a menu item and a positive quantity", store.ErrValidation)
		}
		if _, seen := qtyByMenu[menuID]; !seen {
			order = append(order, menuID)
		}
		qtyByMenu[menuID] += line.Quantity
	}

	lines := make([]recipe.Line, 0, len(order))
	saleItems := make([]domain.SaleItem, 0, len(order))
	subtotal := int64(0)
	for _, menuID := range order {
		menu, err := s.repo.GetMenuItem(ctx, menuID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Sale{}, fmt.Errorf("%w: menu item %s", store.ErrNotFound, menuID)
			}
			return domain.Sale{}, err
		}
		if !menu.Active {
			return domain.Sale{}, fmt.Errorf("%w: menu item %s is inactive", store.ErrValidation, menu.Name)
		}
		edges, err := s.repo.GetMenuItemRecipe(ctx, menuID)
		if err != nil {
			return domain.Sale{}, err
		}

		qty := qtyByMenu[menuID]
		lines = append(lines, recipe.Line{Menu: *menu, Edges: edges, Quantity: qty})

		lineTotal := int64(qty) * menu.PriceCents
		subtotal += lineTotal
		saleItems = append(saleItems, domain.SaleItem{
			MenuItemID:     menu.ID,
			MenuItemName:   menu.Name,
			Quantity:       qty,
			UnitPriceCents: menu.PriceCents,
			LineTotalCents: lineTotal,
		})
	}

	deductions, err := recipe.Deductions(lines)
	if err != nil {
		return domain.Sale{}, err
	}

	discount := req.DiscountCents
	if discount > subtotal {
		discount = subtotal
	}
	taxBase := subtotal - discount
	taxCents := taxFor(taxBase, req.TaxRatePercent)
	totalCents := taxBase + taxCents

	amountPaid := req.AmountPaidCents
	change := int64(0)
	if req.PaymentMethod == "cash" {
		if amountPaid < totalCents {
			return domain.Sale{}, fmt.Errorf("%w: amount paid is short of the total", store.ErrValidation)
		}
		change = amountPaid - totalCents
	} else {
		// Non-cash payments settle exactly.
		amountPaid = totalCents
	}

	sale := domain.Sale{
		ReceiptNumber:   req.ReceiptNumber,
		CashierName:     cashier,
		SubtotalCents:   subtotal,
		DiscountCents:   discount,
		TaxCents:        taxCents,
		TotalCents:      totalCents,
		PaymentMethod:   req.PaymentMethod,
		AmountPaidCents: amountPaid,
		ChangeCents:     change,
		Items:           saleItems,
	}

	created, err := s.repo.CompleteSale(ctx, sale, deductions, req.BlockOnInsufficientStock)
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateSummaries(ctx)
	s.logAudit(ctx, "sale_complete", "sale", created.ID, fmt.Sprintf("receipt=%s,total=%d,payment=%s,lines=%d", created.ReceiptNumber, created.TotalCents, created.PaymentMethod, len(created.Items)))
	return *created, nil
}

// taxFor computes the tax in whole centavos entirely in decimal, rounding
// half away from zero. Going through float64 loses exactness once the base
// leaves the 53-bit integer range.
func taxFor(taxBaseCents int64, ratePercent float64) int64 {
	return decimal.NewFromInt(taxBaseCents).
		Mul(decimal.NewFromFloat(ratePercent).Shift(-2)).
		Round(0).
		IntPart()
}

func (s *Service) VoidSale(ctx context.Context, saleID string, req domain.VoidSaleRequest) (domain.Sale, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}
	if err := s.verifyManager(req.ManagerPIN); err != nil {
		return domain.Sale{}, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "unspecified"
	}
	actor, _ := ActorFromContext(ctx)
	authorizedBy := strings.TrimSpace(req.AuthorizedBy)
	if authorizedBy == "" {
		authorizedBy = actor.Username
	}

	voided, err := s.repo.VoidSale(ctx, saleID, reason, authorizedBy, time.Now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateSummaries(ctx)
	s.logAudit(ctx, "sale_void", "sale", voided.ID, fmt.Sprintf("reason=%s,authorized_by=%s", reason, authorizedBy))
	return *voided, nil
}

func (s *Service) RefundSale(ctx context.Context, saleID string, req domain.RefundSaleRequest) (domain.Sale, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}
	if err := s.verifyManager(req.ManagerPIN); err != nil {
		return domain.Sale{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.Sale{}, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "unspecified"
	}
	actor, _ := ActorFromContext(ctx)
	authorizedBy := strings.TrimSpace(req.AuthorizedBy)
	if authorizedBy == "" {
		authorizedBy = actor.Username
	}

	refunded, err := s.repo.RefundSale(ctx, saleID, req.RefundedAmountCents,
		strings.TrimSpace(req.CustomerName), strings.TrimSpace(req.CustomerContact),
		reason, authorizedBy, time.Now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateSummaries(ctx)
	s.logAudit(ctx, "sale_refund", "sale", refunded.ID, fmt.Sprintf("amount=%d,reason=%s,authorized_by=%s", req.RefundedAmountCents, reason, authorizedBy))
	return *refunded, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.FindSaleByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) FindSaleByReceipt(ctx context.Context, receiptNumber string) (domain.Sale, error) {
	receiptNumber = strings.TrimSpace(receiptNumber)
	if receiptNumber == "" {
		return domain.Sale{}, fmt.Errorf("%w: receipt number is required", store.ErrValidation)
	}
	sale, err := s.repo.FindSaleByReceipt(ctx, receiptNumber)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, status string, date string, limit int) ([]domain.Sale, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.SaleStatusCompleted, domain.SaleStatusVoided, domain.SaleStatusRefunded:
	default:
		return nil, fmt.Errorf("%w: unknown sale status %q", store.ErrValidation, status)
	}

	from, to, err := parseDayWindow(date)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, store.SaleFilter{Status: status, From: from, To: to, Limit: limit})
}

// ApplyBulkChanges submits counted quantities as one atomic batch. The store
// diffs each count against the on-hand value inside its own transaction, so a
// sale committing between count submission and application cannot stale the
// delta; items whose count did not change get a metadata-only update in the
// same batch and come back as skipped.
func (s *Service) ApplyBulkChanges(ctx context.Context, req domain.BulkChangeRequest) (domain.BulkChangeResponse, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.BulkChangeResponse{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.BulkChangeResponse{}, err
	}

	changes := make([]store.InventoryChange, 0, len(req.Items))
	for _, line := range req.Items {
		changes = append(changes, store.InventoryChange{
			InventoryItemID:   strings.TrimSpace(line.InventoryItemID),
			NewQuantityOnHand: line.NewQuantityOnHand,
			NewCostPerUnit:    line.NewCostPerUnit,
			NewReorderLevel:   line.NewReorderLevel,
		})
	}

	applied, skipped, err := s.repo.ApplyInventoryChanges(ctx, changes, req.Reason, strings.TrimSpace(req.Remarks), actor.Username)
	if err != nil {
		return domain.BulkChangeResponse{}, err
	}

	s.logAudit(ctx, "inventory_bulk_change", "inventory", req.Reason, fmt.Sprintf("applied=%d,skipped=%d,remarks=%s", len(applied), len(skipped), strings.TrimSpace(req.Remarks)))
	return domain.BulkChangeResponse{Applied: applied, Skipped: skipped}, nil
}

func (s *Service) SalesSummary(ctx context.Context, fromDate string, toDate string) (domain.SalesSummary, error) {
	from, to, err := parseReportRange(fromDate, toDate)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	key := summaryKeyPrefix + from.Format("2006-01-02") + ":" + to.Format("2006-01-02")
	cached, hit, err := s.reports.GetSummary(ctx, key)
	if err != nil {
		log.Printf("[service] WARN: summary cache read failed: %v", err)
	}
	if hit {
		return *cached, nil
	}

	summary, err := s.repo.SalesSummary(ctx, from, to)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	if err := s.reports.SetSummary(ctx, key, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed: %v", err)
	}
	return summary, nil
}

func (s *Service) TopMenuItems(ctx context.Context, fromDate string, toDate string, limit int) ([]domain.MenuItemSales, error) {
	from, to, err := parseReportRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.repo.TopMenuItems(ctx, from, to, limit)
}

func (s *Service) InventoryHistory(ctx context.Context, itemID string, saleID string, reason string, date string, limit int) ([]domain.InventoryTransaction, error) {
	reason = strings.ToLower(strings.TrimSpace(reason))
	switch reason {
	case "", domain.ReasonSale, domain.ReasonVoid, domain.ReasonRefund,
		domain.ReasonStockIn, domain.ReasonAdjustment, domain.ReasonWaste, domain.ReasonInitial:
	default:
		return nil, fmt.Errorf("%w: unknown ledger reason %q", store.ErrValidation, reason)
	}

	from, to, err := parseDayWindow(date)
	if err != nil {
		return nil, err
	}

	return s.repo.ListInventoryTransactions(ctx, store.LedgerFilter{
		InventoryItemID: strings.TrimSpace(itemID),
		SaleID:          strings.TrimSpace(saleID),
		Reason:          reason,
		From:            from,
		To:              to,
		Limit:           limit,
	})
}

// ReconcileInventory proves the ledger: per item, the sum of all entries must
// equal the stored quantity on hand.
func (s *Service) ReconcileInventory(ctx context.Context) ([]domain.LedgerBalance, error) {
	return s.repo.LedgerBalances(ctx)
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	from, to, err := parseDayWindow(date)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("%w: admin role required", store.ErrAuthorizationFailed)
	}
	return actor, nil
}

func (s *Service) verifyManager(pin string) error {
	if s.verifier == nil || !s.verifier.ValidateManagerPIN(pin) {
		return fmt.Errorf("%w: manager pin rejected", store.ErrAuthorizationFailed)
	}
	return nil
}

func (s *Service) invalidateSummaries(ctx context.Context) {
	if err := s.reports.Invalidate(ctx, summaryKeyPrefix); err != nil {
		log.Printf("[service] WARN: failed to invalidate summary cache: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// parseDayWindow maps a YYYY-MM-DD date to its [00:00, 24:00) UTC window. An
// empty date means the trailing 24 hours.
func parseDayWindow(date string) (time.Time, time.Time, error) {
	if strings.TrimSpace(date) == "" {
		now := time.Now().UTC()
		return now.Add(-24 * time.Hour), now.Add(time.Hour), nil
	}
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}
	from := parsed.UTC()
	return from, from.Add(24 * time.Hour), nil
}

// parseReportRange maps from/to dates (inclusive) to a half-open UTC window.
// Both empty means today.
func parseReportRange(fromDate string, toDate string) (time.Time, time.Time, error) {
	fromDate = strings.TrimSpace(fromDate)
	toDate = strings.TrimSpace(toDate)

	var from time.Time
	if fromDate == "" {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", fromDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", store.ErrValidation)
		}
		from = parsed.UTC()
	}

	if toDate == "" {
		return from, from.Add(24 * time.Hour), nil
	}
	parsed, err := time.Parse("2006-01-02", toDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", store.ErrValidation)
	}
	to := parsed.UTC().Add(24 * time.Hour)
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to must not precede from", store.ErrValidation)
	}
	return from, to, nil
}
