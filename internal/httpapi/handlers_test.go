package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/cache"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/service"
	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, "739154", repo)
	svc := service.New(repo, cache.NoopReportCache{}, auth, 5*time.Second)

	return New(svc, auth, "*", "TEST")
}

// doJSON fires one JSON request through the full middleware chain, attaching
// the bearer token and CSRF token when provided.
func doJSON(t *testing.T, api *API, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestInventoryItems_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/inventory-items", "", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestInventoryItems_ListWithValidToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/inventory-items", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["items"] == nil {
		t.Fatalf("expected items key in response, got %v", body)
	}
}

func TestCreateInventoryItem_ForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/inventory-items", token, csrf, map[string]any{
		"name": "Bay Leaf", "unit": "g",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier create, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCompleteSale_GeneratesReceiptWhenMissing(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, map[string]any{
		"payment_method":    "cash",
		"amount_paid_cents": 50000,
		"items": []map[string]any{
			{"menu_item_id": "menu-adobo-01", "quantity": 1},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	sale, ok := body["sale"].(map[string]any)
	if !ok {
		t.Fatalf("expected sale object in response, got %v", body)
	}
	receipt, _ := sale["receipt_number"].(string)
	if !strings.HasPrefix(receipt, "TEST-") {
		t.Fatalf("expected generated receipt with TEST- prefix, got %q", receipt)
	}
}

func TestCompleteSale_DuplicateReceiptConflicts(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	payload := map[string]any{
		"receipt_number":    "OR-DUP-1",
		"payment_method":    "cash",
		"amount_paid_cents": 50000,
		"items": []map[string]any{
			{"menu_item_id": "menu-adobo-01", "quantity": 1},
		},
	}
	if rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, payload); rec.Code != http.StatusCreated {
		t.Fatalf("first sale expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, payload)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate sale expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestVoidSale_RequiresManagerPIN(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	create := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, map[string]any{
		"receipt_number":    "OR-VOID-1",
		"payment_method":    "cash",
		"amount_paid_cents": 50000,
		"items": []map[string]any{
			{"menu_item_id": "menu-adobo-01", "quantity": 1},
		},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("sale expected 201, got %d (body: %s)", create.Code, create.Body.String())
	}
	sale := decodeBody(t, create)["sale"].(map[string]any)
	saleID := sale["id"].(string)

	bad := doJSON(t, api, http.MethodPost, "/api/v1/sales/"+saleID+"/void", token, csrf, map[string]string{
		"reason":      "wrong order",
		"manager_pin": "000000",
	})
	if bad.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong PIN, got %d (body: %s)", bad.Code, bad.Body.String())
	}

	good := doJSON(t, api, http.MethodPost, "/api/v1/sales/"+saleID+"/void", token, csrf, map[string]string{
		"reason":      "wrong order",
		"manager_pin": "739154",
	})
	if good.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid void, got %d (body: %s)", good.Code, good.Body.String())
	}
	voided := decodeBody(t, good)["sale"].(map[string]any)
	if voided["status"] != domain.SaleStatusVoided {
		t.Fatalf("expected voided status, got %v", voided["status"])
	}

	again := doJSON(t, api, http.MethodPost, "/api/v1/sales/"+saleID+"/void", token, csrf, map[string]string{
		"reason":      "again",
		"manager_pin": "739154",
	})
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 for double void, got %d (body: %s)", again.Code, again.Body.String())
	}
}

func TestGetSale_NotFound(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/sales/sale-none", token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSalesLookupByReceipt(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	create := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, map[string]any{
		"receipt_number":    "OR-LOOKUP-1",
		"payment_method":    "gcash",
		"amount_paid_cents": 0,
		"items": []map[string]any{
			{"menu_item_id": "menu-coke-01", "quantity": 2},
		},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("sale expected 201, got %d (body: %s)", create.Code, create.Body.String())
	}

	rec := doJSON(t, api, http.MethodGet, "/api/v1/sales?receipt=OR-LOOKUP-1", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	sale := decodeBody(t, rec)["sale"].(map[string]any)
	if sale["receipt_number"] != "OR-LOOKUP-1" {
		t.Fatalf("expected receipt OR-LOOKUP-1, got %v", sale["receipt_number"])
	}
}

func TestBulkAdjustments_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	csrf := fetchCSRFToken(t, api)

	payload := map[string]any{
		"reason": "stock_in",
		"items": []map[string]any{
			{"inventory_item_id": "inv-garlic-01", "new_quantity_on_hand": "1500"},
		},
	}

	cashierToken := loginAs(t, api, "cashier", "cashier123")
	rec := doJSON(t, api, http.MethodPost, "/api/v1/inventory-items/adjustments", cashierToken, csrf, payload)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier adjustment, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	adminToken := loginAsAdmin(t, api)
	rec = doJSON(t, api, http.MethodPost, "/api/v1/inventory-items/adjustments", adminToken, csrf, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin adjustment, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	applied, ok := body["applied"].([]any)
	if !ok || len(applied) != 1 {
		t.Fatalf("expected 1 applied change, got %v", body)
	}
}

func TestReports_CashierForbidden(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/sales-summary", token, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier report access, got %d", rec.Code)
	}
}

func TestReconciliationReportsZeroDrift(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/reconciliation", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	balances, ok := decodeBody(t, rec)["balances"].([]any)
	if !ok || len(balances) == 0 {
		t.Fatalf("expected seeded balances in response")
	}
	for _, raw := range balances {
		b := raw.(map[string]any)
		if b["drift"] != "0" {
			t.Fatalf("expected zero drift for %v, got %v", b["name"], b["drift"])
		}
	}
}

func loginAs(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d (body: %s)", username, rec.Code, rec.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}
