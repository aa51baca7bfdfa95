package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/config"
	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/handler"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/financeos-bfa-go/internal/port"
	"github.com/boddenberg/financeos-bfa-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var today = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// failingStore fails every call with a plain error.
type failingStore struct{ port.ForecastStore }

func (failingStore) ListActiveRules(context.Context, string, time.Time) ([]domain.RecurringRule, error) {
	return nil, errors.New("connection reset")
}

func (failingStore) GetRealBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("connection reset")
}

func (failingStore) Ping(context.Context) error { return errors.New("connection reset") }

// slowStore misses its deadline on the balance read.
type slowStore struct{ port.ForecastStore }

func (slowStore) ListActiveRules(context.Context, string, time.Time) ([]domain.RecurringRule, error) {
	return []domain.RecurringRule{}, nil
}

func (slowStore) GetRealBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, &domain.ErrTimeout{Operation: "supabase/balance"}
}

func newRouter(t *testing.T, store port.ForecastStore) http.Handler {
	t.Helper()
	rules := cache.New[[]domain.RecurringRule](time.Minute)
	t.Cleanup(rules.Close)

	metrics := observability.NewMetrics()
	svc := service.NewForecastService(store, rules, resilience.NewBulkhead(4), config.DefaultForecast(), metrics, zap.NewNop()).
		WithClock(func() time.Time { return today.Add(9 * time.Hour) })
	return handler.NewRouter(svc, metrics, "default_account", zap.NewNop())
}

func newSQLiteRouter(t *testing.T) (http.Handler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return newRouter(t, store), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, observability.NewMetrics(), "", zap.NewNop())

	rec := do(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHealthz_Degraded(t *testing.T) {
	router := newRouter(t, failingStore{})

	rec := do(t, router, http.MethodGet, "/healthz", "")
	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "degraded" {
		t.Errorf("expected degraded, got %s", health.Status)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(nil, observability.NewMetrics(), "", zap.NewNop())

	rec := do(t, router, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(nil, observability.NewMetrics(), "", zap.NewNop())

	rec := do(t, router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDashboard_Shape(t *testing.T) {
	router, _ := newSQLiteRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/accounts/acct-1/transactions",
		`{"date":"2023-12-31","amount":"3000.00","description":"Salary","merchant":"ACME"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	rec = do(t, router, http.MethodPost, "/v1/accounts/acct-1/rules",
		`{"name":"Rent","amount":"1200","frequency":"MONTHLY","start_date":"2024-01-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, router, http.MethodGet, "/v1/accounts/acct-1/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"safe_to_spend", "total_balance", "pending_bills_total", "buffer_target", "upcoming_bills", "burn_down_chart"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if body["safe_to_spend"] != "800" {
		t.Errorf("expected safe_to_spend \"800\", got %v", body["safe_to_spend"])
	}

	bills := body["upcoming_bills"].([]any)
	if len(bills) != 1 {
		t.Fatalf("expected 1 bill, got %d", len(bills))
	}
	bill := bills[0].(map[string]any)
	if bill["dueDate"] != "2024-01-05" || bill["status"] != "pending" || bill["name"] != "Rent" {
		t.Errorf("unexpected bill: %v", bill)
	}
	if chart := body["burn_down_chart"].([]any); len(chart) != 61 {
		t.Errorf("expected 61 chart points, got %d", len(chart))
	}
}

func TestDashboard_UpstreamFailure(t *testing.T) {
	router := newRouter(t, failingStore{})

	rec := do(t, router, http.MethodGet, "/v1/accounts/acct-1/dashboard", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("upstream detail leaked into response")
	}
}

func TestDashboard_UpstreamTimeout(t *testing.T) {
	router := newRouter(t, slowStore{})

	rec := do(t, router, http.MethodGet, "/v1/accounts/acct-1/dashboard", "")
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d: %s", rec.Code, rec.Body)
	}
}

func TestLegacyDashboard_DefaultAccount(t *testing.T) {
	router, store := newSQLiteRouter(t)
	_, err := store.InsertTransaction(context.Background(), &domain.Transaction{
		ID: "t1", AccountID: "default_account", Date: today, Amount: decimal.NewFromInt(50),
		HashID: "h1", Status: domain.TransactionStatusReal,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := do(t, router, http.MethodGet, "/api/dashboard/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.DashboardResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.AccountID != "default_account" {
		t.Errorf("expected default account, got %s", resp.AccountID)
	}
	if !resp.TotalBalance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected balance 50, got %s", resp.TotalBalance)
	}
}

func TestLegacyDashboard_Error(t *testing.T) {
	router := newRouter(t, failingStore{})

	rec := do(t, router, http.MethodGet, "/api/dashboard/?account_id=acct-1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] == "" || body["message"] != "Failed to retrieve dashboard metrics" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestBills_Days(t *testing.T) {
	router, _ := newSQLiteRouter(t)
	do(t, router, http.MethodPost, "/v1/accounts/acct-1/rules",
		`{"name":"Coffee","amount":"3.50","frequency":"DAILY","start_date":"2024-01-01"}`)

	rec := do(t, router, http.MethodGet, "/v1/accounts/acct-1/bills?days=6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.ListResponse[domain.BillResponse]
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 7 {
		t.Errorf("expected 7 bills, got %d", resp.Total)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"days=abc", http.StatusBadRequest},
		{"days=-1", http.StatusBadRequest},
		{"days=999999", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, router, http.MethodGet, "/v1/accounts/acct-1/bills?"+tt.query, "")
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.query, tt.want, rec.Code)
		}
	}
}

func TestBurnDown(t *testing.T) {
	router, _ := newSQLiteRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/accounts/acct-1/burn-down?days=0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.ListResponse[domain.BalancePointJSON]
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Data[0].Date != "2024-01-01" {
		t.Errorf("expected single point for today, got %+v", resp.Data)
	}
}

func TestRules_Lifecycle(t *testing.T) {
	router, _ := newSQLiteRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/accounts/acct-1/rules",
		`{"name":"Gym","amount":"29.90","frequency":"weekly","start_date":"2024-01-01","end_date":"2024-12-31"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var created domain.RuleResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Frequency != domain.FrequencyWeekly || created.EndDate != "2024-12-31" {
		t.Errorf("unexpected rule: %+v", created)
	}

	rec = do(t, router, http.MethodGet, "/v1/accounts/acct-1/rules/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodDelete, "/v1/accounts/acct-1/rules/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/accounts/acct-1/rules", "")
	var list domain.ListResponse[domain.RuleResponse]
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Data[0].IsActive {
		t.Errorf("expected one inactive rule, got %+v", list.Data)
	}

	rec = do(t, router, http.MethodGet, "/v1/accounts/acct-1/rules/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRules_ErrorMapping(t *testing.T) {
	router, _ := newSQLiteRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"unknown field", `{"name":"x","color":"red"}`, http.StatusBadRequest},
		{"unknown frequency", `{"name":"x","amount":"1","frequency":"HOURLY","start_date":"2024-01-01"}`, http.StatusBadRequest},
		{"too many decimals", `{"name":"x","amount":"1.001","frequency":"DAILY","start_date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"too large", `{"name":"x","amount":"10000000000","frequency":"DAILY","start_date":"2024-01-01"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/accounts/acct-1/rules", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestTransactions_Duplicate(t *testing.T) {
	router, _ := newSQLiteRouter(t)
	body := `{"date":"2023-12-20","amount":"-12.30","description":"Lunch","merchant":"Deli"}`

	if rec := do(t, router, http.MethodPost, "/v1/accounts/acct-1/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/v1/accounts/acct-1/transactions", body); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/v1/accounts/acct-1/transactions", "")
	var list domain.ListResponse[domain.TransactionResponse]
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Data[0].Date != "2023-12-20" {
		t.Errorf("unexpected listing: %+v", list.Data)
	}
}

func TestForecastMetrics(t *testing.T) {
	router, _ := newSQLiteRouter(t)
	do(t, router, http.MethodGet, "/v1/accounts/acct-1/dashboard", "")

	rec := do(t, router, http.MethodGet, "/v1/metrics/forecast", "")
	var snap domain.ForecastMetrics
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.DashboardsComputed != 1 {
		t.Errorf("expected 1 dashboard, got %d", snap.DashboardsComputed)
	}
}
