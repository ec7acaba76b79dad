package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cardledger/internal/core"
	applog "cardledger/internal/log"
	"cardledger/internal/services"
	"cardledger/internal/source/memory"
	"cardledger/internal/storage"
)

// daysAgo keeps fixture dates relative to the clock so the default and
// relative time ranges used by the handlers always cover them.
func daysAgo(n int) core.Date {
	t := time.Now().AddDate(0, 0, -n)
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}

func newTestServer(t *testing.T, initialize bool) (*Server, *memory.Store) {
	t.Helper()

	src := memory.New(
		[]core.CardRecord{
			{
				CardType:        "Gold",
				LastFive:        "11111",
				ClosingDay:      12,
				DueDay:          27,
				StartingBalance: decimal.NewFromInt(100),
				StartingDate:    daysAgo(40),
			},
			{
				CardType:     "Platinum Card",
				ClosingDay:   3,
				DueDay:       18,
				StartingDate: daysAgo(40),
			},
		},
		[]core.TransactionRecord{
			{
				Date:              daysAgo(3),
				Description:       "GROCERY STORE",
				Amount:            decimal.NewFromInt(-50),
				AccountIdentifier: "Gold",
				Category:          "Food",
				PointMultiple:     decimal.NewFromInt(4),
			},
			{
				Date:              daysAgo(2),
				Description:       "AIRLINE",
				Amount:            decimal.NewFromInt(-200),
				AccountIdentifier: "Platinum Card",
				Category:          "Travel",
				PointMultiple:     decimal.NewFromInt(5),
			},
		},
		[]core.RewardRecord{
			{Date: daysAgo(1), Card: "Gold", LastFive: "11111", Points: 500},
		},
	)

	dashboard := services.NewDashboard(src, nil, nil)
	if initialize {
		if err := dashboard.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
	}

	logger := applog.New(applog.DefaultConfig())
	return NewServer(":0", dashboard, logger, 64, time.Minute), src
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyzBeforeAndAfterInitialize(t *testing.T) {
	s, _ := newTestServer(t, false)
	if rec := get(t, s, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d before initialize, want 503", rec.Code)
	}

	s, _ = newTestServer(t, true)
	if rec := get(t, s, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("status = %d after initialize, want 200", rec.Code)
	}
}

func TestReadsReturn503BeforeInitialize(t *testing.T) {
	s, _ := newTestServer(t, false)
	for _, path := range []string{"/api/balances", "/api/transactions", "/api/metrics/summary"} {
		if rec := get(t, s, path); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, rec.Code)
		}
	}
}

func TestBalancesEndpoint(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/api/balances")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Balances []struct {
			CardType       string `json:"cardType"`
			CurrentBalance string `json:"currentBalance"`
		} `json:"balances"`
		Total string `json:"total"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	if out.Balances[0].CardType != "Gold" || out.Balances[0].CurrentBalance != "$150.00" {
		t.Errorf("balances[0] = %+v", out.Balances[0])
	}
	if out.Total != "$350.00" {
		t.Errorf("total = %q, want $350.00", out.Total)
	}
}

func TestTransactionsEndpointFilters(t *testing.T) {
	s, _ := newTestServer(t, true)

	rec := get(t, s, "/api/transactions?card=Gold&range=7d")
	var out struct {
		Transactions []struct {
			Description string `json:"description"`
			Amount      string `json:"amount"`
			IsCharge    bool   `json:"isCharge"`
		} `json:"transactions"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 || out.Transactions[0].Description != "GROCERY STORE" {
		t.Errorf("got %+v", out)
	}
	if out.Transactions[0].Amount != "-$50.00" || !out.Transactions[0].IsCharge {
		t.Errorf("transactions[0] = %+v", out.Transactions[0])
	}

	rec = get(t, s, "/api/transactions?q=nonexistent")
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 0 {
		t.Errorf("count = %d for no-match query, want 0", out.Count)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/api/metrics/categories?range=7d")

	var out struct {
		Categories []struct {
			Category   string `json:"category"`
			Amount     string `json:"amount"`
			Percentage string `json:"percentage"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Categories) != 2 {
		t.Fatalf("categories = %+v", out.Categories)
	}
	if out.Categories[0].Category != "Travel" || out.Categories[0].Amount != "$200.00" || out.Categories[0].Percentage != "80.00" {
		t.Errorf("categories[0] = %+v", out.Categories[0])
	}
}

func TestMaxMultipleEndpoint(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/api/metrics/max-multiple?card=Gold&range=7d")
	if !strings.Contains(rec.Body.String(), `"multiple":"4"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = get(t, s, "/api/metrics/max-multiple?q=zzz")
	if !strings.Contains(rec.Body.String(), `"available":false`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRefreshPurgesResponseCache(t *testing.T) {
	s, src := newTestServer(t, true)

	first := get(t, s, "/api/balances")

	// Change the source, then hit the cached path: still the old body.
	src.SetTransactions(nil)
	cached := get(t, s, "/api/balances")
	if cached.Body.String() != first.Body.String() {
		t.Fatal("response should be served from cache before refresh")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("refresh status = %d, want 202", rec.Code)
	}

	after := get(t, s, "/api/balances")
	if after.Body.String() == first.Body.String() {
		t.Error("response cache should be purged by refresh")
	}
	if !strings.Contains(after.Body.String(), "$100.00") {
		t.Errorf("body = %s, want starting balance after empty ledger", after.Body.String())
	}
}

type stubPublisher struct {
	published int
}

func (p *stubPublisher) PublishRefreshRequest(_ context.Context, _ string) (string, error) {
	p.published++
	return "worker-run", nil
}

func TestRefreshWithPublisherServesRebuiltState(t *testing.T) {
	src := memory.New(
		[]core.CardRecord{{
			CardType:        "Gold",
			ClosingDay:      12,
			DueDay:          27,
			StartingBalance: decimal.NewFromInt(100),
			StartingDate:    daysAgo(40),
		}},
		[]core.TransactionRecord{{
			Date:              daysAgo(3),
			Description:       "GROCERY STORE",
			Amount:            decimal.NewFromInt(-50),
			AccountIdentifier: "Gold",
			PointMultiple:     decimal.NewFromInt(1),
		}},
		nil,
	)
	pub := &stubPublisher{}
	dashboard := services.NewDashboard(src, nil, pub)
	if err := dashboard.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	s := NewServer(":0", dashboard, applog.New(applog.DefaultConfig()), 64, time.Minute)

	if body := get(t, s, "/api/balances").Body.String(); !strings.Contains(body, "$150.00") {
		t.Fatalf("pre-refresh body = %s", body)
	}

	src.SetTransactions(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("refresh status = %d", rec.Code)
	}
	if pub.published != 1 {
		t.Errorf("published = %d, want 1", pub.published)
	}

	// Forwarding to the worker must not leave this process serving the
	// old balances.
	after := get(t, s, "/api/balances")
	if !strings.Contains(after.Body.String(), "$100.00") {
		t.Errorf("post-refresh body = %s, want rebuilt starting balance", after.Body.String())
	}
}

type stubSnapshotRepo struct {
	latest  []core.CalculatedBalance
	history []core.CalculatedBalance
}

func (r *stubSnapshotRepo) SaveRun(context.Context, storage.ImportRun, []core.CalculatedBalance) error {
	return nil
}

func (r *stubSnapshotRepo) LatestSnapshots(context.Context) ([]core.CalculatedBalance, error) {
	return r.latest, nil
}

func (r *stubSnapshotRepo) History(context.Context, string, int) ([]core.CalculatedBalance, error) {
	return r.history, nil
}

func TestSnapshotEndpointsWithoutStore(t *testing.T) {
	s, _ := newTestServer(t, true)
	if rec := get(t, s, "/api/snapshots"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/snapshots = %d, want 404", rec.Code)
	}
	if rec := get(t, s, "/api/balances/history?card=Gold"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/balances/history = %d, want 404", rec.Code)
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	calculated := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	repo := &stubSnapshotRepo{
		latest:  []core.CalculatedBalance{{CardType: "Gold", CurrentBalance: decimal.NewFromInt(150), LastCalculated: calculated}},
		history: []core.CalculatedBalance{{CardType: "Gold", CurrentBalance: decimal.NewFromInt(90), LastCalculated: calculated}},
	}
	src := memory.New(nil, nil, nil)
	dashboard := services.NewDashboard(src, repo, nil)
	s := NewServer(":0", dashboard, applog.New(applog.DefaultConfig()), 64, time.Minute)

	rec := get(t, s, "/api/snapshots")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/snapshots = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"balance":"$150.00"`) {
		t.Errorf("snapshots body = %s", rec.Body.String())
	}

	rec = get(t, s, "/api/balances/history?card=Gold&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/balances/history = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"balance":"$90.00"`) {
		t.Errorf("history body = %s", rec.Body.String())
	}

	if rec := get(t, s, "/api/balances/history"); rec.Code != http.StatusBadRequest {
		t.Errorf("history without card = %d, want 400", rec.Code)
	}
}

func TestValidationEndpoint(t *testing.T) {
	s, src := newTestServer(t, true)
	src.SetTransactions([]core.TransactionRecord{
		{Date: daysAgo(1), AccountIdentifier: "Mystery", Amount: decimal.NewFromInt(-1)},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	s.Handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := get(t, s, "/api/validation")
	if !strings.Contains(rec.Body.String(), `"clean":false`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Mystery") {
		t.Errorf("body should list the unresolved label: %s", rec.Body.String())
	}
}
