// README: Integration tests for the account endpoints over a fake store.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tamtom/internal/cache"
	"tamtom/internal/http/handlers"
	"tamtom/internal/modules/account"
	"tamtom/internal/types"
)

// fakeStore is a minimal in-memory account.Store for handler tests.
type fakeStore struct {
	accounts    map[types.ID]*account.Account
	txs         []account.Transaction
	withdrawals []account.Withdrawal
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[types.ID]*account.Account)}
}

func (f *fakeStore) GetAccount(_ context.Context, id types.ID) (*account.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, a *account.Account) error {
	if _, ok := f.accounts[a.RestaurantID]; ok {
		return nil
	}
	cp := *a
	f.accounts[a.RestaurantID] = &cp
	return nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, a *account.Account) error {
	cp := *a
	f.accounts[a.RestaurantID] = &cp
	return nil
}

func (f *fakeStore) PostRevenue(_ context.Context, updated *account.Account, revenueTx, commissionTx *account.Transaction) error {
	for _, t := range f.txs {
		if t.Type == account.TxOrderRevenue && t.OrderID != nil && revenueTx.OrderID != nil && *t.OrderID == *revenueTx.OrderID {
			return account.ErrRevenuePosted
		}
	}
	cp := *updated
	f.accounts[updated.RestaurantID] = &cp
	f.txs = append(f.txs, *revenueTx, *commissionTx)
	return nil
}

func (f *fakeStore) ApplyWithdrawal(_ context.Context, updated *account.Account, w *account.Withdrawal, tx *account.Transaction) error {
	cp := *updated
	f.accounts[updated.RestaurantID] = &cp
	f.withdrawals = append(f.withdrawals, *w)
	f.txs = append(f.txs, *tx)
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, id types.ID, filter account.TransactionFilter) ([]account.Transaction, error) {
	var out []account.Transaction
	for _, t := range f.txs {
		if t.RestaurantID != id {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) ListWithdrawals(_ context.Context, id types.ID, status account.WithdrawalStatus) ([]account.Withdrawal, error) {
	var out []account.Withdrawal
	for _, w := range f.withdrawals {
		if w.RestaurantID != id {
			continue
		}
		if status != "" && w.Status != status {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeStore) UpsertDailyStats(_ context.Context, _ *account.DailyStats) error { return nil }

func (f *fakeStore) DailyStatsRange(_ context.Context, _ types.ID, _, _ time.Time) ([]account.DailyStats, error) {
	return nil, nil
}

func buildAccountRouter(t *testing.T, store account.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := account.NewService(store, nil, nil)
	statsCache := cache.New[string, *account.Stats](0)
	t.Cleanup(statsCache.Close)
	h := handlers.NewAccountHandler(svc, statsCache, 30*time.Second)
	r := gin.New()
	r.GET("/api/restaurants/:id/account", h.GetAccount)
	r.POST("/api/restaurants/:id/withdraw", h.Withdraw)
	r.GET("/api/restaurants/:id/withdrawals", h.ListWithdrawals)
	r.GET("/api/restaurants/:id/stats", h.GetStats)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedAccount(store *fakeStore, id types.ID, available int64) {
	now := time.Now().UTC()
	store.accounts[id] = &account.Account{
		RestaurantID:     id,
		CommissionRate:   account.DefaultCommissionRate,
		AvailableBalance: types.NewMoney(available),
		TotalRevenue:     types.NewMoney(available),
		PendingAmount:    types.NewMoney(0),
		TotalCommission:  types.NewMoney(0),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestWithdrawEndpointSuccess(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "rest-1", 8500)
	r := buildAccountRouter(t, store)

	w := doJSON(r, http.MethodPost, "/api/restaurants/rest-1/withdraw", map[string]any{
		"amount":         "30.00",
		"payment_method": "bank_transfer",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success    bool `json:"success"`
		Withdrawal struct {
			Amount string `json:"amount"`
			Status string `json:"status"`
		} `json:"withdrawal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Withdrawal.Amount != "30.00" || resp.Withdrawal.Status != "pending" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	acct := store.accounts[types.ID("rest-1")]
	if acct.AvailableBalance.Amount != 5500 || acct.PendingAmount.Amount != 3000 {
		t.Fatalf("balances not moved: available=%d pending=%d", acct.AvailableBalance.Amount, acct.PendingAmount.Amount)
	}
}

func TestWithdrawEndpointFailures(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "rest-1", 1000)
	r := buildAccountRouter(t, store)

	cases := []struct {
		name       string
		restaurant string
		amount     string
		wantStatus int
		wantMsg    string
	}{
		{"unknown account", "ghost", "10.00", http.StatusNotFound, "حساب المطعم غير موجود"},
		{"zero amount", "rest-1", "0", http.StatusBadRequest, "المبلغ يجب أن يكون أكبر من صفر"},
		{"over balance", "rest-1", "99.00", http.StatusUnprocessableEntity, "الرصيد غير كافٍ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/restaurants/"+tc.restaurant+"/withdraw", map[string]any{
				"amount": tc.amount,
			})
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", w.Code, tc.wantStatus, w.Body.String())
			}
			var resp struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Success {
				t.Fatal("success should be false")
			}
			if resp.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", resp.Message, tc.wantMsg)
			}
		})
	}

	// Failed withdrawals must not move balances.
	acct := store.accounts[types.ID("rest-1")]
	if acct.AvailableBalance.Amount != 1000 || acct.PendingAmount.Amount != 0 {
		t.Fatalf("balances changed on failure: %+v", acct)
	}
}

func TestGetAccountCreatesLazily(t *testing.T) {
	store := newFakeStore()
	r := buildAccountRouter(t, store)

	w := doJSON(r, http.MethodGet, "/api/restaurants/brand-new/account", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		RestaurantID     string  `json:"restaurant_id"`
		CommissionRate   float64 `json:"commission_rate"`
		AvailableBalance string  `json:"available_balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.RestaurantID != "brand-new" || resp.CommissionRate != account.DefaultCommissionRate || resp.AvailableBalance != "0.00" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStatsEndpointRejectsBadPeriod(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "rest-1", 0)
	r := buildAccountRouter(t, store)

	if w := doJSON(r, http.MethodGet, "/api/restaurants/rest-1/stats?period=fortnight", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/api/restaurants/rest-1/stats?period=week", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
