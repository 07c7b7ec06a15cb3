package account

import (
	"context"
	"sync"
	"time"

	"tamtom/internal/types"
)

// memStore is an in-memory Store for service tests. It honors the same
// atomicity contract as the pg implementation: each Post/Apply either lands
// completely or not at all, under one lock.
type memStore struct {
	mu          sync.Mutex
	accounts    map[types.ID]*Account
	txs         []Transaction
	withdrawals []Withdrawal
	daily       map[string]DailyStats
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[types.ID]*Account),
		daily:    make(map[string]DailyStats),
	}
}

func (m *memStore) GetAccount(_ context.Context, id types.ID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.RestaurantID]; ok {
		return nil
	}
	cp := *a
	m.accounts[a.RestaurantID] = &cp
	return nil
}

func (m *memStore) UpdateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.RestaurantID]; !ok {
		return ErrAccountNotFound
	}
	cp := *a
	m.accounts[a.RestaurantID] = &cp
	return nil
}

func (m *memStore) PostRevenue(_ context.Context, updated *Account, revenueTx, commissionTx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.Type == TxOrderRevenue && t.OrderID != nil && revenueTx.OrderID != nil && *t.OrderID == *revenueTx.OrderID {
			return ErrRevenuePosted
		}
	}
	if _, ok := m.accounts[updated.RestaurantID]; !ok {
		return ErrAccountNotFound
	}
	cp := *updated
	m.accounts[updated.RestaurantID] = &cp
	m.txs = append(m.txs, *revenueTx, *commissionTx)
	return nil
}

func (m *memStore) ApplyWithdrawal(_ context.Context, updated *Account, w *Withdrawal, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[updated.RestaurantID]; !ok {
		return ErrAccountNotFound
	}
	cp := *updated
	m.accounts[updated.RestaurantID] = &cp
	m.withdrawals = append(m.withdrawals, *w)
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, id types.ID, f TransactionFilter) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transaction
	// Newest first, like the SQL store.
	for i := len(m.txs) - 1; i >= 0; i-- {
		t := m.txs[i]
		if t.RestaurantID != id {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if !f.Since.IsZero() && t.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, t)
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) ListWithdrawals(_ context.Context, id types.ID, status WithdrawalStatus) ([]Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Withdrawal
	for i := len(m.withdrawals) - 1; i >= 0; i-- {
		w := m.withdrawals[i]
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

func (m *memStore) UpsertDailyStats(_ context.Context, d *DailyStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.daily[string(d.RestaurantID)+d.Day.Format("2006-01-02")] = *d
	return nil
}

func (m *memStore) DailyStatsRange(_ context.Context, id types.ID, from, to time.Time) ([]DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DailyStats
	for _, d := range m.daily {
		if d.RestaurantID == id && !d.Day.Before(from) && !d.Day.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

// snapshot returns copies for assertions.
func (m *memStore) snapshot() ([]Transaction, []Withdrawal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs := append([]Transaction(nil), m.txs...)
	ws := append([]Withdrawal(nil), m.withdrawals...)
	return txs, ws
}
