// README: Restaurant account endpoints: balances, ledger, withdrawals, stats.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tamtom/internal/cache"
	"tamtom/internal/modules/account"
	"tamtom/internal/types"
)

type AccountHandler struct {
	accounts *account.Service
	stats    *cache.Cache[string, *account.Stats]
	statsTTL time.Duration
}

func NewAccountHandler(svc *account.Service, statsCache *cache.Cache[string, *account.Stats], statsTTL time.Duration) *AccountHandler {
	return &AccountHandler{accounts: svc, stats: statsCache, statsTTL: statsTTL}
}

type accountResponse struct {
	RestaurantID     types.ID    `json:"restaurant_id"`
	CommissionRate   float64     `json:"commission_rate"`
	TotalOrders      int64       `json:"total_orders"`
	TotalRevenue     types.Money `json:"total_revenue"`
	TotalCommission  types.Money `json:"total_commission"`
	AvailableBalance types.Money `json:"available_balance"`
	PendingAmount    types.Money `json:"pending_amount"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		RestaurantID:     a.RestaurantID,
		CommissionRate:   a.CommissionRate,
		TotalOrders:      a.TotalOrders,
		TotalRevenue:     a.TotalRevenue,
		TotalCommission:  a.TotalCommission,
		AvailableBalance: a.AvailableBalance,
		PendingAmount:    a.PendingAmount,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	id := types.ID(c.Param("id"))
	a, err := h.accounts.GetOrCreateAccount(c.Request.Context(), id)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toAccountResponse(a))
}

type updateAccountReq struct {
	CommissionRate *float64 `json:"commission_rate"`
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id := types.ID(c.Param("id"))
	var req updateAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := h.accounts.UpdateAccount(c.Request.Context(), id, account.AccountPatch{
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		writeAccountError(c, err)
		return
	}
	// Stale stats would report the old rate's commission split.
	h.stats.Delete(statsCacheKey(id, account.PeriodToday))
	h.stats.Delete(statsCacheKey(id, account.PeriodWeek))
	h.stats.Delete(statsCacheKey(id, account.PeriodMonth))
	h.stats.Delete(statsCacheKey(id, account.PeriodAll))
	writeJSON(c, http.StatusOK, toAccountResponse(a))
}

func statsCacheKey(id types.ID, p account.Period) string {
	return string(id) + ":" + string(p)
}

func (h *AccountHandler) GetStats(c *gin.Context) {
	id := types.ID(c.Param("id"))
	period, err := account.ParsePeriod(c.Query("period"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	key := statsCacheKey(id, period)
	if st, ok := h.stats.Get(key); ok {
		writeJSON(c, http.StatusOK, st)
		return
	}

	st, err := h.accounts.Stats(c.Request.Context(), id, period)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	h.stats.Set(key, st, h.statsTTL)
	writeJSON(c, http.StatusOK, st)
}

type transactionResponse struct {
	ID            string                  `json:"id"`
	OrderID       *types.ID               `json:"order_id,omitempty"`
	Type          account.TransactionType `json:"type"`
	Amount        types.Money             `json:"amount"`
	BalanceBefore types.Money             `json:"balance_before"`
	BalanceAfter  types.Money             `json:"balance_after"`
	Description   string                  `json:"description"`
	CreatedAt     time.Time               `json:"created_at"`
}

func (h *AccountHandler) ListTransactions(c *gin.Context) {
	id := types.ID(c.Param("id"))
	f := account.TransactionFilter{
		Type:   account.TransactionType(c.Query("type")),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	txs, err := h.accounts.Transactions(c.Request.Context(), id, f)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionResponse{
			ID:            t.ID,
			OrderID:       t.OrderID,
			Type:          t.Type,
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Description:   t.Description,
			CreatedAt:     t.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"transactions": out})
}

type withdrawReq struct {
	Amount        types.Money `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes"`
}

type withdrawalResponse struct {
	ID            string                   `json:"id"`
	Amount        types.Money              `json:"amount"`
	Status        account.WithdrawalStatus `json:"status"`
	PaymentMethod string                   `json:"payment_method"`
	Notes         string                   `json:"notes,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	ProcessedAt   *time.Time               `json:"processed_at,omitempty"`
}

func toWithdrawalResponse(w *account.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:            w.ID,
		Amount:        w.Amount,
		Status:        w.Status,
		PaymentMethod: w.PaymentMethod,
		Notes:         w.Notes,
		CreatedAt:     w.CreatedAt,
		ProcessedAt:   w.ProcessedAt,
	}
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	id := types.ID(c.Param("id"))
	var req withdrawReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	w, err := h.accounts.RequestWithdrawal(c.Request.Context(), id, req.Amount, req.PaymentMethod, req.Notes)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"success": true, "withdrawal": toWithdrawalResponse(w)})
}

func (h *AccountHandler) ListWithdrawals(c *gin.Context) {
	id := types.ID(c.Param("id"))
	ws, err := h.accounts.Withdrawals(c.Request.Context(), id, account.WithdrawalStatus(c.Query("status")))
	if err != nil {
		writeAccountError(c, err)
		return
	}
	out := make([]withdrawalResponse, 0, len(ws))
	for i := range ws {
		out = append(out, toWithdrawalResponse(&ws[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"withdrawals": out})
}

type dailyStatsResponse struct {
	Day         string      `json:"day"`
	OrdersCount int64       `json:"orders_count"`
	Revenue     types.Money `json:"revenue"`
	Commission  types.Money `json:"commission"`
}

func (h *AccountHandler) DailyStats(c *gin.Context) {
	id := types.ID(c.Param("id"))
	from, err := dateQuery(c, "from", time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := dateQuery(c, "to", time.Now().UTC())
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid to date")
		return
	}
	rows, err := h.accounts.DailyStats(c.Request.Context(), id, from, to)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	out := make([]dailyStatsResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dailyStatsResponse{
			Day:         r.Day.Format("2006-01-02"),
			OrdersCount: r.OrdersCount,
			Revenue:     r.Revenue,
			Commission:  r.Commission,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"daily_stats": out})
}

type updateDailyStatsReq struct {
	Date string `json:"date"` // YYYY-MM-DD, empty means today
}

func (h *AccountHandler) UpdateDailyStats(c *gin.Context) {
	id := types.ID(c.Param("id"))
	var req updateDailyStatsReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	day := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid date")
			return
		}
		day = parsed
	}
	row, err := h.accounts.RecordDailyStats(c.Request.Context(), id, day)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dailyStatsResponse{
		Day:         row.Day.Format("2006-01-02"),
		OrdersCount: row.OrdersCount,
		Revenue:     row.Revenue,
		Commission:  row.Commission,
	})
}

func intQuery(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func dateQuery(c *gin.Context, key string, def time.Time) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", v)
}
