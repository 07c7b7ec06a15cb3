// README: HTTP router registration.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tamtom/internal/cache"
	"tamtom/internal/http/handlers"
	"tamtom/internal/http/middleware"
	"tamtom/internal/modules/account"
	"tamtom/internal/modules/delivery"
	"tamtom/internal/modules/location"
	"tamtom/internal/modules/order"
	"tamtom/internal/relay"
)

type RouterDeps struct {
	Accounts  *account.Service
	Orders    *order.Service
	Delivery  *delivery.Service
	Locations *location.Service
	Hub       *relay.Hub

	StatsCache *cache.Cache[string, *account.Stats]
	StatsTTL   time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging(), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if deps.Hub != nil {
		r.GET("/ws", gin.WrapF(deps.Hub.ServeWS))
	}

	api := r.Group("/api")

	accountHandler := handlers.NewAccountHandler(deps.Accounts, deps.StatsCache, deps.StatsTTL)
	restaurants := api.Group("/restaurants/:id")
	restaurants.GET("/account", accountHandler.GetAccount)
	restaurants.PATCH("/account", accountHandler.UpdateAccount)
	restaurants.GET("/stats", accountHandler.GetStats)
	restaurants.GET("/transactions", accountHandler.ListTransactions)
	restaurants.POST("/withdraw", accountHandler.Withdraw)
	restaurants.GET("/withdrawals", accountHandler.ListWithdrawals)
	restaurants.GET("/daily-stats", accountHandler.DailyStats)
	restaurants.POST("/update-daily-stats", accountHandler.UpdateDailyStats)

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/status", orderHandler.UpdateStatus)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)

	deliveryHandler := handlers.NewDeliveryHandler(deps.Delivery)
	api.POST("/delivery/quote", deliveryHandler.Quote)

	locationHandler := handlers.NewLocationHandler(deps.Locations)
	api.PUT("/drivers/:id/location", locationHandler.Update)
	api.DELETE("/drivers/:id/location", locationHandler.Deactivate)
	api.GET("/drivers/nearby", locationHandler.Nearby)

	return r
}
