// README: Entry point; loads config, wires services, starts the HTTP server
// and the websocket relay.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tamtom/internal/cache"
	"tamtom/internal/config"
	httptransport "tamtom/internal/http"
	"tamtom/internal/infra"
	"tamtom/internal/logger"
	"tamtom/internal/maps"
	"tamtom/internal/modules/account"
	"tamtom/internal/modules/delivery"
	"tamtom/internal/modules/location"
	"tamtom/internal/modules/order"
	"tamtom/internal/relay"
	"tamtom/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.Env, cfg.Log.Level)
	log := logger.L()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var roads delivery.DistanceProvider
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatal("maps client init failed", zap.Error(err))
		}
		roads = routeSvc
	}
	deliverySvc := delivery.NewService(deliverySettings(cfg.Delivery), roads)

	hub := relay.NewHub(cfg.Relay.SendBuffer, time.Duration(cfg.Relay.WriteTimeout)*time.Second)

	orderStore := order.NewStore(dbPool)
	accountStore := account.NewPGStore(dbPool)
	ratingStore := account.NewPGRatingStore(dbPool)
	accountSvc := account.NewService(accountStore, orderStore, ratingStore)

	orderSvc := order.NewService(orderStore, deliverySvc, accountSvc)

	locationStore := location.NewStore(dbPool, redisClient)
	locationSvc := location.NewService(locationStore, hub)

	statsCache := cache.New[string, *account.Stats](time.Minute)
	defer statsCache.Close()

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Accounts:   accountSvc,
		Orders:     orderSvc,
		Delivery:   deliverySvc,
		Locations:  locationSvc,
		Hub:        hub,
		StatsCache: statsCache,
		StatsTTL:   time.Duration(cfg.Cache.StatsTTLSeconds) * time.Second,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
}

func deliverySettings(c config.DeliveryConfig) delivery.Settings {
	s := delivery.Settings{
		BaseFee:  types.NewMoney(c.BaseFee),
		PerKmFee: types.NewMoney(c.PerKmFee),
		MinFee:   types.NewMoney(c.MinFee),
		MaxFee:   types.NewMoney(c.MaxFee),
	}
	if c.FreeDeliveryThreshold > 0 {
		threshold := types.NewMoney(c.FreeDeliveryThreshold)
		s.FreeDeliveryThreshold = &threshold
	}
	return s
}
