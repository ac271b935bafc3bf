// Entry point; loads config, wires services, starts the HTTP server and the
// badge backfill worker.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gymbeat/internal/config"
	httptransport "gymbeat/internal/http"
	"gymbeat/internal/infra"
	"gymbeat/internal/logging"
	"gymbeat/internal/maps"
	"gymbeat/internal/modules/badge"
	"gymbeat/internal/modules/checkin"
	"gymbeat/internal/modules/gym"
	"gymbeat/internal/types"
)

// ledgerStats adapts attendance stats to the badge backfill interface.
type ledgerStats struct {
	ledger *checkin.Ledger
}

func (l *ledgerStats) Snapshot(ctx context.Context, userID types.ID) (badge.Snapshot, error) {
	s, err := l.ledger.GetStats(ctx, userID)
	if err != nil {
		return badge.Snapshot{}, err
	}
	return badge.Snapshot{
		TotalCheckins:     s.TotalCheckins,
		UniqueGymCount:    s.UniqueGymCount,
		CurrentStreakDays: s.CurrentStreakDays,
		ThisWeekCount:     s.ThisWeekCount,
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Checkin.Timezone)
	if err != nil {
		logger.Fatal("invalid GYMBEAT_CHECKIN_TZ", zap.String("tz", cfg.Checkin.Timezone), zap.Error(err))
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer func() { _ = redisClient.Close() }()

	gymStore := gym.NewStore(dbPool, redisClient)
	var places gym.Places
	if cfg.Maps.APIKey != "" {
		placesSvc, err := maps.NewPlacesService(cfg.Maps.APIKey)
		if err != nil {
			logger.Fatal("maps init", zap.Error(err))
		}
		places = placesSvc
	}
	gymSvc := gym.NewService(gymStore, gymStore, places, cfg.Checkin.DefaultAllowedRadiusMeters, logger)

	ledger := checkin.NewLedger(checkin.NewPGStore(dbPool), loc, logger)
	badgeSvc := badge.NewService(
		badge.NewPGStore(dbPool),
		badge.NewRedisQueue(redisClient),
		&ledgerStats{ledger: ledger},
		logger,
	)
	checkinSvc := checkin.NewService(
		gymSvc,
		ledger,
		badgeSvc,
		cfg.Checkin.RequiredAccuracyMeters,
		cfg.Search.RadiusKm,
		cfg.Checkin.InfraTimeout,
		logger,
	)

	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Checkin: checkinSvc,
		Gyms:    gymSvc,
		Badges:  badgeSvc,
		Policy:  cfg.Checkin,
		Log:     logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go badgeSvc.RunBackfill(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
