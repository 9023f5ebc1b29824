package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/ttleague/ladder-system/config"
	"github.com/ttleague/ladder-system/db"
	"github.com/ttleague/ladder-system/handlers"
	"github.com/ttleague/ladder-system/live"
	"github.com/ttleague/ladder-system/repositories"
	api "github.com/ttleague/ladder-system/routes"
	"github.com/ttleague/ladder-system/services"
)

const expirySweepInterval = 60 * time.Second // How often the expiry sweep runs

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.EnsureSchema(context.Background(), dbConn); err != nil {
		logger.Error("failed to ensure database schema", slog.Any("error", err))
		os.Exit(1)
	}

	clock, err := services.NewClock(clockwork.NewRealClock(), cfg.LocalTimezone)
	if err != nil {
		logger.Error("failed to initialize clock", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация WebSocket Hub
	hub := live.NewHub(logger)
	go hub.Run()
	logger.Info("WebSocket hub started")

	// Инициализация репозиториев
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	rankingRepo := repositories.NewPostgresRankingRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	bonusRepo := repositories.NewPostgresBonusRuleRepository(dbConn)
	ongoingRepo := repositories.NewPostgresOngoingMatchRepository(dbConn)
	finishedRepo := repositories.NewPostgresFinishedMatchRepository(dbConn)
	authRepo := repositories.NewPostgresAuthRepository(dbConn)
	logRepo := repositories.NewPostgresLogRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	audit := services.NewDBAudit(logRepo, logger)
	repairService := services.NewRepairService(dbConn, playerRepo, standingRepo, audit)
	standingsService := services.NewStandingsService(dbConn, playerRepo, rankingRepo, standingRepo, repairService, audit)
	bonusService := services.NewBonusService(standingRepo, bonusRepo, audit)
	promoter := services.NewPromoter(standingRepo, audit)
	matchService := services.NewMatchService(
		dbConn,
		playerRepo,
		rankingRepo,
		standingRepo,
		ongoingRepo,
		finishedRepo,
		bonusService,
		promoter,
		clock,
		audit,
		hub,
	)
	rankingService := services.NewRankingService(
		dbConn,
		rankingRepo,
		standingRepo,
		ongoingRepo,
		finishedRepo,
		standingsService,
		clock,
		audit,
	)
	playerService := services.NewPlayerService(
		dbConn,
		playerRepo,
		standingRepo,
		ongoingRepo,
		bonusRepo,
		standingsService,
		repairService,
		audit,
	)
	authService := services.NewAuthService(authRepo, clock, audit, []byte(cfg.JWTSecretKey))
	logService := services.NewLogService(logRepo)
	logger.Info("services initialized")

	if err := authService.Bootstrap(context.Background(), cfg.ViewerPassword, cfg.TrainerPassword); err != nil {
		logger.Error("failed to bootstrap auth realms", slog.Any("error", err))
		os.Exit(1)
	}

	router := api.InitRoutes(api.Deps{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		Logger:         logger,
		RankingService: rankingService,

		Auth:    handlers.NewAuthHandler(authService),
		Ranking: handlers.NewRankingHandler(rankingService, standingsService, matchService, repairService, clock),
		Match:   handlers.NewMatchHandler(matchService),
		Player:  handlers.NewPlayerHandler(playerService, standingsService, bonusService),
		Log:     handlers.NewLogHandler(logService),
		WS:      handlers.NewWSHandler(hub, rankingService),
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Периодическая проверка истёкших списков
	group.Go(func() error {
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if n, err := rankingService.AutoExpire(groupCtx); err != nil {
					logger.Error("expiry sweep failed", slog.Any("error", err))
				} else if n > 0 {
					logger.Info("expiry sweep ended rankings", slog.Int("count", n))
				}
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}
