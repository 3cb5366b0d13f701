package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"loan-ledger/internal/auth"
	"loan-ledger/internal/cache"
	"loan-ledger/internal/config"
	apphttp "loan-ledger/internal/http"
	"loan-ledger/internal/repository"
	"loan-ledger/internal/repository/memory"
	"loan-ledger/internal/repository/sqlite"
	"loan-ledger/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, loanRepo, cleanup, err := buildRepositories(cfg)
	if err != nil {
		logger.Fatalf("setup repositories: %v", err)
	}
	defer cleanup()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := loanRepo.Init(ctx); err != nil {
		logger.Fatalf("init loan repository: %v", err)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	authService := service.NewAuthService(userRepo, tokens, cfg.Auth.AllowSelfServeAdmin, logger)
	loanService := service.NewLoanService(loanRepo, userRepo, logger)

	if cfg.Seed.Loans {
		if err := loanService.SeedDefaults(ctx); err != nil {
			logger.Warnf("seed loans: %v", err)
		}
	}

	var limiter *cache.Cache
	if cfg.RateLimit.Enabled {
		limiter = cache.New(time.Minute)
		defer limiter.Close()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(authService, loanService, limiter, apphttp.NewMetrics(), logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildRepositories(cfg config.Config) (repository.UserRepository, repository.LoanRepository, func(), error) {
	if cfg.Database.Backend == "sqlite" {
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewUserRepository(db), sqlite.NewLoanRepository(db), func() { db.Close() }, nil
	}
	return memory.NewUserRepository(), memory.NewLoanRepository(), func() {}, nil
}
