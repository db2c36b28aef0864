package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AiCodeFutures/usermanage/internal/bmi"
	"github.com/AiCodeFutures/usermanage/internal/router"
	"github.com/AiCodeFutures/usermanage/internal/suggest"
	"github.com/AiCodeFutures/usermanage/internal/token"
	"github.com/AiCodeFutures/usermanage/internal/user"
	userrepo "github.com/AiCodeFutures/usermanage/internal/user/repo"
	"github.com/AiCodeFutures/usermanage/pkg/database"
	"github.com/AiCodeFutures/usermanage/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	logCfg := utilities.ConfigFromEnv()
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting usermanage api")

	tokenCfg := token.ConfigFromEnv()
	if tokenCfg.UsesDefaultSecret() {
		if !logCfg.Dev {
			sugar.Fatal("JWT_SECRET must be set unless LOG_DEV=1")
		}
		sugar.Warn("JWT_SECRET not set, signing tokens with the development secret")
	}

	cfg := database.ConfigFromEnv()
	db, err := database.Open(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	version, err := userrepo.Migrate(migrateCtx, db.DB, cfg.Driver)
	cancelMigrate()
	if err != nil {
		sugar.Fatalf("migrate: %v", err)
	}
	sugar.Infow("schema ready", "driver", cfg.Driver, "version", version)

	suggester, closeSuggester := suggest.New(suggest.ConfigFromEnv(), sugar)
	defer closeSuggester()

	issuer := token.NewIssuer(tokenCfg)
	userSvc := user.NewUserService(db, nil, nil)
	handler := router.RegisterRoutes(sugar,
		user.NewHandler(userSvc, issuer, sugar),
		bmi.NewHandler(bmi.NewService(userSvc, suggester, sugar), sugar),
		issuer,
	)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for in-flight requests
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
