package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AiCodeFutures/usermanage/internal/cli"
	"github.com/AiCodeFutures/usermanage/internal/user"
	userrepo "github.com/AiCodeFutures/usermanage/internal/user/repo"
	"github.com/AiCodeFutures/usermanage/pkg/database"
	"github.com/AiCodeFutures/usermanage/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	logCfg := utilities.ConfigFromEnv()
	if os.Getenv("LOG_LEVEL") == "" {
		// keep the terminal clean unless asked otherwise
		logCfg.Level = "warn"
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg := database.ConfigFromEnv()
	db, err := database.Open(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := userrepo.Migrate(ctx, db.DB, cfg.Driver); err != nil {
		sugar.Fatalf("migrate: %v", err)
	}

	app := cli.NewApp(user.NewUserService(db, nil, nil), os.Stdin, os.Stdout, int(os.Stdin.Fd()), sugar)
	app.Run(ctx)
}
