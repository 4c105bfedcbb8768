package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/config"
	"github.com/goliatone/go-homie/provider/local"
	"github.com/goliatone/go-homie/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Local.SigningKey == "" || cfg.Provider.APIKey == "" {
		return errors.New("local.signing_key and provider.api_key are required")
	}

	db, err := local.Open(cfg.Local.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := local.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger := homie.DefaultLogger()
	accounts := local.NewAccounts(db, cfg, local.WithAccountsLogger(logger), local.WithHashedIDs())
	srv := server.New(accounts, cfg, server.WithLogger(logger))

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.Error("shutdown: %v", err)
		}
	}()

	logger.Info("listening on %s", cfg.Server.Addr)
	if err := srv.Listen(cfg.Server.Addr); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
